package razorpay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	razorpaysdk "github.com/razorpay/razorpay-go"

	"github.com/awesome-pro/subtrack/pkg/config"
	pkgerrors "github.com/awesome-pro/subtrack/pkg/errors"
	"github.com/awesome-pro/subtrack/pkg/logger"
)

var (
	errLoggerRequired = errors.New("razorpay logger is required")

	// ErrNotConfigured is surfaced when gateway credentials are absent.
	// Trial flows still work without them; paid flows do not.
	ErrNotConfigured = pkgerrors.New(pkgerrors.CodeDependency, "payment gateway is not configured")
)

// Client wraps the Razorpay SDK with typed payloads, logging, and error mapping.
type Client struct {
	sdk    *razorpaysdk.Client
	logger *logger.Logger
}

// NewClient initializes the Razorpay wrapper. When credentials are missing the
// returned client is inert: every call reports CodeDependency.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	c := &Client{logger: logg}
	if !cfg.Configured() {
		logg.Warn(ctx, "razorpay credentials absent, gateway operations disabled")
		return c, nil
	}

	sdk := razorpaysdk.NewClient(strings.TrimSpace(cfg.KeyID), strings.TrimSpace(cfg.KeySecret))
	if cfg.RequestTimeout > 0 {
		sdk.SetTimeout(timeoutSeconds(cfg.RequestTimeout))
	}
	c.sdk = sdk

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// timeoutSeconds converts a duration into the SDK's int16 seconds parameter,
// clamping so oversized config values cannot overflow to a negative timeout.
func timeoutSeconds(d time.Duration) int16 {
	secs := d / time.Second
	if secs < 1 {
		return 1
	}
	if secs > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(secs)
}

// Configured reports whether the gateway can serve requests.
func (c *Client) Configured() bool {
	return c != nil && c.sdk != nil
}

// CreateCustomer registers a billing customer with the gateway.
func (c *Client) CreateCustomer(ctx context.Context, params CustomerParams) (CustomerRef, error) {
	if !c.Configured() {
		return CustomerRef{}, ErrNotConfigured
	}

	data := map[string]interface{}{
		"name":  params.Name,
		"email": params.Email,
	}
	if params.Contact != "" {
		data["contact"] = params.Contact
	}

	c.log(ctx, "request", "create_customer", map[string]any{"name": params.Name})

	payload, err := c.sdk.Customer.Create(data, nil)
	if err != nil {
		c.log(ctx, "error", "create_customer", map[string]any{"error": err.Error()})
		return CustomerRef{}, c.mapGatewayError(err, "create customer")
	}

	ref, err := parseCustomerRef(payload)
	if err != nil {
		return CustomerRef{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse customer payload")
	}

	c.log(ctx, "response", "create_customer", map[string]any{"customer_id": ref.ID})
	return ref, nil
}

// CreatePlan provisions a gateway plan. The gateway models plans as an item
// plus a cadence, so the item is created first and the plan references it.
func (c *Client) CreatePlan(ctx context.Context, params PlanParams) (PlanRef, error) {
	if !c.Configured() {
		return PlanRef{}, ErrNotConfigured
	}

	currency := params.Currency
	if currency == "" {
		currency = "INR"
	}
	description := params.Description
	if description == "" {
		description = fmt.Sprintf("%s Plan", params.Name)
	}
	amount := amountToSubunits(params.Amount)

	itemData := map[string]interface{}{
		"name":        params.Name,
		"amount":      amount,
		"currency":    currency,
		"description": description,
	}

	c.log(ctx, "request", "create_plan", map[string]any{"name": params.Name, "cycle": params.Cycle.String()})

	item, err := c.sdk.Item.Create(itemData, nil)
	if err != nil {
		c.log(ctx, "error", "create_plan", map[string]any{"error": err.Error()})
		return PlanRef{}, c.mapGatewayError(err, "create plan item")
	}

	itemID, err := stringField(item, "id")
	if err != nil {
		return PlanRef{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse item payload")
	}

	period, interval := periodForCycle(params.Cycle)
	planData := map[string]interface{}{
		"period":   period,
		"interval": interval,
		"item": map[string]interface{}{
			"id":          itemID,
			"name":        params.Name,
			"amount":      amount,
			"currency":    currency,
			"description": description,
		},
		"notes": map[string]interface{}{
			"description": description,
		},
	}

	payload, err := c.sdk.Plan.Create(planData, nil)
	if err != nil {
		c.log(ctx, "error", "create_plan", map[string]any{"error": err.Error()})
		return PlanRef{}, c.mapGatewayError(err, "create plan")
	}

	ref, err := parsePlanRef(payload)
	if err != nil {
		return PlanRef{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse plan payload")
	}
	if ref.ItemID == "" {
		ref.ItemID = itemID
	}

	c.log(ctx, "response", "create_plan", map[string]any{"plan_id": ref.ID})
	return ref, nil
}

// CreateSubscription starts a gateway subscription for the customer.
func (c *Client) CreateSubscription(ctx context.Context, params SubscriptionParams) (SubscriptionRef, error) {
	if !c.Configured() {
		return SubscriptionRef{}, ErrNotConfigured
	}

	data := map[string]interface{}{
		"plan_id":         params.PlanID,
		"customer_id":     params.CustomerID,
		"customer_notify": 1,
	}
	if params.TotalCount > 0 {
		data["total_count"] = params.TotalCount
	}
	if params.StartAt != nil {
		data["start_at"] = params.StartAt.Unix()
	}

	c.log(ctx, "request", "create_subscription", map[string]any{
		"plan_id":     params.PlanID,
		"customer_id": params.CustomerID,
	})

	payload, err := c.sdk.Subscription.Create(data, nil)
	if err != nil {
		c.log(ctx, "error", "create_subscription", map[string]any{"error": err.Error()})
		return SubscriptionRef{}, c.mapGatewayError(err, "create subscription")
	}

	ref, err := parseSubscriptionRef(payload)
	if err != nil {
		return SubscriptionRef{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse subscription payload")
	}

	c.log(ctx, "response", "create_subscription", map[string]any{
		"subscription_id": ref.ID,
		"status":          ref.Status,
	})
	return ref, nil
}

// CancelSubscription cancels a gateway subscription, optionally at cycle end.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string, atCycleEnd bool) (SubscriptionRef, error) {
	if !c.Configured() {
		return SubscriptionRef{}, ErrNotConfigured
	}

	data := map[string]interface{}{
		"cancel_at_cycle_end": boolToInt(atCycleEnd),
	}

	c.log(ctx, "request", "cancel_subscription", map[string]any{"subscription_id": subscriptionID})

	payload, err := c.sdk.Subscription.Cancel(subscriptionID, data, nil)
	if err != nil {
		c.log(ctx, "error", "cancel_subscription", map[string]any{"error": err.Error()})
		return SubscriptionRef{}, c.mapGatewayError(err, "cancel subscription")
	}

	ref, err := parseSubscriptionRef(payload)
	if err != nil {
		return SubscriptionRef{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse subscription payload")
	}

	c.log(ctx, "response", "cancel_subscription", map[string]any{
		"subscription_id": ref.ID,
		"status":          ref.Status,
	})
	return ref, nil
}

// FetchSubscription fetches the current gateway state of a subscription.
func (c *Client) FetchSubscription(ctx context.Context, subscriptionID string) (SubscriptionRef, error) {
	if !c.Configured() {
		return SubscriptionRef{}, ErrNotConfigured
	}

	c.log(ctx, "request", "get_subscription", map[string]any{"subscription_id": subscriptionID})

	payload, err := c.sdk.Subscription.Fetch(subscriptionID, nil, nil)
	if err != nil {
		c.log(ctx, "error", "get_subscription", map[string]any{"error": err.Error()})
		return SubscriptionRef{}, c.mapGatewayError(err, "get subscription")
	}

	ref, err := parseSubscriptionRef(payload)
	if err != nil {
		return SubscriptionRef{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse subscription payload")
	}

	c.log(ctx, "response", "get_subscription", map[string]any{
		"subscription_id": ref.ID,
		"status":          ref.Status,
	})
	return ref, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "email", "contact", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapGatewayError(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	code := pkgerrors.CodeDependency
	switch {
	case strings.Contains(msg, "authentication"), strings.Contains(msg, "unauthorized"):
		code = pkgerrors.CodeUnauthorized
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "not found"):
		code = pkgerrors.CodeNotFound
	case strings.Contains(msg, "bad request"), strings.Contains(msg, "invalid"):
		code = pkgerrors.CodeValidation
	}
	return pkgerrors.Wrap(code, err, fmt.Sprintf("razorpay %s failed", op))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

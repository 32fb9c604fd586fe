package razorpay

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/awesome-pro/subtrack/pkg/enums"
)

// CustomerParams captures the inputs for registering a billing customer.
type CustomerParams struct {
	Name    string
	Email   string
	Contact string
}

// PlanParams captures the inputs for provisioning a billing plan.
type PlanParams struct {
	Name        string
	Cycle       enums.BillingCycle
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// SubscriptionParams captures the inputs for starting a gateway subscription.
type SubscriptionParams struct {
	PlanID     string
	CustomerID string
	TotalCount int
	StartAt    *time.Time
}

// CustomerRef is the typed projection of a gateway customer payload.
type CustomerRef struct {
	ID    string
	Name  string
	Email string
}

// PlanRef is the typed projection of a gateway plan payload.
type PlanRef struct {
	ID       string
	ItemID   string
	Period   string
	Interval int64
}

// SubscriptionRef is the typed projection of a gateway subscription payload.
type SubscriptionRef struct {
	ID         string
	PlanID     string
	CustomerID string
	Status     string
	ShortURL   string
}

// periodForCycle maps a billing cadence onto the gateway's period vocabulary.
func periodForCycle(cycle enums.BillingCycle) (string, int64) {
	switch cycle {
	case enums.BillingCycleQuarterly:
		// The gateway has no quarterly period, so bill every 3 months.
		return "monthly", 3
	case enums.BillingCycleYearly:
		return "yearly", 1
	default:
		return "monthly", 1
	}
}

// amountToSubunits converts a decimal amount to the smallest currency unit.
func amountToSubunits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func parseCustomerRef(payload map[string]interface{}) (CustomerRef, error) {
	id, err := stringField(payload, "id")
	if err != nil {
		return CustomerRef{}, err
	}
	ref := CustomerRef{ID: id}
	ref.Name, _ = optionalString(payload, "name")
	ref.Email, _ = optionalString(payload, "email")
	return ref, nil
}

func parsePlanRef(payload map[string]interface{}) (PlanRef, error) {
	id, err := stringField(payload, "id")
	if err != nil {
		return PlanRef{}, err
	}
	ref := PlanRef{ID: id}
	ref.Period, _ = optionalString(payload, "period")
	ref.Interval, _ = optionalInt64(payload, "interval")
	if item, ok := payload["item"].(map[string]interface{}); ok {
		ref.ItemID, _ = optionalString(item, "id")
	}
	return ref, nil
}

func parseSubscriptionRef(payload map[string]interface{}) (SubscriptionRef, error) {
	id, err := stringField(payload, "id")
	if err != nil {
		return SubscriptionRef{}, err
	}
	ref := SubscriptionRef{ID: id}
	ref.PlanID, _ = optionalString(payload, "plan_id")
	ref.CustomerID, _ = optionalString(payload, "customer_id")
	ref.Status, _ = optionalString(payload, "status")
	ref.ShortURL, _ = optionalString(payload, "short_url")
	return ref, nil
}

func stringField(payload map[string]interface{}, key string) (string, error) {
	value, ok := optionalString(payload, key)
	if !ok || value == "" {
		return "", fmt.Errorf("gateway payload missing %q", key)
	}
	return value, nil
}

func optionalString(payload map[string]interface{}, key string) (string, bool) {
	raw, ok := payload[key]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	return value, ok
}

func optionalInt64(payload map[string]interface{}, key string) (int64, bool) {
	switch value := payload[key].(type) {
	case float64:
		return int64(value), true
	case int64:
		return value, true
	case int:
		return int64(value), true
	default:
		return 0, false
	}
}

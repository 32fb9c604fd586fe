package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/awesome-pro/subtrack/internal/notifications"
	"github.com/awesome-pro/subtrack/pkg/config"
	"github.com/awesome-pro/subtrack/pkg/db/models"
	"github.com/awesome-pro/subtrack/pkg/enums"
	pkgerrors "github.com/awesome-pro/subtrack/pkg/errors"
	"github.com/awesome-pro/subtrack/pkg/logger"
	"github.com/awesome-pro/subtrack/pkg/razorpay"
)

const defaultCurrency = "INR"

const (
	alreadyOnTrialMessage       = "You are already on a trial period."
	alreadyActiveMessage        = "You already have an active subscription."
	noActiveSubscriptionMessage = "You don't have an active subscription to cancel."
)

const (
	trialExpiredNotes       = "Trial period expired"
	trialExpiredNoSubNotes  = "Trial period expired without subscription record"
	cancelledByUserNotes    = "Subscription cancelled by user"
	gatewayCancelFailedNote = "gateway cancellation failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateBillingCustomerRef(ctx context.Context, id uuid.UUID, ref string) error
}

type paymentGateway interface {
	Configured() bool
	CreateCustomer(ctx context.Context, params razorpay.CustomerParams) (razorpay.CustomerRef, error)
	CreatePlan(ctx context.Context, params razorpay.PlanParams) (razorpay.PlanRef, error)
	CreateSubscription(ctx context.Context, params razorpay.SubscriptionParams) (razorpay.SubscriptionRef, error)
	CancelSubscription(ctx context.Context, subscriptionID string, atCycleEnd bool) (razorpay.SubscriptionRef, error)
}

// Service orchestrates the trial and subscription lifecycle.
type Service struct {
	logg      *logger.Logger
	db        txRunner
	repo      *Repository
	users     userStore
	gateway   paymentGateway
	notifier  notifications.Notifier
	trialDays int
	batchSize int
	now       func() time.Time
}

// ServiceParams groups dependencies for the subscriptions service.
type ServiceParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Repo     *Repository
	Users    userStore
	Gateway  paymentGateway
	Notifier notifications.Notifier
	Trial    config.TrialConfig
	Sweep    config.SweepConfig
}

// NewService builds the subscriptions service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user store required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}

	trialDays := params.Trial.Days
	if trialDays <= 0 {
		trialDays = 30
	}
	batchSize := params.Sweep.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Service{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repo,
		users:     params.Users,
		gateway:   params.Gateway,
		notifier:  params.Notifier,
		trialDays: trialDays,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

// StartTrial opens the user's trial window and records the audit entry.
// Users already on trial or with an active subscription are rejected.
func (s *Service) StartTrial(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsOnTrial {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, alreadyOnTrialMessage)
	}
	if user.SubscriptionStatus == enums.SubscriptionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, alreadyActiveMessage)
	}

	start := s.now().UTC()
	end := start.Add(time.Duration(s.trialDays) * 24 * time.Hour)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		ok, err := repo.TransitionUserStatus(ctx, userID, user.SubscriptionStatus, map[string]any{
			"is_on_trial":         true,
			"subscription_status": enums.SubscriptionStatusTrial,
			"trial_start_date":    start,
			"trial_end_date":      end,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "subscription state changed, retry the request")
		}

		sub, _, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		plan := sub.Plan
		notes := fmt.Sprintf("%d-day free trial started", s.trialDays)
		return repo.AppendHistory(ctx, &models.SubscriptionHistory{
			ID:             uuid.New(),
			UserID:         userID,
			SubscriptionID: &sub.ID,
			Action:         enums.HistoryActionTrialStarted,
			Plan:           &plan,
			Currency:       defaultCurrency,
			Notes:          &notes,
		})
	})
	if err != nil {
		return nil, err
	}

	user.IsOnTrial = true
	user.SubscriptionStatus = enums.SubscriptionStatusTrial
	user.TrialStartDate = &start
	user.TrialEndDate = &end

	trialCtx := s.logg.WithUserID(ctx, userID.String())
	s.logg.Info(trialCtx, "trial started")
	return user, nil
}

// GetTrialStatus reports where the user stands in their trial window.
func (s *Service) GetTrialStatus(ctx context.Context, userID uuid.UUID) (*TrialStatusDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := TrialStatus(user, s.now().UTC())
	return &status, nil
}

// GetSubscription loads the caller's subscription row.
func (s *Service) GetSubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, err
	}
	return FromSubscriptionModel(sub), nil
}

// History returns the caller's audit trail, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]HistoryDTO, error) {
	rows, err := s.repo.ListHistory(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return FromHistoryModels(rows), nil
}

// Subscribe provisions a paid plan through the payment gateway and flips the
// user to active. The gateway is essential here: provider failure leaves the
// local state untouched.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID, input SubscribeInput) (*SubscriptionDTO, error) {
	if err := validateSubscribeInput(input); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	customerID, err := s.ensureBillingCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	planRef, err := s.gateway.CreatePlan(ctx, razorpay.PlanParams{
		Name:        fmt.Sprintf("%s (%s)", input.Plan.String(), input.BillingCycle.String()),
		Cycle:       input.BillingCycle,
		Amount:      input.Amount,
		Currency:    currency,
		Description: fmt.Sprintf("%s plan billed %s", input.Plan.String(), input.BillingCycle.String()),
	})
	if err != nil {
		return nil, err
	}

	subRef, err := s.gateway.CreateSubscription(ctx, razorpay.SubscriptionParams{
		PlanID:     planRef.ID,
		CustomerID: customerID,
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var out *models.Subscription
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		sub, _, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		previousPlan := sub.Plan
		action := subscribeAction(sub, previousPlan, input.Plan)

		sub.Plan = input.Plan
		sub.IsActive = true
		sub.Amount = input.Amount
		sub.Currency = currency
		sub.BillingCycle = input.BillingCycle
		sub.AutoRenew = true
		sub.StartDate = &now
		sub.EndDate = nil
		sub.ExternalSubscriptionRef = &subRef.ID
		sub.PaymentRef = &planRef.ID
		if err := repo.Save(ctx, sub); err != nil {
			return err
		}

		ok, err := repo.TransitionUserStatus(ctx, userID, user.SubscriptionStatus, map[string]any{
			"subscription_status": enums.SubscriptionStatusActive,
			"is_on_trial":         false,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "subscription state changed, retry the request")
		}

		newPlan := input.Plan
		amount := input.Amount
		notes := fmt.Sprintf("Gateway subscription %s", subRef.ID)
		if err := repo.AppendHistory(ctx, &models.SubscriptionHistory{
			ID:             uuid.New(),
			UserID:         userID,
			SubscriptionID: &sub.ID,
			Action:         action,
			Plan:           &newPlan,
			PreviousPlan:   &previousPlan,
			Amount:         &amount,
			Currency:       currency,
			Notes:          &notes,
		}); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	subCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"plan":    input.Plan.String(),
	})
	s.logg.Info(subCtx, "subscription activated")
	return FromSubscriptionModel(out), nil
}

// Cancel ends an active or trialing subscription. Gateway cancellation is
// best effort and never blocks the local state change. The trial flag is
// left alone so a cancelled trial user cannot restart a trial.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.SubscriptionStatus != enums.SubscriptionStatusActive &&
		user.SubscriptionStatus != enums.SubscriptionStatusTrial {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, noActiveSubscriptionMessage)
	}

	notes := cancelledByUserNotes
	existing, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil && existing.ExternalSubscriptionRef != nil && s.gateway.Configured() {
		if _, gwErr := s.gateway.CancelSubscription(ctx, *existing.ExternalSubscriptionRef, true); gwErr != nil {
			cancelCtx := s.logg.WithField(s.logg.WithUserID(ctx, userID.String()), "error", gwErr.Error())
			s.logg.Warn(cancelCtx, "gateway cancellation failed, continuing with local cancel")
			notes = fmt.Sprintf("%s (%s)", cancelledByUserNotes, gatewayCancelFailedNote)
		}
	}

	var out *models.Subscription
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		sub, _, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		previousPlan := sub.Plan
		ok, err := repo.TransitionUserStatus(ctx, userID, user.SubscriptionStatus, map[string]any{
			"subscription_status": enums.SubscriptionStatusCancelled,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "subscription state changed, retry the request")
		}

		sub.IsActive = false
		sub.AutoRenew = false
		if err := repo.Save(ctx, sub); err != nil {
			return err
		}

		if err := repo.AppendHistory(ctx, &models.SubscriptionHistory{
			ID:             uuid.New(),
			UserID:         userID,
			SubscriptionID: &sub.ID,
			Action:         enums.HistoryActionCancelled,
			PreviousPlan:   &previousPlan,
			Currency:       sub.Currency,
			Notes:          &notes,
		}); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	cancelCtx := s.logg.WithUserID(ctx, userID.String())
	s.logg.Info(cancelCtx, "subscription cancelled")
	return FromSubscriptionModel(out), nil
}

// ExpireTrial closes a lapsed trial. The write is guarded so a second call,
// or a concurrent sweeper, is a silent no-op.
func (s *Service) ExpireTrial(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.expireTrialAt(ctx, userID, s.now().UTC())
}

func (s *Service) expireTrialAt(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	var expired bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		ok, err := repo.ExpireTrialUser(ctx, userID, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		expired = true

		sub, created, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		notes := trialExpiredNotes
		if created {
			notes = trialExpiredNoSubNotes
		}
		previousPlan := sub.Plan
		return repo.AppendHistory(ctx, &models.SubscriptionHistory{
			ID:             uuid.New(),
			UserID:         userID,
			SubscriptionID: &sub.ID,
			Action:         enums.HistoryActionTrialEnded,
			PreviousPlan:   &previousPlan,
			Currency:       sub.Currency,
			Notes:          &notes,
		})
	})
	if err != nil {
		return false, err
	}
	if expired {
		expireCtx := s.logg.WithUserID(ctx, userID.String())
		s.logg.Info(expireCtx, "trial expired")
	}
	return expired, nil
}

// SweepExpirations expires every lapsed trial it can find. Failures are
// isolated per user so one bad record never stalls the batch.
func (s *Service) SweepExpirations(ctx context.Context, now time.Time) (*SweepReport, error) {
	candidates, err := s.repo.ListExpiredTrialUsers(ctx, now, s.batchSize)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{}
	var errs error
	for _, candidate := range candidates {
		expired, err := s.expireTrialAt(ctx, candidate.ID, now)
		if err != nil {
			report.Failures = append(report.Failures, SweepFailure{UserID: candidate.ID, Err: err})
			errs = multierr.Append(errs, fmt.Errorf("expire trial for user %s: %w", candidate.ID, err))
			continue
		}
		if expired {
			report.Processed++
		}
	}
	return report, errs
}

// SweepReminders notifies users whose trial window is closing. The three
// cohorts overlap on purpose: a trial ending in ten hours lands in all of
// them, and the notifier dedupes per tier.
func (s *Service) SweepReminders(ctx context.Context, now time.Time) (*ReminderReport, error) {
	cohorts := []struct {
		tier   enums.ReminderTier
		window time.Duration
		count  *int
	}{
		{enums.ReminderTierThreeDay, 72 * time.Hour, nil},
		{enums.ReminderTierOneDay, 24 * time.Hour, nil},
		{enums.ReminderTierTwelveHour, 12 * time.Hour, nil},
	}

	report := &ReminderReport{}
	cohorts[0].count = &report.ThreeDay
	cohorts[1].count = &report.OneDay
	cohorts[2].count = &report.TwelveHour

	var errs error
	for _, cohort := range cohorts {
		members, err := s.repo.ListTrialsEndingWithin(ctx, now, now.Add(cohort.window), s.batchSize)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list %s cohort: %w", cohort.tier, err))
			continue
		}
		*cohort.count = len(members)

		for i := range members {
			member := &members[i]
			if member.TrialEndDate == nil {
				continue
			}
			if _, err := s.notifier.NotifyTrialExpiring(ctx, member, cohort.tier, *member.TrialEndDate); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("notify user %s tier %s: %w", member.ID, cohort.tier, err))
			}
		}
	}
	return report, errs
}

func (s *Service) findUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) ensureBillingCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.BillingCustomerRef != nil && *user.BillingCustomerRef != "" {
		return *user.BillingCustomerRef, nil
	}

	contact := ""
	if user.Phone != nil {
		contact = *user.Phone
	}
	customer, err := s.gateway.CreateCustomer(ctx, razorpay.CustomerParams{
		Name:    strings.TrimSpace(user.FirstName + " " + user.LastName),
		Email:   user.Email,
		Contact: contact,
	})
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateBillingCustomerRef(ctx, user.ID, customer.ID); err != nil {
		return "", err
	}
	user.BillingCustomerRef = &customer.ID
	return customer.ID, nil
}

func subscribeAction(sub *models.Subscription, previous, next enums.Plan) enums.HistoryAction {
	if !sub.IsActive || previous == enums.PlanFree {
		return enums.HistoryActionCreated
	}
	switch {
	case next.Rank() > previous.Rank():
		return enums.HistoryActionUpgraded
	case next.Rank() < previous.Rank():
		return enums.HistoryActionDowngraded
	default:
		return enums.HistoryActionRenewed
	}
}

func validateSubscribeInput(input SubscribeInput) error {
	if !input.Plan.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid plan %q", input.Plan))
	}
	if !input.Plan.IsPaid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot subscribe to the free plan")
	}
	if !input.BillingCycle.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid billing cycle %q", input.BillingCycle))
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}

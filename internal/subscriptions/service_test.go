package subscriptions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/awesome-pro/subtrack/internal/users"
	"github.com/awesome-pro/subtrack/pkg/config"
	"github.com/awesome-pro/subtrack/pkg/db/models"
	"github.com/awesome-pro/subtrack/pkg/enums"
	pkgerrors "github.com/awesome-pro/subtrack/pkg/errors"
	"github.com/awesome-pro/subtrack/pkg/logger"
	"github.com/awesome-pro/subtrack/pkg/razorpay"
)

func setupLifecycleTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	usersDDL := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  subscription_status TEXT NOT NULL DEFAULT 'inactive',
  is_on_trial INTEGER NOT NULL DEFAULT 0,
  trial_start_date DATETIME,
  trial_end_date DATETIME,
  billing_customer_ref TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	subscriptionsDDL := `
CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  plan TEXT NOT NULL DEFAULT 'free',
  is_active INTEGER NOT NULL DEFAULT 0,
  start_date DATETIME,
  end_date DATETIME,
  amount NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'INR',
  billing_cycle TEXT NOT NULL DEFAULT 'monthly',
  auto_renew INTEGER NOT NULL DEFAULT 1,
  external_subscription_ref TEXT,
  payment_ref TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	historyDDL := `
CREATE TABLE IF NOT EXISTS subscription_histories (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  subscription_id TEXT,
  action TEXT NOT NULL,
  plan TEXT,
  previous_plan TEXT,
  amount NUMERIC,
  currency TEXT NOT NULL DEFAULT 'INR',
  notes TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(usersDDL).Error)
	require.NoError(t, db.Exec(subscriptionsDDL).Error)
	require.NoError(t, db.Exec(historyDDL).Error)

	// The shared in-memory database survives across tests; the sweeps scan
	// whole tables, so each test starts from a clean slate.
	require.NoError(t, db.Exec("DELETE FROM subscription_histories").Error)
	require.NoError(t, db.Exec("DELETE FROM subscriptions").Error)
	require.NoError(t, db.Exec("DELETE FROM users").Error)
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type fakeGateway struct {
	configured bool

	customerErr     error
	planErr         error
	subscriptionErr error
	cancelErr       error

	customersCreated int
	cancelled        []string
}

func (g *fakeGateway) Configured() bool { return g.configured }

func (g *fakeGateway) CreateCustomer(_ context.Context, _ razorpay.CustomerParams) (razorpay.CustomerRef, error) {
	if g.customerErr != nil {
		return razorpay.CustomerRef{}, g.customerErr
	}
	g.customersCreated++
	return razorpay.CustomerRef{ID: fmt.Sprintf("cust_%d", g.customersCreated)}, nil
}

func (g *fakeGateway) CreatePlan(_ context.Context, _ razorpay.PlanParams) (razorpay.PlanRef, error) {
	if g.planErr != nil {
		return razorpay.PlanRef{}, g.planErr
	}
	return razorpay.PlanRef{ID: "plan_test", ItemID: "item_test"}, nil
}

func (g *fakeGateway) CreateSubscription(_ context.Context, _ razorpay.SubscriptionParams) (razorpay.SubscriptionRef, error) {
	if g.subscriptionErr != nil {
		return razorpay.SubscriptionRef{}, g.subscriptionErr
	}
	return razorpay.SubscriptionRef{ID: "sub_test", PlanID: "plan_test", Status: "created"}, nil
}

func (g *fakeGateway) CancelSubscription(_ context.Context, subscriptionID string, _ bool) (razorpay.SubscriptionRef, error) {
	if g.cancelErr != nil {
		return razorpay.SubscriptionRef{}, g.cancelErr
	}
	g.cancelled = append(g.cancelled, subscriptionID)
	return razorpay.SubscriptionRef{ID: subscriptionID, Status: "cancelled"}, nil
}

type reminderCall struct {
	userID uuid.UUID
	tier   enums.ReminderTier
}

type fakeNotifier struct {
	calls []reminderCall
	seen  map[string]bool
	err   error
}

func (n *fakeNotifier) NotifyTrialExpiring(_ context.Context, user *models.User, tier enums.ReminderTier, _ time.Time) (bool, error) {
	if n.err != nil {
		return false, n.err
	}
	if n.seen == nil {
		n.seen = map[string]bool{}
	}
	n.calls = append(n.calls, reminderCall{userID: user.ID, tier: tier})
	key := user.ID.String() + "/" + tier.String()
	if n.seen[key] {
		return false, nil
	}
	n.seen[key] = true
	return true, nil
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *fakeGateway, *fakeNotifier) {
	t.Helper()

	gateway := &fakeGateway{configured: true}
	notifier := &fakeNotifier{}
	logg := logger.New(logger.Options{ServiceName: "subscriptions-test"})

	svc, err := NewService(ServiceParams{
		Logger:   logg,
		DB:       testTxRunner{db: db},
		Repo:     NewRepository(db),
		Users:    users.NewRepository(db),
		Gateway:  gateway,
		Notifier: notifier,
		Trial:    config.TrialConfig{Days: 30},
		Sweep:    config.SweepConfig{BatchSize: 100},
	})
	require.NoError(t, err)
	return svc, gateway, notifier
}

func createLifecycleUser(t *testing.T, db *gorm.DB, status enums.SubscriptionStatus, onTrial bool, trialEnd *time.Time) *models.User {
	t.Helper()

	user := &models.User{
		ID:                 uuid.New(),
		Email:              fmt.Sprintf("%s@example.com", uuid.NewString()),
		PasswordHash:       "hash",
		FirstName:          "Asha",
		LastName:           "Rao",
		IsActive:           true,
		SubscriptionStatus: status,
		IsOnTrial:          onTrial,
		TrialEndDate:       trialEnd,
	}
	if trialEnd != nil {
		start := trialEnd.Add(-30 * 24 * time.Hour)
		user.TrialStartDate = &start
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id uuid.UUID) *models.User {
	t.Helper()

	var user models.User
	require.NoError(t, db.Where("id = ?", id).First(&user).Error)
	return &user
}

func listHistoryRows(t *testing.T, db *gorm.DB, userID uuid.UUID) []models.SubscriptionHistory {
	t.Helper()

	var rows []models.SubscriptionHistory
	require.NoError(t, db.Where("user_id = ?", userID).Order("created_at").Find(&rows).Error)
	return rows
}

func TestStartTrial_opensWindowAndRecordsHistory(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, _, _ := newTestService(t, db)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	user := createLifecycleUser(t, db, enums.SubscriptionStatusInactive, false, nil)

	started, err := svc.StartTrial(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, started.IsOnTrial)
	assert.Equal(t, enums.SubscriptionStatusTrial, started.SubscriptionStatus)

	persisted := reloadUser(t, db, user.ID)
	assert.True(t, persisted.IsOnTrial)
	assert.Equal(t, enums.SubscriptionStatusTrial, persisted.SubscriptionStatus)
	require.NotNil(t, persisted.TrialEndDate)
	assert.WithinDuration(t, now.Add(30*24*time.Hour), *persisted.TrialEndDate, time.Second)

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&sub).Error)
	assert.Equal(t, enums.PlanFree, sub.Plan)
	assert.False(t, sub.IsActive)

	rows := listHistoryRows(t, db, user.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.HistoryActionTrialStarted, rows[0].Action)
	require.NotNil(t, rows[0].Notes)
	assert.Equal(t, "30-day free trial started", *rows[0].Notes)
}

func TestStartTrial_rejectsTrialingAndActiveUsers(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, _, _ := newTestService(t, db)
	ctx := context.Background()

	end := time.Now().Add(10 * 24 * time.Hour)
	trialing := createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &end)
	_, err := svc.StartTrial(ctx, trialing.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Contains(t, err.Error(), "already on a trial")

	active := createLifecycleUser(t, db, enums.SubscriptionStatusActive, false, nil)
	_, err = svc.StartTrial(ctx, active.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Contains(t, err.Error(), "active subscription")

	assert.Empty(t, listHistoryRows(t, db, trialing.ID))
	assert.Empty(t, listHistoryRows(t, db, active.ID))
}

func TestStartTrial_unknownUser(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, _, _ := newTestService(t, db)

	_, err := svc.StartTrial(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCancel_duringTrialKeepsTrialFlag(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, _, _ := newTestService(t, db)
	ctx := context.Background()

	end := time.Now().Add(5 * 24 * time.Hour)
	user := createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &end)

	sub, err := svc.Cancel(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, sub.IsActive)

	persisted := reloadUser(t, db, user.ID)
	assert.Equal(t, enums.SubscriptionStatusCancelled, persisted.SubscriptionStatus)
	// Cancelling mid-trial does not reset the trial flag, so the user
	// cannot start a second trial afterwards.
	assert.True(t, persisted.IsOnTrial)

	rows := listHistoryRows(t, db, user.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.HistoryActionCancelled, rows[0].Action)
	require.NotNil(t, rows[0].PreviousPlan)
	assert.Equal(t, enums.PlanFree, *rows[0].PreviousPlan)
}

func TestCancel_requiresActiveOrTrialingStatus(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, _, _ := newTestService(t, db)

	user := createLifecycleUser(t, db, enums.SubscriptionStatusInactive, false, nil)
	_, err := svc.Cancel(context.Background(), user.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Contains(t, err.Error(), "don't have an active subscription")
}

func TestCancel_gatewayFailureNeverBlocksLocalCancel(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, gateway, _ := newTestService(t, db)
	gateway.cancelErr = pkgerrors.New(pkgerrors.CodeDependency, "gateway unavailable")
	ctx := context.Background()

	user := createLifecycleUser(t, db, enums.SubscriptionStatusActive, false, nil)
	ref := "sub_remote"
	require.NoError(t, db.Create(&models.Subscription{
		ID:                      uuid.New(),
		UserID:                  user.ID,
		Plan:                    enums.PlanPremium,
		IsActive:                true,
		Amount:                  decimal.NewFromInt(999),
		Currency:                "INR",
		BillingCycle:            enums.BillingCycleMonthly,
		ExternalSubscriptionRef: &ref,
	}).Error)

	sub, err := svc.Cancel(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, sub.IsActive)
	assert.Equal(t, enums.SubscriptionStatusCancelled, reloadUser(t, db, user.ID).SubscriptionStatus)

	rows := listHistoryRows(t, db, user.ID)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Notes)
	assert.Contains(t, *rows[0].Notes, "gateway cancellation failed")
}

func TestCancel_remoteSubscriptionCancelledAtCycleEnd(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, gateway, _ := newTestService(t, db)
	ctx := context.Background()

	user := createLifecycleUser(t, db, enums.SubscriptionStatusActive, false, nil)
	ref := "sub_remote"
	require.NoError(t, db.Create(&models.Subscription{
		ID:                      uuid.New(),
		UserID:                  user.ID,
		Plan:                    enums.PlanBasic,
		IsActive:                true,
		Currency:                "INR",
		BillingCycle:            enums.BillingCycleMonthly,
		ExternalSubscriptionRef: &ref,
	}).Error)

	_, err := svc.Cancel(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_remote"}, gateway.cancelled)
}

func TestExpireTrial_isIdempotent(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, _, _ := newTestService(t, db)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	end := now.Add(-2 * time.Hour)
	user := createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &end)

	expired, err := svc.ExpireTrial(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, expired)

	persisted := reloadUser(t, db, user.ID)
	assert.False(t, persisted.IsOnTrial)
	assert.Equal(t, enums.SubscriptionStatusExpired, persisted.SubscriptionStatus)

	expired, err = svc.ExpireTrial(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, expired)

	rows := listHistoryRows(t, db, user.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.HistoryActionTrialEnded, rows[0].Action)
	require.NotNil(t, rows[0].Notes)
	assert.Equal(t, "Trial period expired without subscription record", *rows[0].Notes)
}

func TestExpireTrial_skipsLiveTrials(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, _, _ := newTestService(t, db)
	ctx := context.Background()

	end := time.Now().Add(48 * time.Hour)
	user := createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &end)

	expired, err := svc.ExpireTrial(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, enums.SubscriptionStatusTrial, reloadUser(t, db, user.ID).SubscriptionStatus)
	assert.Empty(t, listHistoryRows(t, db, user.ID))
}

func TestSubscribe_activatesUserAndRecordsHistory(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, gateway, _ := newTestService(t, db)
	ctx := context.Background()

	end := time.Now().Add(3 * 24 * time.Hour)
	user := createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &end)

	sub, err := svc.Subscribe(ctx, user.ID, SubscribeInput{
		Plan:         enums.PlanPremium,
		BillingCycle: enums.BillingCycleMonthly,
		Amount:       decimal.RequireFromString("499.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PlanPremium, sub.Plan)
	assert.True(t, sub.IsActive)
	require.NotNil(t, sub.ExternalSubscriptionRef)
	assert.Equal(t, "sub_test", *sub.ExternalSubscriptionRef)
	assert.Equal(t, "INR", sub.Currency)

	persisted := reloadUser(t, db, user.ID)
	assert.Equal(t, enums.SubscriptionStatusActive, persisted.SubscriptionStatus)
	assert.False(t, persisted.IsOnTrial)
	require.NotNil(t, persisted.BillingCustomerRef)
	assert.Equal(t, 1, gateway.customersCreated)

	rows := listHistoryRows(t, db, user.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.HistoryActionCreated, rows[0].Action)
	require.NotNil(t, rows[0].Plan)
	assert.Equal(t, enums.PlanPremium, *rows[0].Plan)
	require.NotNil(t, rows[0].Amount)
	assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("499.50")))
}

func TestSubscribe_reusesBillingCustomer(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, gateway, _ := newTestService(t, db)
	ctx := context.Background()

	user := createLifecycleUser(t, db, enums.SubscriptionStatusInactive, false, nil)
	ref := "cust_existing"
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("billing_customer_ref", ref).Error)

	_, err := svc.Subscribe(ctx, user.ID, SubscribeInput{
		Plan:         enums.PlanBasic,
		BillingCycle: enums.BillingCycleYearly,
		Amount:       decimal.NewFromInt(4999),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, gateway.customersCreated)
}

func TestSubscribe_gatewayFailureLeavesStateUntouched(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, gateway, _ := newTestService(t, db)
	gateway.subscriptionErr = pkgerrors.New(pkgerrors.CodeDependency, "gateway unavailable")
	ctx := context.Background()

	user := createLifecycleUser(t, db, enums.SubscriptionStatusInactive, false, nil)
	_, err := svc.Subscribe(ctx, user.ID, SubscribeInput{
		Plan:         enums.PlanBasic,
		BillingCycle: enums.BillingCycleMonthly,
		Amount:       decimal.NewFromInt(199),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	assert.Equal(t, enums.SubscriptionStatusInactive, reloadUser(t, db, user.ID).SubscriptionStatus)
	assert.Empty(t, listHistoryRows(t, db, user.ID))
}

func TestSubscribe_rejectsFreePlan(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, _, _ := newTestService(t, db)

	_, err := svc.Subscribe(context.Background(), uuid.New(), SubscribeInput{
		Plan:         enums.PlanFree,
		BillingCycle: enums.BillingCycleMonthly,
		Amount:       decimal.NewFromInt(0),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSweepExpirations_processesLapsedTrialsOnly(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, _, _ := newTestService(t, db)
	now := time.Date(2025, 8, 1, 3, 0, 0, 0, time.UTC)
	ctx := context.Background()

	lapsedA := now.Add(-time.Hour)
	lapsedB := now.Add(-30 * 24 * time.Hour)
	live := now.Add(12 * time.Hour)
	expiredA := createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &lapsedA)
	expiredB := createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &lapsedB)
	survivor := createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &live)

	report, err := svc.SweepExpirations(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Empty(t, report.Failures)

	assert.Equal(t, enums.SubscriptionStatusExpired, reloadUser(t, db, expiredA.ID).SubscriptionStatus)
	assert.Equal(t, enums.SubscriptionStatusExpired, reloadUser(t, db, expiredB.ID).SubscriptionStatus)
	assert.Equal(t, enums.SubscriptionStatusTrial, reloadUser(t, db, survivor.ID).SubscriptionStatus)

	// Immediate re-run finds nothing left to do.
	report, err = svc.SweepExpirations(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
}

func TestSweepReminders_cohortsOverlap(t *testing.T) {
	db := setupLifecycleTestDB(t)
	svc, _, notifier := newTestService(t, db)
	now := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	in10h := now.Add(10 * time.Hour)
	in20h := now.Add(20 * time.Hour)
	in60h := now.Add(60 * time.Hour)
	closest := createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &in10h)
	createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &in20h)
	createLifecycleUser(t, db, enums.SubscriptionStatusTrial, true, &in60h)

	report, err := svc.SweepReminders(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, report.ThreeDay)
	assert.Equal(t, 2, report.OneDay)
	assert.Equal(t, 1, report.TwelveHour)
	assert.Len(t, notifier.calls, 6)

	var twelveHour []reminderCall
	for _, call := range notifier.calls {
		if call.tier == enums.ReminderTierTwelveHour {
			twelveHour = append(twelveHour, call)
		}
	}
	require.Len(t, twelveHour, 1)
	assert.Equal(t, closest.ID, twelveHour[0].userID)
}

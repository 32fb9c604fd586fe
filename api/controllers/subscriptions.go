package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/awesome-pro/subtrack/api/responses"
	"github.com/awesome-pro/subtrack/api/validators"
	subsvc "github.com/awesome-pro/subtrack/internal/subscriptions"
	"github.com/awesome-pro/subtrack/internal/users"
	"github.com/awesome-pro/subtrack/pkg/db/models"
	pkgerrors "github.com/awesome-pro/subtrack/pkg/errors"
	"github.com/awesome-pro/subtrack/pkg/logger"
)

const (
	historyLimitDefault = 50
	historyLimitMax     = 200
)

// SubscriptionService is the lifecycle surface the HTTP layer drives.
type SubscriptionService interface {
	StartTrial(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetTrialStatus(ctx context.Context, userID uuid.UUID) (*subsvc.TrialStatusDTO, error)
	Subscribe(ctx context.Context, userID uuid.UUID, input subsvc.SubscribeInput) (*subsvc.SubscriptionDTO, error)
	Cancel(ctx context.Context, userID uuid.UUID) (*subsvc.SubscriptionDTO, error)
	GetSubscription(ctx context.Context, userID uuid.UUID) (*subsvc.SubscriptionDTO, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]subsvc.HistoryDTO, error)
}

// TrialStart opens the caller's free trial window.
func TrialStart(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.StartTrial(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, users.FromModel(user))
	}
}

// TrialStatus reports where the caller sits in the trial window.
func TrialStatus(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.GetTrialStatus(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

// SubscriptionCreate provisions a paid plan for the caller.
func SubscriptionCreate(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subsvc.SubscribeInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Subscribe(r.Context(), userID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sub)
	}
}

// SubscriptionCancel ends the caller's subscription or trial.
func SubscriptionCancel(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Cancel(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sub)
	}
}

// SubscriptionFetch returns the caller's subscription record.
func SubscriptionFetch(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.GetSubscription(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sub)
	}
}

// SubscriptionHistory returns the caller's audit trail, newest first.
func SubscriptionHistory(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", historyLimitDefault, 1, historyLimitMax)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

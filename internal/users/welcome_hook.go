package users

import (
	"context"

	"github.com/awesome-pro/subtrack/pkg/db/models"
	"github.com/awesome-pro/subtrack/pkg/logger"
)

type welcomeLogHook struct {
	logg *logger.Logger
}

// NewWelcomeLogHook records every successful signup in the service log.
func NewWelcomeLogHook(logg *logger.Logger) PostCreateHook {
	return welcomeLogHook{logg: logg}
}

func (h welcomeLogHook) Name() string {
	return "welcome-log"
}

func (h welcomeLogHook) OnUserCreated(ctx context.Context, user *models.User) error {
	if h.logg == nil || user == nil {
		return nil
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"user_id": user.ID.String(),
		"email":   user.Email,
	})
	h.logg.Info(logCtx, "user onboarded")
	return nil
}

package users

import (
	"context"

	"github.com/awesome-pro/subtrack/pkg/db/models"
	"github.com/awesome-pro/subtrack/pkg/logger"
)

// PostCreateHook runs after a user row is committed. Registration fires
// each hook once; failures are logged and never roll back the signup.
type PostCreateHook interface {
	Name() string
	OnUserCreated(ctx context.Context, user *models.User) error
}

// RunPostCreateHooks invokes every hook, logging failures without aborting.
func RunPostCreateHooks(ctx context.Context, logg *logger.Logger, user *models.User, hooks []PostCreateHook) {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook.OnUserCreated(ctx, user); err != nil && logg != nil {
			hookCtx := logg.WithField(ctx, "hook", hook.Name())
			logg.Error(hookCtx, "post-create hook failed", err)
		}
	}
}

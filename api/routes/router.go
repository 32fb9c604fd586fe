package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/awesome-pro/subtrack/api/controllers"
	"github.com/awesome-pro/subtrack/api/middleware"
	"github.com/awesome-pro/subtrack/internal/auth"
	"github.com/awesome-pro/subtrack/pkg/auth/session"
	"github.com/awesome-pro/subtrack/pkg/config"
	"github.com/awesome-pro/subtrack/pkg/db"
	"github.com/awesome-pro/subtrack/pkg/logger"
	"github.com/awesome-pro/subtrack/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	authService auth.Service,
	registerService auth.RegisterService,
	usersRepo controllers.UserFinder,
	subscriptionService controllers.SubscriptionService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var redisP db.Pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(registerService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Get("/me", controllers.Me(usersRepo, logg))
		r.Post("/me/password", controllers.ChangePassword(authService, logg))

		r.Route("/trial", func(r chi.Router) {
			r.Post("/start", controllers.TrialStart(subscriptionService, logg))
			r.Get("/status", controllers.TrialStatus(subscriptionService, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", controllers.SubscriptionCreate(subscriptionService, logg))
			r.Post("/cancel", controllers.SubscriptionCancel(subscriptionService, logg))
			r.Get("/mine", controllers.SubscriptionFetch(subscriptionService, logg))
			r.Get("/history", controllers.SubscriptionHistory(subscriptionService, logg))
		})
	})

	return r
}

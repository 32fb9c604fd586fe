package config

// EnvPrefix scopes every environment variable consumed by subtrack.
const EnvPrefix = "SUBTRACK"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, DSN assembly).
const (
	EnvAppEnv   = "SUBTRACK_APP_ENV"
	EnvPort     = "SUBTRACK_APP_PORT"
	EnvDBDSN    = "SUBTRACK_DB_DSN"
	EnvDBHost   = "SUBTRACK_DB_HOST"
	EnvDBUser   = "SUBTRACK_DB_USER"
	EnvDBName   = "SUBTRACK_DB_NAME"
	EnvRedisURL = "SUBTRACK_REDIS_URL"

	EnvJWTSecret              = "SUBTRACK_JWT_SECRET"
	EnvJWTIssuer              = "SUBTRACK_JWT_ISSUER"
	EnvJWTExpMins             = "SUBTRACK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SUBTRACK_REFRESH_TOKEN_TTL_MINUTES"

	EnvRazorpayKeyID     = "SUBTRACK_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "SUBTRACK_RAZORPAY_KEY_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

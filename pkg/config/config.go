package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Trial         TrialConfig
	Sweep         SweepConfig
	AuthRateLimit AuthRateLimitConfig
	Razorpay      RazorpayConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SUBTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"SUBTRACK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SUBTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUBTRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SUBTRACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SUBTRACK_DB_DSN"`
	Driver string `envconfig:"SUBTRACK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUBTRACK_DB_HOST"`
	LegacyPort     int    `envconfig:"SUBTRACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUBTRACK_DB_USER"`
	LegacyPassword string `envconfig:"SUBTRACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUBTRACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUBTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUBTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUBTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUBTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUBTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUBTRACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUBTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"SUBTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUBTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUBTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUBTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUBTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUBTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUBTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SUBTRACK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SUBTRACK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SUBTRACK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SUBTRACK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SUBTRACK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SUBTRACK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SUBTRACK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SUBTRACK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SUBTRACK_ARGON_KEY_LEN" default:"32"`
}

type TrialConfig struct {
	Days int `envconfig:"SUBTRACK_TRIAL_DAYS" default:"30"`
}

// Duration returns the configured trial length.
func (t TrialConfig) Duration() time.Duration {
	days := t.Days
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

type SweepConfig struct {
	ExpiryInterval   time.Duration `envconfig:"SUBTRACK_SWEEP_EXPIRY_INTERVAL" default:"24h"`
	ReminderInterval time.Duration `envconfig:"SUBTRACK_SWEEP_REMINDER_INTERVAL" default:"6h"`
	BatchSize        int           `envconfig:"SUBTRACK_SWEEP_BATCH_SIZE" default:"500"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SUBTRACK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SUBTRACK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SUBTRACK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SUBTRACK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SUBTRACK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SUBTRACK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type RazorpayConfig struct {
	KeyID          string        `envconfig:"SUBTRACK_RAZORPAY_KEY_ID"`
	KeySecret      string        `envconfig:"SUBTRACK_RAZORPAY_KEY_SECRET"`
	RequestTimeout time.Duration `envconfig:"SUBTRACK_RAZORPAY_REQUEST_TIMEOUT" default:"10s"`
}

// Configured reports whether both provider credentials are present.
func (r RazorpayConfig) Configured() bool {
	return strings.TrimSpace(r.KeyID) != "" && strings.TrimSpace(r.KeySecret) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SUBTRACK_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

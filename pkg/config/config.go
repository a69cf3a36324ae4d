package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	POS           POSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.POS.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string        `envconfig:"POSLEDGER_APP_ENV" required:"true"`
	Port           string        `envconfig:"POSLEDGER_APP_PORT" required:"true"`
	LogLevel       string        `envconfig:"POSLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack   bool          `envconfig:"POSLEDGER_LOG_WARN_STACK" default:"false"`
	RequestTimeout time.Duration `envconfig:"POSLEDGER_REQUEST_TIMEOUT" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"POSLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"POSLEDGER_DB_DSN"`
	Driver string `envconfig:"POSLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"POSLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"POSLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"POSLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"POSLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"POSLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"POSLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POSLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POSLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POSLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POSLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POSLEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"POSLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"POSLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POSLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POSLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"POSLEDGER_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"POSLEDGER_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"POSLEDGER_JWT_EXPIRATION_MINUTES" default:"720"`
	RefreshTokenTTLMinutes int    `envconfig:"POSLEDGER_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// Expiration returns the configured access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh session lifetime.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"POSLEDGER_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"POSLEDGER_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"POSLEDGER_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"POSLEDGER_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"POSLEDGER_ARGON_KEY_LEN" default:"32"`
}

// AuthRateLimitConfig throttles terminal logins per client IP and per email.
type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"POSLEDGER_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"15m"`
	LoginIPLimit    int           `envconfig:"POSLEDGER_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"POSLEDGER_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"POSLEDGER_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"POSLEDGER_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"POSLEDGER_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"POSLEDGER_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	LedgerTopic        string `envconfig:"POSLEDGER_PUBSUB_LEDGER_TOPIC" default:"pos-ledger-events"`
	LedgerSubscription string `envconfig:"POSLEDGER_PUBSUB_LEDGER_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"POSLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"POSLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"POSLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"POSLEDGER_OUTBOX_RETENTION_DAYS" default:"30"`
}

// POSConfig carries the business constants of the ledger.
type POSConfig struct {
	OrderNumberPrefix  string          `envconfig:"POSLEDGER_ORDER_NUMBER_PREFIX" default:"ZRP"`
	DeliveryFee        decimal.Decimal `envconfig:"POSLEDGER_DELIVERY_FEE" default:"50.00"`
	LoyaltyEarnDivisor int64           `envconfig:"POSLEDGER_LOYALTY_EARN_DIVISOR" default:"10"`
	DecayWindowHours   int             `envconfig:"POSLEDGER_DECAY_WINDOW_HOURS" default:"24"`
	DecayPercent       int64           `envconfig:"POSLEDGER_DECAY_PERCENT" default:"5"`
	CronInterval       time.Duration   `envconfig:"POSLEDGER_CRON_INTERVAL" default:"24h"`
	CronRunOnce        bool            `envconfig:"POSLEDGER_CRON_RUN_ONCE" default:"false"`
}

func (p POSConfig) validate() error {
	if p.DeliveryFee.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvDeliveryFee)
	}
	if p.LoyaltyEarnDivisor <= 0 {
		return fmt.Errorf("%s must be positive", EnvLoyaltyEarnDivisor)
	}
	if p.DecayPercent < 0 || p.DecayPercent > 100 {
		return fmt.Errorf("%s must be between 0 and 100", EnvDecayPercent)
	}
	return nil
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

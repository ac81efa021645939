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
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Commission   CommissionConfig
	Pricing      PricingConfig
	Payouts      PayoutConfig
	Idempotency  IdempotencyConfig
	Gateway      GatewayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Commission.Rates(); err != nil {
		return nil, err
	}
	if _, _, err := cfg.Pricing.Multipliers(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FIREGUARD_APP_ENV" required:"true"`
	Port         string `envconfig:"FIREGUARD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FIREGUARD_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"FIREGUARD_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"FIREGUARD_LOG_WARN_STACK" default:"false"`
	// MetricsAddr is where the workers serve /metrics. Empty disables it.
	MetricsAddr string `envconfig:"FIREGUARD_METRICS_ADDR"`
	// CORSOrigins is the comma separated allow-list for browser clients.
	CORSOrigins []string `envconfig:"FIREGUARD_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FIREGUARD_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FIREGUARD_DB_DSN"`
	Driver string `envconfig:"FIREGUARD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FIREGUARD_DB_HOST"`
	LegacyPort     int    `envconfig:"FIREGUARD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FIREGUARD_DB_USER"`
	LegacyPassword string `envconfig:"FIREGUARD_DB_PASSWORD"`
	LegacyName     string `envconfig:"FIREGUARD_DB_NAME"`
	LegacySSLMode  string `envconfig:"FIREGUARD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FIREGUARD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FIREGUARD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FIREGUARD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FIREGUARD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FIREGUARD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FIREGUARD_REDIS_ADDR"`
	Password     string        `envconfig:"FIREGUARD_REDIS_PASSWORD"`
	DB           int           `envconfig:"FIREGUARD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FIREGUARD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FIREGUARD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FIREGUARD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FIREGUARD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FIREGUARD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FIREGUARD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FIREGUARD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FIREGUARD_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FIREGUARD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FIREGUARD_AUTO_MIGRATE" default:"false"`
	// RedisLocks switches per-booking locking from in-process to Redis.
	RedisLocks bool `envconfig:"FIREGUARD_REDIS_LOCKS" default:"true"`
}

type CommissionConfig struct {
	// DefaultRates seeds version 0 of each service type's commission,
	// formatted as service_type:rate pairs.
	DefaultRates map[string]string `envconfig:"FIREGUARD_COMMISSION_DEFAULT_RATES" default:"fire_risk_assessment:0.15,fire_safety_audit:0.15,equipment_inspection:0.12,consultation:0.10,training:0.10,equipment_delivery:0.08"`
}

// Rates parses DefaultRates into decimals keyed by service type.
func (c CommissionConfig) Rates() (map[string]decimal.Decimal, error) {
	return parseDecimals(EnvCommissionRates, c.DefaultRates)
}

// PricingConfig overrides individual buckets of the compiled-in multiplier
// table, e.g. "large:1.7". Unset buckets keep their defaults.
type PricingConfig struct {
	SizeMultipliers map[string]string `envconfig:"FIREGUARD_PRICING_SIZE_MULTIPLIERS"`
	RiskMultipliers map[string]string `envconfig:"FIREGUARD_PRICING_RISK_MULTIPLIERS"`
}

func (p PricingConfig) Multipliers() (size, risk map[string]decimal.Decimal, err error) {
	if size, err = parseDecimals(EnvPricingSizeMultipliers, p.SizeMultipliers); err != nil {
		return nil, nil, err
	}
	if risk, err = parseDecimals(EnvPricingRiskMultipliers, p.RiskMultipliers); err != nil {
		return nil, nil, err
	}
	return size, risk, nil
}

func parseDecimals(env string, raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for key, value := range raw {
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%s: invalid value %q for %s: %w", env, value, key, err)
		}
		out[strings.TrimSpace(key)] = d
	}
	return out, nil
}

type PayoutConfig struct {
	WorkerInterval time.Duration `envconfig:"FIREGUARD_PAYOUT_WORKER_INTERVAL" default:"5m"`
	BatchSize      int           `envconfig:"FIREGUARD_PAYOUT_BATCH_SIZE" default:"100"`
	MaxAttempts    int           `envconfig:"FIREGUARD_PAYOUT_MAX_ATTEMPTS" default:"5"`
	LockTTL        time.Duration `envconfig:"FIREGUARD_PAYOUT_LOCK_TTL" default:"4m"`
}

type IdempotencyConfig struct {
	TTL         time.Duration `envconfig:"FIREGUARD_IDEMPOTENCY_TTL" default:"24h"`
	WebhookTTL  time.Duration `envconfig:"FIREGUARD_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	BookingLock time.Duration `envconfig:"FIREGUARD_BOOKING_LOCK_TTL" default:"30s"`
}

type GatewayConfig struct {
	Mode          string `envconfig:"FIREGUARD_GATEWAY_MODE" default:"sandbox"`
	WebhookSecret string `envconfig:"FIREGUARD_GATEWAY_WEBHOOK_SECRET"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"FIREGUARD_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"FIREGUARD_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	BookingEventsTopic string `envconfig:"FIREGUARD_PUBSUB_BOOKING_EVENTS_TOPIC" default:"booking-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FIREGUARD_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FIREGUARD_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FIREGUARD_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:fireguard.db?cache=shared"
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

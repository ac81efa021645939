package config

const (
	EnvPrefix = "FIREGUARD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "FIREGUARD_APP_ENV"
	EnvPort                   = "FIREGUARD_APP_PORT"
	EnvLogLevel               = "FIREGUARD_LOG_LEVEL"
	EnvLogFormat              = "FIREGUARD_LOG_FORMAT"
	EnvDBDSN                  = "FIREGUARD_DB_DSN"
	EnvDBHost                 = "FIREGUARD_DB_HOST"
	EnvDBUser                 = "FIREGUARD_DB_USER"
	EnvDBName                 = "FIREGUARD_DB_NAME"
	EnvRedisURL               = "FIREGUARD_REDIS_URL"
	EnvJWTSecret              = "FIREGUARD_JWT_SECRET"
	EnvJWTIssuer              = "FIREGUARD_JWT_ISSUER"
	EnvJWTExpMins             = "FIREGUARD_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite              = "FIREGUARD_USE_SQLITE"
	EnvCommissionRates        = "FIREGUARD_COMMISSION_DEFAULT_RATES"
	EnvPricingSizeMultipliers = "FIREGUARD_PRICING_SIZE_MULTIPLIERS"
	EnvPricingRiskMultipliers = "FIREGUARD_PRICING_RISK_MULTIPLIERS"
	EnvPayoutInterval         = "FIREGUARD_PAYOUT_WORKER_INTERVAL"
	EnvGCPProjectID           = "FIREGUARD_GCP_PROJECT_ID"
	EnvBookingTopic           = "FIREGUARD_PUBSUB_BOOKING_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

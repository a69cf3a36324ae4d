package config

const (
	EnvPrefix = "POSLEDGER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv             = "POSLEDGER_APP_ENV"
	EnvPort               = "POSLEDGER_APP_PORT"
	EnvDBDSN              = "POSLEDGER_DB_DSN"
	EnvDBHost             = "POSLEDGER_DB_HOST"
	EnvDBUser             = "POSLEDGER_DB_USER"
	EnvDBName             = "POSLEDGER_DB_NAME"
	EnvRedisURL           = "POSLEDGER_REDIS_URL"
	EnvJWTSecret          = "POSLEDGER_JWT_SECRET"
	EnvJWTIssuer          = "POSLEDGER_JWT_ISSUER"
	EnvJWTExpMins         = "POSLEDGER_JWT_EXPIRATION_MINUTES"
	EnvDeliveryFee        = "POSLEDGER_DELIVERY_FEE"
	EnvLoyaltyEarnDivisor = "POSLEDGER_LOYALTY_EARN_DIVISOR"
	EnvDecayPercent       = "POSLEDGER_DECAY_PERCENT"
	EnvOrderNumberPrefix  = "POSLEDGER_ORDER_NUMBER_PREFIX"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

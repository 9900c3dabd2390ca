package config

// EnvPrefix is the fallback prefix envconfig applies to untagged fields.
const EnvPrefix = "storefront"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Environment variable names shared between Load and tests.
const (
	EnvAppEnv = "STOREFRONT_APP_ENV"
	EnvPort   = "STOREFRONT_APP_PORT"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvStripeAPIKey        = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "STOREFRONT_STRIPE_WEBHOOK_SECRET"

	EnvStoreURL = "STOREFRONT_STORE_URL"
)

var componentDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

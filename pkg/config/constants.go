package config

// EnvPrefix is the envconfig prefix shared by every setting.
const EnvPrefix = "ESSENZA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv    = "ESSENZA_APP_ENV"
	EnvPort      = "ESSENZA_APP_PORT"
	EnvDBDSN     = "ESSENZA_DB_DSN"
	EnvDBHost    = "ESSENZA_DB_HOST"
	EnvDBUser    = "ESSENZA_DB_USER"
	EnvDBName    = "ESSENZA_DB_NAME"
	EnvRedisURL  = "ESSENZA_REDIS_URL"
	EnvJWTSecret = "ESSENZA_JWT_SECRET"
	EnvJWTIssuer = "ESSENZA_JWT_ISSUER"
	EnvJWTExp    = "ESSENZA_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID      = "ESSENZA_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "ESSENZA_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "ESSENZA_PUBSUB_ORDERS_SUBSCRIPTION"

	EnvPesapalConsumerKey    = "ESSENZA_PESAPAL_CONSUMER_KEY"
	EnvPesapalConsumerSecret = "ESSENZA_PESAPAL_CONSUMER_SECRET"
	EnvPesapalBaseURL        = "ESSENZA_PESAPAL_BASE_URL"
	EnvPesapalCallbackURL    = "ESSENZA_PESAPAL_CALLBACK_URL"
)

var legacyDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}

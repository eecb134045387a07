package config

// EnvPrefix is the envconfig prefix for all Helplane variables.
const EnvPrefix = "HELPLANE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "HELPLANE_APP_ENV"
	EnvPort       = "HELPLANE_APP_PORT"
	EnvRedisURL   = "HELPLANE_REDIS_URL"
	EnvJWTSecret  = "HELPLANE_JWT_SECRET"
	EnvJWTIssuer  = "HELPLANE_JWT_ISSUER"
	EnvJWTExpMins = "HELPLANE_JWT_EXPIRATION_MINUTES"

	EnvDBDSN  = "HELPLANE_DB_DSN"
	EnvDBHost = "HELPLANE_DB_HOST"
	EnvDBUser = "HELPLANE_DB_USER"
	EnvDBName = "HELPLANE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

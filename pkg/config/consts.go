package config

// EnvPrefix is the envconfig prefix shared by every configuration variable.
const EnvPrefix = "MEHUSTAJA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "MEHUSTAJA_APP_ENV"
	EnvPort      = "MEHUSTAJA_APP_PORT"
	EnvDBDSN     = "MEHUSTAJA_DB_DSN"
	EnvDBHost    = "MEHUSTAJA_DB_HOST"
	EnvDBUser    = "MEHUSTAJA_DB_USER"
	EnvDBName    = "MEHUSTAJA_DB_NAME"
	EnvRedisURL  = "MEHUSTAJA_REDIS_URL"
	EnvJWTSecret = "MEHUSTAJA_JWT_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

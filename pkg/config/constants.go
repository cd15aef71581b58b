package config

// EnvPrefix is passed to envconfig; individual fields carry full names so the
// prefix mainly guards against accidental collisions.
const EnvPrefix = "feastly"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "FEASTLY_APP_ENV"
	EnvPort     = "FEASTLY_APP_PORT"
	EnvDBDSN    = "FEASTLY_DB_DSN"
	EnvDBHost   = "FEASTLY_DB_HOST"
	EnvDBUser   = "FEASTLY_DB_USER"
	EnvDBName   = "FEASTLY_DB_NAME"
	EnvRedisURL = "FEASTLY_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

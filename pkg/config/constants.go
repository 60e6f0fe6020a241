package config

const EnvPrefix = "AGRIMARKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	ListingSourceDB       = "db"
	ListingSourceUpstream = "upstream"
	ListingSourceMock     = "mock"
)

const (
	EnvAppEnv          = "AGRIMARKET_APP_ENV"
	EnvPort            = "AGRIMARKET_APP_PORT"
	EnvDBDSN           = "AGRIMARKET_DB_DSN"
	EnvDBHost          = "AGRIMARKET_DB_HOST"
	EnvDBUser          = "AGRIMARKET_DB_USER"
	EnvDBName          = "AGRIMARKET_DB_NAME"
	EnvUseSQLite       = "AGRIMARKET_USE_SQLITE"
	EnvRedisURL        = "AGRIMARKET_REDIS_URL"
	EnvListingSource   = "AGRIMARKET_LISTING_SOURCE"
	EnvUpstreamBaseURL = "AGRIMARKET_UPSTREAM_BASE_URL"
	EnvCORSOrigins     = "AGRIMARKET_CORS_ALLOWED_ORIGINS"
	EnvSessionTTL      = "AGRIMARKET_SESSION_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

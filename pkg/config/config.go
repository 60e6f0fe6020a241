package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Marketplace  MarketplaceConfig
	Upstream     UpstreamConfig
	Contact      ContactConfig
	CORS         CORSConfig
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
	if err := cfg.Marketplace.validate(cfg.Upstream); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGRIMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"AGRIMARKET_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"AGRIMARKET_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"AGRIMARKET_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"AGRIMARKET_LOG_WARN_STACK" default:"false"`

	APIRateLimit       int           `envconfig:"AGRIMARKET_API_RATE_LIMIT" default:"120"`
	APIRateLimitWindow time.Duration `envconfig:"AGRIMARKET_API_RATE_LIMIT_WINDOW" default:"1m"`
	ShutdownTimeout    time.Duration `envconfig:"AGRIMARKET_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AGRIMARKET_DB_DSN"`
	Driver string `envconfig:"AGRIMARKET_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"AGRIMARKET_SQLITE_PATH" default:"agrimarket.db"`

	LegacyHost     string `envconfig:"AGRIMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"AGRIMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGRIMARKET_DB_USER"`
	LegacyPassword string `envconfig:"AGRIMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGRIMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGRIMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGRIMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGRIMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGRIMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGRIMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGRIMARKET_REDIS_URL"`
	Address      string        `envconfig:"AGRIMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"AGRIMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGRIMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGRIMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGRIMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGRIMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGRIMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGRIMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AGRIMARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AGRIMARKET_AUTO_MIGRATE" default:"false"`
}

type MarketplaceConfig struct {
	ListingSource   string        `envconfig:"AGRIMARKET_LISTING_SOURCE" default:"db"`
	MockListings    int           `envconfig:"AGRIMARKET_MOCK_LISTINGS" default:"60"`
	SessionTTL      time.Duration `envconfig:"AGRIMARKET_SESSION_TTL" default:"30m"`
	SnapshotTTL     time.Duration `envconfig:"AGRIMARKET_SNAPSHOT_TTL" default:"5m"`
	RefreshInterval time.Duration `envconfig:"AGRIMARKET_SNAPSHOT_REFRESH_INTERVAL" default:"5m"`
	SweepInterval   time.Duration `envconfig:"AGRIMARKET_SESSION_SWEEP_INTERVAL" default:"1m"`
	SecureCookies   bool          `envconfig:"AGRIMARKET_SECURE_COOKIES" default:"false"`
}

func (m MarketplaceConfig) validate(upstream UpstreamConfig) error {
	switch strings.ToLower(m.ListingSource) {
	case ListingSourceDB, ListingSourceMock:
		return nil
	case ListingSourceUpstream:
		if strings.TrimSpace(upstream.BaseURL) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvUpstreamBaseURL, EnvListingSource, ListingSourceUpstream)
		}
		return nil
	default:
		return fmt.Errorf("invalid %s %q", EnvListingSource, m.ListingSource)
	}
}

// Source returns the normalized listing source kind.
func (m MarketplaceConfig) Source() string {
	return strings.ToLower(strings.TrimSpace(m.ListingSource))
}

type UpstreamConfig struct {
	BaseURL       string        `envconfig:"AGRIMARKET_UPSTREAM_BASE_URL"`
	APIKey        string        `envconfig:"AGRIMARKET_UPSTREAM_API_KEY"`
	Timeout       time.Duration `envconfig:"AGRIMARKET_UPSTREAM_TIMEOUT" default:"10s"`
	RetryAttempts int           `envconfig:"AGRIMARKET_UPSTREAM_RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"AGRIMARKET_UPSTREAM_RETRY_DELAY" default:"1s"`
}

type ContactConfig struct {
	RateLimit       int           `envconfig:"AGRIMARKET_CONTACT_RATE_LIMIT" default:"5"`
	RateLimitWindow time.Duration `envconfig:"AGRIMARKET_CONTACT_RATE_LIMIT_WINDOW" default:"10m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"AGRIMARKET_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"AGRIMARKET_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	ListingsTopic        string `envconfig:"AGRIMARKET_PUBSUB_LISTINGS_TOPIC" default:"agm-listing-events"`
	ListingsSubscription string `envconfig:"AGRIMARKET_PUBSUB_LISTINGS_SUBSCRIPTION"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
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

type OutboxConfig struct {
	BatchSize    int           `envconfig:"AGRIMARKET_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"AGRIMARKET_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"AGRIMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

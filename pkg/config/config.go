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
	DocStore     DocStoreConfig
	DB           DBConfig
	Redis        RedisConfig
	Mongo        MongoConfig
	PayPal       PayPalConfig
	SiteGen      SiteGenConfig
	Locking      LockingConfig
	PubSub       PubSubConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.App.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DocStore.validate(); err != nil {
		return nil, err
	}
	switch cfg.DocStore.Backend() {
	case DocStoreRedis:
		if cfg.Redis.URL == "" && cfg.Redis.Address == "" {
			return nil, fmt.Errorf("%s or %s is required for the redis document store", EnvRedisURL, EnvRedisAddr)
		}
	case DocStorePostgres, DocStoreSQLite:
		if cfg.DB.DSN == "" {
			return nil, fmt.Errorf("%s is required for the %s document store", EnvDBDSN, cfg.DocStore.Backend())
		}
	case DocStoreMongo:
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("%s is required for the mongo document store", EnvMongoURI)
		}
	}
	if cfg.Locking.Enabled && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("tenant locking requires %s or %s", EnvRedisURL, EnvRedisAddr)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MYCMS_APP_ENV" required:"true"`
	Port         string `envconfig:"MYCMS_APP_PORT" default:"3000"`
	ServerURL    string `envconfig:"MYCMS_APP_SERVER_URL" required:"true"`
	LogLevel     string `envconfig:"MYCMS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"MYCMS_LOG_FORMAT"`
	LogWarnStack bool   `envconfig:"MYCMS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PublicURL returns the server URL without a trailing slash.
func (a AppConfig) PublicURL() string {
	return strings.TrimRight(strings.TrimSpace(a.ServerURL), "/")
}

func (a AppConfig) validate() error {
	raw := a.PublicURL()
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute url, got %q", EnvServerURL, a.ServerURL)
	}
	return nil
}

type DocStoreConfig struct {
	Driver string `envconfig:"MYCMS_DOCSTORE_DRIVER" default:"memory"`
}

// Backend returns the normalized document store driver.
func (d DocStoreConfig) Backend() string {
	return strings.TrimSpace(strings.ToLower(d.Driver))
}

func (d DocStoreConfig) validate() error {
	switch d.Backend() {
	case DocStoreMemory, DocStoreRedis, DocStorePostgres, DocStoreMongo, DocStoreSQLite:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s", EnvDocStoreDriver,
			strings.Join([]string{DocStoreMemory, DocStoreRedis, DocStorePostgres, DocStoreMongo, DocStoreSQLite}, ", "))
	}
}

type DBConfig struct {
	DSN             string        `envconfig:"MYCMS_DB_DSN"`
	MaxOpenConns    int           `envconfig:"MYCMS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MYCMS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MYCMS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MYCMS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MYCMS_REDIS_URL"`
	Address      string        `envconfig:"MYCMS_REDIS_ADDR"`
	Password     string        `envconfig:"MYCMS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MYCMS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MYCMS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MYCMS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MYCMS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MYCMS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MYCMS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type MongoConfig struct {
	URI            string        `envconfig:"MYCMS_MONGO_URI"`
	Database       string        `envconfig:"MYCMS_MONGO_DATABASE" default:"mycms"`
	Collection     string        `envconfig:"MYCMS_MONGO_COLLECTION" default:"tenant_documents"`
	ConnectTimeout time.Duration `envconfig:"MYCMS_MONGO_CONNECT_TIMEOUT" default:"10s"`
}

type PayPalConfig struct {
	SandboxBaseURL string        `envconfig:"MYCMS_PAYPAL_SANDBOX_BASE_URL"`
	LiveBaseURL    string        `envconfig:"MYCMS_PAYPAL_LIVE_BASE_URL"`
	HTTPTimeout    time.Duration `envconfig:"MYCMS_PAYPAL_HTTP_TIMEOUT" default:"15s"`
	Debug          bool          `envconfig:"MYCMS_PAYPAL_DEBUG" default:"false"`
}

type SiteGenConfig struct {
	WorkRoot     string `envconfig:"MYCMS_SITEGEN_WORK_ROOT" default:"./data/themes"`
	OutputRoot   string `envconfig:"MYCMS_SITEGEN_OUTPUT_ROOT" default:"./data/output"`
	ArchiveName  string `envconfig:"MYCMS_SITEGEN_ARCHIVE_NAME" default:"static_website.zip"`
	MaxThemeMB   int    `envconfig:"MYCMS_SITEGEN_MAX_THEME_MB" default:"20"`
	MaxExtractMB int    `envconfig:"MYCMS_SITEGEN_MAX_EXTRACT_MB" default:"100"`
}

// MaxThemeBytes returns the theme upload cap in bytes.
func (s SiteGenConfig) MaxThemeBytes() int64 {
	if s.MaxThemeMB <= 0 {
		return 20 << 20
	}
	return int64(s.MaxThemeMB) << 20
}

// MaxExtractBytes returns the unpacked theme size cap in bytes. Zero lets the
// generator apply its own default.
func (s SiteGenConfig) MaxExtractBytes() int64 {
	if s.MaxExtractMB <= 0 {
		return 0
	}
	return int64(s.MaxExtractMB) << 20
}

type LockingConfig struct {
	Enabled bool          `envconfig:"MYCMS_TENANT_LOCK_ENABLED" default:"false"`
	TTL     time.Duration `envconfig:"MYCMS_TENANT_LOCK_TTL" default:"30s"`
}

type PubSubConfig struct {
	Enabled     bool   `envconfig:"MYCMS_PUBSUB_ENABLED" default:"false"`
	ProjectID   string `envconfig:"MYCMS_GCP_PROJECT_ID"`
	OrdersTopic string `envconfig:"MYCMS_PUBSUB_ORDERS_TOPIC" default:"mycms-order-events"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"MYCMS_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MYCMS_AUTO_MIGRATE" default:"false"`
}

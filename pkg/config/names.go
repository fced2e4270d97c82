package config

const EnvPrefix = "MYCMS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	DocStoreMemory   = "memory"
	DocStoreRedis    = "redis"
	DocStorePostgres = "postgres"
	DocStoreMongo    = "mongo"
	DocStoreSQLite   = "sqlite"
)

const (
	EnvAppEnv         = "MYCMS_APP_ENV"
	EnvPort           = "MYCMS_APP_PORT"
	EnvServerURL      = "MYCMS_APP_SERVER_URL"
	EnvDocStoreDriver = "MYCMS_DOCSTORE_DRIVER"
	EnvDBDSN          = "MYCMS_DB_DSN"
	EnvRedisURL       = "MYCMS_REDIS_URL"
	EnvRedisAddr      = "MYCMS_REDIS_ADDR"
	EnvMongoURI       = "MYCMS_MONGO_URI"
	EnvTenantLock     = "MYCMS_TENANT_LOCK_ENABLED"
	EnvPubSubEnabled  = "MYCMS_PUBSUB_ENABLED"
	EnvGCPProjectID   = "MYCMS_GCP_PROJECT_ID"
	EnvCORSOrigins    = "MYCMS_CORS_ALLOWED_ORIGINS"
)

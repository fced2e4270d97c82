package docstore

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/mycms-backend/pkg/config"
	"github.com/angelmondragon/mycms-backend/pkg/db"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
	"github.com/angelmondragon/mycms-backend/pkg/mongo"
	"github.com/angelmondragon/mycms-backend/pkg/redis"
)

// Backend bundles the configured store with the connections it owns.
type Backend struct {
	Store  Store
	Pinger Pinger
	Locker Locker
	DB     *db.Client
	Redis  *redis.Client
	Mongo  *mongo.Client
}

// Open connects the store selected by cfg.DocStore and, when enabled, the advisory tenant lock.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Backend, error) {
	b := &Backend{Locker: NopLocker{}}

	needRedis := cfg.DocStore.Backend() == config.DocStoreRedis || cfg.Locking.Enabled
	if needRedis {
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		b.Redis = client
	}

	switch cfg.DocStore.Backend() {
	case config.DocStoreMemory:
		store := NewMemoryStore()
		b.Store, b.Pinger = store, store
	case config.DocStoreRedis:
		store, err := NewRedisStore(b.Redis)
		if err != nil {
			return nil, multierr.Append(err, b.Close(ctx))
		}
		b.Store, b.Pinger = store, store
	case config.DocStorePostgres, config.DocStoreSQLite:
		connect := db.New
		if cfg.DocStore.Backend() == config.DocStoreSQLite {
			connect = db.NewSQLite
		}
		client, err := connect(ctx, cfg.DB, logg)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("%s: %w", cfg.DocStore.Backend(), err), b.Close(ctx))
		}
		b.DB = client
		store, err := NewSQLStore(client.DB())
		if err != nil {
			return nil, multierr.Append(err, b.Close(ctx))
		}
		b.Store, b.Pinger = store, client
	case config.DocStoreMongo:
		client, err := mongo.New(ctx, cfg.Mongo, logg)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("mongo: %w", err), b.Close(ctx))
		}
		b.Mongo = client
		store, err := NewMongoStore(client.Collection())
		if err != nil {
			return nil, multierr.Append(err, b.Close(ctx))
		}
		b.Store, b.Pinger = store, client
	default:
		return nil, multierr.Append(fmt.Errorf("unsupported document store driver %q", cfg.DocStore.Driver), b.Close(ctx))
	}

	if cfg.Locking.Enabled {
		locker, err := NewRedisLocker(b.Redis, cfg.Locking.TTL)
		if err != nil {
			return nil, multierr.Append(err, b.Close(ctx))
		}
		b.Locker = locker
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"driver":  cfg.DocStore.Backend(),
			"locking": cfg.Locking.Enabled,
		}), "document store ready")
	}
	return b, nil
}

// Close releases every connection the backend opened.
func (b *Backend) Close(ctx context.Context) error {
	if b == nil {
		return nil
	}
	var err error
	if b.DB != nil {
		err = multierr.Append(err, b.DB.Close())
	}
	if b.Redis != nil {
		err = multierr.Append(err, b.Redis.Close())
	}
	if b.Mongo != nil {
		err = multierr.Append(err, b.Mongo.Close(ctx))
	}
	return err
}

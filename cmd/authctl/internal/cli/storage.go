package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/migrations"
	"github.com/goliatone/go-auth-session/security"
	sqlstore "github.com/goliatone/go-auth-session/store/sql"
)

const storageCacheTTL = 30 * time.Second

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool                { return c.debug }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "authctl" }

// openedStorage is the storage the facade runs on plus the persistence
// client behind it, when there is one.
type openedStorage struct {
	storage core.Storage
	client  *persistence.Client
}

func (o openedStorage) Close() error {
	if o.client == nil {
		return nil
	}
	return o.client.Close()
}

// openStorage returns in-memory storage for the memory driver. For sqlite
// and postgres it connects and registers the dialect's migrations, applying
// them when migrate is set. The table is sealed when a seal key is
// configured and always sits behind a read cache.
func openStorage(ctx context.Context, cfg core.StorageConfig, namespace string, migrate bool, debug bool) (openedStorage, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	var (
		sqlDriver string
		dialect   schema.Dialect
		target    string
	)
	switch driver {
	case "", core.StorageDriverMemory:
		return openedStorage{storage: core.NewMemoryStorage()}, nil
	case core.StorageDriverSQLite:
		sqlDriver, dialect, target = "sqlite3", sqlitedialect.New(), migrations.DialectSQLite
	case core.StorageDriverPostgres:
		sqlDriver, dialect, target = "postgres", pgdialect.New(), migrations.DialectPostgres
	default:
		return openedStorage{}, fmt.Errorf("authctl: unsupported storage driver %q", cfg.Driver)
	}

	sqlDB, err := sql.Open(sqlDriver, cfg.DSN)
	if err != nil {
		return openedStorage{}, fmt.Errorf("authctl: open %s: %w", driver, err)
	}
	if driver == core.StorageDriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(persistenceConfig{driver: sqlDriver, server: cfg.DSN, debug: debug}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return openedStorage{}, fmt.Errorf("authctl: persistence client: %w", err)
	}

	_, err = migrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != target {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithDialects(target))
	if err != nil {
		_ = client.Close()
		return openedStorage{}, fmt.Errorf("authctl: register migrations: %w", err)
	}
	if migrate {
		if err := client.Migrate(ctx); err != nil {
			_ = client.Close()
			return openedStorage{}, fmt.Errorf("authctl: migrate: %w", err)
		}
	}

	table, err := sqlstore.NewStorageFromPersistence(client, sqlstore.WithNamespace(namespace))
	if err != nil {
		_ = client.Close()
		return openedStorage{}, err
	}
	var persisted core.Storage = table
	if key := strings.TrimSpace(cfg.SealKey); key != "" {
		sealer, err := security.NewAppKeySealerFromString(key)
		if err != nil {
			_ = client.Close()
			return openedStorage{}, err
		}
		if persisted, err = security.NewSealedStorage(table, sealer); err != nil {
			_ = client.Close()
			return openedStorage{}, err
		}
	}
	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = storageCacheTTL
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		_ = client.Close()
		return openedStorage{}, fmt.Errorf("authctl: storage cache: %w", err)
	}
	cached, err := sqlstore.NewCachedStorage(persisted, cacheService)
	if err != nil {
		_ = client.Close()
		return openedStorage{}, err
	}
	return openedStorage{storage: cached, client: client}, nil
}

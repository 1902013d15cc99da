package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-versioned/pkg/store"
)

const (
	defaultFileDir    = ".versioned"
	defaultSQLitePath = "versioned.db"
)

// OpenStore opens the configured store. The returned func releases it.
func OpenStore(ctx context.Context, cfg StoreConfig) (store.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case DriverMemory:
		return store.NewMemoryStore(), noop, nil
	case DriverFile, "":
		dir := cfg.Path
		if dir == "" {
			dir = defaultFileDir
		}
		fs, err := store.NewFileStore(dir)
		if err != nil {
			return nil, nil, err
		}
		return fs, noop, nil
	case DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = defaultSQLitePath
		}
		var opts []store.SQLOption
		if cfg.Table != "" {
			opts = append(opts, store.WithTable(cfg.Table))
		}
		db, err := store.OpenSQLite(ctx, path, opts...)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rs, err := store.NewRedisStore(client, store.WithPrefix(cfg.Redis.Prefix), store.WithExpiration(cfg.Redis.TTL))
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return rs, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("cli: unknown store driver %q", cfg.Driver)
	}
}

package kvstore

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	SQLite  SQLiteConfig
	Redis   RedisConfig
	Mongo   MongoConfig
}

// Healthchecker is implemented by backends that can report liveness.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}

// Open builds the Store named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite, "":
		return NewSQLite(cfg.SQLite)
	case BackendRedis:
		client, err := ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, cfg.Redis.KeyPrefix), nil
	case BackendMongo:
		client, err := ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return NewMongo(client, cfg.Mongo), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Healthcheck returns a probe for s, or nil if the backend has none.
func Healthcheck(s Store) func(context.Context) error {
	if hc, ok := s.(Healthchecker); ok {
		return hc.Healthcheck
	}
	return nil
}

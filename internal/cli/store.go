package cli

import (
	"fmt"

	"github.com/aretw0/panel/internal/config"
	"github.com/aretw0/panel/pkg/adapters/file"
	"github.com/aretw0/panel/pkg/adapters/memory"
	"github.com/aretw0/panel/pkg/adapters/redis"
	"github.com/aretw0/panel/pkg/adapters/sqlite"
	"github.com/aretw0/panel/pkg/ports"
)

// openStore selects the session backend. The locker is only set for
// backends shared between processes.
func openStore(cfg *config.Config) (ports.SessionStore, ports.DistributedLocker, func() error, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewStore(), nil, nil, nil
	case config.StoreFile:
		return file.New(cfg.SessionDir), nil, nil, nil
	case config.StoreRedis:
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.RedisTTL))
		return store, store.Locker(), store.Close, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil, store.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

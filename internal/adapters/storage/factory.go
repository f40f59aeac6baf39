package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jsamuelsen/daily-quote/internal/platform/config"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

// SQLiteFileName is the database file created under storage.path.
const SQLiteFileName = "daily-quote.db"

// Open creates the backend named by cfg.Driver.
func Open(cfg config.StorageConfig, logger *slog.Logger) (ports.StorageBackend, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Path)
	case "badger":
		return NewBadgerStore(cfg.Path, cfg.KeyPrefix, logger.With(slog.String("component", "badger")))
	case "redis":
		return NewRedisStore(cfg.RedisURL, cfg.KeyPrefix)
	case "sqlite":
		return NewSQLiteStore(filepath.Join(cfg.Path, SQLiteFileName))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

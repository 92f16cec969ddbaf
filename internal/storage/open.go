package storage

import (
	"fmt"
	"time"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string // memory, sqlite or redis
	SQLitePath string
	RedisURL   string
	RedisTTL   time.Duration
}

// Open builds the configured Store.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s, err := NewSQLiteStore(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedisStore(opts.RedisURL, opts.RedisTTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// Package storage provides the JSON key-value store behind the content
// cache. Backends are selected by configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/koios/flipdot-renderer/internal/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned by GetJSON when the key does not exist
var ErrNotFound = errors.New("key not found")

// Store is a JSON key-value store
type Store interface {
	// GetJSON decodes the value stored at key into v
	GetJSON(ctx context.Context, key string, v interface{}) error
	// SetJSON stores v as JSON at key, replacing any existing value
	SetJSON(ctx context.Context, key string, v interface{}) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open creates the backend named in cfg
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Backend {
	case config.BackendMemory, "":
		store = NewMemoryStore()
	case config.BackendFS:
		store, err = NewFSStore(cfg.Path)
	case config.BackendRedis:
		store, err = NewRedisStore(ctx, cfg.Redis)
	case config.BackendPostgres:
		store, err = NewPostgresStore(ctx, cfg.DatabaseURL, logger)
	case config.BackendS3:
		store, err = NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Backend, err)
	}

	logger.Info("Storage backend ready", zap.String("backend", cfg.Backend))
	return store, nil
}

func validKey(key string) error {
	if key == "" {
		return errors.New("empty storage key")
	}
	return nil
}

func filterSorted(keys []string, prefix string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

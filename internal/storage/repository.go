// Package storage is the backend-agnostic face of the user store.
//
// Backends (sqlite, postgres, mysql, mssql) register a Factory under their
// kind from init(); callers import storage/all for side effects and then
// obtain a Repository through New without knowing which backend they got.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"userload/internal/ddl"
	"userload/internal/records"
)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "users"

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name, e.g. "sqlite".
	Kind string
	// DSN is passed to the backend driver unchanged.
	DSN string
	// Table is the target table, optionally schema-qualified.
	Table string
}

// Repository is the user store.
type Repository interface {
	// ResetSchema drops the table if present and recreates it with email
	// UNIQUE. Calling it twice in a row succeeds both times.
	ResetSchema(ctx context.Context) error

	// UpsertBatch applies users in order inside one transaction. On an email
	// conflict only age and country are updated. On any failure the whole
	// batch is rolled back and 0 is returned.
	UpsertBatch(ctx context.Context, users []records.User) (int64, error)

	// Close releases the underlying connection or pool.
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository of cfg.Kind. An empty Table selects DefaultTable.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if err := ddl.ValidateFQN(cfg.Table); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

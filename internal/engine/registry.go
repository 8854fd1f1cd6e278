package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures an engine backend.
type Config struct {
	// Kind selects the backend: "sqlite", "postgres", "mysql", "mssql".
	Kind string

	// DSN is passed to the backend's driver. Backends may supply a default
	// (sqlite uses ":memory:").
	DSN string
}

// Factory opens a Conn for a backend kind.
type Factory func(ctx context.Context, cfg Config) (Conn, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the Factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// Open opens a Conn using the Factory registered for cfg.Kind.
func Open(ctx context.Context, cfg Config) (Conn, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported engine.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered backend kinds, sorted.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

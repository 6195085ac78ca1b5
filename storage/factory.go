package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/bucketgate/logger"
)

// Factory creates a Client for a provider.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (Client, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a backend available under name. Backend packages
// call it from init; import them for side effects:
//
//	import _ "github.com/kbukum/bucketgate/storage/s3"
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates a Client for cfg.Provider.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("objstore: provider %q not registered (have %v)", cfg.Provider, Providers())
	}

	log.Info("Initializing object store client", logger.Fields(
		"provider", cfg.Provider,
		"endpoint", cfg.Endpoint,
		logger.FieldBucket, cfg.Bucket,
	))
	return f(ctx, cfg, log)
}

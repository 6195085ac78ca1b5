package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/bucketgate/component"
	"github.com/kbukum/bucketgate/logger"
)

const healthProbeTimeout = 3 * time.Second

// Component owns the object store client for the application lifecycle.
type Component struct {
	cfg Config
	log *logger.Logger

	mu     sync.RWMutex
	client Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the storage component. The client is built on Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("storage")}
}

// Client returns the store client, or nil before Start.
func (c *Component) Client() Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Config returns the effective configuration.
func (c *Component) Config() Config { return c.cfg }

// Name implements component.Component.
func (c *Component) Name() string { return "storage" }

// Start builds the client for the configured provider.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	return nil
}

// Stop releases the client.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	c.client = nil
	c.mu.Unlock()
	return nil
}

// Health probes the store with a BucketExists call on the default bucket.
func (c *Component) Health(ctx context.Context) component.Health {
	client := c.Client()
	if client == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "client not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, c.cfg.Bucket)
	switch {
	case err != nil:
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("probe failed: %v", err)}
	case !exists:
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: fmt.Sprintf("bucket %q does not exist", c.cfg.Bucket)}
	default:
		return component.Health{Name: c.Name(), Status: component.StatusHealthy}
	}
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("provider=%s bucket=%s", c.cfg.Provider, c.cfg.Bucket)
	if c.cfg.Endpoint != "" {
		details += " endpoint=" + c.cfg.Endpoint
	}
	if c.cfg.ObjectLocking {
		details += " object-lock"
	}
	if c.cfg.TLS.IsEnabled() {
		details += " tls"
	}
	return component.Description{Name: "Object Store", Type: "storage", Details: details}
}

package main

import (
	"errors"
	"fmt"

	"github.com/kbukum/bucketgate/auth"
	"github.com/kbukum/bucketgate/config"
	"github.com/kbukum/bucketgate/gateway"
	"github.com/kbukum/bucketgate/observability"
	"github.com/kbukum/bucketgate/redis"
	"github.com/kbukum/bucketgate/server"
	"github.com/kbukum/bucketgate/storage"
)

// multipartOverhead is added to the upload limit when deriving the HTTP body
// limit so a maximum-size file still fits inside its multipart envelope.
const multipartOverhead = 1 << 20

// AppConfig is the bucketgate configuration tree.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	ObjStore      storage.Config       `yaml:"objstore" mapstructure:"objstore"`
	Gateway       gateway.Config       `yaml:"gateway" mapstructure:"gateway"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Auth          auth.Config          `yaml:"auth" mapstructure:"auth"`
	// Redis, when enabled, holds rate-limit windows shared by all replicas.
	Redis redis.Config `yaml:"redis" mapstructure:"redis"`
}

// ApplyDefaults fills in every block. The HTTP body limit follows the
// gateway upload limit unless set explicitly.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "bucketgate"
	}
	c.ServiceConfig.ApplyDefaults()
	c.ObjStore.ApplyDefaults()
	c.Gateway.ApplyDefaults()
	if c.Server.MaxBodySize == "" {
		c.Server.MaxBodySize = fmt.Sprintf("%dB", c.Gateway.MaxUploadBytes()+multipartOverhead)
	}
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Redis.ApplyDefaults()
}

// Validate reports every invalid block at once.
func (c *AppConfig) Validate() error {
	return errors.Join(
		c.ServiceConfig.Validate(),
		c.Server.Validate(),
		c.ObjStore.Validate(),
		c.Gateway.Validate(),
		c.Observability.Validate(),
		c.Auth.Validate(),
		c.Redis.Validate(),
	)
}

package auth

import (
	"fmt"

	"github.com/kbukum/bucketgate/auth/jwt"
)

// DefaultSkipPaths bypass authentication even when it is enabled.
var DefaultSkipPaths = []string{"/health", "/info", "/metrics"}

// Config holds authentication configuration.
type Config struct {
	// Enabled turns on bearer-token checks for the API routes.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`

	JWT jwt.Config `yaml:"jwt" mapstructure:"jwt"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.SkipPaths) == 0 {
		c.SkipPaths = DefaultSkipPaths
	}
	c.JWT.ApplyDefaults()
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("auth.jwt: %w", err)
	}
	return nil
}

// Describe returns a one-liner for the startup summary.
func (c *Config) Describe() string {
	if !c.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("JWT(%s) TTL=%s", c.JWT.Method, c.JWT.AccessTokenTTL)
}

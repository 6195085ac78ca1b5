package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kbukum/bucketgate/security"
)

// Provider names for the built-in backends.
const (
	ProviderS3     = "s3"
	ProviderMinio  = "minio"
	ProviderMemory = "memory"
)

// Default configuration values.
const (
	DefaultProvider = ProviderS3
	DefaultRegion   = "us-east-1"
	DefaultBucket   = "uploads"
)

// Config holds object store configuration. It is loaded once at startup and
// copied into constructors.
type Config struct {
	// Provider selects the backend: "s3", "minio" or "memory".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Endpoint is the store URL, e.g. http://localhost:9000. Empty means AWS.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	Region    string `yaml:"region" mapstructure:"region"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`

	// Bucket is the default bucket served by the gateway.
	Bucket string `yaml:"bucket" mapstructure:"bucket"`

	// PublicURL is the base for static object URLs (baseURL/bucket/key).
	// Defaults to Endpoint.
	PublicURL string `yaml:"public_url" mapstructure:"public_url"`

	// PathStyle forces path-style addressing; implied by a custom Endpoint.
	PathStyle bool `yaml:"path_style" mapstructure:"path_style"`

	// ObjectLocking creates the bucket with object-lock support when absent.
	ObjectLocking bool `yaml:"object_locking" mapstructure:"object_locking"`

	// TLS trusts a private CA or presents a client certificate to the store.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.PublicURL == "" {
		c.PublicURL = c.Endpoint
	}
	if c.PublicURL == "" && c.Provider != ProviderMemory {
		c.PublicURL = fmt.Sprintf("https://s3.%s.amazonaws.com", c.Region)
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
}

// Validate checks the configuration for the selected provider.
func (c *Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("bucket is required"))
	}
	switch c.Provider {
	case ProviderS3:
	case ProviderMinio:
		if c.Endpoint == "" {
			errs = append(errs, errors.New("endpoint is required for minio provider"))
		}
	case ProviderMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported provider %q", c.Provider))
	}
	if c.Endpoint != "" {
		if _, err := ParseEndpoint(c.Endpoint); err != nil {
			errs = append(errs, err)
		}
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		errs = append(errs, errors.New("access_key and secret_key must be set together"))
	}
	if err := c.TLS.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("objstore: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseEndpoint parses an endpoint URL and requires an http(s) scheme and host.
func ParseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: want http(s)://host[:port]", endpoint)
	}
	return u, nil
}

// ObjectURL builds the static, non-expiring path URL of an object. The key is
// path-escaped; slashes stay separators.
func (c *Config) ObjectURL(key string) string {
	return c.PublicURL + "/" + c.Bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}

package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kbukum/bucketgate/storage"
	"github.com/kbukum/bucketgate/util"
)

// Defaults for Config.
const (
	DefaultUploadURLExpiryMinutes = 10
	DefaultPresignExpiryMinutes   = 10
	// MaxPresignExpiryMinutes is seven days, the SigV4 ceiling.
	MaxPresignExpiryMinutes = 7 * 24 * 60
	DefaultRetentionMode    = storage.Compliance
	DefaultRetentionDays    = 365
	DefaultMaxUploadSize    = "100MB"
)

// Config tunes gateway policy.
type Config struct {
	// UploadURLExpiryMinutes is the lifetime of the GET URL returned by Upload.
	UploadURLExpiryMinutes int `yaml:"upload_url_expiry_minutes" mapstructure:"upload_url_expiry_minutes"`

	DefaultPresignMinutes int `yaml:"default_presign_minutes" mapstructure:"default_presign_minutes"`
	MaxPresignMinutes     int `yaml:"max_presign_minutes" mapstructure:"max_presign_minutes"`

	// RetentionMode and RetentionDays are the defaults for retention uploads
	// and for EnableBucketLocking.
	RetentionMode string `yaml:"retention_mode" mapstructure:"retention_mode"`
	RetentionDays int    `yaml:"retention_days" mapstructure:"retention_days"`

	// MaxUploadSize accepts sizes like "100MB" or "1GB".
	MaxUploadSize string `yaml:"max_upload_size" mapstructure:"max_upload_size"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.UploadURLExpiryMinutes == 0 {
		c.UploadURLExpiryMinutes = DefaultUploadURLExpiryMinutes
	}
	if c.DefaultPresignMinutes == 0 {
		c.DefaultPresignMinutes = DefaultPresignExpiryMinutes
	}
	if c.MaxPresignMinutes == 0 {
		c.MaxPresignMinutes = MaxPresignExpiryMinutes
	}
	if c.RetentionMode == "" {
		c.RetentionMode = string(DefaultRetentionMode)
	}
	c.RetentionMode = strings.ToUpper(c.RetentionMode)
	if c.RetentionDays == 0 {
		c.RetentionDays = DefaultRetentionDays
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = DefaultMaxUploadSize
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxPresignMinutes < 1 || c.MaxPresignMinutes > MaxPresignExpiryMinutes {
		errs = append(errs, fmt.Errorf("max_presign_minutes must be within 1..%d", MaxPresignExpiryMinutes))
	}
	if c.DefaultPresignMinutes < 1 || c.DefaultPresignMinutes > c.MaxPresignMinutes {
		errs = append(errs, errors.New("default_presign_minutes must be within 1..max_presign_minutes"))
	}
	if c.UploadURLExpiryMinutes < 1 || c.UploadURLExpiryMinutes > c.MaxPresignMinutes {
		errs = append(errs, errors.New("upload_url_expiry_minutes must be within 1..max_presign_minutes"))
	}
	if !storage.RetentionMode(c.RetentionMode).Valid() {
		errs = append(errs, fmt.Errorf("retention_mode %q must be GOVERNANCE or COMPLIANCE", c.RetentionMode))
	}
	if c.RetentionDays < 1 {
		errs = append(errs, errors.New("retention_days must be positive"))
	}
	if n, err := util.ParseSize(c.MaxUploadSize); err != nil || n <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_size %q is not a positive size", c.MaxUploadSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("gateway: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// MaxUploadBytes returns MaxUploadSize in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return util.ParseSizeOr(c.MaxUploadSize, 100<<20)
}

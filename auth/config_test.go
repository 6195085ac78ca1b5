package auth

import (
	"testing"

	"github.com/kbukum/bucketgate/auth/jwt"
)

func TestConfig(t *testing.T) {
	var disabled Config
	disabled.ApplyDefaults()
	if err := disabled.Validate(); err != nil {
		t.Errorf("disabled config: %v", err)
	}
	if len(disabled.SkipPaths) == 0 {
		t.Error("skip paths not defaulted")
	}
	if got := disabled.Describe(); got != "disabled" {
		t.Errorf("Describe() = %q", got)
	}

	enabled := Config{Enabled: true}
	enabled.ApplyDefaults()
	if err := enabled.Validate(); err == nil {
		t.Error("enabled config without a secret validated")
	}
	enabled.JWT.Secret = "0123456789abcdef0123456789abcdef"
	if err := enabled.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if enabled.JWT.Method != jwt.HS256 {
		t.Errorf("method = %q", enabled.JWT.Method)
	}
}

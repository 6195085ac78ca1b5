package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/bucketgate/errors"
	"github.com/kbukum/bucketgate/storage"
)

// ParseRetentionMode parses GOVERNANCE or COMPLIANCE, case-insensitively.
// An empty string yields def.
func ParseRetentionMode(s string, def storage.RetentionMode) (storage.RetentionMode, error) {
	if s == "" {
		return def, nil
	}
	mode := storage.RetentionMode(strings.ToUpper(strings.TrimSpace(s)))
	if !mode.Valid() {
		return "", errors.InvalidInput("retentionMode", fmt.Sprintf("%q must be GOVERNANCE or COMPLIANCE", s))
	}
	return mode, nil
}

// BuildRetention returns a policy holding the object until now plus
// durationDays calendar days.
func BuildRetention(mode storage.RetentionMode, durationDays int, now time.Time) (RetentionPolicy, error) {
	if !mode.Valid() {
		return RetentionPolicy{}, errors.InvalidInput("retentionMode", fmt.Sprintf("unknown mode %q", mode))
	}
	if durationDays < 1 {
		return RetentionPolicy{}, errors.InvalidInput("retentionDays", "must be at least 1")
	}
	return RetentionPolicy{Mode: mode, Until: now.AddDate(0, 0, durationDays)}, nil
}

// LockPolicy manages the bucket-wide default retention.
type LockPolicy struct {
	client storage.Client
	bucket string
}

// NewLockPolicy creates a LockPolicy for bucket.
func NewLockPolicy(client storage.Client, bucket string) *LockPolicy {
	return &LockPolicy{client: client, bucket: bucket}
}

// Enable sets the bucket default retention. A bucket created without object
// lock cannot gain it later; that case is a non-retryable POLICY_VIOLATION.
func (p *LockPolicy) Enable(ctx context.Context, mode storage.RetentionMode, days int) error {
	if !mode.Valid() {
		return errors.InvalidInput("mode", fmt.Sprintf("unknown mode %q", mode))
	}
	if days < 1 {
		return errors.InvalidInput("days", "must be at least 1")
	}
	err := p.client.SetObjectLockConfig(ctx, p.bucket, storage.LockConfig{Mode: mode, Days: days})
	if err != nil {
		return translate("enable bucket locking", "", err)
	}
	return nil
}

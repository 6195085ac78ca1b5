package storage

import (
	"context"
	"io"
	"time"
)

// RetentionMode is the object-lock strictness level.
type RetentionMode string

const (
	// Governance retention can be bypassed by privileged callers.
	Governance RetentionMode = "GOVERNANCE"
	// Compliance retention cannot be bypassed by anyone until it expires.
	Compliance RetentionMode = "COMPLIANCE"
)

// Valid reports whether m is a known retention mode.
func (m RetentionMode) Valid() bool {
	return m == Governance || m == Compliance
}

// Method is the HTTP method a presigned URL is scoped to.
type Method string

const (
	MethodGet Method = "GET"
	MethodPut Method = "PUT"
)

// Customer-supplied key (SSE-C) request headers.
const (
	HeaderSSECAlgorithm = "X-Amz-Server-Side-Encryption-Customer-Algorithm"
	HeaderSSECKey       = "X-Amz-Server-Side-Encryption-Customer-Key"
	HeaderSSECKeyMD5    = "X-Amz-Server-Side-Encryption-Customer-Key-MD5"
)

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// ObjectVersion describes one entry in an object's version history.
type ObjectVersion struct {
	Key          string
	VersionID    string
	IsLatest     bool
	DeleteMarker bool
	Size         int64
	LastModified time.Time
}

// Retention is a per-object WORM lock.
type Retention struct {
	Mode  RetentionMode
	Until time.Time
}

// PutOptions carries the optional parts of a put.
type PutOptions struct {
	ContentType string
	// Headers holds extra request headers; backends understand the SSE-C set.
	Headers   map[string]string
	Tags      map[string]string
	Retention *Retention
}

// BucketOptions configures bucket creation.
type BucketOptions struct {
	// ObjectLocking can only be turned on at creation time.
	ObjectLocking bool
}

// LockConfig is a bucket's default retention rule.
type LockConfig struct {
	Mode RetentionMode
	Days int
}

// Client is the object store capability set consumed by the gateway.
// Implementations must be safe for concurrent use.
type Client interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts BucketOptions) error

	// PutObject stores r under key. size may be -1 when unknown.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) error
	// GetObject returns the object body; the caller closes it. A missing
	// object yields ErrNotFound.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	// RemoveObject deletes key. A missing object is not an error; an object
	// under active retention yields ErrObjectLocked.
	RemoveObject(ctx context.Context, bucket, key string) error

	// ListObjects returns objects under prefix in store order.
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	// ListObjectVersions returns the version history of objects under prefix.
	ListObjectVersions(ctx context.Context, bucket, prefix string) ([]ObjectVersion, error)
	GetObjectTags(ctx context.Context, bucket, key string) (map[string]string, error)

	// SetObjectLockConfig sets the bucket default retention. Buckets created
	// without object locking yield ErrLockingUnsupported.
	SetObjectLockConfig(ctx context.Context, bucket string, cfg LockConfig) error

	// PresignObject signs a URL valid for expiry from now.
	PresignObject(ctx context.Context, bucket, key string, method Method, expiry time.Duration) (string, error)
}

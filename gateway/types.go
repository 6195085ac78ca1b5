package gateway

import (
	"io"
	"time"

	"github.com/kbukum/bucketgate/logger"
	"github.com/kbukum/bucketgate/storage"
)

// ObjectRef locates an object independent of its version. Uploads create
// one; later operations address the object through it.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Fields returns log fields naming the object.
func (r ObjectRef) Fields() map[string]interface{} {
	return logger.ObjectFields(r.Bucket, r.Key)
}

// FileDescriptor is the caller-facing view of an uploaded or listed object.
type FileDescriptor struct {
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// PresignedGrant is a stateless capability to GET or PUT one object until it
// expires. The gateway keeps no record of issued grants.
type PresignedGrant struct {
	URL           string         `json:"url"`
	Method        storage.Method `json:"method"`
	ObjectName    string         `json:"objectName"`
	ExpiryMinutes int64          `json:"expiryTime"`
}

// RetentionPolicy is a per-object WORM lock applied at upload time.
type RetentionPolicy struct {
	Mode  storage.RetentionMode `json:"mode"`
	Until time.Time             `json:"until"`
}

// BucketMetrics is a best-effort, sampled snapshot of the bucket. Size is the
// size of one listed object, not an aggregate.
type BucketMetrics struct {
	BucketName   string    `json:"bucketName"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
}

// VersionInfo is one entry of an object's version history.
type VersionInfo struct {
	Key          string    `json:"key"`
	VersionID    string    `json:"versionId"`
	IsLatest     bool      `json:"isLatest"`
	DeleteMarker bool      `json:"deleteMarker"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// UploadInput describes a file to upload. The gateway calls Open once and
// closes the stream on every exit path.
type UploadInput struct {
	Open        func() (io.ReadCloser, error)
	Size        int64
	ContentType string
	Filename    string
	Tags        map[string]string
}

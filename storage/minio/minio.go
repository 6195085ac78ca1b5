// Package minio implements storage.Client with the MinIO Go SDK. It speaks to
// MinIO and any other S3-compatible endpoint.
package minio

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/encrypt"

	"github.com/kbukum/bucketgate/logger"
	"github.com/kbukum/bucketgate/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderMinio, func(_ context.Context, cfg storage.Config, log *logger.Logger) (storage.Client, error) {
		return New(cfg, log)
	})
}

// Client implements storage.Client on minio-go.
type Client struct {
	api    *minio.Client
	region string
	log    *logger.Logger
	now    func() time.Time
}

var _ storage.Client = (*Client)(nil)

// New creates a MinIO client. The endpoint scheme decides TLS and cfg.TLS
// tunes it; buckets are always addressed path-style.
func New(cfg storage.Config, log *logger.Logger) (*Client, error) {
	u, err := storage.ParseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}
	opts := &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       u.Scheme == "https",
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	}
	tr, err := cfg.TLS.Transport()
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}
	if tr != nil {
		opts.Transport = tr
	}
	api, err := minio.New(u.Host, opts)
	if err != nil {
		return nil, fmt.Errorf("minio: new client: %w", err)
	}
	return &Client{
		api:    api,
		region: cfg.Region,
		log:    log.WithComponent("storage-minio"),
		now:    time.Now,
	}, nil
}

// BucketExists implements storage.Client.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := c.api.BucketExists(ctx, bucket)
	if err != nil {
		return false, translate("bucket exists", err)
	}
	return ok, nil
}

// MakeBucket implements storage.Client.
func (c *Client) MakeBucket(ctx context.Context, bucket string, opts storage.BucketOptions) error {
	err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{
		Region:        c.region,
		ObjectLocking: opts.ObjectLocking,
	})
	if err != nil {
		return translate("make bucket", err)
	}
	return nil
}

// PutObject implements storage.Client.
func (c *Client) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts storage.PutOptions) error {
	put := minio.PutObjectOptions{
		ContentType: opts.ContentType,
		UserTags:    opts.Tags,
	}
	if opts.Headers[storage.HeaderSSECAlgorithm] != "" {
		sse, err := customerKey(opts.Headers)
		if err != nil {
			return err
		}
		put.ServerSideEncryption = sse
	}
	if ret := opts.Retention; ret != nil {
		put.Mode = minio.RetentionMode(ret.Mode)
		put.RetainUntilDate = ret.Until
		put.SendContentMd5 = true
	}

	if _, err := c.api.PutObject(ctx, bucket, key, r, size, put); err != nil {
		return translate("put object", err)
	}
	return nil
}

// GetObject implements storage.Client. minio-go opens objects lazily, so a
// Stat runs first to surface a missing key before any bytes are read.
func (c *Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := c.api.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate("get object", err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, translate("get object", err)
	}
	return obj, nil
}

// RemoveObject implements storage.Client.
func (c *Client) RemoveObject(ctx context.Context, bucket, key string) error {
	// Stat needs the SSE-C key of an encrypted object; the retention
	// subresource does not.
	mode, until, err := c.api.GetObjectRetention(ctx, bucket, key, "")
	if err != nil {
		switch classifyRetention(err) {
		case retentionGone:
			return nil
		case retentionFailed:
			return translate("get object retention", err)
		}
	} else if mode != nil && until != nil && c.now().Before(*until) {
		return fmt.Errorf("%w: %q retained (%s) until %s", storage.ErrObjectLocked, key, *mode, until.Format(time.RFC3339))
	}

	if err := c.api.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return translate("remove object", err)
	}
	return nil
}

// ListObjects implements storage.Client.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	objects := []storage.ObjectInfo{}
	for obj := range c.api.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, translate("list objects", obj.Err)
		}
		objects = append(objects, storage.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
		})
	}
	return objects, nil
}

// ListObjectVersions implements storage.Client.
func (c *Client) ListObjectVersions(ctx context.Context, bucket, prefix string) ([]storage.ObjectVersion, error) {
	versions := []storage.ObjectVersion{}
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true, WithVersions: true}
	for obj := range c.api.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, translate("list object versions", obj.Err)
		}
		versions = append(versions, storage.ObjectVersion{
			Key:          obj.Key,
			VersionID:    obj.VersionID,
			IsLatest:     obj.IsLatest,
			DeleteMarker: obj.IsDeleteMarker,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return versions, nil
}

// GetObjectTags implements storage.Client.
func (c *Client) GetObjectTags(ctx context.Context, bucket, key string) (map[string]string, error) {
	t, err := c.api.GetObjectTagging(ctx, bucket, key, minio.GetObjectTaggingOptions{})
	if err != nil {
		return nil, translate("get object tagging", err)
	}
	return t.ToMap(), nil
}

// SetObjectLockConfig implements storage.Client.
func (c *Client) SetObjectLockConfig(ctx context.Context, bucket string, cfg storage.LockConfig) error {
	mode := minio.RetentionMode(cfg.Mode)
	validity := uint(cfg.Days)
	unit := minio.Days
	if err := c.api.SetObjectLockConfig(ctx, bucket, &mode, &validity, &unit); err != nil {
		return translate("set object lock config", err)
	}
	return nil
}

// PresignObject implements storage.Client.
func (c *Client) PresignObject(ctx context.Context, bucket, key string, method storage.Method, expiry time.Duration) (string, error) {
	switch method {
	case storage.MethodGet:
		u, err := c.api.PresignedGetObject(ctx, bucket, key, expiry, nil)
		if err != nil {
			return "", translate("presign get", err)
		}
		return u.String(), nil
	case storage.MethodPut:
		u, err := c.api.PresignedPutObject(ctx, bucket, key, expiry)
		if err != nil {
			return "", translate("presign put", err)
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("%w: unsupported presign method %q", storage.ErrInvalidRequest, method)
	}
}

// customerKey rebuilds the SDK's SSE-C value from the raw request headers.
func customerKey(headers map[string]string) (encrypt.ServerSide, error) {
	if alg := headers[storage.HeaderSSECAlgorithm]; alg != "AES256" {
		return nil, fmt.Errorf("%w: unsupported SSE-C algorithm %q", storage.ErrInvalidRequest, alg)
	}
	key, err := base64.StdEncoding.DecodeString(headers[storage.HeaderSSECKey])
	if err != nil {
		return nil, fmt.Errorf("%w: SSE-C key: %v", storage.ErrInvalidRequest, err)
	}
	sse, err := encrypt.NewSSEC(key)
	if err != nil {
		return nil, fmt.Errorf("%w: SSE-C key: %v", storage.ErrInvalidRequest, err)
	}
	return sse, nil
}

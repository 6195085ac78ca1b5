// Package s3 implements storage.Client on Amazon S3 and S3-compatible stores
// through aws-sdk-go-v2.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kbukum/bucketgate/logger"
	"github.com/kbukum/bucketgate/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderS3, func(ctx context.Context, cfg storage.Config, log *logger.Logger) (storage.Client, error) {
		return New(ctx, cfg, log)
	})
}

// Client implements storage.Client using Amazon S3.
type Client struct {
	api     *awss3.Client
	presign *awss3.PresignClient
	region  string
	log     *logger.Logger
	now     func() time.Time
}

var _ storage.Client = (*Client)(nil)

// New creates an S3 client from cfg. A custom endpoint switches to
// path-style addressing, which MinIO and most S3 clones require.
func New(ctx context.Context, cfg storage.Config, log *logger.Logger) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	httpClient, err := cfg.TLS.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}
	if httpClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(httpClient))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	api := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		// S3 clones reject the default flexible checksums on plain puts.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &Client{
		api:     api,
		presign: awss3.NewPresignClient(api),
		region:  cfg.Region,
		log:     log.WithComponent("storage-s3"),
		now:     time.Now,
	}, nil
}

// BucketExists implements storage.Client.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true, nil
	}
	if err = translate("head bucket", err); errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// MakeBucket implements storage.Client.
func (c *Client) MakeBucket(ctx context.Context, bucket string, opts storage.BucketOptions) error {
	in := &awss3.CreateBucketInput{Bucket: aws.String(bucket)}
	if opts.ObjectLocking {
		in.ObjectLockEnabledForBucket = aws.Bool(true)
	}
	// us-east-1 rejects an explicit location constraint.
	if c.region != "" && c.region != storage.DefaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}
	if _, err := c.api.CreateBucket(ctx, in); err != nil {
		return translate("create bucket", err)
	}
	return nil
}

// PutObject implements storage.Client.
func (c *Client) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts storage.PutOptions) error {
	in := &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}
	if alg := opts.Headers[storage.HeaderSSECAlgorithm]; alg != "" {
		in.SSECustomerAlgorithm = aws.String(alg)
		in.SSECustomerKey = aws.String(opts.Headers[storage.HeaderSSECKey])
		in.SSECustomerKeyMD5 = aws.String(opts.Headers[storage.HeaderSSECKeyMD5])
	}
	if len(opts.Tags) > 0 {
		in.Tagging = aws.String(encodeTags(opts.Tags))
	}
	if ret := opts.Retention; ret != nil {
		in.ObjectLockMode = types.ObjectLockMode(ret.Mode)
		in.ObjectLockRetainUntilDate = aws.Time(ret.Until)
		// Object-lock puts must carry an integrity checksum.
		in.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32
	}

	var optFns []func(*awss3.Options)
	if _, seekable := r.(io.ReadSeeker); !seekable {
		// A streamed body cannot be hashed up front for SigV4.
		optFns = append(optFns, awss3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware))
	}

	if _, err := c.api.PutObject(ctx, in, optFns...); err != nil {
		return translate("put object", err)
	}
	return nil
}

// GetObject implements storage.Client.
func (c *Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate("get object", err)
	}
	return out.Body, nil
}

// RemoveObject implements storage.Client. A HEAD runs first so a missing key
// is a no-op and an active retention is reported as ErrObjectLocked instead
// of S3's generic AccessDenied.
func (c *Client) RemoveObject(ctx context.Context, bucket, key string) error {
	// The retention subresource answers without the SSE-C key, unlike HEAD,
	// so encrypted objects can be checked and removed.
	out, err := c.api.GetObjectRetention(ctx, &awss3.GetObjectRetentionInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		switch classifyRetention(err) {
		case retentionGone:
			return nil
		case retentionFailed:
			return translate("get object retention", err)
		}
	} else if r := out.Retention; r != nil && r.Mode != "" && r.RetainUntilDate != nil && c.now().Before(*r.RetainUntilDate) {
		return fmt.Errorf("%w: %q retained (%s) until %s", storage.ErrObjectLocked, key,
			r.Mode, r.RetainUntilDate.Format(time.RFC3339))
	}

	if _, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return translate("delete object", err)
	}
	return nil
}

// ListObjects implements storage.Client. S3 listings carry no content type.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	in := &awss3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	objects := []storage.ObjectInfo{}
	pages := awss3.NewListObjectsV2Paginator(c.api, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, translate("list objects", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, storage.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         aws.ToString(obj.ETag),
			})
		}
	}
	return objects, nil
}

// ListObjectVersions implements storage.Client. Versions and delete markers
// are returned in the order S3 pages them.
func (c *Client) ListObjectVersions(ctx context.Context, bucket, prefix string) ([]storage.ObjectVersion, error) {
	in := &awss3.ListObjectVersionsInput{Bucket: aws.String(bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	versions := []storage.ObjectVersion{}
	for {
		out, err := c.api.ListObjectVersions(ctx, in)
		if err != nil {
			return nil, translate("list object versions", err)
		}
		for _, v := range out.Versions {
			versions = append(versions, storage.ObjectVersion{
				Key:          aws.ToString(v.Key),
				VersionID:    aws.ToString(v.VersionId),
				IsLatest:     aws.ToBool(v.IsLatest),
				Size:         aws.ToInt64(v.Size),
				LastModified: aws.ToTime(v.LastModified),
			})
		}
		for _, m := range out.DeleteMarkers {
			versions = append(versions, storage.ObjectVersion{
				Key:          aws.ToString(m.Key),
				VersionID:    aws.ToString(m.VersionId),
				IsLatest:     aws.ToBool(m.IsLatest),
				DeleteMarker: true,
				LastModified: aws.ToTime(m.LastModified),
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			return versions, nil
		}
		in.KeyMarker = out.NextKeyMarker
		in.VersionIdMarker = out.NextVersionIdMarker
	}
}

// GetObjectTags implements storage.Client.
func (c *Client) GetObjectTags(ctx context.Context, bucket, key string) (map[string]string, error) {
	out, err := c.api.GetObjectTagging(ctx, &awss3.GetObjectTaggingInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate("get object tagging", err)
	}
	tags := make(map[string]string, len(out.TagSet))
	for _, t := range out.TagSet {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags, nil
}

// SetObjectLockConfig implements storage.Client.
func (c *Client) SetObjectLockConfig(ctx context.Context, bucket string, cfg storage.LockConfig) error {
	_, err := c.api.PutObjectLockConfiguration(ctx, &awss3.PutObjectLockConfigurationInput{
		Bucket: aws.String(bucket),
		ObjectLockConfiguration: &types.ObjectLockConfiguration{
			ObjectLockEnabled: types.ObjectLockEnabledEnabled,
			Rule: &types.ObjectLockRule{
				DefaultRetention: &types.DefaultRetention{
					Mode: types.ObjectLockRetentionMode(cfg.Mode),
					Days: aws.Int32(int32(cfg.Days)),
				},
			},
		},
	})
	if err != nil {
		return translate("put object lock configuration", err)
	}
	return nil
}

// PresignObject implements storage.Client.
func (c *Client) PresignObject(ctx context.Context, bucket, key string, method storage.Method, expiry time.Duration) (string, error) {
	expires := awss3.WithPresignExpires(expiry)
	switch method {
	case storage.MethodGet:
		req, err := c.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}, expires)
		if err != nil {
			return "", translate("presign get", err)
		}
		return req.URL, nil
	case storage.MethodPut:
		req, err := c.presign.PresignPutObject(ctx, &awss3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}, expires)
		if err != nil {
			return "", translate("presign put", err)
		}
		return req.URL, nil
	default:
		return "", fmt.Errorf("%w: unsupported presign method %q", storage.ErrInvalidRequest, method)
	}
}

// encodeTags renders tags in the URL query form the x-amz-tagging header expects.
func encodeTags(tags map[string]string) string {
	q := url.Values{}
	for k, v := range tags {
		q.Set(k, v)
	}
	return q.Encode()
}

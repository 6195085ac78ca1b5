package gateway

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/bucketgate/errors"
	"github.com/kbukum/bucketgate/logger"
	"github.com/kbukum/bucketgate/observability"
	"github.com/kbukum/bucketgate/storage"
)

// Operation names used in logs, spans and metrics.
const (
	OpEnsureBucket   = "ensure_bucket"
	OpUpload         = "upload"
	OpUploadEnc      = "upload_encrypted"
	OpUploadRetained = "upload_retention"
	OpDownload       = "download"
	OpDelete         = "delete"
	OpList           = "list"
	OpListVersions   = "list_versions"
	OpGetTags        = "get_tags"
	OpGetMetrics     = "get_metrics"
	OpPresign        = "presign"
	OpEnableLocking  = "enable_locking"
)

// Gateway implements the object operations on one bucket.
type Gateway struct {
	client  storage.Client
	store   storage.Config
	cfg     Config
	log     *logger.Logger
	metrics *observability.OperationMetrics

	namer  Namer
	issuer *Issuer
	locks  *LockPolicy
	crypto *EncryptionBuilder
	now    func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithNamer replaces DeriveKey.
func WithNamer(n Namer) Option {
	return func(g *Gateway) { g.namer = n }
}

// WithRandom sets the entropy source for encryption keys.
func WithRandom(r io.Reader) Option {
	return func(g *Gateway) { g.crypto = NewEncryptionBuilder(r) }
}

// WithClock sets the clock used for retention and metrics.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithMetrics records operation counters and durations.
func WithMetrics(m *observability.OperationMetrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New creates a Gateway over client for store.Bucket. The client handle is
// shared, never replaced.
func New(client storage.Client, store storage.Config, cfg Config, log *logger.Logger, opts ...Option) *Gateway {
	store.ApplyDefaults()
	cfg.ApplyDefaults()
	g := &Gateway{
		client: client,
		store:  store,
		cfg:    cfg,
		log:    log.WithComponent("gateway"),
		namer:  DeriveKey,
		issuer: NewIssuer(client, store.Bucket, cfg.MaxPresignMinutes),
		locks:  NewLockPolicy(client, store.Bucket),
		crypto: NewEncryptionBuilder(nil),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Bucket returns the bucket served by the gateway.
func (g *Gateway) Bucket() string { return g.store.Bucket }

// Config returns the effective policy configuration.
func (g *Gateway) Config() Config { return g.cfg }

// observe opens a span and an in-flight metric for op. The returned func
// closes both and logs failures; pass it the operation's final error.
func (g *Gateway) observe(ctx context.Context, op, key string) (context.Context, func(error)) {
	attrs := []attribute.KeyValue{
		observability.AttrOperation.String(op),
		observability.AttrBucket.String(g.store.Bucket),
	}
	if key != "" {
		attrs = append(attrs, observability.AttrKey.String(key))
	}
	ctx, span := observability.StartSpan(ctx, "gateway."+op, attrs...)
	done := g.metrics.Begin(ctx, op)
	start := time.Now()

	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = string(errors.Wrap(err).Code)
			span.SetAttributes(observability.AttrErrorCode.String(status))
		}
		done(status)
		observability.EndSpan(span, err)

		fields := logger.DurationFields(op, time.Since(start))
		fields[logger.FieldBucket] = g.store.Bucket
		if key != "" {
			fields[logger.FieldKey] = key
		}
		log := g.log.WithContext(ctx)
		if err != nil {
			fields[logger.FieldError] = err.Error()
			fields[logger.FieldStatus] = status
			log.Warn("Gateway operation failed", fields)
			return
		}
		log.Debug("Gateway operation completed", fields)
	}
}

// EnsureBucket creates the bucket if it does not exist. locking asks for
// object-lock support, which only takes effect on creation. Safe to call
// repeatedly and concurrently with another instance.
func (g *Gateway) EnsureBucket(ctx context.Context, locking bool) (err error) {
	ctx, finish := g.observe(ctx, OpEnsureBucket, "")
	defer func() { finish(err) }()

	exists, err := g.client.BucketExists(ctx, g.store.Bucket)
	if err != nil {
		return translate(OpEnsureBucket, "", err)
	}
	if exists {
		g.log.Info("Bucket already exists", logger.Fields(logger.FieldBucket, g.store.Bucket))
		return nil
	}
	if err := g.client.MakeBucket(ctx, g.store.Bucket, storage.BucketOptions{ObjectLocking: locking}); err != nil {
		if stderrors.Is(err, storage.ErrBucketExists) {
			return nil
		}
		return translate(OpEnsureBucket, "", err)
	}
	g.log.Info("Bucket created", logger.Fields(logger.FieldBucket, g.store.Bucket, "object_locking", locking))
	return nil
}

// Upload stores the file under a fresh key and returns it with a presigned
// GET URL. If the URL cannot be signed the call fails with GRANT_FAILED even
// though the object is stored; the error details carry its key.
func (g *Gateway) Upload(ctx context.Context, in UploadInput) (fd *FileDescriptor, err error) {
	key := g.namer(in.Filename)
	ctx, finish := g.observe(ctx, OpUpload, key)
	defer func() { finish(err) }()

	ref, err := g.put(ctx, OpUpload, key, in, storage.PutOptions{})
	if err != nil {
		return nil, err
	}

	grant, err := g.issuer.Issue(ctx, ref.Key, storage.MethodGet, g.cfg.UploadURLExpiryMinutes)
	if err != nil {
		// The object is stored; the key in the details lets the caller ask
		// for a fresh grant instead of uploading again.
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr.WithDetail("key", ref.Key).WithDetail("stored", true)
		}
		return nil, err
	}
	fd = g.descriptor(ref, in)
	fd.URL = grant.URL
	return fd, nil
}

// UploadEncrypted stores the file with a freshly generated customer key. The
// key is generated, sent and dropped inside this call; it is never returned,
// so the object cannot be read back through the gateway.
func (g *Gateway) UploadEncrypted(ctx context.Context, in UploadInput) (fd *FileDescriptor, err error) {
	key := g.namer(in.Filename)
	ctx, finish := g.observe(ctx, OpUploadEnc, key)
	defer func() { finish(err) }()

	if err := validateUpload(in, g.cfg.MaxUploadBytes()); err != nil {
		return nil, err
	}
	material, err := g.crypto.Build()
	if err != nil {
		return nil, err
	}
	ref, err := g.put(ctx, OpUploadEnc, key, in, storage.PutOptions{Headers: material.Headers()})
	if err != nil {
		return nil, err
	}

	fd = g.descriptor(ref, in)
	fd.URL = g.store.ObjectURL(ref.Key)
	return fd, nil
}

// UploadWithRetention stores the file under policy. policy.Until must lie
// in the future.
func (g *Gateway) UploadWithRetention(ctx context.Context, in UploadInput, policy RetentionPolicy) (fd *FileDescriptor, err error) {
	key := g.namer(in.Filename)
	ctx, finish := g.observe(ctx, OpUploadRetained, key)
	defer func() { finish(err) }()

	if !policy.Mode.Valid() {
		return nil, errors.InvalidInput("retentionMode", fmt.Sprintf("unknown mode %q", policy.Mode))
	}
	if !policy.Until.After(g.now()) {
		return nil, errors.InvalidInput("retentionDays", "retention must end in the future")
	}
	opts := storage.PutOptions{Retention: &storage.Retention{Mode: policy.Mode, Until: policy.Until}}
	ref, err := g.put(ctx, OpUploadRetained, key, in, opts)
	if err != nil {
		return nil, err
	}

	fd = g.descriptor(ref, in)
	fd.URL = g.store.ObjectURL(ref.Key)
	return fd, nil
}

// put opens the input, streams it to the store and closes it on every path.
// It returns the location of the stored object.
func (g *Gateway) put(ctx context.Context, op, key string, in UploadInput, opts storage.PutOptions) (ObjectRef, error) {
	if err := validateUpload(in, g.cfg.MaxUploadBytes()); err != nil {
		return ObjectRef{}, err
	}
	body, err := in.Open()
	if err != nil {
		return ObjectRef{}, errors.InvalidInput("file", "cannot read upload").WithCause(err)
	}
	defer body.Close()

	ref := g.ref(key)
	opts.ContentType = in.ContentType
	opts.Tags = in.Tags
	if err := g.client.PutObject(ctx, ref.Bucket, ref.Key, body, in.Size, opts); err != nil {
		return ObjectRef{}, translate(op, key, err)
	}
	fields := ref.Fields()
	fields[logger.FieldOperation] = op
	fields["size"] = in.Size
	g.log.WithContext(ctx).Info("File uploaded", fields)
	return ref, nil
}

func validateUpload(in UploadInput, maxBytes int64) *errors.AppError {
	switch {
	case in.Open == nil:
		return errors.MissingField("file")
	case in.Filename == "":
		return errors.MissingField("filename")
	case in.Size < 0:
		return errors.InvalidInput("file", "size must not be negative")
	case in.Size > maxBytes:
		return errors.InvalidInput("file", fmt.Sprintf("size %d exceeds the %d byte limit", in.Size, maxBytes))
	}
	return nil
}

func (g *Gateway) ref(key string) ObjectRef {
	return ObjectRef{Bucket: g.store.Bucket, Key: key}
}

func (g *Gateway) descriptor(ref ObjectRef, in UploadInput) *FileDescriptor {
	return &FileDescriptor{Name: ref.Key, Size: in.Size, ContentType: in.ContentType}
}

// Download returns the object body. found is false, with a nil error, when
// the object does not exist. The caller closes the body.
func (g *Gateway) Download(ctx context.Context, key string) (body io.ReadCloser, found bool, err error) {
	ctx, finish := g.observe(ctx, OpDownload, key)
	defer func() { finish(err) }()

	if key == "" {
		return nil, false, errors.MissingField("name")
	}
	body, err = g.client.GetObject(ctx, g.store.Bucket, key)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, translate(OpDownload, key, err)
	}
	return body, true, nil
}

// Delete removes key. Deleting a missing key succeeds; a retained key fails
// with RETENTION_LOCKED.
func (g *Gateway) Delete(ctx context.Context, key string) (err error) {
	ctx, finish := g.observe(ctx, OpDelete, key)
	defer func() { finish(err) }()

	if key == "" {
		return errors.MissingField("name")
	}
	ref := g.ref(key)
	if err := g.client.RemoveObject(ctx, ref.Bucket, ref.Key); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return translate(OpDelete, key, err)
	}
	g.log.WithContext(ctx).Info("File deleted", ref.Fields())
	return nil
}

// List returns every object in store order. URLs are static object paths,
// not presigned; callers request a grant per object when needed.
func (g *Gateway) List(ctx context.Context) (files []FileDescriptor, err error) {
	ctx, finish := g.observe(ctx, OpList, "")
	defer func() { finish(err) }()

	objects, err := g.client.ListObjects(ctx, g.store.Bucket, "")
	if err != nil {
		return nil, translate(OpList, "", err)
	}
	files = make([]FileDescriptor, 0, len(objects))
	for _, obj := range objects {
		files = append(files, FileDescriptor{
			Name:        obj.Key,
			URL:         g.store.ObjectURL(obj.Key),
			Size:        obj.Size,
			ContentType: obj.ContentType,
		})
	}
	return files, nil
}

// ListObjectVersions returns the version history of key, including delete
// markers. Other keys sharing key as a prefix are filtered out.
func (g *Gateway) ListObjectVersions(ctx context.Context, key string) (versions []VersionInfo, err error) {
	ctx, finish := g.observe(ctx, OpListVersions, key)
	defer func() { finish(err) }()

	if key == "" {
		return nil, errors.MissingField("name")
	}
	raw, err := g.client.ListObjectVersions(ctx, g.store.Bucket, key)
	if err != nil {
		return nil, translate(OpListVersions, key, err)
	}
	versions = make([]VersionInfo, 0, len(raw))
	for _, v := range raw {
		if v.Key != key {
			continue
		}
		versions = append(versions, VersionInfo{
			Key:          v.Key,
			VersionID:    v.VersionID,
			IsLatest:     v.IsLatest,
			DeleteMarker: v.DeleteMarker,
			Size:         v.Size,
			LastModified: v.LastModified,
		})
	}
	return versions, nil
}

// GetTags returns the tags of key. Any failure, including a missing object,
// yields an empty map.
func (g *Gateway) GetTags(ctx context.Context, key string) map[string]string {
	ctx, finish := g.observe(ctx, OpGetTags, key)

	tags, err := g.client.GetObjectTags(ctx, g.store.Bucket, key)
	if err != nil {
		finish(translate(OpGetTags, key, err))
		return map[string]string{}
	}
	finish(nil)
	if tags == nil {
		tags = map[string]string{}
	}
	return tags
}

// GetMetrics samples the bucket: Size is the size of the first listed
// object, LastModified is the sampling time. Store failures yield nil.
func (g *Gateway) GetMetrics(ctx context.Context) *BucketMetrics {
	ctx, finish := g.observe(ctx, OpGetMetrics, "")

	objects, err := g.client.ListObjects(ctx, g.store.Bucket, "")
	if err != nil {
		finish(translate(OpGetMetrics, "", err))
		return nil
	}
	finish(nil)

	m := &BucketMetrics{BucketName: g.store.Bucket, LastModified: g.now()}
	if len(objects) > 0 {
		m.Size = objects[0].Size
	}
	return m
}

// PresignUpload issues a PUT grant for key.
func (g *Gateway) PresignUpload(ctx context.Context, key string, expiryMinutes int) (PresignedGrant, error) {
	return g.presign(ctx, key, storage.MethodPut, expiryMinutes)
}

// PresignDownload issues a GET grant for key.
func (g *Gateway) PresignDownload(ctx context.Context, key string, expiryMinutes int) (PresignedGrant, error) {
	return g.presign(ctx, key, storage.MethodGet, expiryMinutes)
}

func (g *Gateway) presign(ctx context.Context, key string, method storage.Method, expiryMinutes int) (grant PresignedGrant, err error) {
	ctx, finish := g.observe(ctx, OpPresign, key)
	defer func() { finish(err) }()

	if expiryMinutes == 0 {
		expiryMinutes = g.cfg.DefaultPresignMinutes
	}
	return g.issuer.Issue(ctx, key, method, expiryMinutes)
}

// EnableBucketLocking sets the bucket default retention. An empty mode or
// zero days falls back to the configured defaults.
func (g *Gateway) EnableBucketLocking(ctx context.Context, mode storage.RetentionMode, days int) (err error) {
	ctx, finish := g.observe(ctx, OpEnableLocking, "")
	defer func() { finish(err) }()

	if mode == "" {
		mode = storage.RetentionMode(g.cfg.RetentionMode)
	}
	if days == 0 {
		days = g.cfg.RetentionDays
	}
	if err := g.locks.Enable(ctx, mode, days); err != nil {
		return err
	}
	g.log.WithContext(ctx).Info("Object locking enabled", logger.Fields(
		logger.FieldBucket, g.store.Bucket, "mode", mode, "days", days,
	))
	return nil
}

// DefaultRetention builds the policy used when a retention upload names no
// mode or days.
func (g *Gateway) DefaultRetention(mode string, days int) (RetentionPolicy, error) {
	m, err := ParseRetentionMode(mode, storage.RetentionMode(g.cfg.RetentionMode))
	if err != nil {
		return RetentionPolicy{}, err
	}
	if days == 0 {
		days = g.cfg.RetentionDays
	}
	return BuildRetention(m, days, g.now())
}

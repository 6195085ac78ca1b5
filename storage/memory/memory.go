// Package memory is an in-process object store with bucket-level object
// locking, per-object retention, tags, version history and SSE-C header
// checks. It backs the "memory" provider for local runs and is the test
// double for every layer above storage.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/bucketgate/logger"
	"github.com/kbukum/bucketgate/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderMemory, func(_ context.Context, cfg storage.Config, log *logger.Logger) (storage.Client, error) {
		s := New(Options{BaseURL: cfg.PublicURL})
		log.Info("Using in-memory object store; data is lost on exit")
		return s, nil
	})
}

// Operation names accepted by Fail.
const (
	OpBucketExists        = "BucketExists"
	OpMakeBucket          = "MakeBucket"
	OpPutObject           = "PutObject"
	OpGetObject           = "GetObject"
	OpRemoveObject        = "RemoveObject"
	OpListObjects         = "ListObjects"
	OpListObjectVersions  = "ListObjectVersions"
	OpGetObjectTags       = "GetObjectTags"
	OpSetObjectLockConfig = "SetObjectLockConfig"
	OpPresignObject       = "PresignObject"
)

// Options configures a Store.
type Options struct {
	// BaseURL prefixes presigned URLs. Defaults to http://memory.local.
	BaseURL string
	// Now overrides the clock used for retention and timestamps.
	Now func() time.Time
}

type version struct {
	id           string
	data         []byte
	contentType  string
	tags         map[string]string
	retention    *storage.Retention
	sseKeyMD5    string
	deleteMarker bool
	modified     time.Time
}

type bucket struct {
	locking    bool
	lockConfig *storage.LockConfig
	// objects maps key to versions, oldest first.
	objects map[string][]*version
}

// Store is an in-memory storage.Client.
type Store struct {
	baseURL string
	now     func() time.Time

	mu       sync.RWMutex
	buckets  map[string]*bucket
	failures map[string]error
	started  bool
}

var _ storage.Client = (*Store)(nil)

// New creates an empty store.
func New(opts Options) *Store {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://memory.local"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		now:      opts.Now,
		buckets:  make(map[string]*bucket),
		failures: make(map[string]error),
	}
}

// Fail makes every subsequent call of op return err. A nil err clears it.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) injected(op string) error {
	if err, ok := s.failures[op]; ok {
		return fmt.Errorf("%w: memory %s: %v", storage.ErrUnavailable, op, err)
	}
	return nil
}

func (s *Store) bucket(name string) (*bucket, error) {
	b, ok := s.buckets[name]
	if !ok {
		return nil, fmt.Errorf("%w: bucket %q", storage.ErrNotFound, name)
	}
	return b, nil
}

func latest(versions []*version) *version {
	if len(versions) == 0 {
		return nil
	}
	v := versions[len(versions)-1]
	if v.deleteMarker {
		return nil
	}
	return v
}

func (s *Store) locked(v *version) bool {
	return v != nil && v.retention != nil && s.now().Before(v.retention.Until)
}

// BucketExists implements storage.Client.
func (s *Store) BucketExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.injected(OpBucketExists); err != nil {
		return false, err
	}
	_, ok := s.buckets[name]
	return ok, nil
}

// MakeBucket implements storage.Client.
func (s *Store) MakeBucket(_ context.Context, name string, opts storage.BucketOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpMakeBucket); err != nil {
		return err
	}
	if _, ok := s.buckets[name]; ok {
		return fmt.Errorf("%w: %q", storage.ErrBucketExists, name)
	}
	s.buckets[name] = &bucket{locking: opts.ObjectLocking, objects: make(map[string][]*version)}
	return nil
}

// PutObject implements storage.Client. The body is read before any state
// changes, so a failed put leaves nothing behind. Overwriting a retained
// object fails instead of stacking a new version on top of it.
func (s *Store) PutObject(_ context.Context, bucketName, key string, r io.Reader, size int64, opts storage.PutOptions) error {
	sseMD5, err := checkSSEC(opts.Headers)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", storage.ErrInvalidRequest, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("%w: body has %d bytes, declared %d", storage.ErrInvalidRequest, len(data), size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpPutObject); err != nil {
		return err
	}
	b, err := s.bucket(bucketName)
	if err != nil {
		return err
	}
	if opts.Retention != nil && !b.locking {
		return fmt.Errorf("%w: bucket %q is missing object lock configuration", storage.ErrLockingUnsupported, bucketName)
	}
	if s.locked(latest(b.objects[key])) {
		return fmt.Errorf("%w: %q cannot be overwritten while retained", storage.ErrObjectLocked, key)
	}

	now := s.now()
	v := &version{
		id:          uuid.NewString(),
		data:        data,
		contentType: opts.ContentType,
		tags:        copyMap(opts.Tags),
		sseKeyMD5:   sseMD5,
		modified:    now,
	}
	switch {
	case opts.Retention != nil:
		r := *opts.Retention
		v.retention = &r
	case b.lockConfig != nil:
		v.retention = &storage.Retention{Mode: b.lockConfig.Mode, Until: now.AddDate(0, 0, b.lockConfig.Days)}
	}

	if b.locking {
		b.objects[key] = append(b.objects[key], v)
	} else {
		b.objects[key] = []*version{v}
	}
	return nil
}

// GetObject implements storage.Client. Objects stored with a customer key
// cannot be read back without it, like a real store.
func (s *Store) GetObject(_ context.Context, bucketName, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.injected(OpGetObject); err != nil {
		return nil, err
	}
	b, err := s.bucket(bucketName)
	if err != nil {
		return nil, err
	}
	v := latest(b.objects[key])
	if v == nil {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, key)
	}
	if v.sseKeyMD5 != "" {
		return nil, fmt.Errorf("%w: object %q is encrypted with a customer key", storage.ErrInvalidRequest, key)
	}
	return io.NopCloser(bytes.NewReader(v.data)), nil
}

// RemoveObject implements storage.Client. Lock-enabled buckets keep history
// and gain a delete marker; others drop the object.
func (s *Store) RemoveObject(_ context.Context, bucketName, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpRemoveObject); err != nil {
		return err
	}
	b, err := s.bucket(bucketName)
	if err != nil {
		return err
	}
	v := latest(b.objects[key])
	if v == nil {
		return nil
	}
	if s.locked(v) {
		return fmt.Errorf("%w: %q retained (%s) until %s", storage.ErrObjectLocked, key, v.retention.Mode, v.retention.Until.Format(time.RFC3339))
	}
	if b.locking {
		b.objects[key] = append(b.objects[key], &version{id: uuid.NewString(), deleteMarker: true, modified: s.now()})
		return nil
	}
	delete(b.objects, key)
	return nil
}

// ListObjects implements storage.Client, in lexicographic key order.
func (s *Store) ListObjects(_ context.Context, bucketName, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.injected(OpListObjects); err != nil {
		return nil, err
	}
	b, err := s.bucket(bucketName)
	if err != nil {
		return nil, err
	}
	out := []storage.ObjectInfo{}
	for _, key := range sortedKeys(b.objects, prefix) {
		v := latest(b.objects[key])
		if v == nil {
			continue
		}
		out = append(out, storage.ObjectInfo{
			Key:          key,
			Size:         int64(len(v.data)),
			LastModified: v.modified,
			ContentType:  v.contentType,
			ETag:         etag(v.data),
		})
	}
	return out, nil
}

// ListObjectVersions implements storage.Client, newest version first per key.
func (s *Store) ListObjectVersions(_ context.Context, bucketName, prefix string) ([]storage.ObjectVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.injected(OpListObjectVersions); err != nil {
		return nil, err
	}
	b, err := s.bucket(bucketName)
	if err != nil {
		return nil, err
	}
	out := []storage.ObjectVersion{}
	for _, key := range sortedKeys(b.objects, prefix) {
		versions := b.objects[key]
		for i := len(versions) - 1; i >= 0; i-- {
			v := versions[i]
			out = append(out, storage.ObjectVersion{
				Key:          key,
				VersionID:    v.id,
				IsLatest:     i == len(versions)-1,
				DeleteMarker: v.deleteMarker,
				Size:         int64(len(v.data)),
				LastModified: v.modified,
			})
		}
	}
	return out, nil
}

// GetObjectTags implements storage.Client.
func (s *Store) GetObjectTags(_ context.Context, bucketName, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.injected(OpGetObjectTags); err != nil {
		return nil, err
	}
	b, err := s.bucket(bucketName)
	if err != nil {
		return nil, err
	}
	v := latest(b.objects[key])
	if v == nil {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, key)
	}
	tags := copyMap(v.tags)
	if tags == nil {
		tags = map[string]string{}
	}
	return tags, nil
}

// SetObjectLockConfig implements storage.Client.
func (s *Store) SetObjectLockConfig(_ context.Context, bucketName string, cfg storage.LockConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpSetObjectLockConfig); err != nil {
		return err
	}
	b, err := s.bucket(bucketName)
	if err != nil {
		return err
	}
	if !b.locking {
		return fmt.Errorf("%w: bucket %q was created without object lock", storage.ErrLockingUnsupported, bucketName)
	}
	if !cfg.Mode.Valid() || cfg.Days <= 0 {
		return fmt.Errorf("%w: lock config %+v", storage.ErrInvalidRequest, cfg)
	}
	c := cfg
	b.lockConfig = &c
	return nil
}

// PresignObject implements storage.Client. Each call carries a fresh
// signature, so identical requests yield distinct URLs.
func (s *Store) PresignObject(_ context.Context, bucketName, key string, method storage.Method, expiry time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.injected(OpPresignObject); err != nil {
		return "", err
	}
	if expiry <= 0 {
		return "", fmt.Errorf("%w: expiry must be positive", storage.ErrInvalidRequest)
	}
	q := url.Values{}
	q.Set("X-Method", string(method))
	q.Set("X-Date", s.now().UTC().Format("20060102T150405Z"))
	q.Set("X-Expires", strconv.FormatInt(int64(expiry/time.Second), 10))
	q.Set("X-Signature", strings.ReplaceAll(uuid.NewString(), "-", ""))
	return s.baseURL + "/" + bucketName + "/" + (&url.URL{Path: key}).EscapedPath() + "?" + q.Encode(), nil
}

// Retention returns the retention of the current version of key, for tests
// and diagnostics.
func (s *Store) Retention(bucketName, key string) (*storage.Retention, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[bucketName]
	if !ok {
		return nil, false
	}
	v := latest(b.objects[key])
	if v == nil || v.retention == nil {
		return nil, false
	}
	r := *v.retention
	return &r, true
}

// EncryptionKeyMD5 returns the SSE-C key digest the current version of key was
// stored with, or "".
func (s *Store) EncryptionKeyMD5(bucketName, key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.buckets[bucketName]; ok {
		if v := latest(b.objects[key]); v != nil {
			return v.sseKeyMD5
		}
	}
	return ""
}

func checkSSEC(headers map[string]string) (string, error) {
	alg, key, sum := headers[storage.HeaderSSECAlgorithm], headers[storage.HeaderSSECKey], headers[storage.HeaderSSECKeyMD5]
	if alg == "" && key == "" && sum == "" {
		return "", nil
	}
	if alg != "AES256" {
		return "", fmt.Errorf("%w: unsupported SSE-C algorithm %q", storage.ErrInvalidRequest, alg)
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("%w: SSE-C key must be 256 bits, base64 encoded", storage.ErrInvalidRequest)
	}
	digest := md5.Sum(raw)
	if base64.StdEncoding.EncodeToString(digest[:]) != sum {
		return "", fmt.Errorf("%w: SSE-C key MD5 mismatch", storage.ErrInvalidRequest)
	}
	return sum, nil
}

func sortedKeys(objects map[string][]*version, prefix string) []string {
	keys := make([]string, 0, len(objects))
	for k := range objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func etag(data []byte) string {
	sum := md5.Sum(data)
	return fmt.Sprintf("%x", sum)
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

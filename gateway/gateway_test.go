package gateway

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/bucketgate/errors"
	"github.com/kbukum/bucketgate/logger"
	"github.com/kbukum/bucketgate/storage"
	"github.com/kbukum/bucketgate/storage/memory"
	"github.com/kbukum/bucketgate/testutil"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	gw    *Gateway
	store *memory.Store
	clock *clock
	logs  *bytes.Buffer
}

func newFixture(t *testing.T, locking bool, opts ...Option) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.New(memory.Options{BaseURL: "http://store.test", Now: c.now})
	testutil.T(t).Setup(store)

	logs := &bytes.Buffer{}
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "gateway-test", logs)

	opts = append([]Option{WithClock(c.now)}, opts...)
	gw := New(store, storage.Config{Provider: storage.ProviderMemory, Bucket: "files", PublicURL: "http://public.test"}, Config{}, log, opts...)
	if err := gw.EnsureBucket(context.Background(), locking); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	return &fixture{gw: gw, store: store, clock: c, logs: logs}
}

// body tracks whether the gateway closed the upload stream.
type body struct {
	io.Reader
	closed bool
}

func (b *body) Close() error {
	b.closed = true
	return nil
}

func input(content, filename, contentType string) (UploadInput, *body) {
	b := &body{Reader: strings.NewReader(content)}
	return UploadInput{
		Open:        func() (io.ReadCloser, error) { return b, nil },
		Size:        int64(len(content)),
		ContentType: contentType,
		Filename:    filename,
	}, b
}

func download(t *testing.T, gw *Gateway, key string) string {
	t.Helper()
	rc, found, err := gw.Download(context.Background(), key)
	if err != nil || !found {
		t.Fatalf("Download(%q) = found %v, err %v", key, found, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func wantCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	if !errors.HasCode(err, code) {
		t.Fatalf("got %v, want code %s", err, code)
	}
}

func TestDeriveKeyUnique(t *testing.T) {
	const n = 200
	keys := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys <- DeriveKey("same.txt")
		}()
	}
	wg.Wait()
	close(keys)

	seen := make(map[string]bool, n)
	for k := range keys {
		if !strings.HasSuffix(k, "_same.txt") {
			t.Fatalf("key %q lacks the filename suffix", k)
		}
		if seen[k] {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = true
	}
}

func TestUpload(t *testing.T) {
	f := newFixture(t, false)
	in, b := input("hello", "a.txt", "text/plain")

	fd, err := f.gw.Upload(context.Background(), in)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasSuffix(fd.Name, "_a.txt") || len(fd.Name) <= len("_a.txt") {
		t.Errorf("name = %q", fd.Name)
	}
	if fd.Size != 5 || fd.ContentType != "text/plain" {
		t.Errorf("descriptor = %+v", fd)
	}
	if fd.URL == "" {
		t.Fatal("upload returned no presigned URL")
	}
	u, _ := url.Parse(fd.URL)
	if u.Query().Get("X-Method") != "GET" || u.Query().Get("X-Expires") != "600" {
		t.Errorf("url = %s, want a 10 minute GET grant", fd.URL)
	}
	if !b.closed {
		t.Error("upload stream not closed")
	}
	if got := download(t, f.gw, fd.Name); got != "hello" {
		t.Errorf("round trip = %q", got)
	}
}

func TestUploadFailures(t *testing.T) {
	t.Run("store failure closes stream", func(t *testing.T) {
		f := newFixture(t, false)
		f.store.Fail(memory.OpPutObject, stderrors.New("connection reset"))
		in, b := input("x", "a.txt", "")

		_, err := f.gw.Upload(context.Background(), in)
		wantCode(t, err, errors.ErrCodeStoreError)
		if !b.closed {
			t.Error("stream left open after failure")
		}
		if appErr, _ := errors.AsAppError(err); !appErr.Retryable {
			t.Error("store failure should be retryable")
		}
	})

	t.Run("presign failure reports the stored key", func(t *testing.T) {
		f := newFixture(t, false)
		f.store.Fail(memory.OpPresignObject, stderrors.New("no credentials"))
		in, b := input("x", "a.txt", "")

		fd, err := f.gw.Upload(context.Background(), in)
		if fd != nil {
			t.Errorf("descriptor = %+v, want nil on failure", fd)
		}
		wantCode(t, err, errors.ErrCodeGrantFailed)
		if !b.closed {
			t.Error("stream left open after failure")
		}
		appErr, _ := errors.AsAppError(err)
		key, _ := appErr.Details["key"].(string)
		if !strings.HasSuffix(key, "_a.txt") || appErr.Details["stored"] != true {
			t.Fatalf("details = %v, want the stored key", appErr.Details)
		}

		f.store.Fail(memory.OpPresignObject, nil)
		if got := download(t, f.gw, key); got != "x" {
			t.Errorf("stored body = %q", got)
		}
		grant, err := f.gw.PresignDownload(context.Background(), key, 0)
		if err != nil || grant.URL == "" {
			t.Fatalf("fresh grant = %+v, %v", grant, err)
		}
	})

	t.Run("open failure", func(t *testing.T) {
		f := newFixture(t, false)
		in := UploadInput{
			Open:     func() (io.ReadCloser, error) { return nil, stderrors.New("gone") },
			Filename: "a.txt",
		}
		_, err := f.gw.Upload(context.Background(), in)
		wantCode(t, err, errors.ErrCodeInvalidInput)
	})

	tests := []struct {
		name string
		in   UploadInput
		code errors.ErrorCode
	}{
		{"no stream", UploadInput{Filename: "a"}, errors.ErrCodeMissingField},
		{"no filename", func() UploadInput { in, _ := input("x", "", ""); return in }(), errors.ErrCodeMissingField},
		{"too large", func() UploadInput {
			in, _ := input("x", "a", "")
			in.Size = 1 << 40
			return in
		}(), errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			_, err := f.gw.Upload(context.Background(), tt.in)
			wantCode(t, err, tt.code)
		})
	}
}

func TestDownloadMissing(t *testing.T) {
	f := newFixture(t, false)
	rc, found, err := f.gw.Download(context.Background(), "nope")
	if err != nil || found || rc != nil {
		t.Fatalf("Download(nope) = %v, %v, %v; want not found without error", rc, found, err)
	}

	f.store.Fail(memory.OpGetObject, stderrors.New("timeout"))
	_, _, err = f.gw.Download(context.Background(), "nope")
	wantCode(t, err, errors.ErrCodeStoreError)
}

func TestDeleteIdempotent(t *testing.T) {
	f := newFixture(t, false)
	in, _ := input("x", "a.txt", "")
	fd, err := f.gw.Upload(context.Background(), in)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := f.gw.Delete(context.Background(), fd.Name); err != nil {
			t.Fatalf("Delete #%d: %v", i+1, err)
		}
	}
	if _, found, _ := f.gw.Download(context.Background(), fd.Name); found {
		t.Error("object still present after delete")
	}

	for _, msg := range []string{"File uploaded", "File deleted"} {
		line := logLine(f.logs.String(), msg)
		if !strings.Contains(line, `"bucket":"files"`) || !strings.Contains(line, `"key":"`+fd.Name+`"`) {
			t.Errorf("%s log = %q, want bucket and key", msg, line)
		}
	}
}

// logLine returns the first JSON log line carrying msg.
func logLine(logs, msg string) string {
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, `"message":"`+msg+`"`) {
			return line
		}
	}
	return ""
}

func TestRetention(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	policy, err := f.gw.DefaultRetention("compliance", 2)
	if err != nil {
		t.Fatalf("DefaultRetention: %v", err)
	}
	in, _ := input("keep me", "r.txt", "text/plain")
	fd, err := f.gw.UploadWithRetention(ctx, in, policy)
	if err != nil {
		t.Fatalf("UploadWithRetention: %v", err)
	}
	if fd.URL != "http://public.test/files/"+fd.Name {
		t.Errorf("url = %q, want static object path", fd.URL)
	}

	err = f.gw.Delete(ctx, fd.Name)
	wantCode(t, err, errors.ErrCodeRetentionLocked)
	if appErr, _ := errors.AsAppError(err); appErr.Retryable {
		t.Error("retention lock must not be retryable")
	}

	f.clock.advance(48*time.Hour + time.Second)
	if err := f.gw.Delete(ctx, fd.Name); err != nil {
		t.Fatalf("Delete after expiry: %v", err)
	}
}

func TestUploadWithRetentionValidation(t *testing.T) {
	f := newFixture(t, true)
	in, _ := input("x", "a", "")

	_, err := f.gw.UploadWithRetention(context.Background(), in, RetentionPolicy{Mode: storage.Compliance, Until: f.clock.now()})
	wantCode(t, err, errors.ErrCodeInvalidInput)

	_, err = f.gw.UploadWithRetention(context.Background(), in, RetentionPolicy{Mode: "FOREVER", Until: f.clock.now().Add(time.Hour)})
	wantCode(t, err, errors.ErrCodeInvalidInput)
}

func TestUploadWithRetentionOnPlainBucket(t *testing.T) {
	f := newFixture(t, false)
	in, _ := input("x", "a", "")
	_, err := f.gw.UploadWithRetention(context.Background(), in, RetentionPolicy{Mode: storage.Governance, Until: f.clock.now().Add(time.Hour)})
	wantCode(t, err, errors.ErrCodePolicyViolation)
}

func TestUploadEncrypted(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	f := newFixture(t, false, WithRandom(bytes.NewReader(key)))
	in, b := input("secret", "s.bin", "application/octet-stream")

	fd, err := f.gw.UploadEncrypted(context.Background(), in)
	if err != nil {
		t.Fatalf("UploadEncrypted: %v", err)
	}
	if !b.closed {
		t.Error("stream not closed")
	}
	if fd.URL != "http://public.test/files/"+fd.Name {
		t.Errorf("url = %q", fd.URL)
	}

	want, _ := NewEncryptionBuilder(bytes.NewReader(key)).Build()
	if got := f.store.EncryptionKeyMD5("files", fd.Name); got != want.KeyDigestBase64 {
		t.Errorf("stored digest = %q, want %q", got, want.KeyDigestBase64)
	}
	if strings.Contains(f.logs.String(), want.KeyBase64) {
		t.Error("encryption key leaked into logs")
	}
}

func TestDeleteEncrypted(t *testing.T) {
	for _, locking := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain bucket", true: "lock-enabled bucket"}[locking], func(t *testing.T) {
			f := newFixture(t, locking)
			ctx := context.Background()
			in, _ := input("secret", "s.bin", "")

			fd, err := f.gw.UploadEncrypted(ctx, in)
			if err != nil {
				t.Fatalf("UploadEncrypted: %v", err)
			}
			// The gateway holds no key, so the body cannot be read back.
			_, _, err = f.gw.Download(ctx, fd.Name)
			wantCode(t, err, errors.ErrCodeInvalidInput)

			if err := f.gw.Delete(ctx, fd.Name); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, found, err := f.gw.Download(ctx, fd.Name); found || err != nil {
				t.Errorf("after delete: found %v, err %v", found, err)
			}
		})
	}
}

func TestUploadEncryptedCryptoFailure(t *testing.T) {
	f := newFixture(t, false, WithRandom(strings.NewReader("short")))
	opened := false
	in := UploadInput{
		Open: func() (io.ReadCloser, error) {
			opened = true
			return io.NopCloser(strings.NewReader("x")), nil
		},
		Size:     1,
		Filename: "a",
	}
	_, err := f.gw.UploadEncrypted(context.Background(), in)
	wantCode(t, err, errors.ErrCodeCryptoFailure)
	if opened {
		t.Error("stream opened although key generation failed")
	}
}

func TestList(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	files, err := f.gw.List(ctx)
	if err != nil || files == nil || len(files) != 0 {
		t.Fatalf("empty List = %v, %v; want empty sequence", files, err)
	}

	in, _ := input("abc", "a.txt", "text/plain")
	fd, _ := f.gw.Upload(ctx, in)
	files, err = f.gw.List(ctx)
	if err != nil || len(files) != 1 {
		t.Fatalf("List = %v, %v", files, err)
	}
	if files[0].Name != fd.Name || files[0].Size != 3 || files[0].URL != "http://public.test/files/"+fd.Name {
		t.Errorf("entry = %+v", files[0])
	}

	f.store.Fail(memory.OpListObjects, stderrors.New("down"))
	_, err = f.gw.List(ctx)
	wantCode(t, err, errors.ErrCodeStoreError)
}

func TestListObjectVersions(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	put := func(key string) {
		if err := f.store.PutObject(ctx, "files", key, strings.NewReader("v"), 1, storage.PutOptions{}); err != nil {
			t.Fatalf("PutObject: %v", err)
		}
	}
	put("doc")
	put("doc")
	put("doc2")
	if err := f.gw.Delete(ctx, "doc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	versions, err := f.gw.ListObjectVersions(ctx, "doc")
	if err != nil {
		t.Fatalf("ListObjectVersions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("got %d versions, want 3: %+v", len(versions), versions)
	}
	if !versions[0].DeleteMarker || !versions[0].IsLatest {
		t.Errorf("newest entry = %+v, want latest delete marker", versions[0])
	}
}

func TestGetTags(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	in, _ := input("x", "t.txt", "")
	in.Tags = map[string]string{"team": "storage"}
	tagged, _ := f.gw.Upload(ctx, in)
	plainIn, _ := input("x", "p.txt", "")
	plain, _ := f.gw.Upload(ctx, plainIn)

	if tags := f.gw.GetTags(ctx, tagged.Name); tags["team"] != "storage" {
		t.Errorf("tags = %v", tags)
	}
	for _, key := range []string{plain.Name, "missing"} {
		tags := f.gw.GetTags(ctx, key)
		if tags == nil || len(tags) != 0 {
			t.Errorf("GetTags(%q) = %v, want empty map", key, tags)
		}
	}
}

func TestGetMetrics(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	m := f.gw.GetMetrics(ctx)
	if m == nil || m.BucketName != "files" || m.Size != 0 || !m.LastModified.Equal(f.clock.now()) {
		t.Fatalf("empty bucket metrics = %+v", m)
	}

	in, _ := input("12345", "a", "")
	if _, err := f.gw.Upload(ctx, in); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if m := f.gw.GetMetrics(ctx); m == nil || m.Size != 5 {
		t.Errorf("metrics = %+v, want sampled size 5", m)
	}

	f.store.Fail(memory.OpListObjects, stderrors.New("down"))
	if m := f.gw.GetMetrics(ctx); m != nil {
		t.Errorf("metrics on failure = %+v, want nil", m)
	}
}

func TestPresign(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	get, err := f.gw.PresignDownload(ctx, "k", 0)
	if err != nil {
		t.Fatalf("PresignDownload: %v", err)
	}
	put, err := f.gw.PresignUpload(ctx, "k", 30)
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}
	if get.URL == put.URL {
		t.Error("GET and PUT grants share a URL")
	}
	if get.Method != storage.MethodGet || get.ExpiryMinutes != 10 || get.ObjectName != "k" {
		t.Errorf("get grant = %+v", get)
	}
	if put.Method != storage.MethodPut || put.ExpiryMinutes != 30 {
		t.Errorf("put grant = %+v", put)
	}
	gu, _ := url.Parse(get.URL)
	pu, _ := url.Parse(put.URL)
	if gu.Query().Get("X-Expires") != "600" || pu.Query().Get("X-Expires") != "1800" {
		t.Errorf("expiries = %s, %s", gu.Query().Get("X-Expires"), pu.Query().Get("X-Expires"))
	}

	again, _ := f.gw.PresignDownload(ctx, "k", 10)
	if again.URL == get.URL {
		t.Error("repeated grant reused the same signature")
	}

	for _, minutes := range []int{-1, MaxPresignExpiryMinutes + 1} {
		_, err := f.gw.PresignDownload(ctx, "k", minutes)
		wantCode(t, err, errors.ErrCodeInvalidInput)
	}
	_, err = f.gw.PresignDownload(ctx, "", 10)
	wantCode(t, err, errors.ErrCodeMissingField)

	f.store.Fail(memory.OpPresignObject, stderrors.New("bad credentials"))
	_, err = f.gw.PresignUpload(ctx, "k", 10)
	wantCode(t, err, errors.ErrCodeGrantFailed)
}

func TestEnableBucketLocking(t *testing.T) {
	t.Run("bucket without lock support", func(t *testing.T) {
		f := newFixture(t, false)
		err := f.gw.EnableBucketLocking(context.Background(), "", 0)
		wantCode(t, err, errors.ErrCodePolicyViolation)
	})

	t.Run("defaults", func(t *testing.T) {
		f := newFixture(t, true)
		ctx := context.Background()
		if err := f.gw.EnableBucketLocking(ctx, "", 0); err != nil {
			t.Fatalf("EnableBucketLocking: %v", err)
		}
		in, _ := input("x", "a", "")
		fd, err := f.gw.Upload(ctx, in)
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		r, ok := f.store.Retention("files", fd.Name)
		if !ok || r.Mode != storage.Compliance || !r.Until.Equal(f.clock.now().AddDate(0, 0, 365)) {
			t.Errorf("retention = %+v, %v", r, ok)
		}
	})

	t.Run("invalid days", func(t *testing.T) {
		f := newFixture(t, true)
		err := f.gw.EnableBucketLocking(context.Background(), storage.Governance, -3)
		wantCode(t, err, errors.ErrCodeInvalidInput)
	})
}

func TestEnsureBucket(t *testing.T) {
	f := newFixture(t, false)
	if err := f.gw.EnsureBucket(context.Background(), false); err != nil {
		t.Fatalf("second EnsureBucket: %v", err)
	}

	f.store.Fail(memory.OpBucketExists, stderrors.New("refused"))
	err := f.gw.EnsureBucket(context.Background(), false)
	wantCode(t, err, errors.ErrCodeStoreError)
}

package s3

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/smithy-go"

	"github.com/kbukum/bucketgate/logger"
	"github.com/kbukum/bucketgate/security"
	"github.com/kbukum/bucketgate/security/tlstest"
	"github.com/kbukum/bucketgate/storage"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		code, message string
		want          error
	}{
		{"NoSuchKey", "The specified key does not exist.", storage.ErrNotFound},
		{"NotFound", "", storage.ErrNotFound},
		{"NoSuchBucket", "", storage.ErrNotFound},
		{"BucketAlreadyOwnedByYou", "", storage.ErrBucketExists},
		{"AccessDenied", "Access Denied because object protected by object lock.", storage.ErrObjectLocked},
		{"AccessDenied", "Access Denied", storage.ErrAccessDenied},
		{"InvalidBucketState", "", storage.ErrLockingUnsupported},
		{"ObjectLockConfigurationNotFoundError", "", storage.ErrLockingUnsupported},
		{"InvalidRequest", "Bucket is missing Object Lock Configuration", storage.ErrLockingUnsupported},
		{"InvalidRequest", "The encryption parameters are not applicable", storage.ErrInvalidRequest},
		{"SignatureDoesNotMatch", "", storage.ErrAccessDenied},
		{"SlowDown", "", storage.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.message, func(t *testing.T) {
			err := translate("op", &smithy.GenericAPIError{Code: tt.code, Message: tt.message})
			if !errors.Is(err, tt.want) {
				t.Errorf("translate(%s) = %v, want %v", tt.code, err, tt.want)
			}
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) {
				t.Error("SDK error type leaked through translate")
			}
		})
	}

	if err := translate("op", errors.New("dial tcp: connection refused")); !errors.Is(err, storage.ErrUnavailable) {
		t.Errorf("network error = %v, want ErrUnavailable", err)
	}
}

func TestEncodeTags(t *testing.T) {
	got := encodeTags(map[string]string{"env": "dev", "team": "a b"})
	if got != "env=dev&team=a+b" {
		t.Errorf("encodeTags = %q", got)
	}
}

// fakeS3 answers just enough of the S3 REST protocol for the client paths
// that do not need a real store.
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeS3) saw(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if strings.HasPrefix(r, method+" ") {
			return true
		}
	}
	return false
}

func newTestClient(t *testing.T, h func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeS3) {
	t.Helper()
	fake := &fakeS3{handler: h}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), storage.Config{
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test-secret",
	}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, fake
}

func TestBucketExists(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/present" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	ok, err := c.BucketExists(context.Background(), "present")
	if err != nil || !ok {
		t.Errorf("present: %v, %v", ok, err)
	}
	ok, err = c.BucketExists(context.Background(), "absent")
	if err != nil || ok {
		t.Errorf("absent: %v, %v", ok, err)
	}
}

func TestPrivateCA(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	fake := &fakeS3{handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }}
	srv := httptest.NewUnstartedServer(fake)
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{certs.ServerTLS}}
	srv.StartTLS()
	t.Cleanup(srv.Close)

	cfg := storage.Config{Endpoint: srv.URL, Region: "us-east-1", AccessKey: "test", SecretKey: "test-secret"}

	untrusted, err := New(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := untrusted.BucketExists(context.Background(), "files"); err == nil {
		t.Error("expected certificate error without the private CA")
	}

	cfg.TLS = security.TLSConfig{CAFile: certs.CAFile}
	trusted, err := New(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New with CA: %v", err)
	}
	ok, err := trusted.BucketExists(context.Background(), "files")
	if err != nil || !ok {
		t.Errorf("BucketExists over private CA: %v, %v", ok, err)
	}

	cfg.TLS = security.TLSConfig{CAFile: "/nonexistent/ca.pem"}
	if _, err := New(context.Background(), cfg, logger.Nop()); err == nil {
		t.Error("expected error for unreadable CA file")
	}
}

// s3Error writes an S3 XML error document.
func s3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>` + code + `</Code><Message>` + code + `</Message></Error>`))
}

func retention(mode, until string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Retention xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Mode>` + mode + `</Mode><RetainUntilDate>` + until + `</RetainUntilDate></Retention>`))
	}
}

func TestRemoveObject(t *testing.T) {
	tests := []struct {
		name       string
		retention  func(w http.ResponseWriter)
		wantErr    error
		wantDelete bool
	}{
		{"missing key is a no-op", func(w http.ResponseWriter) { s3Error(w, http.StatusNotFound, "NoSuchKey") }, nil, false},
		{"missing bucket is a no-op", func(w http.ResponseWriter) { s3Error(w, http.StatusNotFound, "NoSuchBucket") }, nil, false},
		{"delete marker is a no-op", func(w http.ResponseWriter) { s3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed") }, nil, false},
		{"active retention", retention("COMPLIANCE", "2999-01-01T00:00:00Z"), storage.ErrObjectLocked, false},
		{"expired retention", retention("GOVERNANCE", "2001-01-01T00:00:00Z"), nil, true},
		{"object without retention", func(w http.ResponseWriter) { s3Error(w, http.StatusNotFound, "NoSuchObjectLockConfiguration") }, nil, true},
		{"bucket without locking", func(w http.ResponseWriter) { s3Error(w, http.StatusBadRequest, "InvalidRequest") }, nil, true},
		{"bare bad request", func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadRequest) }, nil, true},
		{"access denied", func(w http.ResponseWriter) { s3Error(w, http.StatusForbidden, "AccessDenied") }, storage.ErrAccessDenied, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, isRetention := r.URL.Query()["retention"]
				switch {
				case r.Method == http.MethodGet && isRetention:
					tt.retention(w)
				case r.Method == http.MethodDelete:
					w.WriteHeader(http.StatusNoContent)
				default:
					// Metadata reads of an SSE-C object without its key.
					w.WriteHeader(http.StatusBadRequest)
				}
			})
			err := c.RemoveObject(context.Background(), "b", "k")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("RemoveObject: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if got := fake.saw(http.MethodDelete); got != tt.wantDelete {
				t.Errorf("DELETE sent = %v, want %v", got, tt.wantDelete)
			}
			if fake.saw(http.MethodHead) {
				t.Error("RemoveObject must not depend on HEAD")
			}
		})
	}
}

func TestListObjects(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>b</Name><KeyCount>2</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>
  <Contents><Key>a.txt</Key><Size>5</Size><ETag>"e1"</ETag><LastModified>2026-01-01T00:00:00.000Z</LastModified></Contents>
  <Contents><Key>b.txt</Key><Size>7</Size><ETag>"e2"</ETag><LastModified>2026-01-02T00:00:00.000Z</LastModified></Contents>
</ListBucketResult>`))
	})

	objs, err := c.ListObjects(context.Background(), "b", "")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(objs) != 2 || objs[0].Key != "a.txt" || objs[0].Size != 5 || objs[1].Key != "b.txt" {
		t.Errorf("objs = %+v", objs)
	}
}

func TestPresignObject(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("presigning must not call the store, got %s %s", r.Method, r.URL)
	})
	ctx := context.Background()

	get, err := c.PresignObject(ctx, "b", "a.txt", storage.MethodGet, 10*time.Minute)
	if err != nil {
		t.Fatalf("presign GET: %v", err)
	}
	put, err := c.PresignObject(ctx, "b", "a.txt", storage.MethodPut, 5*time.Minute)
	if err != nil {
		t.Fatalf("presign PUT: %v", err)
	}
	if get == put {
		t.Error("GET and PUT URLs are identical")
	}

	for raw, want := range map[string]string{get: "600", put: "300"} {
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if u.Path != "/b/a.txt" {
			t.Errorf("path = %q, want path-style /b/a.txt", u.Path)
		}
		if got := u.Query().Get("X-Amz-Expires"); got != want {
			t.Errorf("X-Amz-Expires = %q, want %s", got, want)
		}
	}

	if _, err := c.PresignObject(ctx, "b", "a.txt", "DELETE", time.Minute); !errors.Is(err, storage.ErrInvalidRequest) {
		t.Errorf("DELETE presign: got %v, want ErrInvalidRequest", err)
	}
}

package minio

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/kbukum/bucketgate/logger"
	"github.com/kbukum/bucketgate/security"
	"github.com/kbukum/bucketgate/security/tlstest"
	"github.com/kbukum/bucketgate/storage"
)

func TestSentinel(t *testing.T) {
	tests := []struct {
		name string
		resp minio.ErrorResponse
		want error
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, storage.ErrNotFound},
		{"head 404", minio.ErrorResponse{StatusCode: http.StatusNotFound}, storage.ErrNotFound},
		{"bucket owned", minio.ErrorResponse{Code: "BucketAlreadyOwnedByYou"}, storage.ErrBucketExists},
		{"lock denial", minio.ErrorResponse{Code: "AccessDenied", Message: "Object is WORM protected and cannot be overwritten"}, storage.ErrObjectLocked},
		{"plain denial", minio.ErrorResponse{Code: "AccessDenied", Message: "Access Denied."}, storage.ErrAccessDenied},
		{"no lock config", minio.ErrorResponse{Code: "ObjectLockConfigurationNotFoundError"}, storage.ErrLockingUnsupported},
		{"bucket state", minio.ErrorResponse{Code: "InvalidBucketState"}, storage.ErrLockingUnsupported},
		{"invalid request", minio.ErrorResponse{Code: "InvalidRequest", Message: "bad"}, storage.ErrInvalidRequest},
		{"transport", minio.ErrorResponse{}, storage.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sentinel(tt.resp); got != tt.want {
				t.Errorf("sentinel(%+v) = %v, want %v", tt.resp, got, tt.want)
			}
		})
	}

	if err := translate("op", errors.New("connection refused")); !errors.Is(err, storage.ErrUnavailable) {
		t.Errorf("translate(network) = %v", err)
	}
}

func TestCustomerKey(t *testing.T) {
	good := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	tests := []struct {
		name    string
		headers map[string]string
		wantErr bool
	}{
		{"valid", map[string]string{storage.HeaderSSECAlgorithm: "AES256", storage.HeaderSSECKey: good}, false},
		{"bad algorithm", map[string]string{storage.HeaderSSECAlgorithm: "DES", storage.HeaderSSECKey: good}, true},
		{"not base64", map[string]string{storage.HeaderSSECAlgorithm: "AES256", storage.HeaderSSECKey: "%%%"}, true},
		{"short key", map[string]string{storage.HeaderSSECAlgorithm: "AES256", storage.HeaderSSECKey: "c2hvcnQ="}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sse, err := customerKey(tt.headers)
			if tt.wantErr {
				if !errors.Is(err, storage.ErrInvalidRequest) {
					t.Fatalf("got %v, want ErrInvalidRequest", err)
				}
				return
			}
			if err != nil || sse == nil {
				t.Fatalf("customerKey: %v", err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, err := New(storage.Config{Endpoint: "localhost:9000"}, logger.Nop()); err == nil {
		t.Error("expected error for endpoint without scheme")
	}
	c, err := New(storage.Config{Endpoint: "http://localhost:9000", Region: "us-east-1", AccessKey: "a", SecretKey: "b"}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.api.EndpointURL().Scheme != "http" {
		t.Errorf("scheme = %s, want http", c.api.EndpointURL().Scheme)
	}

	bad := storage.Config{Endpoint: "https://minio.local", AccessKey: "a", SecretKey: "b",
		TLS: security.TLSConfig{CAFile: "/nonexistent/ca.pem"}}
	if _, err := New(bad, logger.Nop()); err == nil {
		t.Error("expected error for unreadable CA file")
	}

	certs := tlstest.GenerateTLSCerts(t)
	private := storage.Config{Endpoint: "https://minio.local", AccessKey: "a", SecretKey: "b",
		TLS: security.TLSConfig{CAFile: certs.CAFile}}
	c, err = New(private, logger.Nop())
	if err != nil {
		t.Fatalf("New with private CA: %v", err)
	}
	if c.api.EndpointURL().Scheme != "https" {
		t.Errorf("scheme = %s, want https", c.api.EndpointURL().Scheme)
	}
}

func TestPresignObject(t *testing.T) {
	c, err := New(storage.Config{Endpoint: "http://localhost:9000", Region: "us-east-1", AccessKey: "a", SecretKey: "b"}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	get, err := c.PresignObject(ctx, "b", "a.txt", storage.MethodGet, 10*time.Minute)
	if err != nil {
		t.Fatalf("presign GET: %v", err)
	}
	put, err := c.PresignObject(ctx, "b", "a.txt", storage.MethodPut, 10*time.Minute)
	if err != nil {
		t.Fatalf("presign PUT: %v", err)
	}
	if get == put {
		t.Error("GET and PUT URLs are identical")
	}
	u, _ := url.Parse(get)
	if u.Path != "/b/a.txt" || u.Query().Get("X-Amz-Expires") != "600" {
		t.Errorf("GET url = %s", get)
	}
}

func errorXML(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>` + code + `</Code><Message>` + code + `</Message></Error>`))
}

func retentionXML(mode, until string) func(w http.ResponseWriter) {
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
		{"missing key is a no-op", func(w http.ResponseWriter) { errorXML(w, http.StatusNotFound, "NoSuchKey") }, nil, false},
		{"empty 404 is a no-op", func(w http.ResponseWriter) { w.WriteHeader(http.StatusNotFound) }, nil, false},
		{"active retention", retentionXML("COMPLIANCE", "2999-01-01T00:00:00Z"), storage.ErrObjectLocked, false},
		{"expired retention", retentionXML("GOVERNANCE", "2001-01-01T00:00:00Z"), nil, true},
		{"object without retention", func(w http.ResponseWriter) { errorXML(w, http.StatusNotFound, "NoSuchObjectLockConfiguration") }, nil, true},
		{"bucket without locking", func(w http.ResponseWriter) { errorXML(w, http.StatusBadRequest, "InvalidRequest") }, nil, true},
		{"bare bad request", func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadRequest) }, nil, true},
		{"access denied", func(w http.ResponseWriter) { errorXML(w, http.StatusForbidden, "AccessDenied") }, storage.ErrAccessDenied, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu   sync.Mutex
				seen = map[string]bool{}
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				seen[r.Method] = true
				mu.Unlock()
				_, isRetention := r.URL.Query()["retention"]
				switch {
				case r.Method == http.MethodGet && isRetention:
					tt.retention(w)
				case r.Method == http.MethodDelete:
					w.WriteHeader(http.StatusNoContent)
				default:
					// Stat of an SSE-C object without its key.
					w.WriteHeader(http.StatusBadRequest)
				}
			}))
			t.Cleanup(srv.Close)

			c, err := New(storage.Config{Endpoint: srv.URL, Region: "us-east-1", AccessKey: "a", SecretKey: "b"}, logger.Nop())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			err = c.RemoveObject(context.Background(), "bucket", "secret.bin")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("RemoveObject: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}

			mu.Lock()
			defer mu.Unlock()
			if seen[http.MethodDelete] != tt.wantDelete {
				t.Errorf("DELETE sent = %v, want %v", seen[http.MethodDelete], tt.wantDelete)
			}
			if seen[http.MethodHead] {
				t.Error("RemoveObject must not depend on Stat")
			}
		})
	}
}

func TestClassifyRetention(t *testing.T) {
	tests := []struct {
		name string
		resp minio.ErrorResponse
		want retentionLookup
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, retentionGone},
		{"delete marker", minio.ErrorResponse{Code: "MethodNotAllowed", StatusCode: 405}, retentionGone},
		{"no lock config", minio.ErrorResponse{Code: "NoSuchObjectLockConfiguration", StatusCode: 404}, retentionNone},
		{"status only 400", minio.ErrorResponse{Code: "400 Bad Request", StatusCode: 400}, retentionNone},
		{"forbidden", minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, retentionFailed},
		{"server error", minio.ErrorResponse{Code: "InternalError", StatusCode: 500}, retentionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyRetention(tt.resp); got != tt.want {
				t.Errorf("classifyRetention(%+v) = %d, want %d", tt.resp, got, tt.want)
			}
		})
	}
}

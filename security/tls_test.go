package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/bucketgate/security/tlstest"
)

func TestIsEnabled(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		enabled bool
	}{
		{"nil", nil, false},
		{"zero", &TLSConfig{}, false},
		{"skip_verify", &TLSConfig{SkipVerify: true}, true},
		{"ca_file", &TLSConfig{CAFile: "ca.pem"}, true},
		{"cert_file", &TLSConfig{CertFile: "cert.pem"}, true},
		{"server_name", &TLSConfig{ServerName: "minio.local"}, true},
		{"min_version alone", &TLSConfig{MinVersion: "1.3"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsEnabled(); got != tt.enabled {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.enabled)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		wantErr string
	}{
		{"nil", nil, ""},
		{"pair", &TLSConfig{CertFile: "c", KeyFile: "k"}, ""},
		{"cert without key", &TLSConfig{CertFile: "c"}, "set together"},
		{"key without cert", &TLSConfig{KeyFile: "k"}, "set together"},
		{"bad min version", &TLSConfig{MinVersion: "1.0"}, "min_version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestClientConfig(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)

	t.Run("unconfigured keeps defaults", func(t *testing.T) {
		got, err := (&TLSConfig{}).ClientConfig()
		if err != nil || got != nil {
			t.Fatalf("got %v, %v", got, err)
		}
		client, err := (&TLSConfig{}).HTTPClient()
		if err != nil || client != nil {
			t.Fatalf("HTTPClient got %v, %v", client, err)
		}
	})

	t.Run("full", func(t *testing.T) {
		cfg := &TLSConfig{
			CAFile:     certs.CAFile,
			CertFile:   certs.CertFile,
			KeyFile:    certs.KeyFile,
			ServerName: "localhost",
			MinVersion: "1.3",
		}
		got, err := cfg.ClientConfig()
		if err != nil {
			t.Fatalf("ClientConfig: %v", err)
		}
		if got.RootCAs == nil || len(got.Certificates) != 1 {
			t.Errorf("expected CA pool and client certificate, got %+v", got)
		}
		if got.ServerName != "localhost" || got.MinVersion != tls.VersionTLS13 {
			t.Errorf("ServerName=%q MinVersion=%d", got.ServerName, got.MinVersion)
		}
	})

	errs := []struct {
		name string
		cfg  *TLSConfig
	}{
		{"missing CA", &TLSConfig{CAFile: "/nonexistent/ca.pem"}},
		{"invalid CA", &TLSConfig{CAFile: tlstest.WriteInvalidPEM(t, "bad-ca.pem")}},
		{"missing pair", &TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.ClientConfig(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestServerConfig(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)

	if got, err := (&TLSConfig{CAFile: certs.CAFile}).ServerConfig(); err != nil || got != nil {
		t.Fatalf("no certificate should mean plain HTTP, got %v, %v", got, err)
	}

	plain, err := (&TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile}).ServerConfig()
	if err != nil {
		t.Fatalf("ServerConfig: %v", err)
	}
	if plain.ClientAuth != tls.NoClientCert {
		t.Errorf("ClientAuth = %v without CA", plain.ClientAuth)
	}

	mutual, err := (&TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile, CAFile: certs.CAFile}).ServerConfig()
	if err != nil {
		t.Fatalf("ServerConfig: %v", err)
	}
	if mutual.ClientAuth != tls.RequireAndVerifyClientCert || mutual.ClientCAs == nil {
		t.Errorf("expected mutual TLS, got ClientAuth=%v", mutual.ClientAuth)
	}
}

func TestHTTPClientTrustsPrivateCA(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{certs.ServerTLS}}
	srv.StartTLS()
	defer srv.Close()

	client, err := (&TLSConfig{CAFile: certs.CAFile}).HTTPClient()
	if err != nil {
		t.Fatalf("HTTPClient: %v", err)
	}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET over private CA: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if _, err := http.DefaultClient.Get(srv.URL); err == nil {
		t.Error("default client should reject the private CA")
	}
}

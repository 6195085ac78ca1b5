package jwt

import (
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T, cfg Config) *Service[*Claims] {
	t.Helper()
	svc, err := NewService(cfg, func() *Claims { return &Claims{} })
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults with secret", Config{Secret: testSecret}, false},
		{"short secret", Config{Secret: "short"}, true},
		{"unknown method", Config{Secret: testSecret, Method: "RS256"}, true},
		{"hs512", Config{Secret: testSecret, Method: HS512}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateAndParse(t *testing.T) {
	svc := newService(t, Config{Secret: testSecret, Issuer: "bucketgate", Audience: []string{"api"}})

	token, err := svc.GenerateAccess(&Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "ci-runner"},
		Scope:            ScopeRead + " " + ScopeWrite,
	})
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "ci-runner" || claims.Issuer != "bucketgate" {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.HasScope(ScopeWrite) || !claims.HasScope(ScopeRead) {
		t.Errorf("scopes not parsed: %q", claims.Scope)
	}
	if claims.HasScope("objects") {
		t.Error("HasScope matched a prefix")
	}

	v, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if _, ok := v.(*Claims); !ok {
		t.Errorf("ValidateToken returned %T", v)
	}
}

func TestParseRejects(t *testing.T) {
	svc := newService(t, Config{Secret: testSecret, Issuer: "bucketgate"})
	other := newService(t, Config{Secret: strings.Repeat("x", 32), Issuer: "bucketgate"})
	foreign := newService(t, Config{Secret: testSecret, Issuer: "someone-else"})

	expired, _ := svc.Generate(&Claims{RegisteredClaims: gojwt.RegisteredClaims{
		Issuer:    "bucketgate",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	noExpiry, _ := svc.Generate(&Claims{RegisteredClaims: gojwt.RegisteredClaims{Issuer: "bucketgate"}})
	wrongKey, _ := other.GenerateAccess(&Claims{})
	wrongIssuer, _ := foreign.GenerateAccess(&Claims{})

	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{"expired", expired, true},
		{"missing exp", noExpiry, false},
		{"wrong key", wrongKey, false},
		{"wrong issuer", wrongIssuer, false},
		{"garbage", "not-a-token", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Parse(tt.token)
			if err == nil {
				t.Fatal("Parse succeeded")
			}
			if IsExpired(err) != tt.expired {
				t.Errorf("IsExpired(%v) = %v, want %v", err, IsExpired(err), tt.expired)
			}
		})
	}
}

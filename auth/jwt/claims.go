package jwt

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims are the gateway's token claims. Scope is a space-separated list;
// "objects:write" is required for mutating routes.
type Claims struct {
	gojwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// Scopes known to the HTTP surface.
const (
	ScopeRead  = "objects:read"
	ScopeWrite = "objects:write"
)

// SetDefaults fills the registered time, issuer and audience claims.
func (c *Claims) SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string) {
	if c.IssuedAt == nil {
		c.IssuedAt = gojwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil {
		c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	if c.Issuer == "" {
		c.Issuer = issuer
	}
	if len(c.Audience) == 0 && len(audience) > 0 {
		c.Audience = audience
	}
}

// HasScope reports whether scope is granted.
func (c *Claims) HasScope(scope string) bool {
	start := 0
	for i := 0; i <= len(c.Scope); i++ {
		if i == len(c.Scope) || c.Scope[i] == ' ' {
			if c.Scope[start:i] == scope {
				return true
			}
			start = i + 1
		}
	}
	return false
}

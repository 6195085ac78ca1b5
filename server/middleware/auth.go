package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/bucketgate/auth"
	"github.com/kbukum/bucketgate/auth/authctx"
	"github.com/kbukum/bucketgate/auth/jwt"
	"github.com/kbukum/bucketgate/errors"
)

// ClaimsKey is the gin context key holding validated claims.
const ClaimsKey = "claims"

// AuthConfig configures the bearer-token middleware.
type AuthConfig struct {
	// Validator parses and verifies the bearer token.
	Validator auth.TokenValidator
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
}

// Auth returns a Gin middleware that validates Bearer tokens. Validated
// claims are stored in the Gin context and on the request context.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, errors.Unauthorized("Authorization header required."))
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abort(c, errors.Unauthorized("Invalid authorization header format."))
			return
		}

		claims, err := cfg.Validator.ValidateToken(token)
		if err != nil {
			if jwt.IsExpired(err) {
				abort(c, errors.TokenExpired())
				return
			}
			abort(c, errors.InvalidToken())
			return
		}

		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(authctx.Set(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireScope rejects requests whose claims lack scope. Requests without
// claims pass, so the check is inert when authentication is disabled.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := authctx.Get[*jwt.Claims](c.Request.Context())
		if ok && !claims.HasScope(scope) {
			abort(c, errors.Forbidden("Token lacks the "+scope+" scope."))
			return
		}
		c.Next()
	}
}

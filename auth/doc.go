// Package auth holds the bearer-token contract used by the HTTP surface.
//
//   - auth/jwt     HMAC JWT service, generic over the claims type
//   - auth/authctx request-context propagation for validated claims
//
// Configuration:
//
//	auth:
//	  enabled: true
//	  skip_paths: ["/health", "/info", "/metrics"]
//	  jwt:
//	    secret: "change-me"
//	    issuer: "bucketgate"
//	    access_token_ttl: "15m"
package auth

// Package server provides the gateway's HTTP server: a Gin engine mounted on
// a ServeMux and wrapped with h2c so HTTP/2 cleartext clients are served on
// the same port.
//
// # Middleware
//
// Handler-level middleware (server/middleware) runs ahead of routing:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request id generation and propagation
//   - CORS: cross-origin resource sharing
//   - BodySizeLimit: request body size limits
//   - RequestLogger: request logging with duration tracking
//
// Auth, RequireScope and RateLimit are Gin middleware applied to the /api group.
//
// # Endpoints
//
// Built-in endpoints (server/endpoint): /health, /info, /metrics, /alive,
// /ready and /version.
package server

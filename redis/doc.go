// Package redis connects bucketgate to Redis through go-redis and keeps
// shared request-rate windows there, so a fleet of gateways enforces one
// per-subject budget instead of one per process.
package redis

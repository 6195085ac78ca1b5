// Package storage is the object store client boundary of bucketgate.
//
// Client is the capability set the gateway consumes: bucket lifecycle,
// put/get/remove, listing, version listing, tags, object-lock configuration
// and presigning. Backends register a Factory under a provider name from
// their init function and are selected by Config.Provider:
//
//   - storage/s3: aws-sdk-go-v2 (AWS S3 and S3-compatible endpoints)
//   - storage/minio: minio-go
//   - storage/memory: in-process store for development and tests
//
// Backends never let SDK error types escape. Every failure wraps one of the
// sentinel errors below so callers can classify it with errors.Is:
//
//	if errors.Is(err, storage.ErrObjectLocked) { ... }
//
// # Configuration
//
//	objstore:
//	  provider: "s3"
//	  endpoint: "http://localhost:9000"
//	  bucket: "uploads"
//	  public_url: "http://localhost:9000"
package storage

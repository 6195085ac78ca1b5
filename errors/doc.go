// Package errors provides the unified error type for bucketgate.
//
// The object-store taxonomy maps onto codes as follows:
//
//	StoreError      STORE_ERROR       502  retryable
//	RetentionError  RETENTION_LOCKED  409  not retryable until the lock expires
//	PolicyError     POLICY_VIOLATION  412  not retryable, needs bucket recreation
//	CryptoError     CRYPTO_FAILURE    500  retryable
//	GrantError      GRANT_FAILED      502  retryable
package errors

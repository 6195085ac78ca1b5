package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable)
const (
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the caller exceeded its request budget.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Object store errors
const (
	// ErrCodeStoreError indicates a transport, auth or store-side fault.
	ErrCodeStoreError ErrorCode = "STORE_ERROR"
	// ErrCodeRetentionLocked indicates the object is under an active retention lock.
	ErrCodeRetentionLocked ErrorCode = "RETENTION_LOCKED"
	// ErrCodePolicyViolation indicates the bucket lacks a capability the operation needs.
	ErrCodePolicyViolation ErrorCode = "POLICY_VIOLATION"
	// ErrCodeCryptoFailure indicates local key generation or digest failed.
	ErrCodeCryptoFailure ErrorCode = "CRYPTO_FAILURE"
	// ErrCodeGrantFailed indicates the store refused to sign a presigned URL.
	ErrCodeGrantFailed ErrorCode = "GRANT_FAILED"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeInvalidFormat indicates a field has an invalid format.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// Authentication/Authorization errors
const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// ErrCodeInternal indicates an internal server error.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:         true,
	ErrCodeRateLimited:     true,
	ErrCodeStoreError:      true,
	ErrCodeCryptoFailure:   true,
	ErrCodeGrantFailed:     true,
	ErrCodeRetentionLocked: false,
	ErrCodePolicyViolation: false,
	ErrCodeInternal:        false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

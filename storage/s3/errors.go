package s3

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/kbukum/bucketgate/storage"
)

// translate maps an SDK error onto a storage sentinel. Only the error text
// crosses the boundary.
func translate(op string, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: s3 %s: %v", storage.ErrUnavailable, op, err)
	}
	return fmt.Errorf("%w: s3 %s: %v", sentinel(apiErr.ErrorCode(), apiErr.ErrorMessage()), op, err)
}

func sentinel(code, message string) error {
	msg := strings.ToLower(message)
	switch code {
	case "NoSuchKey", "NotFound", "NoSuchBucket", "NoSuchVersion":
		return storage.ErrNotFound
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return storage.ErrBucketExists
	case "ObjectLocked":
		return storage.ErrObjectLocked
	case "AccessDenied":
		if strings.Contains(msg, "object lock") || strings.Contains(msg, "retention") || strings.Contains(msg, "worm") {
			return storage.ErrObjectLocked
		}
		return storage.ErrAccessDenied
	case "InvalidBucketState", "ObjectLockConfigurationNotFoundError":
		return storage.ErrLockingUnsupported
	case "InvalidRequest":
		if strings.Contains(msg, "object lock") {
			return storage.ErrLockingUnsupported
		}
		return storage.ErrInvalidRequest
	case "InvalidArgument", "InvalidDigest", "BadDigest", "InvalidEncryptionAlgorithmError", "MalformedXML":
		return storage.ErrInvalidRequest
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "Forbidden":
		return storage.ErrAccessDenied
	default:
		return storage.ErrUnavailable
	}
}

// retentionLookup sorts a failed retention read ahead of a delete.
type retentionLookup int

const (
	retentionFailed retentionLookup = iota
	// retentionGone: no current version exists, nothing to delete.
	retentionGone
	// retentionNone: the bucket or object carries no lock.
	retentionNone
)

func classifyRetention(err error) retentionLookup {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchVersion", "NoSuchBucket", "NotFound", "MethodNotAllowed":
			return retentionGone
		case "NoSuchObjectLockConfiguration", "ObjectLockConfigurationNotFoundError",
			"InvalidRequest", "InvalidArgument", "BadRequest":
			return retentionNone
		}
	}
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) {
		switch status.HTTPStatusCode() {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			return retentionGone
		case http.StatusBadRequest:
			return retentionNone
		}
	}
	return retentionFailed
}

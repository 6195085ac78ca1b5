package minio

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/kbukum/bucketgate/storage"
)

// translate maps a minio-go error onto a storage sentinel. Transport errors
// carry no ErrorResponse and become ErrUnavailable.
func translate(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	return fmt.Errorf("%w: minio %s: %v", sentinel(resp), op, err)
}

func sentinel(resp minio.ErrorResponse) error {
	msg := strings.ToLower(resp.Message)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NoSuchVersion", "NotFound":
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
	case "InvalidBucketState", "ObjectLockConfigurationNotFoundError", "NoSuchObjectLockConfiguration":
		return storage.ErrLockingUnsupported
	case "InvalidRequest":
		if strings.Contains(msg, "object lock") {
			return storage.ErrLockingUnsupported
		}
		return storage.ErrInvalidRequest
	case "InvalidArgument", "InvalidDigest", "BadDigest", "MalformedXML":
		return storage.ErrInvalidRequest
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return storage.ErrAccessDenied
	}
	// HEAD responses carry a status but no error body.
	if resp.StatusCode == http.StatusNotFound {
		return storage.ErrNotFound
	}
	return storage.ErrUnavailable
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
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchVersion", "NoSuchBucket", "NotFound", "MethodNotAllowed":
		return retentionGone
	case "NoSuchObjectLockConfiguration", "ObjectLockConfigurationNotFoundError",
		"InvalidRequest", "InvalidArgument", "BadRequest":
		return retentionNone
	}
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return retentionGone
	case http.StatusBadRequest:
		return retentionNone
	}
	return retentionFailed
}

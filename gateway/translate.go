package gateway

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/bucketgate/errors"
	"github.com/kbukum/bucketgate/storage"
)

// translate converts a store error from op on key into an AppError. It is the
// only place storage sentinels are interpreted.
func translate(op, key string, err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout(op).WithCause(err)
	case stderrors.Is(err, storage.ErrObjectLocked):
		return errors.RetentionLocked(key).WithCause(err)
	case stderrors.Is(err, storage.ErrLockingUnsupported):
		return errors.PolicyViolation("Bucket was not created with object locking enabled; locking cannot be added to an existing bucket.").
			WithDetail("operation", op).WithCause(err)
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.NotFound("object", key).WithCause(err)
	case stderrors.Is(err, storage.ErrInvalidRequest):
		return errors.Validation("The object store rejected the request.").WithDetail("operation", op).WithCause(err)
	default:
		return errors.StoreFailure(op, err)
	}
}

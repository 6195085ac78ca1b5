package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/bucketgate/errors"
	"github.com/kbukum/bucketgate/storage"
)

// Issuer mints presigned URLs. It holds no signing state of its own; every
// call asks the store client to sign, so two identical calls yield two
// independently valid URLs, each expiring relative to its own issuance.
type Issuer struct {
	client     storage.Client
	bucket     string
	maxMinutes int
}

// NewIssuer creates an Issuer for bucket. maxMinutes caps the expiry.
func NewIssuer(client storage.Client, bucket string, maxMinutes int) *Issuer {
	if maxMinutes <= 0 {
		maxMinutes = MaxPresignExpiryMinutes
	}
	return &Issuer{client: client, bucket: bucket, maxMinutes: maxMinutes}
}

// Issue signs a URL for key, scoped to method and valid for expiryMinutes.
func (i *Issuer) Issue(ctx context.Context, key string, method storage.Method, expiryMinutes int) (PresignedGrant, error) {
	if key == "" {
		return PresignedGrant{}, errors.MissingField("objectName")
	}
	if method != storage.MethodGet && method != storage.MethodPut {
		return PresignedGrant{}, errors.InvalidInput("method", fmt.Sprintf("unsupported method %q", method))
	}
	if expiryMinutes < 1 || expiryMinutes > i.maxMinutes {
		return PresignedGrant{}, errors.InvalidInput("expiryTime",
			fmt.Sprintf("expiry must be between 1 and %d minutes", i.maxMinutes))
	}

	url, err := i.client.PresignObject(ctx, i.bucket, key, method, time.Duration(expiryMinutes)*time.Minute)
	if err != nil {
		return PresignedGrant{}, errors.GrantFailed(key, err)
	}
	return PresignedGrant{
		URL:           url,
		Method:        method,
		ObjectName:    key,
		ExpiryMinutes: int64(expiryMinutes),
	}, nil
}

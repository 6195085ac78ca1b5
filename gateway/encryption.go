package gateway

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/kbukum/bucketgate/errors"
	"github.com/kbukum/bucketgate/storage"
)

// SSECAlgorithm is the only customer-key algorithm S3 accepts.
const SSECAlgorithm = "AES256"

const keyBytes = 32

// EncryptionMaterial is a one-time SSE-C key with its digest. It must not be
// logged, returned to callers, or kept past the upload that uses it.
type EncryptionMaterial struct {
	Algorithm       string
	KeyBase64       string
	KeyDigestBase64 string
}

// Headers renders the material as SSE-C request headers.
func (m EncryptionMaterial) Headers() map[string]string {
	return map[string]string{
		storage.HeaderSSECAlgorithm: m.Algorithm,
		storage.HeaderSSECKey:       m.KeyBase64,
		storage.HeaderSSECKeyMD5:    m.KeyDigestBase64,
	}
}

// String hides the key.
func (m EncryptionMaterial) String() string {
	return fmt.Sprintf("EncryptionMaterial{%s, md5=%s}", m.Algorithm, m.KeyDigestBase64)
}

// EncryptionBuilder generates fresh SSE-C material. It shares no state
// between calls beyond the entropy source.
type EncryptionBuilder struct {
	random io.Reader
}

// NewEncryptionBuilder reads keys from random, or crypto/rand when nil.
func NewEncryptionBuilder(random io.Reader) *EncryptionBuilder {
	if random == nil {
		random = rand.Reader
	}
	return &EncryptionBuilder{random: random}
}

// Build generates a 256-bit key and its MD5 digest.
func (b *EncryptionBuilder) Build() (EncryptionMaterial, error) {
	key := make([]byte, keyBytes)
	if _, err := io.ReadFull(b.random, key); err != nil {
		return EncryptionMaterial{}, errors.CryptoFailure(err)
	}
	digest := md5.Sum(key)
	m := EncryptionMaterial{
		Algorithm:       SSECAlgorithm,
		KeyBase64:       base64.StdEncoding.EncodeToString(key),
		KeyDigestBase64: base64.StdEncoding.EncodeToString(digest[:]),
	}
	clear(key)
	return m, nil
}

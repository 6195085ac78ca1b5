package gateway

import "github.com/google/uuid"

// Namer derives the storage key for an uploaded file.
type Namer func(originalFilename string) string

// DeriveKey returns "<uuid>_<originalFilename>". The random 128-bit prefix
// keeps concurrent uploads of the same name apart. The filename is not
// normalized.
func DeriveKey(originalFilename string) string {
	return uuid.NewString() + "_" + originalFilename
}

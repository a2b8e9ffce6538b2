package common

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

// GenerateRandByteArray returns size cryptographically random bytes.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	_, _ = rand.Read(b)
	return b
}

// NewLocalID mints an identifier for a record created on the device.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was minted locally and never replaced by the
// remote backend.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// IsRemoteID reports whether id is a well-formed remote UUID.
func IsRemoteID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

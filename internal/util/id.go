package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewSessionID returns an opaque 256-bit session identifier.
func NewSessionID() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

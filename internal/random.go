package internal

import (
	"crypto/rand"
	"encoding/base64"
)

// sessionTokenSize is the raw entropy of an opaque session token (256 bits).
const sessionTokenSize = 32

// NewSessionToken returns a URL-safe opaque token carrying 256 bits of entropy.
func NewSessionToken() (string, error) {
	var raw [sessionTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidSessionTokenShape reports whether token could have been produced by
// [NewSessionToken]. It lets callers skip store lookups for garbage input.
func ValidSessionTokenShape(token string) bool {
	if len(token) != base64.RawURLEncoding.EncodedLen(sessionTokenSize) {
		return false
	}
	// the decoder skips CR and LF, so the length is checked after decoding too
	raw, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil && len(raw) == sessionTokenSize
}

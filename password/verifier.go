package password

import (
	"errors"
	"strings"
)

var (
	// ErrUnsupportedHash is returned for hashes no configured verifier understands.
	ErrUnsupportedHash = errors.New("unsupported password hash")
	// ErrPasswordTooLong is returned before hashing oversized input.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
)

// DefaultMaxPasswordBytes bounds the plaintext accepted by Hash and Verify.
const DefaultMaxPasswordBytes = 1024

// Verifier checks a plaintext password against a stored hash. A mismatch is
// (false, nil); an error means the hash itself could not be used.
type Verifier interface {
	Verify(password, encodedHash string) (bool, error)
}

// Hasher produces hashes that the matching Verifier accepts.
type Hasher interface {
	Verifier
	Hash(password string) (string, error)
}

// Auto hashes with Argon2 and verifies argon2id or bcrypt hashes by prefix.
type Auto struct {
	argon  *Argon2
	bcrypt *Bcrypt
}

// NewAuto returns an [Auto] hasher. bcrypt may be nil to reject legacy hashes.
func NewAuto(argon *Argon2, bcrypt *Bcrypt) (*Auto, error) {
	if argon == nil {
		return nil, errors.New("argon2 hasher is required")
	}
	return &Auto{argon: argon, bcrypt: bcrypt}, nil
}

// Hash always produces an argon2id hash.
func (a *Auto) Hash(password string) (string, error) {
	return a.argon.Hash(password)
}

// Verify dispatches on the hash prefix.
func (a *Auto) Verify(password, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, "$"+algorithmID+"$"):
		return a.argon.Verify(password, encodedHash)
	case isBcrypt(encodedHash) && a.bcrypt != nil:
		return a.bcrypt.Verify(password, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsUpgrade reports whether a successful login should rehash encodedHash.
// Any bcrypt hash does.
func (a *Auto) NeedsUpgrade(encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		return true, nil
	}
	return a.argon.NeedsUpgrade(encodedHash)
}

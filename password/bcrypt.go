package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt verifies and produces bcrypt hashes.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a [Bcrypt] using cost, or bcrypt.DefaultCost when cost is zero.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("invalid bcrypt cost")
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash returns a bcrypt hash of password.
func (b *Bcrypt) Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify compares password with a bcrypt hash.
func (b *Bcrypt) Verify(password, encodedHash string) (bool, error) {
	if len(password) > DefaultMaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func isBcrypt(encodedHash string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encodedHash, p) {
			return true
		}
	}
	return false
}

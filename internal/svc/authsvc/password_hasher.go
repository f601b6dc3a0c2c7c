package authsvc

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/wardrobe/internal/domain"
)

// PasswordHasher turns passwords into slow, salted one-way digests.
type PasswordHasher interface {
	// Hash returns a digest of password that embeds its own salt.
	Hash(password string) ([]byte, error)

	// Compare reports whether password matches hash.
	Compare(hash []byte, password string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	Cost int
}

var _ PasswordHasher = BcryptHasher{}

// Hash implements PasswordHasher.Hash.
func (h BcryptHasher) Hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password too long", domain.ErrInvalidInput)
		}

		return nil, fmt.Errorf("generate from password: %w", errors.Join(domain.ErrInternal, err))
	}

	return hash, nil
}

// Compare implements PasswordHasher.Compare.
func (h BcryptHasher) Compare(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

package motors

import (
	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt work factor for new credential hashes. Raise it as
// hardware improves; existing hashes keep the cost they were minted with.
var HashCost = 12

// HashPassword will generate a salted password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}
	return string(h), nil
}

// ComparePasswordAndHash will validate the given cleartext password against
// the stored hash. The comparison is constant time; a mismatch and a
// malformed stored hash are both reported as ErrMismatchedHashAndPassword so
// the caller cannot tell them apart.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return errors.Wrap(err, ErrMismatchedHashAndPassword.Category, ErrMismatchedHashAndPassword.Message).
			WithTextCode("CREDENTIAL_HASH_INVALID")
	}
	return nil
}

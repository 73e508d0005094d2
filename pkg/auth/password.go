package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds accepted by HashPassword. bcrypt reads at most 72 bytes.
const (
	MinPasswordLength = 10
	MaxPasswordLength = 72
)

// HashPassword returns a bcrypt hash of password. Setting a password turns a
// social-only account into one that may unlink all of its providers.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password with the hash stored on u.
func CheckPassword(u *User, password string) error {
	if IsSocialOnly(u) {
		return ErrInvalidCredentials
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidCredentials
	}
	return err
}

package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 10

	minPasswordLength = 8
)

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword compares a bcrypt hashed password with its plaintext version.
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// checkPassword applies the registration rules for a new password.
func checkPassword(username, password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len([]rune(password)) < minPasswordLength {
		return fmt.Errorf("%w: must contain at least %d characters", ErrInvalidPassword, minPasswordLength)
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		return fmt.Errorf("%w: must not be entirely numeric", ErrInvalidPassword)
	}
	if strings.EqualFold(password, username) {
		return fmt.Errorf("%w: too similar to the username", ErrInvalidPassword)
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) > 72 {
		return fmt.Errorf("%w: must be at most 72 bytes", ErrInvalidPassword)
	}
	return nil
}

// Package auth hashes passwords, issues tenant tokens and guards routes.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/medatechnology/goutil/medaerror"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password accepted at signup.
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
)

const specialCharacters = "!@#$%^&*()-_=+[]{}|;:'\",.<>?/`~"

var (
	ErrWeakPassword       medaerror.MedaError = medaerror.MedaError{Message: "weak password"}
	ErrInvalidCredentials medaerror.MedaError = medaerror.MedaError{Message: "invalid email or password"}
)

// ValidatePassword enforces the signup policy: between MinPasswordLength
// characters and MaxPasswordLength bytes, with a digit, a letter and a
// special character.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters long", ErrWeakPassword, MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: must be at most %d bytes long", ErrWeakPassword, MaxPasswordLength)
	}

	var digit, letter bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		}
	}
	if !digit {
		return fmt.Errorf("%w: must contain at least one digit", ErrWeakPassword)
	}
	if !letter {
		return fmt.Errorf("%w: must contain at least one letter", ErrWeakPassword)
	}
	if !strings.ContainsAny(password, specialCharacters) {
		return fmt.Errorf("%w: must contain at least one special character", ErrWeakPassword)
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: must be at most %d bytes long", ErrWeakPassword, MaxPasswordLength)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password against a stored bcrypt hash.
// A mismatch is ErrInvalidCredentials.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrHashTooShort):
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("check password: %w", err)
	}
}

package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	// bcrypt only reads the first 72 bytes
	MaxPasswordLen = 72
)

var (
	ErrPasswordLength   = errors.New("password must be 8 to 72 bytes")
	ErrPasswordMismatch = errors.New("password does not match")
)

// HashPassword bcrypts plain after checking its length, so an overlong
// password is refused instead of silently truncated.
func HashPassword(plain string) (string, error) {
	if len(plain) < MinPasswordLen || len(plain) > MaxPasswordLen {
		return "", ErrPasswordLength
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(plain, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

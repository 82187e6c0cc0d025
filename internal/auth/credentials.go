// Package auth checks the shared admin credentials used for HTTP Basic
// authentication.
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 12

// Credentials holds the configured admin account. Secret may be either a
// plain-text password or a bcrypt hash; hashes are recognized by their
// "$2" prefix.
type Credentials struct {
	Username string
	Secret   string
}

func NewCredentials(username, secret string) (*Credentials, error) {
	trimmedUsername := strings.TrimSpace(username)
	trimmedSecret := strings.TrimSpace(secret)
	if trimmedUsername == "" {
		return nil, fmt.Errorf("admin username is required")
	}
	if trimmedSecret == "" {
		return nil, fmt.Errorf("admin password is required")
	}
	return &Credentials{
		Username: trimmedUsername,
		Secret:   trimmedSecret,
	}, nil
}

// Verify reports whether the presented username and password match the
// configured admin account. Comparisons run in constant time for the
// plain-text case.
func (c *Credentials) Verify(username, password string) bool {
	if c == nil {
		return false
	}

	usernameMatch := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(c.Username)) == 1

	trimmedPassword := strings.TrimSpace(password)
	if trimmedPassword == "" {
		return false
	}

	var passwordMatch bool
	if isBcryptHash(c.Secret) {
		passwordMatch = bcrypt.CompareHashAndPassword([]byte(c.Secret), []byte(trimmedPassword)) == nil
	} else {
		passwordMatch = subtle.ConstantTimeCompare([]byte(trimmedPassword), []byte(c.Secret)) == 1
	}

	return usernameMatch && passwordMatch
}

func HashPassword(password string) (string, error) {
	trimmed := strings.TrimSpace(password)
	if trimmed == "" {
		return "", fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(trimmed), DefaultBcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func isBcryptHash(secret string) bool {
	return strings.HasPrefix(secret, "$2")
}

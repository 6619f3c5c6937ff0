// Package identity derives the opaque identifiers stored in place of usernames and passwords.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash returns the hex SHA-256 of raw. It is deterministic and one-way; the same
// function produces both the stored value at signup and the value compared at login.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Credentials is a username/password pair as typed by the user.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate rejects blank usernames and passwords. Surrounding whitespace in the
// username is not significant.
func (c *Credentials) Validate() error {
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// UserHash is the identity hash of the username.
func (c Credentials) UserHash() string {
	return Hash(c.Username)
}

// PasswordHash is the identity hash of the password.
func (c Credentials) PasswordHash() string {
	return Hash(c.Password)
}

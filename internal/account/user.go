// Package account manages wallet users and bridges registration onto the
// recovery-phrase activation flow.
package account

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Status is the lifecycle status of a user.
type Status string

// User statuses.
const (
	StatusPending  Status = "pending"  // registered, phrase not yet confirmed
	StatusActive   Status = "active"   // phrase confirmed; may log in
	StatusDisabled Status = "disabled" // locked out of activation
)

// Errors returned by the account service.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotActive          = errors.New("account is not active")
)

var usernameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

// User is a registered wallet user.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"password_hash"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	ActivatedAt   time.Time `json:"activated_at,omitempty"`
}

// NormalizeUsername lowercases and trims name and checks it is 3-32
// characters of [a-z0-9_.-] starting with a letter or digit.
func NormalizeUsername(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if !usernameRe.MatchString(n) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUsername, name)
	}
	return n, nil
}

// usernameKey is the index key for a normalized username.
func usernameKey(normalized string) string {
	sum := blake3.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

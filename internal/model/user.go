package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// User is an authenticated account, independent of which backend issued it.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a signed-in user plus the bearer token identifying them.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 8

// Validation errors surfaced to users as form messages.
var (
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailMalformed   = errors.New("email address is not valid")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

// ValidateEmail checks that email is present and parses as a bare address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return ErrEmailMalformed
	}
	return nil
}

// ValidatePassword checks the minimum password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

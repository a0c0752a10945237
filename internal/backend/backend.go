// Package backend hides whether persistence, auth and image storage come
// from the hosted service or from the built-in local implementation.
package backend

import (
	"context"
	"errors"

	"github.com/erazemk/oglasnik/internal/listing"
	"github.com/erazemk/oglasnik/internal/model"
)

// Errors shared by every implementation.
var (
	ErrDuplicate          = errors.New("object already exists")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("not signed in")
	ErrForbidden          = errors.New("not allowed")
	ErrConfirmEmail       = errors.New("check your email to confirm the account")
	ErrResetInvalid       = errors.New("reset link is invalid or expired")
)

// Listings reads and writes marketplace listings.
type Listings interface {
	listing.Source
	// CreateListing stores a listing on behalf of the session owning token.
	CreateListing(ctx context.Context, token string, nl model.NewListing) (string, error)
	// MarkSold flags a listing as sold. Only its seller may do so.
	MarkSold(ctx context.Context, token, id string) error
}

// Images stores listing photos in a bucket.
type Images interface {
	// Upload stores data under key and never overwrites an existing object.
	Upload(ctx context.Context, token, key string, data []byte, contentType string) error
	PublicURL(key string) string
	Remove(ctx context.Context, token string, keys ...string) error
	Bucket() string
}

// Auth manages accounts and sessions.
type Auth interface {
	SignUp(ctx context.Context, email, password, name string) (*model.Session, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context, token string) error
	// User resolves a session token, returning ErrUnauthorized when it is
	// not valid.
	User(ctx context.Context, token string) (*model.User, error)
	// FindUserByEmail is a privileged lookup. It returns (nil, nil) when no
	// account uses the address.
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	// SendPasswordReset starts the recovery flow for email. It succeeds
	// whether or not the address is registered.
	SendPasswordReset(ctx context.Context, email, redirectTo string) error
}

// PasswordResetter completes a recovery flow with the token from a reset
// link. Only backends that issue their own links implement it.
type PasswordResetter interface {
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Backend bundles one implementation of every concern.
type Backend struct {
	Name     string
	Listings Listings
	Images   Images
	Auth     Auth
}

// Resetter returns the backend's PasswordResetter, if any.
func (b *Backend) Resetter() (PasswordResetter, bool) {
	r, ok := b.Auth.(PasswordResetter)
	return r, ok
}

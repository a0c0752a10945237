package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/oglasnik/internal/auth"
	"github.com/erazemk/oglasnik/internal/listing"
	"github.com/erazemk/oglasnik/internal/model"
	"github.com/erazemk/oglasnik/internal/store"
)

// ResetTTL is how long a local password reset link stays valid.
const ResetTTL = time.Hour

// LocalConfig configures the built-in backend.
type LocalConfig struct {
	DB        *sql.DB
	JWTSecret string
	Media     *DiskBucket
	// BaseURL is used for reset links when the request has no redirect.
	BaseURL string
	Logger  *slog.Logger
}

// Local builds a backend on SQLite, signed session tokens and a disk
// bucket. Reset links are written to the log instead of being mailed.
func Local(cfg LocalConfig) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &localAuth{
		db:      cfg.DB,
		secret:  cfg.JWTSecret,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
	return &Backend{
		Name:     "local",
		Listings: &localListings{db: cfg.DB, auth: a},
		Images:   cfg.Media,
		Auth:     a,
	}
}

type localListings struct {
	db   *sql.DB
	auth *localAuth
}

func (l *localListings) FetchListings(ctx context.Context) ([]listing.Row, error) {
	return store.ListListings(ctx, l.db)
}

func (l *localListings) GetListing(ctx context.Context, id string) (*listing.Row, error) {
	return store.GetListing(ctx, l.db, id)
}

func (l *localListings) CreateListing(ctx context.Context, token string, nl model.NewListing) (string, error) {
	u, err := l.auth.User(ctx, token)
	if err != nil {
		return "", err
	}
	nl.SellerID = u.ID
	return store.CreateListing(ctx, l.db, nl)
}

func (l *localListings) MarkSold(ctx context.Context, token, id string) error {
	u, err := l.auth.User(ctx, token)
	if err != nil {
		return err
	}
	ok, err := store.MarkListingSold(ctx, l.db, id, u.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

type localAuth struct {
	db      *sql.DB
	secret  string
	baseURL string
	logger  *slog.Logger
}

func (a *localAuth) SignUp(ctx context.Context, email, password, name string) (*model.Session, error) {
	if err := model.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u, err := store.CreateUser(ctx, a.db, email, string(hash), name, "")
	if errors.Is(err, store.ErrEmailTaken) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return a.session(*u)
}

func (a *localAuth) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	account, err := store.GetAccountByEmail(ctx, a.db, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return a.session(account.User)
}

func (a *localAuth) session(u model.User) (*model.Session, error) {
	token, claims, err := auth.GenerateToken(a.secret, u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &model.Session{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        u,
	}, nil
}

// SignOut revokes the token. Tokens that are already invalid are ignored.
func (a *localAuth) SignOut(ctx context.Context, token string) error {
	claims, err := auth.ValidateToken(a.secret, token)
	if err != nil {
		return nil
	}
	return store.RevokeToken(ctx, a.db, claims.ID, claims.ExpiresAt.Time)
}

func (a *localAuth) User(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := auth.ValidateToken(a.secret, token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	revoked, err := store.IsTokenRevoked(ctx, a.db, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrUnauthorized
	}

	u, err := store.GetUser(ctx, a.db, claims.UserID())
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnauthorized
	}
	return u, nil
}

func (a *localAuth) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	account, err := store.GetAccountByEmail(ctx, a.db, email)
	if err != nil || account == nil {
		return nil, err
	}
	return &account.User, nil
}

func (a *localAuth) SendPasswordReset(ctx context.Context, email, redirectTo string) error {
	account, err := store.GetAccountByEmail(ctx, a.db, email)
	if err != nil {
		return err
	}
	if account == nil {
		a.logger.Info("password reset requested for unknown email", "email", email)
		return nil
	}

	token, err := store.CreatePasswordReset(ctx, a.db, account.ID, redirectTo, ResetTTL)
	if err != nil {
		return err
	}

	link, err := a.resetLink(redirectTo, token)
	if err != nil {
		return err
	}
	a.logger.Info("password reset link issued", "email", account.Email, "link", link)
	return nil
}

// resetLink appends token to redirectTo, or to the local reset page.
func (a *localAuth) resetLink(redirectTo, token string) (string, error) {
	target := redirectTo
	if target == "" {
		target = a.baseURL + "/reset-password"
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parsing redirect: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *localAuth) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := model.ValidatePassword(newPassword); err != nil {
		return err
	}

	reset, err := store.ConsumePasswordReset(ctx, a.db, token)
	if errors.Is(err, store.ErrResetInvalid) {
		return ErrResetInvalid
	}
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return store.UpdateUserPassword(ctx, a.db, reset.UserID, string(hash))
}

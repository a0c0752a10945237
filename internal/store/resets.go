package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/oglasnik/internal/auth"
)

// ErrResetInvalid is returned for unknown, used or expired reset tokens.
var ErrResetInvalid = errors.New("password reset link is invalid or has expired")

// PasswordReset is a redeemed reset request.
type PasswordReset struct {
	UserID     string
	RedirectTo string
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreatePasswordReset stores a single-use reset token for userID and
// returns the plain token. Only its hash is persisted.
func CreatePasswordReset(ctx context.Context, db *sql.DB, userID, redirectTo string, ttl time.Duration) (string, error) {
	token, err := auth.GenerateSecret(32)
	if err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}

	now := time.Now().UTC()
	_, err = db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE user_id = ? AND (used_at IS NOT NULL OR expires_at < ?)`,
		userID, now,
	)
	if err != nil {
		return "", fmt.Errorf("purging password resets: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO password_resets (token_hash, user_id, redirect_to, expires_at) VALUES (?, ?, ?, ?)`,
		hashResetToken(token), userID, nullString(redirectTo), now.Add(ttl),
	)
	if err != nil {
		return "", fmt.Errorf("creating password reset: %w", err)
	}
	return token, nil
}

// ConsumePasswordReset marks token as used and returns what it was issued
// for. A token can be consumed once.
func ConsumePasswordReset(ctx context.Context, db *sql.DB, token string) (*PasswordReset, error) {
	now := time.Now().UTC()
	hash := hashResetToken(token)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		reset    PasswordReset
		redirect sql.NullString
		expires  time.Time
		used     sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, redirect_to, expires_at, used_at FROM password_resets WHERE token_hash = ?`, hash,
	).Scan(&reset.UserID, &redirect, &expires, &used)
	if err == sql.ErrNoRows {
		return nil, ErrResetInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("getting password reset: %w", err)
	}
	if used.Valid || now.After(expires) {
		return nil, ErrResetInvalid
	}
	reset.RedirectTo = redirect.String

	_, err = tx.ExecContext(ctx,
		`UPDATE password_resets SET used_at = ? WHERE token_hash = ?`, now, hash,
	)
	if err != nil {
		return nil, fmt.Errorf("consuming password reset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing password reset: %w", err)
	}
	return &reset, nil
}

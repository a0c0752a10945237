package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/oglasnik/internal/model"
)

// ErrEmailTaken is returned when an account already uses the address.
var ErrEmailTaken = errors.New("email already registered")

// Account is a user together with its password hash.
type Account struct {
	model.User
	PasswordHash string
}

// CreateUser creates a user and its public profile in one transaction.
func CreateUser(ctx context.Context, db *sql.DB, email, passwordHash, name, phone string) (*model.User, error) {
	email = strings.TrimSpace(email)
	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ? COLLATE NOCASE`, email,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if exists > 0 {
		return nil, ErrEmailTaken
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, email, passwordHash, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, phone, created_at) VALUES (?, ?, ?, ?)`,
		id, nullString(name), nullString(phone), now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user: %w", err)
	}

	return GetUser(ctx, db, id)
}

const selectAccount = `
	SELECT u.id, u.email, u.password_hash, u.created_at, p.full_name, p.phone
	FROM users u LEFT JOIN profiles p ON p.id = u.id`

func scanAccount(row *sql.Row) (*Account, error) {
	a := &Account{}
	var name, phone sql.NullString
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &name, &phone)
	if err != nil {
		return nil, err
	}
	a.Name = name.String
	a.Phone = phone.String
	return a, nil
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id string) (*model.User, error) {
	a, err := scanAccount(db.QueryRowContext(ctx, selectAccount+` WHERE u.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &a.User, nil
}

// GetAccountByEmail returns the account for an address, compared
// case-insensitively.
func GetAccountByEmail(ctx context.Context, db *sql.DB, email string) (*Account, error) {
	a, err := scanAccount(db.QueryRowContext(ctx,
		selectAccount+` WHERE u.email = ? COLLATE NOCASE`, strings.TrimSpace(email)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return a, nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id, passwordHash string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating user password: user %s not found", id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

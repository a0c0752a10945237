package db

import (
	"database/sql"
	"fmt"
)

// schema mirrors the tables of the hosted backend closely enough that the
// same listing row shape comes out of both.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
    ON users(email COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS profiles (
    id            TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    full_name     TEXT,
    phone         TEXT,
    rating        REAL CHECK (rating IS NULL OR (rating >= 0 AND rating <= 5)),
    total_sales   INTEGER NOT NULL DEFAULT 0 CHECK (total_sales >= 0),
    response_rate INTEGER CHECK (response_rate IS NULL OR (response_rate >= 0 AND response_rate <= 100)),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS listings (
    id          TEXT PRIMARY KEY,
    seller_id   TEXT REFERENCES profiles(id) ON DELETE SET NULL,
    title       TEXT NOT NULL,
    description TEXT,
    price       REAL NOT NULL CHECK (price >= 0),
    category    TEXT,
    location    TEXT,
    image_url   TEXT,
    condition   TEXT,
    features    TEXT,
    is_sold     INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS password_resets (
    token_hash  TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    redirect_to TEXT,
    expires_at  DATETIME NOT NULL,
    used_at     DATETIME
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: newest-first listing pages.
	`CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at DESC)`,
	// Migration 2: seller pages and category badges.
	`CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller_id)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_category ON listings(category)`,
	// Migration 3: expired reset tokens are purged by user.
	`CREATE INDEX IF NOT EXISTS idx_password_resets_user ON password_resets(user_id)`,
}

// Migrate creates the schema and applies every migration.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}

package db

import (
	"path/filepath"
	"testing"
)

func TestMigrateIdempotent(t *testing.T) {
	db := NewTestDB(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	for _, table := range []string{"users", "profiles", "listings", "settings", "revoked_tokens", "password_resets"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "oglasnik.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
}

func TestPriceMustBeNonNegative(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.Exec(`INSERT INTO listings (id, title, price) VALUES ('l1', 'Chair', -1)`)
	if err == nil {
		t.Error("expected check constraint failure for negative price")
	}
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/oglasnik/internal/db"
)

func TestPasswordResetSingleUse(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "ana@example.com", "h", "", "")

	token, err := CreatePasswordReset(ctx, database, user.ID, "https://shop.example/reset", time.Hour)
	if err != nil {
		t.Fatalf("CreatePasswordReset: %v", err)
	}

	reset, err := ConsumePasswordReset(ctx, database, token)
	if err != nil {
		t.Fatalf("ConsumePasswordReset: %v", err)
	}
	if reset.UserID != user.ID {
		t.Errorf("expected user %q, got %q", user.ID, reset.UserID)
	}
	if reset.RedirectTo != "https://shop.example/reset" {
		t.Errorf("unexpected redirect %q", reset.RedirectTo)
	}

	if _, err := ConsumePasswordReset(ctx, database, token); !errors.Is(err, ErrResetInvalid) {
		t.Errorf("expected ErrResetInvalid on reuse, got %v", err)
	}
}

func TestPasswordResetExpired(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "bo@example.com", "h", "", "")

	token, err := CreatePasswordReset(ctx, database, user.ID, "", -time.Minute)
	if err != nil {
		t.Fatalf("CreatePasswordReset: %v", err)
	}

	if _, err := ConsumePasswordReset(ctx, database, token); !errors.Is(err, ErrResetInvalid) {
		t.Errorf("expected ErrResetInvalid, got %v", err)
	}
}

func TestPasswordResetUnknownToken(t *testing.T) {
	database := db.NewTestDB(t)

	if _, err := ConsumePasswordReset(context.Background(), database, "bogus"); !errors.Is(err, ErrResetInvalid) {
		t.Errorf("expected ErrResetInvalid, got %v", err)
	}
}

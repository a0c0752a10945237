package store

import (
	"context"
	"testing"

	"github.com/erazemk/oglasnik/internal/db"
	"github.com/erazemk/oglasnik/internal/listing"
	"github.com/erazemk/oglasnik/internal/model"
)

func TestCreateAndGetListing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seller, _ := CreateUser(ctx, database, "seller@example.com", "h", "Maja", "041 000 000")

	id, err := CreateListing(ctx, database, model.NewListing{
		SellerID:  seller.ID,
		Title:     "City bike",
		Price:     120,
		Category:  "bicycles",
		Location:  "Ljubljana",
		Image:     "listings/bike.jpg",
		Condition: model.ConditionGood,
		Features:  []string{"lights", "basket"},
	})
	if err != nil {
		t.Fatalf("CreateListing: %v", err)
	}

	row, err := GetListing(ctx, database, id)
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	if row == nil {
		t.Fatal("expected row, got nil")
	}
	if string(row.ID) != id || row.Title != "City bike" {
		t.Errorf("unexpected row %+v", row)
	}
	if row.Description != nil {
		t.Errorf("expected nil description, got %q", *row.Description)
	}
	if row.Seller == nil || row.Seller.FullName == nil || *row.Seller.FullName != "Maja" {
		t.Fatalf("expected seller profile, got %+v", row.Seller)
	}

	// The row goes through the same normalizer as remote rows.
	l := listing.Normalize(*row)
	if l.Seller.Name != "Maja" || l.Seller.Rating != listing.DefaultRating {
		t.Errorf("unexpected seller %+v", l.Seller)
	}
	if len(l.Features) != 2 || l.Features[1] != "basket" {
		t.Errorf("unexpected features %v", l.Features)
	}
	if l.Sold {
		t.Error("expected listing not sold")
	}
}

func TestGetListingMissing(t *testing.T) {
	database := db.NewTestDB(t)

	row, err := GetListing(context.Background(), database, "missing")
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	if row != nil {
		t.Error("expected nil for missing listing")
	}
}

func TestCreateListingWithoutSeller(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	id, err := CreateListing(ctx, database, model.NewListing{Title: "Orphan", Price: 1})
	if err != nil {
		t.Fatalf("CreateListing: %v", err)
	}

	row, _ := GetListing(ctx, database, id)
	if row.Seller != nil {
		t.Errorf("expected no seller, got %+v", row.Seller)
	}
	if l := listing.Normalize(*row); l.Seller.Name != listing.DefaultSellerName {
		t.Errorf("expected default seller name, got %q", l.Seller.Name)
	}
}

func TestCreateListingRejectsNegativePrice(t *testing.T) {
	database := db.NewTestDB(t)

	if _, err := CreateListing(context.Background(), database, model.NewListing{Title: "x", Price: -5}); err == nil {
		t.Error("expected error for negative price")
	}
}

func TestListListingsEmpty(t *testing.T) {
	database := db.NewTestDB(t)

	rows, err := ListListings(context.Background(), database)
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected 0 rows, got %d", len(rows))
	}
}

func TestListListings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		if _, err := CreateListing(ctx, database, model.NewListing{Title: title, Price: 1}); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := ListListings(ctx, database)
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.CreatedAt == nil || !r.CreatedAt.Valid {
			t.Errorf("row %s: expected created_at", r.ID)
		}
	}
}

func TestMarkListingSold(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seller, _ := CreateUser(ctx, database, "s@example.com", "h", "", "")
	other, _ := CreateUser(ctx, database, "o@example.com", "h", "", "")
	id, _ := CreateListing(ctx, database, model.NewListing{SellerID: seller.ID, Title: "Sofa", Price: 50})

	ok, err := MarkListingSold(ctx, database, id, other.ID)
	if err != nil || ok {
		t.Fatalf("expected refusal for non-owner, got %v, %v", ok, err)
	}

	ok, err = MarkListingSold(ctx, database, id, seller.ID)
	if err != nil || !ok {
		t.Fatalf("MarkListingSold: %v, %v", ok, err)
	}

	ok, _ = MarkListingSold(ctx, database, id, seller.ID)
	if ok {
		t.Error("expected second sale to be refused")
	}

	row, _ := GetListing(ctx, database, id)
	if row.Sold == nil || !*row.Sold {
		t.Error("expected listing to be sold")
	}
	if row.Seller.TotalSales == nil || *row.Seller.TotalSales != 1 {
		t.Errorf("expected 1 sale, got %v", row.Seller.TotalSales)
	}
}

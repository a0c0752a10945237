package listing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeDefaults(t *testing.T) {
	row, err := ParseRow([]byte(`{"id":"1","title":"t","price":5}`))
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NormalizeAt(row, now)

	if l.ID != "1" || l.Title != "t" || l.Price != 5 {
		t.Errorf("unexpected identity fields: %+v", l)
	}
	if l.Seller.Name != "Anonymous" {
		t.Errorf("expected seller name Anonymous, got %q", l.Seller.Name)
	}
	if l.Seller.Rating != 4.5 {
		t.Errorf("expected rating 4.5, got %v", l.Seller.Rating)
	}
	if l.Seller.Phone != "" {
		t.Errorf("expected empty phone, got %q", l.Seller.Phone)
	}
	if l.Seller.ResponseRate != 95 {
		t.Errorf("expected response rate 95, got %d", l.Seller.ResponseRate)
	}
	if l.Seller.TotalSales != 0 {
		t.Errorf("expected total sales 0, got %d", l.Seller.TotalSales)
	}
	if !l.CreatedAt.Equal(now) {
		t.Errorf("expected created_at to default to now, got %v", l.CreatedAt)
	}
	if l.Features == nil || len(l.Features) != 0 {
		t.Errorf("expected empty non-nil features, got %#v", l.Features)
	}
}

func TestNormalizeUsesTimeNow(t *testing.T) {
	before := time.Now()
	l := Normalize(Row{ID: "x", Title: "t"})
	if l.CreatedAt.Before(before) {
		t.Errorf("expected created_at >= %v, got %v", before, l.CreatedAt)
	}
}

func TestNormalizeFullRow(t *testing.T) {
	raw := `{
		"id": 42,
		"title": "Bike",
		"description": "Blue",
		"price": 120.5,
		"category": "bicycles",
		"location": "Kranj",
		"image_url": " listings/bike.jpg ",
		"condition": "good",
		"features": ["Lights", "Bell"],
		"created_at": "2024-02-01T10:00:00+00:00",
		"is_sold": true,
		"profiles": {
			"full_name": "Nina",
			"rating": 4.9,
			"phone": "+386 40 000 000",
			"created_at": "2021-05-05T00:00:00Z",
			"total_sales": 7,
			"response_rate": 88
		}
	}`
	row, err := ParseRow([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}
	l := Normalize(row)

	if l.ID != "42" {
		t.Errorf("expected numeric id to become %q, got %q", "42", l.ID)
	}
	if l.Image != "listings/bike.jpg" {
		t.Errorf("expected trimmed image reference, got %q", l.Image)
	}
	if !l.Sold {
		t.Error("expected sold flag")
	}
	if diff := cmp.Diff([]string{"Lights", "Bell"}, l.Features); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	if want := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC); !l.CreatedAt.Equal(want) {
		t.Errorf("expected created_at %v, got %v", want, l.CreatedAt)
	}
	if l.Seller.Name != "Nina" || l.Seller.Rating != 4.9 || l.Seller.TotalSales != 7 || l.Seller.ResponseRate != 88 {
		t.Errorf("unexpected seller: %+v", l.Seller)
	}
	if want := time.Date(2021, 5, 5, 0, 0, 0, 0, time.UTC); !l.Seller.JoinedAt.Equal(want) {
		t.Errorf("expected joined %v, got %v", want, l.Seller.JoinedAt)
	}
}

func TestNormalizeMalformedFeatures(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{`"not a list"`, []string{}},
		{`{"a":1}`, []string{}},
		{`null`, []string{}},
		{`42`, []string{}},
		{`["ok", 3, null, "fine"]`, []string{"ok", "fine"}},
		{`[]`, []string{}},
	}

	for _, tt := range tests {
		got := Normalize(Row{ID: "1", Title: "t", Features: json.RawMessage(tt.raw)}).Features
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("features %s (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestNormalizeEmptySellerNameAndClamps(t *testing.T) {
	blank := "  "
	rating := 9.0
	rate := 150
	sales := -3
	l := Normalize(Row{ID: "1", Title: "t", Price: -10, Seller: &SellerRow{
		FullName:     &blank,
		Rating:       &rating,
		ResponseRate: &rate,
		TotalSales:   &sales,
	}})

	if l.Price != 0 {
		t.Errorf("expected negative price clamped to 0, got %v", l.Price)
	}
	if l.Seller.Name != DefaultSellerName {
		t.Errorf("expected blank name to default, got %q", l.Seller.Name)
	}
	if l.Seller.Rating != 5 {
		t.Errorf("expected rating clamped to 5, got %v", l.Seller.Rating)
	}
	if l.Seller.ResponseRate != 100 {
		t.Errorf("expected response rate clamped to 100, got %d", l.Seller.ResponseRate)
	}
	if l.Seller.TotalSales != 0 {
		t.Errorf("expected total sales clamped to 0, got %d", l.Seller.TotalSales)
	}
}

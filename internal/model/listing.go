package model

import "time"

// Listing is a single marketplace post in its canonical display shape.
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Location    string    `json:"location,omitempty"`
	Image       string    `json:"image,omitempty"`
	Condition   string    `json:"condition,omitempty"`
	Features    []string  `json:"features"`
	CreatedAt   time.Time `json:"created_at"`
	Sold        bool      `json:"sold,omitempty"`
	Seller      Seller    `json:"seller"`
}

// Seller is the public profile shown next to a listing.
type Seller struct {
	Name         string    `json:"name"`
	Rating       float64   `json:"rating"`
	Phone        string    `json:"phone,omitempty"`
	JoinedAt     time.Time `json:"joined_at"`
	TotalSales   int       `json:"total_sales"`
	ResponseRate int       `json:"response_rate"`
}

// NewListing holds the fields a user submits when posting.
type NewListing struct {
	SellerID    string
	Title       string
	Description string
	Price       float64
	Category    string
	Location    string
	Image       string
	Condition   string
	Features    []string
}

// Listing conditions offered by the post form. Stored values are free text,
// so rows may carry labels outside this set.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like-new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
)

// Conditions lists the selectable conditions in display order.
var Conditions = []string{ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair}

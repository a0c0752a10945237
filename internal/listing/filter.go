package listing

import (
	"strings"

	"github.com/erazemk/oglasnik/internal/model"
)

// Query is the search state of the listing page. An empty Text matches every
// listing and an empty Subcategory matches every category. Text is matched
// as given, without trimming.
type Query struct {
	Text        string `json:"q"`
	Subcategory string `json:"sub,omitempty"`
}

// IsZero reports whether the query selects everything.
func (q Query) IsZero() bool {
	return q.Text == "" && q.Subcategory == ""
}

// Matches reports whether a listing satisfies both the text and the
// subcategory constraint of q.
func Matches(l model.Listing, q Query) bool {
	if q.Subcategory != "" && l.Category != q.Subcategory {
		return false
	}
	if q.Text == "" {
		return true
	}
	needle := strings.ToLower(q.Text)
	for _, field := range []string{l.Title, l.Description, l.Location, l.Condition} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	for _, f := range l.Features {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Filter returns the listings matching q in their original order. The
// result is always a new slice.
func Filter(listings []model.Listing, q Query) []model.Listing {
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if Matches(l, q) {
			out = append(out, l)
		}
	}
	return out
}

// CountBySubcategory counts listings per category reference.
func CountBySubcategory(listings []model.Listing) map[string]int {
	counts := make(map[string]int)
	for _, l := range listings {
		counts[l.Category]++
	}
	return counts
}

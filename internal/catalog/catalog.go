// Package catalog holds the bundled categories and demo listings shown when
// the backend has nothing to offer.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/erazemk/oglasnik/internal/model"
)

//go:embed catalog.json
var catalogJSON []byte

// Catalog is an immutable set of categories and listings.
type Catalog struct {
	categories []model.Category
	listings   []model.Listing
	bySub      map[string]int
}

type document struct {
	Categories []model.Category `json:"categories"`
	Listings   []model.Listing  `json:"listings"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog. It is parsed once; a malformed
// embedded document is a build defect and aborts the process.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(catalogJSON)
		if err != nil {
			log.Fatalf("failed to parse embedded catalog: %v", err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	c := &Catalog{
		categories: doc.Categories,
		listings:   doc.Listings,
		bySub:      make(map[string]int),
	}
	for i := range c.listings {
		if c.listings[i].Features == nil {
			c.listings[i].Features = []string{}
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	for i, cat := range c.categories {
		for _, sub := range cat.Subcategories {
			c.bySub[sub.ID] = i
		}
	}
	return c, nil
}

// Validate checks id uniqueness for categories, subcategories and listings,
// and that no listing has a negative price.
func (c *Catalog) Validate() error {
	cats := make(map[string]bool)
	subs := make(map[string]string)
	for _, cat := range c.categories {
		if cat.ID == "" {
			return fmt.Errorf("category with empty id")
		}
		if cats[cat.ID] {
			return fmt.Errorf("duplicate category id %q", cat.ID)
		}
		cats[cat.ID] = true

		local := make(map[string]bool)
		for _, sub := range cat.Subcategories {
			if local[sub.ID] {
				return fmt.Errorf("duplicate subcategory id %q in category %q", sub.ID, cat.ID)
			}
			local[sub.ID] = true
			if other, ok := subs[sub.ID]; ok {
				return fmt.Errorf("subcategory id %q used by both %q and %q", sub.ID, other, cat.ID)
			}
			subs[sub.ID] = cat.ID
		}
	}

	ids := make(map[string]bool)
	for _, l := range c.listings {
		if ids[l.ID] {
			return fmt.Errorf("duplicate listing id %q", l.ID)
		}
		ids[l.ID] = true
		if l.Price < 0 {
			return fmt.Errorf("listing %q has negative price", l.ID)
		}
	}
	return nil
}

// Categories returns a copy of all categories in display order.
func (c *Catalog) Categories() []model.Category {
	out := make([]model.Category, len(c.categories))
	for i, cat := range c.categories {
		cat.Subcategories = slices.Clone(cat.Subcategories)
		out[i] = cat
	}
	return out
}

// Listings returns a copy of the demo listings.
func (c *Catalog) Listings() []model.Listing {
	out := make([]model.Listing, len(c.listings))
	for i, l := range c.listings {
		l.Features = slices.Clone(l.Features)
		out[i] = l
	}
	return out
}

// Listing returns the demo listing with the given id.
func (c *Catalog) Listing(id string) (model.Listing, bool) {
	for _, l := range c.listings {
		if l.ID == id {
			l.Features = slices.Clone(l.Features)
			return l, true
		}
	}
	return model.Listing{}, false
}

// Category returns the category with the given id.
func (c *Catalog) Category(id string) (model.Category, bool) {
	for _, cat := range c.categories {
		if cat.ID == id {
			cat.Subcategories = slices.Clone(cat.Subcategories)
			return cat, true
		}
	}
	return model.Category{}, false
}

// Subcategory resolves a subcategory id together with its parent category.
func (c *Catalog) Subcategory(id string) (model.Subcategory, model.Category, bool) {
	i, ok := c.bySub[id]
	if !ok {
		return model.Subcategory{}, model.Category{}, false
	}
	cat := c.categories[i]
	for _, sub := range cat.Subcategories {
		if sub.ID == id {
			cat.Subcategories = slices.Clone(cat.Subcategories)
			return sub, cat, true
		}
	}
	return model.Subcategory{}, model.Category{}, false
}

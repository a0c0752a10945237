package model

// Category groups subcategories under a localized name.
type Category struct {
	ID            string        `json:"id"`
	NameKey       string        `json:"name_key"`
	Icon          string        `json:"icon"`
	Subcategories []Subcategory `json:"subcategories"`
}

// Subcategory is the unit listings are filed under.
type Subcategory struct {
	ID      string `json:"id"`
	NameKey string `json:"name_key"`
}

package cafe

import "slices"

// Price range values used by the catalog.
const (
	PriceLow  = "$"
	PriceHigh = "$$"
)

// Amenities holds boolean-or-unknown capabilities. nil means unknown.
type Amenities struct {
	Bathroom             *bool `json:"bathroom"`
	WiFi                 *bool `json:"wifi"`
	IndoorSeating        *bool `json:"indoorSeating"`
	OutdoorSeating       *bool `json:"outdoorSeating"`
	WheelchairAccessible *bool `json:"wheelchairAccessible"`
	Outlets              *bool `json:"outlets"`
	CreditCards          *bool `json:"creditCards"`
}

// Has reports whether an amenity is known to be available. Unknown counts as absent.
func Has(v *bool) bool { return v != nil && *v }

// Hours holds opening hours per weekday as free text.
type Hours struct {
	Mon string `json:"mon"`
	Tue string `json:"tue"`
	Wed string `json:"wed"`
	Thu string `json:"thu"`
	Fri string `json:"fri"`
	Sat string `json:"sat"`
	Sun string `json:"sun"`
}

// Images holds image paths for display. Never scored.
type Images struct {
	Exterior []string `json:"exterior"`
	Interior []string `json:"interior"`
}

// Cafe is a catalog record. Owned by the catalog store and never mutated after load.
type Cafe struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	About       *string   `json:"about"`
	Tags        []string  `json:"tags"`
	VibeTags    []string  `json:"vibeTags"`
	UniqueItems []string  `json:"uniqueItems"`
	MenuItems   []string  `json:"menuItems"`
	Reviews     []string  `json:"reviews"`
	PriceRange  *string   `json:"priceRange"`
	Amenities   Amenities `json:"amenities"`
	Hours       Hours     `json:"hours"`
	Address     string    `json:"address"`
	Phone       *string   `json:"phone,omitempty"`
	Website     *string   `json:"website,omitempty"`
	Yelp        string    `json:"yelp,omitempty"`
	Images      Images    `json:"images"`
}

// AboutText returns the about text or "" when unknown.
func (c *Cafe) AboutText() string {
	if c.About == nil {
		return ""
	}
	return *c.About
}

// Price returns the price range or "" when unknown.
func (c *Cafe) Price() string {
	if c.PriceRange == nil {
		return ""
	}
	return *c.PriceRange
}

// HasVibe reports whether any vibe tag equals one of the given values exactly.
func (c *Cafe) HasVibe(values ...string) bool {
	for _, want := range values {
		if slices.Contains(c.VibeTags, want) {
			return true
		}
	}
	return false
}

// Projection is the subset of a café sent to the relevance service.
type Projection struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	About       *string   `json:"about"`
	Tags        []string  `json:"tags"`
	VibeTags    []string  `json:"vibeTags"`
	Reviews     []string  `json:"reviews"`
	UniqueItems []string  `json:"uniqueItems"`
	MenuItems   []string  `json:"menuItems"`
	PriceRange  *string   `json:"priceRange"`
	Amenities   Amenities `json:"amenities"`
}

// Project builds the relevance-service projection of c.
func (c *Cafe) Project() Projection {
	return Projection{
		ID:          c.ID,
		Name:        c.Name,
		About:       c.About,
		Tags:        c.Tags,
		VibeTags:    c.VibeTags,
		Reviews:     c.Reviews,
		UniqueItems: c.UniqueItems,
		MenuItems:   c.MenuItems,
		PriceRange:  c.PriceRange,
		Amenities:   c.Amenities,
	}
}

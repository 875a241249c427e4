package preference

import (
	"fmt"

	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
)

// Seating is the preferred seating area.
type Seating string

// Seating values.
const (
	Indoor  Seating = "indoor"
	Outdoor Seating = "outdoor"
)

// Payment is the preferred payment method.
type Payment string

// Payment values.
const (
	Cash       Payment = "cash"
	CreditCard Payment = "creditCard"
)

// Noise is the preferred noise level.
type Noise string

// Noise values.
const (
	Quiet      Noise = "quiet"
	CafeSounds Noise = "cafeSounds"
)

// quietVibes are the vibe tags that satisfy a quiet preference.
var quietVibes = []string{"quiet", "peaceful", "calm"}

// Set is an immutable snapshot of user-chosen filters.
type Set struct {
	PreferredSeating     Seating `json:"preferredSeating"`
	PreferredPayment     Payment `json:"preferredPayment"`
	PreferredNoise       Noise   `json:"preferredNoise"`
	PricePreference      string  `json:"pricePreference"`
	WheelchairAccessible bool    `json:"wheelchairAccessible"`
}

// Default returns the out-of-the-box preferences.
func Default() Set {
	return Set{
		PreferredSeating: Indoor,
		PreferredPayment: Cash,
		PreferredNoise:   Quiet,
		PricePreference:  cafe.PriceLow,
	}
}

// Validate rejects values outside the supported enums.
func (s Set) Validate() error {
	switch s.PreferredSeating {
	case Indoor, Outdoor:
	default:
		return fmt.Errorf("%w: preferredSeating %q", domain.ErrInvalidPreferences, s.PreferredSeating)
	}
	switch s.PreferredPayment {
	case Cash, CreditCard:
	default:
		return fmt.Errorf("%w: preferredPayment %q", domain.ErrInvalidPreferences, s.PreferredPayment)
	}
	switch s.PreferredNoise {
	case Quiet, CafeSounds:
	default:
		return fmt.Errorf("%w: preferredNoise %q", domain.ErrInvalidPreferences, s.PreferredNoise)
	}
	switch s.PricePreference {
	case cafe.PriceLow, cafe.PriceHigh:
	default:
		return fmt.Errorf("%w: pricePreference %q", domain.ErrInvalidPreferences, s.PricePreference)
	}
	return nil
}

// Matches counts preference criteria satisfied by c. Each one is worth a bonus step.
func (s Set) Matches(c *cafe.Cafe) int {
	n := 0
	if s.PreferredSeating == Outdoor && cafe.Has(c.Amenities.OutdoorSeating) ||
		s.PreferredSeating == Indoor && cafe.Has(c.Amenities.IndoorSeating) {
		n++
	}
	if s.PreferredPayment == CreditCard && cafe.Has(c.Amenities.CreditCards) {
		n++
	}
	if s.PreferredNoise == Quiet && c.HasVibe(quietVibes...) {
		n++
	}
	if c.PriceRange != nil && s.PricePreference == *c.PriceRange {
		n++
	}
	if s.WheelchairAccessible && cafe.Has(c.Amenities.WheelchairAccessible) {
		n++
	}
	return n
}

// Admits applies the catalog browse hard filters: $$ requires $$, outdoor requires
// outdoor seating, card payment requires card acceptance.
func (s Set) Admits(c *cafe.Cafe) bool {
	if s.PricePreference == cafe.PriceHigh && c.Price() != cafe.PriceHigh {
		return false
	}
	if s.PreferredSeating == Outdoor && !cafe.Has(c.Amenities.OutdoorSeating) {
		return false
	}
	if s.PreferredPayment == CreditCard && !cafe.Has(c.Amenities.CreditCards) {
		return false
	}
	return true
}

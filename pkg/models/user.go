package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSpicyLevel is assumed when a profile does not declare a spice tolerance.
const DefaultSpicyLevel = 2

// TasteProfile holds the declared food preferences of a user.
type TasteProfile struct {
	SpicyLevel      *int     `json:"spicy_level,omitempty" db:"spicy_level" validate:"omitempty,min=0,max=5"`
	PreferSoup      *bool    `json:"prefer_soup,omitempty" db:"prefer_soup"`
	Vegetarian      bool     `json:"is_vegetarian" db:"is_vegetarian"`
	Allergens       []string `json:"allergens" db:"allergens"`
	FavoriteRegions []Region `json:"favorite_regions" db:"favorite_regions"`
}

// IsEmpty reports whether the profile carries no preference data at all.
func (t TasteProfile) IsEmpty() bool {
	return t.SpicyLevel == nil &&
		t.PreferSoup == nil &&
		!t.Vegetarian &&
		len(t.Allergens) == 0 &&
		len(t.FavoriteRegions) == 0
}

// EffectiveSpicyLevel returns the declared spice tolerance or the default.
func (t TasteProfile) EffectiveSpicyLevel() int {
	if t.SpicyLevel == nil {
		return DefaultSpicyLevel
	}
	return *t.SpicyLevel
}

// PrefersSoup treats an unset soup preference as a preference for dry dishes.
func (t TasteProfile) PrefersSoup() bool {
	return t.PreferSoup != nil && *t.PreferSoup
}

type UserProfile struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Email     string       `json:"email" db:"email"`
	FullName  *string      `json:"full_name,omitempty" db:"full_name"`
	Taste     TasteProfile `json:"taste"`
	Active    bool         `json:"is_active" db:"is_active"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Region is one of the three regional cuisine buckets of the catalog.
type Region string

const (
	RegionNorth   Region = "bac"
	RegionCentral Region = "trung"
	RegionSouth   Region = "nam"
)

// Regions lists every known region in north-to-south order.
var Regions = []Region{RegionNorth, RegionCentral, RegionSouth}

// Valid reports whether r is a known region.
func (r Region) Valid() bool {
	switch r {
	case RegionNorth, RegionCentral, RegionSouth:
		return true
	}
	return false
}

// DisplayName returns the human readable name used in recommendation reasons.
func (r Region) DisplayName() string {
	switch r {
	case RegionNorth:
		return "Northern Vietnam"
	case RegionCentral:
		return "Central Vietnam"
	case RegionSouth:
		return "Southern Vietnam"
	default:
		return string(r)
	}
}

type FoodType string

const (
	FoodTypeSoup    FoodType = "soup"
	FoodTypeDry     FoodType = "dry"
	FoodTypeDrink   FoodType = "drink"
	FoodTypeDessert FoodType = "dessert"
)

const (
	MinSpicyLevel = 0
	MaxSpicyLevel = 5
)

// Food is a catalog dish. Inactive dishes are soft-deleted and never recommended.
type Food struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	NameEn      *string   `json:"name_en,omitempty" db:"name_en"`
	Description *string   `json:"description,omitempty" db:"description"`
	Region      Region    `json:"region" db:"region" validate:"required,oneof=bac trung nam"`
	FoodType    FoodType  `json:"food_type" db:"food_type" validate:"required,oneof=soup dry drink dessert"`
	Category    string    `json:"category,omitempty" db:"category"`
	SpicyLevel  int       `json:"spicy_level" db:"spicy_level" validate:"min=0,max=5"`
	Vegetarian  bool      `json:"is_vegetarian" db:"is_vegetarian"`
	Vegan       bool      `json:"is_vegan" db:"is_vegan"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	ViewCount   int64     `json:"view_count" db:"view_count"`
	Active      bool      `json:"is_active" db:"is_active"`
	Allergens   []string  `json:"allergens,omitempty" db:"allergens"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// FoodFilter narrows catalog queries. Nil pointer fields are not applied.
type FoodFilter struct {
	Region            *Region
	FoodType          *FoodType
	Category          *string
	Vegetarian        *bool
	Vegan             *bool
	SpicyMin          *int
	SpicyMax          *int
	OrderByPopularity bool
	ExcludeIDs        []uuid.UUID
}

// FavoredFood is a dish surfaced by neighbor behaviour together with the
// number of qualifying neighbor interactions.
type FavoredFood struct {
	Food  Food `json:"food"`
	Count int  `json:"count"`
}

package database

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/temcen/dishrec/pkg/models"
)

// Catalog is the on-disk seed format for MemoryStore.
type Catalog struct {
	Foods []models.Food        `json:"foods" validate:"dive"`
	Users []models.UserProfile `json:"users" validate:"dive"`
}

// LoadCatalog decodes and validates a catalog and returns a store seeded with it.
// Dishes are inserted in file order, which is the store's tie-break order.
func LoadCatalog(r io.Reader) (*MemoryStore, error) {
	var catalog Catalog
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	if err := validator.New().Struct(&catalog); err != nil {
		return nil, fmt.Errorf("%w: invalid catalog: %v", models.ErrValidation, err)
	}

	store := NewMemoryStore()
	for _, food := range catalog.Foods {
		store.AddFood(food)
	}
	for _, user := range catalog.Users {
		store.AddUser(user)
	}
	return store, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type InteractionKind string

const (
	InteractionView           InteractionKind = "view"
	InteractionLike           InteractionKind = "like"
	InteractionSave           InteractionKind = "save"
	InteractionSearch         InteractionKind = "search"
	InteractionRecognize      InteractionKind = "recognize"
	InteractionRecommendClick InteractionKind = "recommend_click"
)

// Valid reports whether k is one of the recorded interaction kinds.
func (k InteractionKind) Valid() bool {
	switch k {
	case InteractionView, InteractionLike, InteractionSave,
		InteractionSearch, InteractionRecognize, InteractionRecommendClick:
		return true
	}
	return false
}

// Interaction is an append-only record of a user acting on a dish.
type Interaction struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	FoodID    uuid.UUID       `json:"food_id" db:"food_id"`
	Kind      InteractionKind `json:"interaction_type" db:"interaction_type"`
	Rating    *int            `json:"rating,omitempty" db:"rating"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type InteractionRequest struct {
	FoodID uuid.UUID       `json:"food_id" validate:"required"`
	Kind   InteractionKind `json:"interaction_type" validate:"required,oneof=view like save search recognize recommend_click"`
	Rating *int            `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
}

type UserHistoryResponse struct {
	Interactions []Interaction `json:"interactions"`
	Total        int           `json:"total"`
}

// InteractionEvent is the message published for every recorded interaction.
type InteractionEvent struct {
	Interaction Interaction `json:"interaction"`
	PublishedAt time.Time   `json:"published_at"`
	RetryCount  int         `json:"retry_count"`
}

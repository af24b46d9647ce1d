package domain

import (
	"time"
)

// Collection is a named set of games owned by a user
type Collection struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CollectionWithCount is a collection plus the number of entries in it
type CollectionWithCount struct {
	Collection
	EntryCount int64 `json:"entry_count"`
}

// CreateCollectionRequest represents a request to create a collection
type CreateCollectionRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100,collection_name"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// UpdateCollectionRequest carries the optional fields of a collection update
type UpdateCollectionRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// CollectionEntry links a collection to a local game
type CollectionEntry struct {
	ID           int64          `json:"id"`
	CollectionID int64          `json:"collection_id"`
	GameID       int64          `json:"game_id"`
	Status       *string        `json:"status"`
	Rating       *int           `json:"rating"`
	Notes        *string        `json:"notes"`
	CustomTags   map[string]any `json:"custom_tags"`
	AddedAt      time.Time      `json:"added_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Game         Game           `json:"game"`
}

// CreateEntryRequest adds a catalog game to a collection. GameID is the
// catalog (IGDB) id, not the local one.
type CreateEntryRequest struct {
	GameID     int64          `json:"game_id" validate:"required,gt=0"`
	Notes      *string        `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Status     *string        `json:"status,omitempty" validate:"omitempty,max=50"`
	Rating     *int           `json:"rating,omitempty" validate:"omitempty,min=0,max=10"`
	CustomTags map[string]any `json:"custom_tags,omitempty"`
}

// UpdateEntryRequest carries the optional fields of an entry update
type UpdateEntryRequest struct {
	Notes      *string        `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Status     *string        `json:"status,omitempty" validate:"omitempty,max=50"`
	Rating     *int           `json:"rating,omitempty" validate:"omitempty,min=0,max=10"`
	CustomTags map[string]any `json:"custom_tags,omitempty"`
}

// IsEmpty reports whether the update sets nothing
func (r *UpdateEntryRequest) IsEmpty() bool {
	return r.Notes == nil && r.Status == nil && r.Rating == nil && r.CustomTags == nil
}

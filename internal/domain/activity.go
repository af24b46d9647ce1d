package domain

import "time"

// ActivityType identifies what happened in a user's library
type ActivityType string

const (
	ActivityCollectionCreated ActivityType = "collection_created"
	ActivityCollectionUpdated ActivityType = "collection_updated"
	ActivityCollectionDeleted ActivityType = "collection_deleted"
	ActivityEntryAdded        ActivityType = "entry_added"
	ActivityEntryUpdated      ActivityType = "entry_updated"
	ActivityEntryRemoved      ActivityType = "entry_removed"
)

// ActivityEvent is published whenever a user's library changes
type ActivityEvent struct {
	ID           string       `json:"id"`
	Type         ActivityType `json:"type"`
	UserID       int64        `json:"user_id"`
	CollectionID int64        `json:"collection_id"`
	EntryID      int64        `json:"entry_id,omitempty"`
	GameID       int64        `json:"game_id,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

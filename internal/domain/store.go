package domain

import "context"

// UserStore persists user accounts
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// LibraryStore persists collections, entries and the local game catalog.
// Lookups that find nothing return the matching Err*NotFound sentinel.
type LibraryStore interface {
	CreateCollection(ctx context.Context, c *Collection) error
	GetCollection(ctx context.Context, id int64) (*Collection, error)
	FindCollectionByName(ctx context.Context, userID int64, name string) (*Collection, error)
	ListCollections(ctx context.Context, userID int64) ([]Collection, error)
	ListCollectionsWithCounts(ctx context.Context, userID int64) ([]CollectionWithCount, error)
	UpdateCollection(ctx context.Context, c *Collection) error
	DeleteCollection(ctx context.Context, id int64) error

	GetGameByIGDBID(ctx context.Context, igdbID int64) (*Game, error)
	GetGameByNameAndPlatform(ctx context.Context, name, platform string) (*Game, error)
	CreateGame(ctx context.Context, g *Game) error

	EntryExists(ctx context.Context, collectionID, gameID int64) (bool, error)
	CreateEntry(ctx context.Context, e *CollectionEntry) error
	GetEntry(ctx context.Context, collectionID, entryID int64) (*CollectionEntry, error)
	ListEntries(ctx context.Context, collectionID int64) ([]CollectionEntry, error)
	UpdateEntry(ctx context.Context, e *CollectionEntry) error
	DeleteEntry(ctx context.Context, collectionID, entryID int64) error

	// WithTx runs fn against a store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(LibraryStore) error) error
}

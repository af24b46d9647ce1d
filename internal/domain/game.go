package domain

import "time"

// Game is the locally persisted projection of a catalog game
type Game struct {
	ID          int64      `json:"id"`
	IGDBID      *int64     `json:"igdb_id"`
	Name        string     `json:"name"`
	Platform    string     `json:"platform"`
	ReleaseDate *time.Time `json:"release_date"`
	CoverURL    *string    `json:"cover_url"`
	Genre       *string    `json:"genre"`
}

// CoverImages holds responsive sizes of a cover image
type CoverImages struct {
	Thumb  string `json:"thumb,omitempty"`
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`
	Large  string `json:"large,omitempty"`
}

// CatalogGame is a game as returned by the external catalog, flattened
type CatalogGame struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	CoverURL    *string      `json:"cover_url"`
	CoverImages *CoverImages `json:"cover_images"`
	Summary     *string      `json:"summary"`
	ReleaseDate *int64       `json:"release_date"`
	Genres      []string     `json:"genres"`
	Platforms   []string     `json:"platforms"`
}

// Genre is a catalog genre reference entry
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Platform is a catalog platform reference entry
type Platform struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

package igdb

import (
	"strings"

	"github.com/gaming-library/internal/domain"
)

const imageBaseURL = "https://images.igdb.com/igdb/image/upload"

// imageSizes known to appear in catalog image URLs
var imageSizes = []string{"t_thumb", "t_cover_small", "t_cover_big", "t_720p"}

type rawNamed struct {
	ID   int64   `json:"id"`
	Name *string `json:"name"`
}

type rawCover struct {
	URL *string `json:"url"`
}

// rawGame is a game object as returned by the catalog API
type rawGame struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Cover            *rawCover  `json:"cover"`
	Summary          *string    `json:"summary"`
	FirstReleaseDate *int64     `json:"first_release_date"`
	Genres           []rawNamed `json:"genres"`
	Platforms        []rawNamed `json:"platforms"`
}

func mapGame(g rawGame) domain.CatalogGame {
	out := domain.CatalogGame{
		ID:          g.ID,
		Name:        g.Name,
		Summary:     g.Summary,
		ReleaseDate: g.FirstReleaseDate,
		Genres:      names(g.Genres),
		Platforms:   names(g.Platforms),
	}
	if g.Cover != nil && g.Cover.URL != nil && *g.Cover.URL != "" {
		url := formatCoverURL(*g.Cover.URL, "t_cover_big")
		out.CoverURL = &url
		out.CoverImages = coverImages(url)
	}
	return out
}

func names(items []rawNamed) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Name != nil {
			out = append(out, *it.Name)
		}
	}
	return out
}

// formatCoverURL turns a protocol-relative catalog image URL into an https
// URL at the requested size. Other URLs are returned unchanged.
func formatCoverURL(url, size string) string {
	if !strings.HasPrefix(url, "//") {
		return url
	}
	url = "https:" + url
	for _, s := range imageSizes {
		if strings.Contains(url, s) {
			return strings.Replace(url, s, size, -1)
		}
	}
	i := strings.LastIndex(url, "/")
	return url[:i+1] + size + "/" + url[i+1:]
}

// coverImages derives responsive sizes from a formatted cover URL
func coverImages(url string) *domain.CoverImages {
	if !strings.Contains(url, "images.igdb.com/igdb/image/upload/") {
		return nil
	}
	imageID := strings.TrimSuffix(url[strings.LastIndex(url, "/")+1:], ".jpg")
	return &domain.CoverImages{
		Thumb:  imageBaseURL + "/t_thumb/" + imageID + ".jpg",
		Small:  imageBaseURL + "/t_cover_small/" + imageID + ".jpg",
		Medium: imageBaseURL + "/t_cover_big/" + imageID + ".jpg",
		Large:  imageBaseURL + "/t_720p/" + imageID + ".jpg",
	}
}

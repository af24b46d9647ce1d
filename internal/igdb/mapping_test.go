package igdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestFormatCoverURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "replaces thumb size",
			in:   "//images.igdb.com/igdb/image/upload/t_thumb/co67oa.jpg",
			want: "https://images.igdb.com/igdb/image/upload/t_cover_big/co67oa.jpg",
		},
		{
			name: "keeps requested size",
			in:   "//images.igdb.com/igdb/image/upload/t_cover_big/co1.jpg",
			want: "https://images.igdb.com/igdb/image/upload/t_cover_big/co1.jpg",
		},
		{
			name: "inserts size when missing",
			in:   "//images.igdb.com/igdb/image/upload/co2.jpg",
			want: "https://images.igdb.com/igdb/image/upload/t_cover_big/co2.jpg",
		},
		{
			name: "absolute url untouched",
			in:   "https://example.com/cover.png",
			want: "https://example.com/cover.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCoverURL(tt.in, "t_cover_big"))
		})
	}
}

func TestMapGame_Full(t *testing.T) {
	released := int64(1605052800)
	g := mapGame(rawGame{
		ID:               1234,
		Name:             "Halo Infinite",
		Cover:            &rawCover{URL: strPtr("//images.igdb.com/igdb/image/upload/t_thumb/co2dto.jpg")},
		Summary:          strPtr("Master Chief returns"),
		FirstReleaseDate: &released,
		Genres:           []rawNamed{{ID: 5, Name: strPtr("Shooter")}, {ID: 31}},
		Platforms:        []rawNamed{{ID: 6, Name: strPtr("PC")}, {ID: 49, Name: strPtr("Xbox One")}},
	})

	assert.Equal(t, int64(1234), g.ID)
	assert.Equal(t, "Halo Infinite", g.Name)
	require.NotNil(t, g.CoverURL)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_cover_big/co2dto.jpg", *g.CoverURL)
	require.NotNil(t, g.CoverImages)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_thumb/co2dto.jpg", g.CoverImages.Thumb)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_cover_small/co2dto.jpg", g.CoverImages.Small)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_cover_big/co2dto.jpg", g.CoverImages.Medium)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_720p/co2dto.jpg", g.CoverImages.Large)
	assert.Equal(t, &released, g.ReleaseDate)
	assert.Equal(t, []string{"Shooter"}, g.Genres)
	assert.Equal(t, []string{"PC", "Xbox One"}, g.Platforms)
}

func TestMapGame_MissingNestedFields(t *testing.T) {
	g := mapGame(rawGame{ID: 7, Name: "Obscure", Cover: &rawCover{}})

	assert.Nil(t, g.CoverURL)
	assert.Nil(t, g.CoverImages)
	assert.Nil(t, g.Summary)
	assert.Nil(t, g.ReleaseDate)
	assert.Nil(t, g.Genres)
	assert.Nil(t, g.Platforms)
}

func TestMapGame_ForeignCoverHasNoResponsiveImages(t *testing.T) {
	g := mapGame(rawGame{ID: 8, Cover: &rawCover{URL: strPtr("https://cdn.example.com/c.jpg")}})

	require.NotNil(t, g.CoverURL)
	assert.Equal(t, "https://cdn.example.com/c.jpg", *g.CoverURL)
	assert.Nil(t, g.CoverImages)
}

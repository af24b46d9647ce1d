package service

import (
	"context"
	"testing"
	"time"

	"github.com/gaming-library/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

type entryFixture struct {
	svc        *EntryService
	store      *memStore
	catalog    *fakeCatalog
	pub        *recordingPublisher
	collection *domain.Collection
}

func newEntryFixture(t *testing.T) *entryFixture {
	t.Helper()
	released := time.Date(2017, 3, 3, 0, 0, 0, 0, time.UTC).Unix()
	f := &entryFixture{
		store: newMemStore(),
		catalog: &fakeCatalog{games: map[int64]domain.CatalogGame{
			7346: {
				ID:          7346,
				Name:        "The Legend of Zelda: Breath of the Wild",
				CoverURL:    strPtr("https://images.igdb.com/igdb/image/upload/t_cover_big/co3p2d.jpg"),
				ReleaseDate: &released,
				Genres:      []string{"Adventure", "Role-playing (RPG)"},
				Platforms:   []string{"Nintendo Switch", "Wii U"},
			},
			1: {ID: 1},
		}},
		pub: &recordingPublisher{},
	}
	f.svc = NewEntryService(f.store, f.catalog, f.pub, testLogger())

	f.collection = &domain.Collection{UserID: 1, Name: "Favorites"}
	require.NoError(t, f.store.CreateCollection(context.Background(), f.collection))
	return f
}

func TestEntryService_CreateImportsGame(t *testing.T) {
	f := newEntryFixture(t)

	e, err := f.svc.Create(context.Background(), 1, f.collection.ID, domain.CreateEntryRequest{
		GameID: 7346,
		Status: strPtr("playing"),
		Rating: intPtr(9),
	})
	require.NoError(t, err)

	assert.Equal(t, f.collection.ID, e.CollectionID)
	assert.Equal(t, "playing", *e.Status)
	assert.Equal(t, "The Legend of Zelda: Breath of the Wild", e.Game.Name)
	assert.Equal(t, "Nintendo Switch", e.Game.Platform)
	require.NotNil(t, e.Game.Genre)
	assert.Equal(t, "Adventure, Role-playing (RPG)", *e.Game.Genre)
	require.NotNil(t, e.Game.ReleaseDate)
	assert.Equal(t, time.Date(2017, 3, 3, 0, 0, 0, 0, time.UTC), *e.Game.ReleaseDate)
	require.NotNil(t, e.Game.IGDBID)
	assert.Equal(t, int64(7346), *e.Game.IGDBID)

	assert.Equal(t, []domain.ActivityType{domain.ActivityEntryAdded}, f.pub.types())
}

func TestEntryService_CreateRejectsDuplicates(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, f.collection.ID, domain.CreateEntryRequest{GameID: 7346})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, 1, f.collection.ID, domain.CreateEntryRequest{GameID: 7346})
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
	assert.Equal(t, 1, f.catalog.calls, "second add reuses the local game")
}

func TestEntryService_CreateOwnership(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 2, f.collection.ID, domain.CreateEntryRequest{GameID: 7346})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = f.svc.Create(ctx, 1, 999, domain.CreateEntryRequest{GameID: 7346})
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	_, err = f.svc.Create(ctx, 1, f.collection.ID, domain.CreateEntryRequest{GameID: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.svc.Create(ctx, 1, f.collection.ID, domain.CreateEntryRequest{GameID: 7346, Rating: intPtr(11)})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestEntryService_GetOrCreateGameIsIdempotent(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetOrCreateGame(ctx, 7346)
	require.NoError(t, err)
	second, err := f.svc.GetOrCreateGame(ctx, 7346)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.store.games, 1)
	assert.Equal(t, 1, f.catalog.calls)
}

func TestEntryService_GetOrCreateGameDefaults(t *testing.T) {
	f := newEntryFixture(t)

	g, err := f.svc.GetOrCreateGame(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Unknown Game", g.Name)
	assert.Equal(t, "Unknown", g.Platform)
	assert.Nil(t, g.Genre)
	assert.Nil(t, g.ReleaseDate)
}

func TestEntryService_GetOrCreateGameReusesNamePlatform(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	existing := &domain.Game{Name: "The Legend of Zelda: Breath of the Wild", Platform: "Nintendo Switch"}
	require.NoError(t, f.store.CreateGame(ctx, existing))

	g, err := f.svc.GetOrCreateGame(ctx, 7346)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, g.ID)
	assert.Len(t, f.store.games, 1)
}

func TestEntryService_GetOrCreateGameCatalogFailure(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetOrCreateGame(ctx, 424242)
	assert.ErrorIs(t, err, domain.ErrGameNotFound)

	f.catalog.err = domain.ErrUpstream
	_, err = f.svc.GetOrCreateGame(ctx, 7346)
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
	assert.Empty(t, f.store.games)
}

func TestEntryService_ListGetUpdateDelete(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()
	uid, cid := int64(1), f.collection.ID

	first, err := f.svc.Create(ctx, uid, cid, domain.CreateEntryRequest{GameID: 7346})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, uid, cid, domain.CreateEntryRequest{GameID: 1})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, uid, cid)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	_, err = f.svc.List(ctx, 2, cid)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	updated, err := f.svc.Update(ctx, uid, cid, first.ID, domain.UpdateEntryRequest{
		Notes:      strPtr("great"),
		CustomTags: map[string]any{"replay": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "great", *updated.Notes)
	assert.Equal(t, true, updated.CustomTags["replay"])
	assert.Nil(t, updated.Status)

	got, err := f.svc.Get(ctx, uid, cid, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "great", *got.Notes)

	_, err = f.svc.Get(ctx, uid, cid, 999)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)

	require.NoError(t, f.svc.Delete(ctx, uid, cid, first.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, uid, cid, first.ID), domain.ErrEntryNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, 2, cid, second.ID), domain.ErrPermissionDenied)

	assert.Equal(t, []domain.ActivityType{
		domain.ActivityEntryAdded,
		domain.ActivityEntryAdded,
		domain.ActivityEntryUpdated,
		domain.ActivityEntryRemoved,
	}, f.pub.types())
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gaming-library/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]*domain.User

func (f fakeUsers) ResolveUser(_ context.Context, token string) (*domain.User, error) {
	switch token {
	case "expired":
		return nil, domain.ErrTokenExpired
	case "bad":
		return nil, domain.ErrInvalidToken
	}
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

type fakeCatalog struct {
	lastTerm    string
	lastFilters *domain.FilterSet
	lastIDs     []int64
	err         error
}

func (f *fakeCatalog) SearchGames(_ context.Context, term string, filters *domain.FilterSet) ([]domain.CatalogGame, error) {
	f.lastTerm, f.lastFilters = term, filters
	if f.err != nil {
		return nil, f.err
	}
	return []domain.CatalogGame{{ID: 740, Name: "Halo: Combat Evolved"}}, nil
}

func (f *fakeCatalog) GetGamesByIDs(_ context.Context, ids []int64) ([]domain.CatalogGame, error) {
	f.lastIDs = ids
	out := make([]domain.CatalogGame, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.CatalogGame{ID: id})
	}
	return out, f.err
}

func (f *fakeCatalog) GetGameByID(_ context.Context, id int64) (*domain.CatalogGame, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id == 404 {
		return nil, fmt.Errorf("game %d: %w", id, domain.ErrGameNotFound)
	}
	return &domain.CatalogGame{ID: id}, nil
}

func (f *fakeCatalog) GetGenres(context.Context) ([]domain.Genre, error) {
	return []domain.Genre{{ID: 5, Name: "Shooter"}}, f.err
}

func (f *fakeCatalog) GetPlatforms(context.Context) ([]domain.Platform, error) {
	return []domain.Platform{{ID: 6, Name: "PC (Microsoft Windows)"}}, f.err
}

type fakeCollections struct {
	err        error
	lastUserID int64
}

func (f *fakeCollections) Create(_ context.Context, userID int64, req domain.CreateCollectionRequest) (*domain.Collection, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Collection{ID: 1, UserID: userID, Name: req.Name}, nil
}

func (f *fakeCollections) List(_ context.Context, userID int64) ([]domain.Collection, error) {
	f.lastUserID = userID
	return []domain.Collection{}, f.err
}

func (f *fakeCollections) ListWithCounts(_ context.Context, userID int64) ([]domain.CollectionWithCount, error) {
	f.lastUserID = userID
	return []domain.CollectionWithCount{}, f.err
}

func (f *fakeCollections) Get(_ context.Context, userID, id int64) (*domain.Collection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Collection{ID: id, UserID: userID}, nil
}

func (f *fakeCollections) Update(_ context.Context, userID, id int64, _ domain.UpdateCollectionRequest) (*domain.Collection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Collection{ID: id, UserID: userID}, nil
}

func (f *fakeCollections) Delete(context.Context, int64, int64) error {
	return f.err
}

type fakeEntries struct {
	err error
}

func (f *fakeEntries) Create(_ context.Context, _, cid int64, req domain.CreateEntryRequest) (*domain.CollectionEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CollectionEntry{ID: 9, CollectionID: cid, GameID: 3}, nil
}

func (f *fakeEntries) List(context.Context, int64, int64) ([]domain.CollectionEntry, error) {
	return []domain.CollectionEntry{}, f.err
}

func (f *fakeEntries) Get(_ context.Context, _, cid, eid int64) (*domain.CollectionEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CollectionEntry{ID: eid, CollectionID: cid}, nil
}

func (f *fakeEntries) Update(_ context.Context, _, cid, eid int64, _ domain.UpdateEntryRequest) (*domain.CollectionEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CollectionEntry{ID: eid, CollectionID: cid}, nil
}

func (f *fakeEntries) Delete(context.Context, int64, int64, int64) error {
	return f.err
}

type gameFixture struct {
	router      http.Handler
	catalog     *fakeCatalog
	collections *fakeCollections
	entries     *fakeEntries
}

func newGameFixture() *gameFixture {
	f := &gameFixture{
		catalog:     &fakeCatalog{},
		collections: &fakeCollections{},
		entries:     &fakeEntries{},
	}
	users := fakeUsers{"alice-token": {ID: 7, Username: "alice"}}
	f.router = NewGameHandler(f.catalog, f.collections, f.entries, users, nil, testHTTPConfig(), testLogger()).Router()
	return f
}

func TestGameHandler_Search(t *testing.T) {
	f := newGameFixture()

	status, resp := do(t, f.router, http.MethodGet, "/igdb/search?q=halo", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "halo", f.catalog.lastTerm)

	status, _ = do(t, f.router, http.MethodGet, "/igdb/search?q=%20%20", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = do(t, f.router, http.MethodGet, "/igdb/search", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestGameHandler_SearchFilters(t *testing.T) {
	f := newGameFixture()

	path := "/igdb/search?q=zelda&platforms=130,%206&genres=12&genres=31&year_start=2015&year_end=2020&min_rating=80.5&max_metacritic=95"
	status, _ := do(t, f.router, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, status)

	got := f.catalog.lastFilters
	require.NotNil(t, got)
	assert.Equal(t, []string{"130", "6"}, got.Platforms)
	assert.Equal(t, []string{"12", "31"}, got.Genres)
	assert.Equal(t, &domain.YearRange{Start: 2015, End: 2020}, got.YearRange)
	require.NotNil(t, got.MinRating)
	assert.Equal(t, 80.5, *got.MinRating)
	require.NotNil(t, got.MaxMetacritic)
	assert.Equal(t, 95, *got.MaxMetacritic)
	assert.Nil(t, got.MinMetacritic)
}

func TestGameHandler_SearchRejectsBadBounds(t *testing.T) {
	f := newGameFixture()

	for _, qs := range []string{
		"year_start=1960&year_end=2000",
		"year_start=2000",
		"min_rating=101",
		"min_metacritic=-1",
		"max_rating=abc",
	} {
		status, _ := do(t, f.router, http.MethodGet, "/igdb/search?q=x&"+qs, "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, status, qs)
	}
}

func TestGameHandler_UpstreamFailure(t *testing.T) {
	f := newGameFixture()
	f.catalog.err = fmt.Errorf("igdb games: %w", domain.ErrUpstream)

	status, resp := do(t, f.router, http.MethodGet, "/igdb/search?q=halo", "", nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, domain.ErrUpstream.Error(), resp.Error)

	status, _ = do(t, f.router, http.MethodGet, "/igdb/genres", "", nil)
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestGameHandler_GetGames(t *testing.T) {
	f := newGameFixture()

	status, resp := do(t, f.router, http.MethodGet, "/igdb/games?ids=3,abc,-1,0,%205", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []int64{3, 5}, f.catalog.lastIDs)
	assert.Len(t, resp.Data, 2)

	f.catalog.lastIDs = nil
	status, resp = do(t, f.router, http.MethodGet, "/igdb/games?ids=x", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{}, resp.Data)
	assert.Nil(t, f.catalog.lastIDs, "catalog is not called for an empty list")
}

func TestGameHandler_GetGame(t *testing.T) {
	f := newGameFixture()

	status, _ := do(t, f.router, http.MethodGet, "/igdb/games/740", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, f.router, http.MethodGet, "/igdb/games/0", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = do(t, f.router, http.MethodGet, "/igdb/games/404", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGameHandler_RequiresAuth(t *testing.T) {
	f := newGameFixture()

	status, resp := do(t, f.router, http.MethodGet, "/collections", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Missing or invalid Authorization header", resp.Error)

	status, resp = do(t, f.router, http.MethodGet, "/collections", "ghost", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "User not found", resp.Error)

	status, resp = do(t, f.router, http.MethodGet, "/collections", "expired", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token has expired", resp.Error)

	status, _ = do(t, f.router, http.MethodGet, "/collections", "alice-token", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(7), f.collections.lastUserID)
}

func TestGameHandler_Collections(t *testing.T) {
	f := newGameFixture()
	tok := "alice-token"

	status, resp := do(t, f.router, http.MethodPost, "/collections", tok, domain.CreateCollectionRequest{Name: "Backlog"})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(7), resp.Data.(map[string]interface{})["user_id"])

	status, _ = do(t, f.router, http.MethodGet, "/collections/counts", tok, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, f.router, http.MethodGet, "/collections/abc", tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	f.collections.err = domain.ErrPermissionDenied
	status, resp = do(t, f.router, http.MethodPut, "/collections/3", tok, domain.UpdateCollectionRequest{})
	assert.Equal(t, http.StatusNotFound, status, "other users' collections look missing")
	assert.Equal(t, domain.ErrCollectionNotFound.Error(), resp.Error)

	f.collections.err = domain.ErrDuplicateCollection
	status, _ = do(t, f.router, http.MethodPost, "/collections", tok, domain.CreateCollectionRequest{Name: "Backlog"})
	assert.Equal(t, http.StatusConflict, status)

	f.collections.err = fmt.Errorf("db down")
	status, resp = do(t, f.router, http.MethodDelete, "/collections/3", tok, nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", resp.Error)
}

func TestGameHandler_Entries(t *testing.T) {
	f := newGameFixture()
	tok := "alice-token"

	status, _ := do(t, f.router, http.MethodPost, "/collections/3/entries", tok, domain.CreateEntryRequest{GameID: 7346})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = do(t, f.router, http.MethodGet, "/collections/3/entries/9", tok, nil)
	assert.Equal(t, http.StatusOK, status)

	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrPermissionDenied, http.StatusForbidden},
		{domain.ErrCollectionNotFound, http.StatusNotFound},
		{domain.ErrEntryNotFound, http.StatusNotFound},
		{domain.ErrDuplicateEntry, http.StatusConflict},
		{fmt.Errorf("game 1: %w", domain.ErrGameNotFound), http.StatusNotFound},
	}
	for _, tt := range tests {
		f.entries.err = tt.err
		status, _ = do(t, f.router, http.MethodPost, "/collections/3/entries", tok, domain.CreateEntryRequest{GameID: 1})
		assert.Equal(t, tt.status, status, tt.err.Error())
	}

	f.entries.err = nil
	status, _ = do(t, f.router, http.MethodDelete, "/collections/3/entries/0", tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestGameHandler_ReadyAndMetrics(t *testing.T) {
	f := newGameFixture()

	status, _ := do(t, f.router, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	req, err := http.NewRequest(http.MethodGet, "/metrics", nil)
	require.NoError(t, err)
	rec := newRecorder(f.router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "api_requests_total")
}

package service

import (
	"context"
	"testing"

	"github.com/gaming-library/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestCollectionService() (*CollectionService, *memStore, *recordingPublisher) {
	store := newMemStore()
	pub := &recordingPublisher{}
	return NewCollectionService(store, pub, testLogger()), store, pub
}

func TestCollectionService_Create(t *testing.T) {
	s, _, pub := newTestCollectionService()
	ctx := context.Background()

	c, err := s.Create(ctx, 1, domain.CreateCollectionRequest{Name: "Backlog", Description: strPtr("later")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.UserID)
	assert.Equal(t, "Backlog", c.Name)

	_, err = s.Create(ctx, 1, domain.CreateCollectionRequest{Name: "Backlog"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCollection)

	_, err = s.Create(ctx, 2, domain.CreateCollectionRequest{Name: "Backlog"})
	assert.NoError(t, err, "names are unique per user")

	assert.Equal(t, []domain.ActivityType{domain.ActivityCollectionCreated, domain.ActivityCollectionCreated}, pub.types())
}

func TestCollectionService_CreateValidation(t *testing.T) {
	s, _, _ := newTestCollectionService()
	ctx := context.Background()

	for _, name := range []string{"", "a", "Bad-Name!", string(make([]byte, 101))} {
		_, err := s.Create(ctx, 1, domain.CreateCollectionRequest{Name: name})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest, "name %q", name)
	}

	long := string(make([]rune, 501))
	_, err := s.Create(ctx, 1, domain.CreateCollectionRequest{Name: "Fine", Description: &long})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCollectionService_GetHidesOtherOwners(t *testing.T) {
	s, _, _ := newTestCollectionService()
	ctx := context.Background()
	c, err := s.Create(ctx, 1, domain.CreateCollectionRequest{Name: "Mine"})
	require.NoError(t, err)

	got, err := s.Get(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = s.Get(ctx, 2, c.ID)
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	_, err = s.Get(ctx, 1, 999)
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestCollectionService_Update(t *testing.T) {
	s, _, pub := newTestCollectionService()
	ctx := context.Background()
	a, err := s.Create(ctx, 1, domain.CreateCollectionRequest{Name: "Alpha"})
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, domain.CreateCollectionRequest{Name: "Beta"})
	require.NoError(t, err)

	updated, err := s.Update(ctx, 1, a.ID, domain.UpdateCollectionRequest{Name: strPtr("Gamma"), Description: strPtr("new")})
	require.NoError(t, err)
	assert.Equal(t, "Gamma", updated.Name)
	assert.Equal(t, "new", *updated.Description)

	_, err = s.Update(ctx, 1, a.ID, domain.UpdateCollectionRequest{Name: strPtr("Beta")})
	assert.ErrorIs(t, err, domain.ErrDuplicateCollection)

	_, err = s.Update(ctx, 2, a.ID, domain.UpdateCollectionRequest{Name: strPtr("Theirs")})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = s.Update(ctx, 1, 999, domain.UpdateCollectionRequest{Name: strPtr("Nope")})
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	assert.Len(t, pub.types(), 3, "two creates and one update")
}

func TestCollectionService_UpdateNoChange(t *testing.T) {
	s, _, pub := newTestCollectionService()
	ctx := context.Background()
	c, err := s.Create(ctx, 1, domain.CreateCollectionRequest{Name: "Same", Description: strPtr("d")})
	require.NoError(t, err)

	got, err := s.Update(ctx, 1, c.ID, domain.UpdateCollectionRequest{Name: strPtr("Same"), Description: strPtr("d")})
	require.NoError(t, err)
	assert.Equal(t, c.UpdatedAt, got.UpdatedAt)
	assert.Equal(t, []domain.ActivityType{domain.ActivityCollectionCreated}, pub.types())
}

func TestCollectionService_DeleteAndCounts(t *testing.T) {
	s, store, pub := newTestCollectionService()
	ctx := context.Background()
	c, err := s.Create(ctx, 1, domain.CreateCollectionRequest{Name: "Doomed"})
	require.NoError(t, err)
	require.NoError(t, store.CreateEntry(ctx, &domain.CollectionEntry{CollectionID: c.ID, GameID: 7}))

	counts, err := s.ListWithCounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(1), counts[0].EntryCount)

	assert.ErrorIs(t, s.Delete(ctx, 2, c.ID), domain.ErrPermissionDenied)
	require.NoError(t, s.Delete(ctx, 1, c.ID))
	assert.ErrorIs(t, s.Delete(ctx, 1, c.ID), domain.ErrCollectionNotFound)

	list, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Contains(t, pub.types(), domain.ActivityCollectionDeleted)
}

func TestCollectionService_PublishFailureIsIgnored(t *testing.T) {
	store := newMemStore()
	s := NewCollectionService(store, &recordingPublisher{err: errBroken}, testLogger())

	_, err := s.Create(context.Background(), 1, domain.CreateCollectionRequest{Name: "Quiet"})
	assert.NoError(t, err)

	s = NewCollectionService(store, nil, testLogger())
	_, err = s.Create(context.Background(), 1, domain.CreateCollectionRequest{Name: "Silent"})
	assert.NoError(t, err)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gaming-library/internal/domain"
	"github.com/google/uuid"
)

// CollectionService manages a user's collections
type CollectionService struct {
	store     domain.LibraryStore
	publisher ActivityPublisher
	logger    *slog.Logger
}

// NewCollectionService creates a new collection service. A nil publisher
// disables activity events.
func NewCollectionService(store domain.LibraryStore, publisher ActivityPublisher, logger *slog.Logger) *CollectionService {
	return &CollectionService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Create adds a collection owned by userID
func (s *CollectionService) Create(ctx context.Context, userID int64, req domain.CreateCollectionRequest) (*domain.Collection, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	if _, err := s.store.FindCollectionByName(ctx, userID, req.Name); err == nil {
		return nil, domain.ErrDuplicateCollection
	} else if !errors.Is(err, domain.ErrCollectionNotFound) {
		return nil, fmt.Errorf("checking collection name: %w", err)
	}

	c := &domain.Collection{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.store.CreateCollection(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("collection created", "user_id", userID, "collection_id", c.ID)
	publish(ctx, s.publisher, s.logger, domain.ActivityCollectionCreated, userID, c.ID, 0, 0)
	return c, nil
}

// List returns every collection owned by userID
func (s *CollectionService) List(ctx context.Context, userID int64) ([]domain.Collection, error) {
	return s.store.ListCollections(ctx, userID)
}

// ListWithCounts returns userID's collections with their entry counts
func (s *CollectionService) ListWithCounts(ctx context.Context, userID int64) ([]domain.CollectionWithCount, error) {
	return s.store.ListCollectionsWithCounts(ctx, userID)
}

// Get returns a collection owned by userID. Collections owned by someone
// else are reported as not found.
func (s *CollectionService) Get(ctx context.Context, userID, collectionID int64) (*domain.Collection, error) {
	c, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, domain.ErrCollectionNotFound
	}
	return c, nil
}

// Update applies the fields of req that are set and differ from the
// stored values. An update that changes nothing returns the collection as is.
func (s *CollectionService) Update(ctx context.Context, userID, collectionID int64, req domain.UpdateCollectionRequest) (*domain.Collection, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	c, err := s.owned(ctx, userID, collectionID)
	if err != nil {
		return nil, err
	}

	changed := false
	if req.Name != nil && *req.Name != c.Name {
		existing, err := s.store.FindCollectionByName(ctx, userID, *req.Name)
		switch {
		case err == nil && existing.ID != c.ID:
			return nil, domain.ErrDuplicateCollection
		case err != nil && !errors.Is(err, domain.ErrCollectionNotFound):
			return nil, fmt.Errorf("checking collection name: %w", err)
		}
		c.Name = *req.Name
		changed = true
	}
	if req.Description != nil && (c.Description == nil || *c.Description != *req.Description) {
		c.Description = req.Description
		changed = true
	}
	if !changed {
		return c, nil
	}

	if err := s.store.UpdateCollection(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("collection updated", "user_id", userID, "collection_id", c.ID)
	publish(ctx, s.publisher, s.logger, domain.ActivityCollectionUpdated, userID, c.ID, 0, 0)
	return c, nil
}

// Delete removes a collection and its entries
func (s *CollectionService) Delete(ctx context.Context, userID, collectionID int64) error {
	if _, err := s.owned(ctx, userID, collectionID); err != nil {
		return err
	}
	if err := s.store.DeleteCollection(ctx, collectionID); err != nil {
		return err
	}

	s.logger.Info("collection deleted", "user_id", userID, "collection_id", collectionID)
	publish(ctx, s.publisher, s.logger, domain.ActivityCollectionDeleted, userID, collectionID, 0, 0)
	return nil
}

// owned loads a collection and checks that userID owns it
func (s *CollectionService) owned(ctx context.Context, userID, collectionID int64) (*domain.Collection, error) {
	c, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, domain.ErrPermissionDenied
	}
	return c, nil
}

// publish emits an activity event. Failures are logged and never fail the
// calling request.
func publish(ctx context.Context, p ActivityPublisher, logger *slog.Logger, typ domain.ActivityType, userID, collectionID, entryID, gameID int64) {
	if p == nil {
		return
	}
	event := domain.ActivityEvent{
		ID:           uuid.NewString(),
		Type:         typ,
		UserID:       userID,
		CollectionID: collectionID,
		EntryID:      entryID,
		GameID:       gameID,
		Timestamp:    time.Now().UTC(),
	}
	if err := p.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish activity event", "type", typ, "error", err)
	}
}

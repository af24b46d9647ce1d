package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gaming-library/internal/domain"
)

const (
	unknownGameName     = "Unknown Game"
	unknownGamePlatform = "Unknown"
)

// EntryService manages the games inside a user's collections
type EntryService struct {
	store     domain.LibraryStore
	catalog   Catalog
	publisher ActivityPublisher
	logger    *slog.Logger
}

// NewEntryService creates a new entry service
func NewEntryService(store domain.LibraryStore, catalog Catalog, publisher ActivityPublisher, logger *slog.Logger) *EntryService {
	return &EntryService{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
	}
}

// Create adds the catalog game req.GameID to a collection, creating the
// local game row on first use.
func (s *EntryService) Create(ctx context.Context, userID, collectionID int64, req domain.CreateEntryRequest) (*domain.CollectionEntry, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, userID, collectionID); err != nil {
		return nil, err
	}

	var entry *domain.CollectionEntry
	err := s.store.WithTx(ctx, func(tx domain.LibraryStore) error {
		game, err := s.getOrCreateGame(ctx, tx, req.GameID)
		if err != nil {
			return err
		}

		exists, err := tx.EntryExists(ctx, collectionID, game.ID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateEntry
		}

		entry = &domain.CollectionEntry{
			CollectionID: collectionID,
			GameID:       game.ID,
			Status:       req.Status,
			Rating:       req.Rating,
			Notes:        req.Notes,
			CustomTags:   req.CustomTags,
		}
		if err := tx.CreateEntry(ctx, entry); err != nil {
			return err
		}
		entry.Game = *game
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("entry added", "collection_id", collectionID, "entry_id", entry.ID, "game_id", entry.GameID)
	publish(ctx, s.publisher, s.logger, domain.ActivityEntryAdded, userID, collectionID, entry.ID, entry.GameID)
	return entry, nil
}

// GetOrCreateGame returns the local game for a catalog id, inserting it
// from catalog data when it is not known yet.
func (s *EntryService) GetOrCreateGame(ctx context.Context, igdbID int64) (*domain.Game, error) {
	var game *domain.Game
	err := s.store.WithTx(ctx, func(tx domain.LibraryStore) error {
		var err error
		game, err = s.getOrCreateGame(ctx, tx, igdbID)
		return err
	})
	return game, err
}

func (s *EntryService) getOrCreateGame(ctx context.Context, store domain.LibraryStore, igdbID int64) (*domain.Game, error) {
	game, err := store.GetGameByIGDBID(ctx, igdbID)
	if err == nil {
		return game, nil
	}
	if !errors.Is(err, domain.ErrGameNotFound) {
		return nil, err
	}

	cg, err := s.catalog.GetGameByID(ctx, igdbID)
	if err != nil {
		s.logger.Warn("catalog lookup failed", "igdb_id", igdbID, "error", err)
		return nil, fmt.Errorf("game %d: %w", igdbID, domain.ErrGameNotFound)
	}

	game = gameFromCatalog(igdbID, cg)

	// (name, platform) is unique, so a row imported under another id wins
	existing, err := store.GetGameByNameAndPlatform(ctx, game.Name, game.Platform)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrGameNotFound) {
		return nil, err
	}

	if err := store.CreateGame(ctx, game); err != nil {
		return nil, err
	}
	s.logger.Info("game imported from catalog", "igdb_id", igdbID, "game_id", game.ID)
	return game, nil
}

func gameFromCatalog(igdbID int64, cg *domain.CatalogGame) *domain.Game {
	id := igdbID
	g := &domain.Game{
		IGDBID:   &id,
		Name:     cg.Name,
		Platform: unknownGamePlatform,
		CoverURL: cg.CoverURL,
	}
	if g.Name == "" {
		g.Name = unknownGameName
	}
	if len(cg.Platforms) > 0 {
		g.Platform = cg.Platforms[0]
	}
	if len(cg.Genres) > 0 {
		genre := strings.Join(cg.Genres, ", ")
		g.Genre = &genre
	}
	if cg.ReleaseDate != nil {
		t := time.Unix(*cg.ReleaseDate, 0).UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		g.ReleaseDate = &day
	}
	return g
}

// List returns the entries of a collection, newest first
func (s *EntryService) List(ctx context.Context, userID, collectionID int64) ([]domain.CollectionEntry, error) {
	if err := s.checkOwner(ctx, userID, collectionID); err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, collectionID)
}

// Get returns one entry of a collection
func (s *EntryService) Get(ctx context.Context, userID, collectionID, entryID int64) (*domain.CollectionEntry, error) {
	if err := s.checkOwner(ctx, userID, collectionID); err != nil {
		return nil, err
	}
	return s.store.GetEntry(ctx, collectionID, entryID)
}

// Update applies the provided fields of req to an entry
func (s *EntryService) Update(ctx context.Context, userID, collectionID, entryID int64, req domain.UpdateEntryRequest) (*domain.CollectionEntry, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, userID, collectionID); err != nil {
		return nil, err
	}

	entry, err := s.store.GetEntry(ctx, collectionID, entryID)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return entry, nil
	}

	if req.Notes != nil {
		entry.Notes = req.Notes
	}
	if req.Status != nil {
		entry.Status = req.Status
	}
	if req.Rating != nil {
		entry.Rating = req.Rating
	}
	if req.CustomTags != nil {
		entry.CustomTags = req.CustomTags
	}
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, domain.ActivityEntryUpdated, userID, collectionID, entry.ID, entry.GameID)
	return entry, nil
}

// Delete removes an entry from a collection
func (s *EntryService) Delete(ctx context.Context, userID, collectionID, entryID int64) error {
	if err := s.checkOwner(ctx, userID, collectionID); err != nil {
		return err
	}
	entry, err := s.store.GetEntry(ctx, collectionID, entryID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, collectionID, entryID); err != nil {
		return err
	}

	s.logger.Info("entry removed", "collection_id", collectionID, "entry_id", entryID)
	publish(ctx, s.publisher, s.logger, domain.ActivityEntryRemoved, userID, collectionID, entryID, entry.GameID)
	return nil
}

func (s *EntryService) checkOwner(ctx context.Context, userID, collectionID int64) error {
	c, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return domain.ErrPermissionDenied
	}
	return nil
}

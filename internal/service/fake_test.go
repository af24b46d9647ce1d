package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gaming-library/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory UserStore and LibraryStore
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]*domain.User
	collections map[int64]*domain.Collection
	games       map[int64]*domain.Game
	entries     map[int64]*domain.CollectionEntry
	txCalls     int
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[int64]*domain.User),
		collections: make(map[int64]*domain.Collection),
		games:       make(map[int64]*domain.Game),
		entries:     make(map[int64]*domain.CollectionEntry),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return domain.ErrUsernameTaken
		}
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memStore) findUser(match func(*domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	return m.findUser(func(u *domain.User) bool { return u.Username == username })
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.findUser(func(u *domain.User) bool { return u.Email == email })
}

func (m *memStore) CreateCollection(_ context.Context, c *domain.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.collections[c.ID] = &cp
	return nil
}

func (m *memStore) GetCollection(_ context.Context, id int64) (*domain.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrCollectionNotFound
}

func (m *memStore) FindCollectionByName(_ context.Context, userID int64, name string) (*domain.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collections {
		if c.UserID == userID && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCollectionNotFound
}

func (m *memStore) ListCollections(_ context.Context, userID int64) ([]domain.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Collection{}
	for _, c := range m.collections {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListCollectionsWithCounts(ctx context.Context, userID int64) ([]domain.CollectionWithCount, error) {
	list, _ := m.ListCollections(ctx, userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CollectionWithCount, 0, len(list))
	for _, c := range list {
		var n int64
		for _, e := range m.entries {
			if e.CollectionID == c.ID {
				n++
			}
		}
		out = append(out, domain.CollectionWithCount{Collection: c, EntryCount: n})
	}
	return out, nil
}

func (m *memStore) UpdateCollection(_ context.Context, c *domain.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[c.ID]; !ok {
		return domain.ErrCollectionNotFound
	}
	c.UpdatedAt = time.Now()
	cp := *c
	m.collections[c.ID] = &cp
	return nil
}

func (m *memStore) DeleteCollection(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[id]; !ok {
		return domain.ErrCollectionNotFound
	}
	delete(m.collections, id)
	for eid, e := range m.entries {
		if e.CollectionID == id {
			delete(m.entries, eid)
		}
	}
	return nil
}

func (m *memStore) GetGameByIGDBID(_ context.Context, igdbID int64) (*domain.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.IGDBID != nil && *g.IGDBID == igdbID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, domain.ErrGameNotFound
}

func (m *memStore) GetGameByNameAndPlatform(_ context.Context, name, platform string) (*domain.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.Name == name && g.Platform == platform {
			cp := *g
			return &cp, nil
		}
	}
	return nil, domain.ErrGameNotFound
}

func (m *memStore) CreateGame(_ context.Context, g *domain.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = m.id()
	cp := *g
	m.games[g.ID] = &cp
	return nil
}

func (m *memStore) EntryExists(_ context.Context, collectionID, gameID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.CollectionID == collectionID && e.GameID == gameID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateEntry(_ context.Context, e *domain.CollectionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	e.AddedAt = time.Now()
	e.UpdatedAt = e.AddedAt
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *memStore) GetEntry(_ context.Context, collectionID, entryID int64) (*domain.CollectionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok || e.CollectionID != collectionID {
		return nil, domain.ErrEntryNotFound
	}
	cp := *e
	if g, ok := m.games[e.GameID]; ok {
		cp.Game = *g
	}
	return &cp, nil
}

func (m *memStore) ListEntries(_ context.Context, collectionID int64) ([]domain.CollectionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.CollectionEntry{}
	for _, e := range m.entries {
		if e.CollectionID == collectionID {
			cp := *e
			if g, ok := m.games[e.GameID]; ok {
				cp.Game = *g
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) UpdateEntry(_ context.Context, e *domain.CollectionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		return domain.ErrEntryNotFound
	}
	e.UpdatedAt = time.Now()
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *memStore) DeleteEntry(_ context.Context, collectionID, entryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok || e.CollectionID != collectionID {
		return domain.ErrEntryNotFound
	}
	delete(m.entries, entryID)
	return nil
}

// WithTx has no rollback; the services under test never rely on it
func (m *memStore) WithTx(_ context.Context, fn func(domain.LibraryStore) error) error {
	m.mu.Lock()
	m.txCalls++
	m.mu.Unlock()
	return fn(m)
}

// fakeCatalog serves catalog games from a map and counts lookups
type fakeCatalog struct {
	mu    sync.Mutex
	games map[int64]domain.CatalogGame
	err   error
	calls int
}

func (f *fakeCatalog) GetGameByID(_ context.Context, id int64) (*domain.CatalogGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	g, ok := f.games[id]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return &g, nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.ActivityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []domain.ActivityType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.ActivityType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var errBroken = errors.New("broken")

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gaming-library/internal/auth"
	"github.com/gaming-library/internal/config"
	"github.com/gaming-library/internal/domain"
	"github.com/gaming-library/internal/websocket"
	"github.com/go-chi/chi/v5"
)

// Catalog is the read-only game catalog
type Catalog interface {
	SearchGames(ctx context.Context, term string, filters *domain.FilterSet) ([]domain.CatalogGame, error)
	GetGamesByIDs(ctx context.Context, ids []int64) ([]domain.CatalogGame, error)
	GetGameByID(ctx context.Context, id int64) (*domain.CatalogGame, error)
	GetGenres(ctx context.Context) ([]domain.Genre, error)
	GetPlatforms(ctx context.Context) ([]domain.Platform, error)
}

// Collections manages a user's collections
type Collections interface {
	Create(ctx context.Context, userID int64, req domain.CreateCollectionRequest) (*domain.Collection, error)
	List(ctx context.Context, userID int64) ([]domain.Collection, error)
	ListWithCounts(ctx context.Context, userID int64) ([]domain.CollectionWithCount, error)
	Get(ctx context.Context, userID, collectionID int64) (*domain.Collection, error)
	Update(ctx context.Context, userID, collectionID int64, req domain.UpdateCollectionRequest) (*domain.Collection, error)
	Delete(ctx context.Context, userID, collectionID int64) error
}

// Entries manages the games inside collections
type Entries interface {
	Create(ctx context.Context, userID, collectionID int64, req domain.CreateEntryRequest) (*domain.CollectionEntry, error)
	List(ctx context.Context, userID, collectionID int64) ([]domain.CollectionEntry, error)
	Get(ctx context.Context, userID, collectionID, entryID int64) (*domain.CollectionEntry, error)
	Update(ctx context.Context, userID, collectionID, entryID int64, req domain.UpdateEntryRequest) (*domain.CollectionEntry, error)
	Delete(ctx context.Context, userID, collectionID, entryID int64) error
}

// GameHandler serves the game service endpoints
type GameHandler struct {
	catalog     Catalog
	collections Collections
	entries     Entries
	users       UserResolver
	hub         *websocket.Hub
	ready       []Pinger
	http        *config.HTTPConfig
	logger      *slog.Logger
}

// NewGameHandler creates a new game HTTP handler. hub may be nil, in which
// case /ws is not served.
func NewGameHandler(
	catalog Catalog,
	collections Collections,
	entries Entries,
	users UserResolver,
	hub *websocket.Hub,
	httpCfg *config.HTTPConfig,
	logger *slog.Logger,
	ready ...Pinger,
) *GameHandler {
	return &GameHandler{
		catalog:     catalog,
		collections: collections,
		entries:     entries,
		users:       users,
		hub:         hub,
		ready:       ready,
		http:        httpCfg,
		logger:      logger,
	}
}

// Router creates and configures the game service router
func (h *GameHandler) Router() http.Handler {
	r := chi.NewRouter()
	useCommon(r, h.http, h.logger)

	r.Get("/health", healthCheck)
	r.Get("/ready", readyCheck(h.ready...))
	r.Handle("/metrics", metricsHandler())

	r.Route("/igdb", func(r chi.Router) {
		r.Get("/search", h.SearchGames)
		r.Get("/games", h.GetGames)
		r.Get("/games/{gameID}", h.GetGame)
		r.Get("/genres", h.GetGenres)
		r.Get("/platforms", h.GetPlatforms)
	})

	if h.hub != nil {
		r.Get("/ws", h.HandleWebSocket)
	}

	r.Group(func(r chi.Router) {
		r.Use(requireUser(h.users, h.logger))

		r.Route("/collections", func(r chi.Router) {
			r.Post("/", h.CreateCollection)
			r.Get("/", h.ListCollections)
			r.Get("/counts", h.ListCollectionCounts)

			r.Route("/{collectionID}", func(r chi.Router) {
				r.Get("/", h.GetCollection)
				r.Put("/", h.UpdateCollection)
				r.Delete("/", h.DeleteCollection)

				r.Route("/entries", func(r chi.Router) {
					r.Post("/", h.CreateEntry)
					r.Get("/", h.ListEntries)
					r.Get("/{entryID}", h.GetEntry)
					r.Put("/{entryID}", h.UpdateEntry)
					r.Delete("/{entryID}", h.DeleteEntry)
				})
			})
		})
	})

	return r
}

// SearchGames runs a filtered catalog search
func (h *GameHandler) SearchGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("q")
	if strings.TrimSpace(term) == "" {
		writeError(w, http.StatusUnprocessableEntity, &domain.ValidationError{Field: "q", Reason: "search term must not be empty"})
		return
	}

	filters, err := parseFilters(q)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	games, err := h.catalog.SearchGames(r.Context(), term, filters)
	if err != nil {
		writeServiceError(w, h.logger, "search games", err)
		return
	}
	writeSuccess(w, games)
}

// GetGames returns the catalog games for a comma separated id list
func (h *GameHandler) GetGames(w http.ResponseWriter, r *http.Request) {
	ids := positiveIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		writeSuccess(w, []domain.CatalogGame{})
		return
	}

	games, err := h.catalog.GetGamesByIDs(r.Context(), ids)
	if err != nil {
		writeServiceError(w, h.logger, "get games", err)
		return
	}
	writeSuccess(w, games)
}

// GetGame returns one catalog game
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "gameID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnprocessableEntity, &domain.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}

	game, err := h.catalog.GetGameByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get game", err)
		return
	}
	writeSuccess(w, game)
}

// GetGenres returns every catalog genre
func (h *GameHandler) GetGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.catalog.GetGenres(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "get genres", err)
		return
	}
	writeSuccess(w, genres)
}

// GetPlatforms returns every catalog platform
func (h *GameHandler) GetPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.catalog.GetPlatforms(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "get platforms", err)
		return
	}
	writeSuccess(w, platforms)
}

// HandleWebSocket authenticates and upgrades a live activity connection.
// Browsers cannot set headers on upgrades, so the token may also come from
// the token query parameter.
func (h *GameHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, errMissingAuthHeader)
		return
	}

	user, ok := resolve(w, r, h.users, h.logger, token)
	if !ok {
		return
	}
	websocket.ServeWs(h.hub, user.ID, h.logger, w, r)
}

// CreateCollection handles collection creation
func (h *GameHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c, err := h.collections.Create(r.Context(), userID(r), req)
	if err != nil {
		h.collectionError(w, "create collection", err)
		return
	}
	writeCreated(w, c)
}

// ListCollections returns the caller's collections
func (h *GameHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	list, err := h.collections.List(r.Context(), userID(r))
	if err != nil {
		h.collectionError(w, "list collections", err)
		return
	}
	writeSuccess(w, list)
}

// ListCollectionCounts returns the caller's collections with entry counts
func (h *GameHandler) ListCollectionCounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.collections.ListWithCounts(r.Context(), userID(r))
	if err != nil {
		h.collectionError(w, "list collection counts", err)
		return
	}
	writeSuccess(w, list)
}

// GetCollection returns one of the caller's collections
func (h *GameHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "collectionID")
	if !ok {
		return
	}
	c, err := h.collections.Get(r.Context(), userID(r), id)
	if err != nil {
		h.collectionError(w, "get collection", err)
		return
	}
	writeSuccess(w, c)
}

// UpdateCollection applies a partial collection update
func (h *GameHandler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "collectionID")
	if !ok {
		return
	}
	var req domain.UpdateCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c, err := h.collections.Update(r.Context(), userID(r), id, req)
	if err != nil {
		h.collectionError(w, "update collection", err)
		return
	}
	writeSuccess(w, c)
}

// DeleteCollection removes a collection and its entries
func (h *GameHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "collectionID")
	if !ok {
		return
	}
	if err := h.collections.Delete(r.Context(), userID(r), id); err != nil {
		h.collectionError(w, "delete collection", err)
		return
	}
	writeSuccess(w, map[string]string{"status": "deleted"})
}

// collectionError hides collections owned by other users behind a 404
func (h *GameHandler) collectionError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, domain.ErrPermissionDenied) {
		writeError(w, http.StatusNotFound, domain.ErrCollectionNotFound)
		return
	}
	writeServiceError(w, h.logger, op, err)
}

// CreateEntry adds a catalog game to a collection
func (h *GameHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	cid, ok := pathID(w, r, "collectionID")
	if !ok {
		return
	}
	var req domain.CreateEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	e, err := h.entries.Create(r.Context(), userID(r), cid, req)
	if err != nil {
		writeServiceError(w, h.logger, "create entry", err)
		return
	}
	writeCreated(w, e)
}

// ListEntries returns a collection's entries, newest first
func (h *GameHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	cid, ok := pathID(w, r, "collectionID")
	if !ok {
		return
	}
	list, err := h.entries.List(r.Context(), userID(r), cid)
	if err != nil {
		writeServiceError(w, h.logger, "list entries", err)
		return
	}
	writeSuccess(w, list)
}

// GetEntry returns one entry
func (h *GameHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	cid, eid, ok := entryPath(w, r)
	if !ok {
		return
	}
	e, err := h.entries.Get(r.Context(), userID(r), cid, eid)
	if err != nil {
		writeServiceError(w, h.logger, "get entry", err)
		return
	}
	writeSuccess(w, e)
}

// UpdateEntry applies a partial entry update
func (h *GameHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	cid, eid, ok := entryPath(w, r)
	if !ok {
		return
	}
	var req domain.UpdateEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	e, err := h.entries.Update(r.Context(), userID(r), cid, eid, req)
	if err != nil {
		writeServiceError(w, h.logger, "update entry", err)
		return
	}
	writeSuccess(w, e)
}

// DeleteEntry removes an entry from its collection
func (h *GameHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	cid, eid, ok := entryPath(w, r)
	if !ok {
		return
	}
	if err := h.entries.Delete(r.Context(), userID(r), cid, eid); err != nil {
		writeServiceError(w, h.logger, "delete entry", err)
		return
	}
	writeSuccess(w, map[string]string{"status": "deleted"})
}

func userID(r *http.Request) int64 {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnprocessableEntity, &domain.ValidationError{Field: name, Reason: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

func entryPath(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	cid, ok := pathID(w, r, "collectionID")
	if !ok {
		return 0, 0, false
	}
	eid, ok := pathID(w, r, "entryID")
	if !ok {
		return 0, 0, false
	}
	return cid, eid, true
}

// Package igdb talks to the IGDB catalog API and memoizes its responses.
package igdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gaming-library/internal/cache"
	"github.com/gaming-library/internal/domain"
	"github.com/gaming-library/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Cache lifetimes for catalog data
const (
	GameTTL      = 5 * time.Minute
	SearchTTL    = 5 * time.Minute
	ReferenceTTL = 24 * time.Hour
)

const (
	keyGenres    = "genres"
	keyPlatforms = "platforms"

	breakerFailureThreshold = 5
	maxErrorBody            = 512
)

// StatusError is returned when the catalog answers with a non-2xx status
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("igdb %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap lets callers match any catalog failure against domain.ErrUpstream
func (e *StatusError) Unwrap() error {
	return domain.ErrUpstream
}

// Client is a cache-aware catalog API client. A nil store disables caching.
type Client struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	cache      cache.Store
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

// NewClient creates a catalog client against baseURL
func NewClient(baseURL string, timeout time.Duration, tokens TokenProvider, store cache.Store, logger *slog.Logger) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		cache:      store,
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "igdb",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// 4xx answers mean the service is up
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpstreamBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// GetGamesByIDs returns the games for ids in input order. IDs found neither
// in the cache nor upstream are omitted without error.
func (c *Client) GetGamesByIDs(ctx context.Context, ids []int64) ([]domain.CatalogGame, error) {
	if len(ids) == 0 {
		return []domain.CatalogGame{}, nil
	}

	found := make(map[int64]domain.CatalogGame, len(ids))
	var toFetch []int64
	for _, id := range ids {
		if _, seen := found[id]; seen {
			continue
		}
		var g domain.CatalogGame
		if c.cacheGet(ctx, "game", gameKey(id), &g) {
			found[id] = g
			continue
		}
		if !slices.Contains(toFetch, id) {
			toFetch = append(toFetch, id)
		}
	}

	if len(toFetch) > 0 {
		fetched, err := c.fetchGames(ctx, toFetch)
		if err != nil {
			return nil, err
		}
		for _, g := range fetched {
			c.cacheSet(ctx, gameKey(g.ID), g, GameTTL)
			found[g.ID] = g
		}
	}

	out := make([]domain.CatalogGame, 0, len(ids))
	for _, id := range ids {
		if g, ok := found[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

// GetGameByID returns a single game, or domain.ErrGameNotFound
func (c *Client) GetGameByID(ctx context.Context, id int64) (*domain.CatalogGame, error) {
	games, err := c.GetGamesByIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("game %d: %w", id, domain.ErrGameNotFound)
	}
	return &games[0], nil
}

// SearchGames runs a free-text search narrowed by filters
func (c *Client) SearchGames(ctx context.Context, term string, filters *domain.FilterSet) ([]domain.CatalogGame, error) {
	key := searchKey(term, filters)

	var cached []domain.CatalogGame
	if c.cacheGet(ctx, "search", key, &cached) {
		return cached, nil
	}

	var raw []rawGame
	if err := c.post(ctx, "games", BuildSearchQuery(term, filters), &raw); err != nil {
		return nil, err
	}

	games := make([]domain.CatalogGame, 0, len(raw))
	for _, g := range raw {
		games = append(games, mapGame(g))
	}
	c.cacheSet(ctx, key, games, SearchTTL)
	return games, nil
}

// GetGenres returns every catalog genre
func (c *Client) GetGenres(ctx context.Context) ([]domain.Genre, error) {
	var genres []domain.Genre
	if c.cacheGet(ctx, keyGenres, keyGenres, &genres) {
		return genres, nil
	}
	if err := c.post(ctx, "genres", referenceQuery, &genres); err != nil {
		return nil, err
	}
	c.cacheSet(ctx, keyGenres, genres, ReferenceTTL)
	return genres, nil
}

// GetPlatforms returns every catalog platform
func (c *Client) GetPlatforms(ctx context.Context) ([]domain.Platform, error) {
	var platforms []domain.Platform
	if c.cacheGet(ctx, keyPlatforms, keyPlatforms, &platforms) {
		return platforms, nil
	}
	if err := c.post(ctx, "platforms", referenceQuery, &platforms); err != nil {
		return nil, err
	}
	c.cacheSet(ctx, keyPlatforms, platforms, ReferenceTTL)
	return platforms, nil
}

// RefreshReferenceData re-fetches genres and platforms and overwrites the cache
func (c *Client) RefreshReferenceData(ctx context.Context) error {
	var genres []domain.Genre
	if err := c.post(ctx, "genres", referenceQuery, &genres); err != nil {
		return fmt.Errorf("refreshing genres: %w", err)
	}
	c.cacheSet(ctx, keyGenres, genres, ReferenceTTL)

	var platforms []domain.Platform
	if err := c.post(ctx, "platforms", referenceQuery, &platforms); err != nil {
		return fmt.Errorf("refreshing platforms: %w", err)
	}
	c.cacheSet(ctx, keyPlatforms, platforms, ReferenceTTL)

	c.logger.Info("reference data refreshed", "genres", len(genres), "platforms", len(platforms))
	return nil
}

func (c *Client) fetchGames(ctx context.Context, ids []int64) ([]domain.CatalogGame, error) {
	var raw []rawGame
	if err := c.post(ctx, "games", idListQuery(ids), &raw); err != nil {
		return nil, err
	}
	games := make([]domain.CatalogGame, 0, len(raw))
	for _, g := range raw {
		games = append(games, mapGame(g))
	}
	return games, nil
}

// post sends an Apicalypse query to endpoint and decodes the JSON answer into out
func (c *Client) post(ctx context.Context, endpoint, query string, out any) error {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint, query)
	})
	metrics.RecordUpstreamRequest(endpoint, time.Since(start), err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("igdb %s: %w: %v", endpoint, domain.ErrUpstream, err)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding igdb %s response: %w: %v", endpoint, domain.ErrUpstream, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, query string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewBufferString(query))
	if err != nil {
		return nil, fmt.Errorf("building igdb request: %w", err)
	}
	req.Header.Set("Client-ID", c.tokens.ClientID())
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("igdb %s: %w: %v", endpoint, domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading igdb %s response: %w: %v", endpoint, domain.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// cacheGet decodes the cached value for key into out. Cache failures count as misses.
func (c *Client) cacheGet(ctx context.Context, kind, key string, out any) bool {
	if c.cache == nil {
		return false
	}
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		ok = false
	}
	if ok {
		if err := json.Unmarshal(data, out); err != nil {
			c.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
			ok = false
		}
	}
	metrics.RecordCacheLookup(kind, ok)
	return ok
}

func (c *Client) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("encoding cache entry", "key", key, "error", err)
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func gameKey(id int64) string {
	return "game:" + strconv.FormatInt(id, 10)
}

// searchKey keys unfiltered searches on the term alone. Filtered searches
// append the rendered where-clause so differently filtered results never
// collide.
func searchKey(term string, filters *domain.FilterSet) string {
	key := "search:" + term
	if where := buildWhere(filters); where != "" {
		key += "|" + where
	}
	return key
}

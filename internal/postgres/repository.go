package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gaming-library/internal/config"
	"github.com/gaming-library/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Unique constraint names, used to tell duplicate kinds apart
const (
	constraintUsername       = "users_username_key"
	constraintEmail          = "users_email_key"
	constraintCollectionName = "uq_collections_user_name"
	constraintEntry          = "uq_collection_entries_collection_game"
)

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	db     querier
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(ctx context.Context, cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		db:     pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithTx runs fn inside a transaction. Calls on an already transactional
// repository reuse the current transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(domain.LibraryStore) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{db: tx, logger: r.logger})
	})
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(50) NOT NULL,
			email VARCHAR(255) NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT users_username_key UNIQUE (username),
			CONSTRAINT users_email_key UNIQUE (email)
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			id BIGSERIAL PRIMARY KEY,
			igdb_id BIGINT UNIQUE,
			name VARCHAR(255) NOT NULL,
			platform VARCHAR(100) NOT NULL,
			release_date DATE,
			cover_url TEXT,
			genre TEXT,
			CONSTRAINT uq_games_name_platform UNIQUE (name, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS collections (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(100) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_collections_user_name UNIQUE (user_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS collection_entries (
			id BIGSERIAL PRIMARY KEY,
			collection_id BIGINT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
			game_id BIGINT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			status VARCHAR(50),
			rating INT CHECK (rating BETWEEN 0 AND 10),
			notes TEXT,
			custom_tags JSONB,
			added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_collection_entries_collection_game UNIQUE (collection_id, game_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_collections_user ON collections(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_collection_entries_collection ON collection_entries(collection_id, added_at DESC, id DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.db.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// constraintViolated reports whether err is a unique violation of constraint
func constraintViolated(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

// CreateUser inserts a new user and fills in its ID and creation time
func (r *Repository) CreateUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, email, hashed_password, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	u.CreatedAt = time.Now().UTC()
	err := r.db.QueryRow(ctx, query, u.Username, u.Email, u.HashedPassword, u.IsActive, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		switch {
		case constraintViolated(err, constraintUsername):
			return domain.ErrUsernameTaken
		case constraintViolated(err, constraintEmail):
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

const selectUser = `SELECT id, username, email, hashed_password, is_active, created_at FROM users`

func (r *Repository) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, selectUser+" WHERE "+where, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.HashedPassword,
		&u.IsActive,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getUser(ctx, "id = $1", id)
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUser(ctx, "username = $1", username)
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, "email = $1", email)
}

// CreateCollection inserts a collection and fills in its ID and timestamps
func (r *Repository) CreateCollection(ctx context.Context, c *domain.Collection) error {
	query := `
		INSERT INTO collections (user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query, c.UserID, c.Name, c.Description, now).Scan(&c.ID)
	if err != nil {
		if constraintViolated(err, constraintCollectionName) {
			return domain.ErrDuplicateCollection
		}
		return fmt.Errorf("creating collection: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

const selectCollection = `SELECT id, user_id, name, description, created_at, updated_at FROM collections`

func scanCollection(row pgx.Row, c *domain.Collection, extra ...any) error {
	dest := append([]any{&c.ID, &c.UserID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt}, extra...)
	return row.Scan(dest...)
}

// GetCollection retrieves a collection by ID regardless of owner
func (r *Repository) GetCollection(ctx context.Context, id int64) (*domain.Collection, error) {
	var c domain.Collection
	if err := scanCollection(r.db.QueryRow(ctx, selectCollection+" WHERE id = $1", id), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("getting collection: %w", err)
	}
	return &c, nil
}

// FindCollectionByName retrieves a user's collection by exact name
func (r *Repository) FindCollectionByName(ctx context.Context, userID int64, name string) (*domain.Collection, error) {
	var c domain.Collection
	row := r.db.QueryRow(ctx, selectCollection+" WHERE user_id = $1 AND name = $2", userID, name)
	if err := scanCollection(row, &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("finding collection: %w", err)
	}
	return &c, nil
}

// ListCollections retrieves all collections owned by a user
func (r *Repository) ListCollections(ctx context.Context, userID int64) ([]domain.Collection, error) {
	rows, err := r.db.Query(ctx, selectCollection+" WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	collections := []domain.Collection{}
	for rows.Next() {
		var c domain.Collection
		if err := scanCollection(rows, &c); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// ListCollectionsWithCounts retrieves a user's collections with their entry counts
func (r *Repository) ListCollectionsWithCounts(ctx context.Context, userID int64) ([]domain.CollectionWithCount, error) {
	query := `
		SELECT c.id, c.user_id, c.name, c.description, c.created_at, c.updated_at,
			   COUNT(e.id) AS entry_count
		FROM collections c
		LEFT JOIN collection_entries e ON e.collection_id = c.id
		WHERE c.user_id = $1
		GROUP BY c.id
		ORDER BY c.id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing collections with counts: %w", err)
	}
	defer rows.Close()

	out := []domain.CollectionWithCount{}
	for rows.Next() {
		var c domain.CollectionWithCount
		if err := scanCollection(rows, &c.Collection, &c.EntryCount); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCollection persists name and description changes
func (r *Repository) UpdateCollection(ctx context.Context, c *domain.Collection) error {
	query := `
		UPDATE collections SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`
	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, query, c.ID, c.Name, c.Description, now)
	if err != nil {
		if constraintViolated(err, constraintCollectionName) {
			return domain.ErrDuplicateCollection
		}
		return fmt.Errorf("updating collection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrCollectionNotFound
	}
	c.UpdatedAt = now
	return nil
}

// DeleteCollection removes a collection; its entries cascade
func (r *Repository) DeleteCollection(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrCollectionNotFound
	}
	return nil
}

const selectGame = `SELECT id, igdb_id, name, platform, release_date, cover_url, genre FROM games`

func (r *Repository) getGame(ctx context.Context, where string, args ...any) (*domain.Game, error) {
	var g domain.Game
	err := r.db.QueryRow(ctx, selectGame+" WHERE "+where, args...).Scan(
		&g.ID,
		&g.IGDBID,
		&g.Name,
		&g.Platform,
		&g.ReleaseDate,
		&g.CoverURL,
		&g.Genre,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGameNotFound
		}
		return nil, fmt.Errorf("getting game: %w", err)
	}
	return &g, nil
}

// GetGameByIGDBID retrieves a local game by its catalog ID
func (r *Repository) GetGameByIGDBID(ctx context.Context, igdbID int64) (*domain.Game, error) {
	return r.getGame(ctx, "igdb_id = $1", igdbID)
}

// GetGameByNameAndPlatform retrieves a local game by its natural key
func (r *Repository) GetGameByNameAndPlatform(ctx context.Context, name, platform string) (*domain.Game, error) {
	return r.getGame(ctx, "name = $1 AND platform = $2", name, platform)
}

// CreateGame inserts a local game and fills in its ID
func (r *Repository) CreateGame(ctx context.Context, g *domain.Game) error {
	query := `
		INSERT INTO games (igdb_id, name, platform, release_date, cover_url, genre)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, g.IGDBID, g.Name, g.Platform, g.ReleaseDate, g.CoverURL, g.Genre).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("creating game: %w", err)
	}
	return nil
}

// EntryExists reports whether the game is already in the collection
func (r *Repository) EntryExists(ctx context.Context, collectionID, gameID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM collection_entries WHERE collection_id = $1 AND game_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, collectionID, gameID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking entry existence: %w", err)
	}
	return exists, nil
}

// CreateEntry inserts a collection entry and fills in its ID and timestamps
func (r *Repository) CreateEntry(ctx context.Context, e *domain.CollectionEntry) error {
	query := `
		INSERT INTO collection_entries (collection_id, game_id, status, rating, notes, custom_tags, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query, e.CollectionID, e.GameID, e.Status, e.Rating, e.Notes, e.CustomTags, now).Scan(&e.ID)
	if err != nil {
		if constraintViolated(err, constraintEntry) {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("creating entry: %w", err)
	}
	e.AddedAt = now
	e.UpdatedAt = now
	return nil
}

const selectEntry = `
	SELECT e.id, e.collection_id, e.game_id, e.status, e.rating, e.notes, e.custom_tags, e.added_at, e.updated_at,
		   g.id, g.igdb_id, g.name, g.platform, g.release_date, g.cover_url, g.genre
	FROM collection_entries e
	JOIN games g ON g.id = e.game_id
`

func scanEntry(row pgx.Row, e *domain.CollectionEntry) error {
	return row.Scan(
		&e.ID,
		&e.CollectionID,
		&e.GameID,
		&e.Status,
		&e.Rating,
		&e.Notes,
		&e.CustomTags,
		&e.AddedAt,
		&e.UpdatedAt,
		&e.Game.ID,
		&e.Game.IGDBID,
		&e.Game.Name,
		&e.Game.Platform,
		&e.Game.ReleaseDate,
		&e.Game.CoverURL,
		&e.Game.Genre,
	)
}

// GetEntry retrieves an entry of a collection with its game
func (r *Repository) GetEntry(ctx context.Context, collectionID, entryID int64) (*domain.CollectionEntry, error) {
	var e domain.CollectionEntry
	row := r.db.QueryRow(ctx, selectEntry+" WHERE e.collection_id = $1 AND e.id = $2", collectionID, entryID)
	if err := scanEntry(row, &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	return &e, nil
}

// ListEntries retrieves a collection's entries, newest first
func (r *Repository) ListEntries(ctx context.Context, collectionID int64) ([]domain.CollectionEntry, error) {
	rows, err := r.db.Query(ctx, selectEntry+" WHERE e.collection_id = $1 ORDER BY e.added_at DESC, e.id DESC", collectionID)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.CollectionEntry{}
	for rows.Next() {
		var e domain.CollectionEntry
		if err := scanEntry(rows, &e); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateEntry persists the mutable entry fields
func (r *Repository) UpdateEntry(ctx context.Context, e *domain.CollectionEntry) error {
	query := `
		UPDATE collection_entries
		SET status = $3, rating = $4, notes = $5, custom_tags = $6, updated_at = $7
		WHERE collection_id = $1 AND id = $2
	`
	now := time.Now().UTC()
	result, err := r.db.Exec(ctx, query, e.CollectionID, e.ID, e.Status, e.Rating, e.Notes, e.CustomTags, now)
	if err != nil {
		return fmt.Errorf("updating entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	e.UpdatedAt = now
	return nil
}

// DeleteEntry removes an entry from a collection
func (r *Repository) DeleteEntry(ctx context.Context, collectionID, entryID int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM collection_entries WHERE collection_id = $1 AND id = $2`, collectionID, entryID)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

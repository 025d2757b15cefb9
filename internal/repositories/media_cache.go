package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
)

// ErrNotFound is returned when no live row matches a lookup.
var ErrNotFound = errors.New("not found")

const mediaCacheColumns = `id, sequence, cache_key, title, artist, media_url, tier, query, created_at, updated_at, deleted_at`

// MediaCacheRepository implements models.Repository[*models.CacheEntry] for the resolution cache.
//
// Rows are soft deleted; the unique index on cache_key only covers live rows.
type MediaCacheRepository struct {
	db *sql.DB
}

// NewMediaCacheRepository creates a new MediaCacheRepository with the given database connection
func NewMediaCacheRepository(db *sql.DB) *MediaCacheRepository {
	return &MediaCacheRepository{db: db}
}

// Create inserts a new [models.CacheEntry] with generated ID and sequence
func (r *MediaCacheRepository) Create(entry *models.CacheEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "media_cache")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	media := entry.Media()

	query := `
		INSERT INTO media_cache (id, sequence, cache_key, title, artist, media_url, tier, query, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		entry.Key(),
		entry.Title(),
		entry.Artist(),
		media.URL,
		media.Tier.String(),
		media.Query,
		entry.CreatedAt(),
		entry.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	entry.SetID(id)
	entry.SetSequence(sequence)
	return nil
}

// Get retrieves an entry by ID, excluding soft-deleted rows
func (r *MediaCacheRepository) Get(id string) (*models.CacheEntry, error) {
	query := `SELECT ` + mediaCacheColumns + ` FROM media_cache WHERE id = ? AND deleted_at IS NULL`
	return scanCacheEntry(r.db.QueryRow(query, id))
}

// GetByKey retrieves the live entry for a normalized track key
func (r *MediaCacheRepository) GetByKey(key string) (*models.CacheEntry, error) {
	query := `SELECT ` + mediaCacheColumns + ` FROM media_cache WHERE cache_key = ? AND deleted_at IS NULL`
	return scanCacheEntry(r.db.QueryRow(query, key))
}

// Delete soft-deletes an entry by ID
func (r *MediaCacheRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE media_cache SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: cache entry %s", ErrNotFound, id)
	}
	return nil
}

// Clear soft-deletes every live entry and returns how many were removed
func (r *MediaCacheRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`UPDATE media_cache SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return result.RowsAffected()
}

// List retrieves live entries ordered by sequence.
//
// Supported criteria: "tier" (string) and "limit" (int).
func (r *MediaCacheRepository) List(criteria map[string]any) ([]*models.CacheEntry, error) {
	query := `SELECT ` + mediaCacheColumns + ` FROM media_cache WHERE deleted_at IS NULL`
	args := []any{}

	if tier, ok := criteria["tier"].(string); ok && tier != "" {
		query += " AND tier = ?"
		args = append(args, tier)
	}

	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	defer rows.Close()

	var entries []*models.CacheEntry
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCacheEntry(row scanner) (*models.CacheEntry, error) {
	var (
		id        string
		sequence  int
		key       string
		title     string
		artist    string
		url       string
		tier      string
		query     string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &key, &title, &artist, &url, &tier, &query, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cache entry", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache entry: %w", err)
	}

	parsed, err := models.ParseTier(tier)
	if err != nil {
		return nil, err
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	media := models.ResolvedMedia{URL: url, Tier: parsed, Query: query}
	return models.RestoreCacheEntry(id, sequence, key, title, artist, media, createdAt, updatedAt, deleted), nil
}

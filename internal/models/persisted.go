package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/songdl/internal/shared"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// CacheEntry is a remembered resolution for a normalized (title, artist) key.
type CacheEntry struct {
	id        string
	sequence  int
	key       string
	title     string
	artist    string
	media     ResolvedMedia
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewCacheEntry builds an unsaved entry for track.
func NewCacheEntry(track Track, media ResolvedMedia) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		key:       track.Key(),
		title:     track.Title(),
		artist:    track.Artist(),
		media:     media,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreCacheEntry rebuilds an entry read from storage.
func RestoreCacheEntry(id string, sequence int, key, title, artist string, media ResolvedMedia, createdAt, updatedAt time.Time, deletedAt *time.Time) *CacheEntry {
	return &CacheEntry{
		id:        id,
		sequence:  sequence,
		key:       key,
		title:     title,
		artist:    artist,
		media:     media,
		createdAt: createdAt,
		updatedAt: updatedAt,
		deletedAt: deletedAt,
	}
}

func (e *CacheEntry) ID() string            { return e.id }
func (e *CacheEntry) Sequence() int         { return e.sequence }
func (e *CacheEntry) Key() string           { return e.key }
func (e *CacheEntry) Title() string         { return e.title }
func (e *CacheEntry) Artist() string        { return e.artist }
func (e *CacheEntry) Media() ResolvedMedia  { return e.media }
func (e *CacheEntry) CreatedAt() time.Time  { return e.createdAt }
func (e *CacheEntry) UpdatedAt() time.Time  { return e.updatedAt }
func (e *CacheEntry) DeletedAt() *time.Time { return e.deletedAt }

func (e *CacheEntry) SetID(id string)          { e.id = id }
func (e *CacheEntry) SetSequence(sequence int) { e.sequence = sequence }

func (e *CacheEntry) Validate() error {
	switch {
	case e.key == "":
		return fmt.Errorf("%w: cache key is required", shared.ErrInvalidInput)
	case e.title == "":
		return shared.ErrEmptyTitle
	case e.media.URL == "":
		return fmt.Errorf("%w: media url is required", shared.ErrInvalidInput)
	}
	return nil
}

// RunRecord is one persisted line of the run ledger.
type RunRecord struct {
	id        string
	sequence  int
	runID     string
	title     string
	artist    string
	outcome   string
	filename  string
	mediaURL  string
	errText   string
	createdAt time.Time
}

// NewRunRecord flattens an acquisition result for storage.
func NewRunRecord(runID string, res AcquisitionResult) *RunRecord {
	r := &RunRecord{
		runID:     runID,
		title:     res.Track.Title(),
		artist:    res.Track.Artist(),
		outcome:   res.Outcome.String(),
		filename:  res.Filename,
		errText:   res.ErrorString(),
		createdAt: time.Now(),
	}
	if res.Media != nil {
		r.mediaURL = res.Media.URL
	}
	return r
}

// RestoreRunRecord rebuilds a record read from storage.
func RestoreRunRecord(id string, sequence int, runID, title, artist, outcome, filename, mediaURL, errText string, createdAt time.Time) *RunRecord {
	return &RunRecord{
		id:        id,
		sequence:  sequence,
		runID:     runID,
		title:     title,
		artist:    artist,
		outcome:   outcome,
		filename:  filename,
		mediaURL:  mediaURL,
		errText:   errText,
		createdAt: createdAt,
	}
}

func (r *RunRecord) ID() string           { return r.id }
func (r *RunRecord) Sequence() int        { return r.sequence }
func (r *RunRecord) RunID() string        { return r.runID }
func (r *RunRecord) Title() string        { return r.title }
func (r *RunRecord) Artist() string       { return r.artist }
func (r *RunRecord) Outcome() string      { return r.outcome }
func (r *RunRecord) Filename() string     { return r.filename }
func (r *RunRecord) MediaURL() string     { return r.mediaURL }
func (r *RunRecord) ErrorText() string    { return r.errText }
func (r *RunRecord) CreatedAt() time.Time { return r.createdAt }

func (r *RunRecord) SetID(id string)          { r.id = id }
func (r *RunRecord) SetSequence(sequence int) { r.sequence = sequence }

func (r *RunRecord) Validate() error {
	switch {
	case r.runID == "":
		return fmt.Errorf("%w: run id is required", shared.ErrInvalidInput)
	case r.title == "":
		return shared.ErrEmptyTitle
	case r.outcome == "":
		return fmt.Errorf("%w: outcome is required", shared.ErrInvalidInput)
	}
	return nil
}

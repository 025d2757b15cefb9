package repositories

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
)

// MediaCacheAdapter implements resolver.Cache using MediaCacheRepository.
//
// Duplicate keys are silently ignored (UNIQUE constraint violations).
// Lookup treats any storage error as a miss.
type MediaCacheAdapter struct {
	repo   *MediaCacheRepository
	logger *log.Logger
}

// NewMediaCacheAdapter creates a new MediaCacheAdapter with the given repository
func NewMediaCacheAdapter(repo *MediaCacheRepository, logger *log.Logger) *MediaCacheAdapter {
	if logger == nil {
		logger = log.Default()
	}
	return &MediaCacheAdapter{repo: repo, logger: logger}
}

func (a *MediaCacheAdapter) Lookup(track models.Track) (*models.ResolvedMedia, bool) {
	entry, err := a.repo.GetByKey(track.Key())
	if err != nil {
		return nil, false
	}
	media := entry.Media()
	return &media, true
}

// Store caches a fresh resolution. Pre-resolved and cached results are not stored again.
func (a *MediaCacheAdapter) Store(track models.Track, media models.ResolvedMedia) error {
	if media.Tier == models.TierPreResolved || media.Tier == models.TierCached {
		return nil
	}

	if err := a.repo.Create(models.NewCacheEntry(track, media)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache resolution: %w", err)
	}

	a.logger.Debug("cached resolution", "track", track.String(), "tier", media.Tier.String())
	return nil
}

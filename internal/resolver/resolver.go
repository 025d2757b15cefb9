// package resolver maps a track's metadata to a single media reference through an ordered list of
// search tiers, from most to least specific.
//
// Each tier issues exactly one search and the first hit wins. A search error counts as a miss.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/services"
	"github.com/desertthunder/songdl/internal/shared"
)

// DefaultOfficialSuffix is appended to the query of the most specific tier.
const DefaultOfficialSuffix = "official audio"

// Pacer pauses between consecutive network calls.
type Pacer interface {
	Pause(ctx context.Context) error
}

// Cache remembers earlier resolutions, keyed by [models.Track.Key].
type Cache interface {
	Lookup(track models.Track) (*models.ResolvedMedia, bool)
	Store(track models.Track, media models.ResolvedMedia) error
}

// Query is one planned search.
type Query struct {
	Tier models.Tier
	Text string
}

// Options configures a [Resolver]. Zero values are usable.
type Options struct {
	OfficialSuffix string
	Pacer          Pacer
	Cache          Cache
	Logger         *log.Logger
}

// Resolver runs the tiered search for one track at a time.
type Resolver struct {
	searcher services.Searcher
	suffix   string
	pacer    Pacer
	cache    Cache
	logger   *log.Logger
}

// New creates a Resolver backed by searcher.
func New(searcher services.Searcher, opts Options) *Resolver {
	suffix := strings.TrimSpace(opts.OfficialSuffix)
	if suffix == "" {
		suffix = DefaultOfficialSuffix
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		searcher: searcher,
		suffix:   suffix,
		pacer:    opts.Pacer,
		cache:    opts.Cache,
		logger:   logger,
	}
}

// Queries returns the tier plan for track, skipping queries identical to an earlier one.
func (r *Resolver) Queries(track models.Track) []Query {
	title, artist := track.Title(), track.Artist()

	var plan []Query
	if track.HasArtist() {
		plan = []Query{
			{models.TierOfficial, fmt.Sprintf("%s - %s %s", artist, title, r.suffix)},
			{models.TierPlain, fmt.Sprintf("%s %s", artist, title)},
			{models.TierFirstWord, fmt.Sprintf("%s %s", artist, firstWord(title))},
		}
	} else {
		plan = []Query{
			{models.TierOfficial, fmt.Sprintf("%s %s", title, r.suffix)},
			{models.TierPlain, title},
		}
	}

	seen := make(map[string]bool, len(plan))
	queries := plan[:0]
	for _, q := range plan {
		key := strings.ToLower(q.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, q)
	}
	return queries
}

// Resolve returns the media reference for track.
//
// Pre-resolved tracks and cache hits return without a search. Exhausting every tier returns an
// error wrapping [shared.ErrNoResult]. A cancelled context is returned as-is.
func (r *Resolver) Resolve(ctx context.Context, track models.Track) (*models.ResolvedMedia, error) {
	if track.IsPreResolved() {
		return &models.ResolvedMedia{URL: track.Media(), Tier: models.TierPreResolved}, nil
	}

	if r.cache != nil {
		if media, ok := r.cache.Lookup(track); ok {
			r.logger.Debug("cache hit", "track", track.String(), "url", media.URL)
			return &models.ResolvedMedia{URL: media.URL, Tier: models.TierCached, Query: media.Query}, nil
		}
	}

	for i, q := range r.Queries(track) {
		if i > 0 {
			if err := r.pause(ctx); err != nil {
				return nil, err
			}
		}

		media, err := r.attempt(ctx, q)
		if err != nil {
			return nil, err
		}
		if media != nil {
			r.remember(track, *media)
			return media, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", shared.ErrNoResult, track.String())
}

// DegradedQuery builds the last-resort query from the artist and the title stripped of qualifiers.
func DegradedQuery(track models.Track) string {
	return strings.TrimSpace(track.Artist() + " " + CleanTitle(track.Title()))
}

// ResolveDegraded makes one additional search with [DegradedQuery].
//
// It performs no search when that query already appears in the tier plan.
func (r *Resolver) ResolveDegraded(ctx context.Context, track models.Track) (*models.ResolvedMedia, error) {
	q := Query{Tier: models.TierDegraded, Text: DegradedQuery(track)}
	for _, planned := range r.Queries(track) {
		if strings.EqualFold(planned.Text, q.Text) {
			return nil, fmt.Errorf("%w: %s (degraded query already tried)", shared.ErrNoResult, track.String())
		}
	}

	media, err := r.attempt(ctx, q)
	if err != nil {
		return nil, err
	}
	if media == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoResult, track.String())
	}

	r.remember(track, *media)
	return media, nil
}

// attempt runs one search. Only a context error is returned; every other failure is a miss.
func (r *Resolver) attempt(ctx context.Context, q Query) (*models.ResolvedMedia, error) {
	r.logger.Debug("searching", "tier", q.Tier.String(), "query", q.Text)

	url, err := r.searcher.Search(ctx, q.Text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("search failed", "tier", q.Tier.String(), "query", q.Text, "error", err)
		return nil, nil
	}
	if url == "" {
		return nil, nil
	}
	return &models.ResolvedMedia{URL: url, Tier: q.Tier, Query: q.Text}, nil
}

func (r *Resolver) pause(ctx context.Context) error {
	if r.pacer == nil {
		return ctx.Err()
	}
	return r.pacer.Pause(ctx)
}

func (r *Resolver) remember(track models.Track, media models.ResolvedMedia) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Store(track, media); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Debug("cache store failed", "track", track.String(), "error", err)
	}
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

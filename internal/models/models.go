package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/songdl/internal/shared"
)

// PlaceholderTitle names tracks that arrive as a bare media URL.
const PlaceholderTitle = "Unknown Title"

// Track is one song reference produced by a source adapter.
//
// Tracks are immutable once constructed; [NewTrack] guarantees a non-empty title.
type Track struct {
	title  string
	artist string
	album  string
	media  string
}

// NewTrack trims its inputs and rejects an empty title with [shared.ErrEmptyTitle].
func NewTrack(title, artist, album string) (Track, error) {
	t := Track{
		title:  strings.TrimSpace(title),
		artist: strings.TrimSpace(artist),
		album:  strings.TrimSpace(album),
	}
	if t.title == "" {
		return Track{}, shared.ErrEmptyTitle
	}
	return t, nil
}

// WithMedia returns a copy of t carrying a pre-resolved media reference.
func (t Track) WithMedia(ref string) Track {
	t.media = strings.TrimSpace(ref)
	return t
}

func (t Track) Title() string       { return t.title }
func (t Track) Artist() string      { return t.artist }
func (t Track) Album() string       { return t.album }
func (t Track) Media() string       { return t.media }
func (t Track) HasArtist() bool     { return t.artist != "" }
func (t Track) IsPreResolved() bool { return t.media != "" }
func (t Track) Filename() string    { return shared.SanitizeFilename(t.artist, t.title) }
func (t Track) Key() string         { return shared.NormalizeTrackKey(t.title, t.artist) }

// String renders "artist - title", or just the title when no artist is known.
func (t Track) String() string {
	if t.artist == "" {
		return t.title
	}
	return t.artist + " - " + t.title
}

// Tier records which resolution path produced a media reference.
type Tier int

const (
	TierPreResolved Tier = iota
	TierOfficial
	TierPlain
	TierFirstWord
	TierDegraded
	TierCached
)

func (t Tier) String() string {
	switch t {
	case TierPreResolved:
		return "pre_resolved"
	case TierOfficial:
		return "official"
	case TierPlain:
		return "plain"
	case TierFirstWord:
		return "first_word"
	case TierDegraded:
		return "degraded"
	case TierCached:
		return "cached"
	default:
		return ""
	}
}

// ParseTier is the inverse of [Tier.String].
func ParseTier(s string) (Tier, error) {
	for t := TierPreResolved; t <= TierCached; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown tier %q", shared.ErrInvalidInput, s)
}

// ResolvedMedia is the outcome of a successful resolution. It lives only for one acquisition.
type ResolvedMedia struct {
	URL   string
	Tier  Tier
	Query string
}

// Outcome is the terminal status of one acquisition.
type Outcome int

const (
	Downloaded Outcome = iota
	SkippedExisting
	SkippedNoResult
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Downloaded:
		return "downloaded"
	case SkippedExisting:
		return "skipped_existing"
	case SkippedNoResult:
		return "skipped_no_result"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// ParseOutcome is the inverse of [Outcome.String].
func ParseOutcome(s string) (Outcome, error) {
	for o := Downloaded; o <= Failed; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown outcome %q", shared.ErrInvalidInput, s)
}

// Symbol is the single-glyph marker used on status lines.
func (o Outcome) Symbol() string {
	switch o {
	case Downloaded:
		return "✓"
	case SkippedExisting:
		return "="
	case SkippedNoResult:
		return "?"
	default:
		return "✗"
	}
}

// AcquisitionResult describes what happened to a single Track.
type AcquisitionResult struct {
	Track    Track
	Outcome  Outcome
	Filename string         // final filename (with extension) inside the output directory
	Media    *ResolvedMedia // nil unless resolution succeeded
	Err      error          // set for Failed and SkippedNoResult
	Tagged   bool
	Size     int64 // bytes of the committed file
	Duration time.Duration
}

// Networked reports whether the acquisition reached the search or download backend.
func (r AcquisitionResult) Networked() bool {
	return r.Outcome != SkippedExisting
}

// ErrorString returns the error text or an empty string.
func (r AcquisitionResult) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Quality is a validated bitrate setting.
type Quality string

const QualityBest Quality = "best"

// ParseQuality accepts 128, 192, 256, 320 or best.
func ParseQuality(s string) (Quality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !shared.ValidQuality(s) {
		return "", fmt.Errorf("%w: %q (choose one of %s)", shared.ErrInvalidQuality, s, strings.Join(shared.Qualities, ", "))
	}
	return Quality(s), nil
}

// Arg renders the value handed to the downloader's audio quality option.
func (q Quality) Arg() string {
	if q == QualityBest || q == "" {
		return "0"
	}
	return string(q) + "K"
}

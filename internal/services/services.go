package services

import (
	"context"

	"github.com/desertthunder/songdl/internal/models"
)

// Searcher finds at most one media reference for a free-text query.
type Searcher interface {
	// Search returns the top hit's media URL, or "" with a nil error when the query has no results.
	// Errors are transient failures (network, timeout, backend crash).
	Search(ctx context.Context, query string) (string, error)
}

// Downloader materializes audio for a media reference under a filename stem.
type Downloader interface {
	// Download writes the audio to stem plus an extension chosen by the backend.
	// The exact extension is not guaranteed; callers probe for the artifact.
	Download(ctx context.Context, mediaURL, stem string, opts DownloadOptions) error
}

// PlaylistExtractor lists the entries of a remote playlist without downloading them.
type PlaylistExtractor interface {
	ExtractPlaylist(ctx context.Context, playlistURL string) ([]PlaylistEntry, error)
}

// DownloadOptions selects the audio container and bitrate.
type DownloadOptions struct {
	Format  string
	Quality models.Quality
}

// PlaylistEntry is one item of an extracted playlist.
type PlaylistEntry struct {
	Title string // display name, often "Artist - Title"
	URL   string // watch URL usable as a pre-resolved media reference
}

// SpotifyTrack is the subset of Spotify track metadata a download needs.
type SpotifyTrack struct {
	Name   string
	Artist string
	Album  string
}

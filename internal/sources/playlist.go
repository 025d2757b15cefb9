package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/services"
)

// PlaylistSource expands a remote playlist into pre-resolved tracks.
type PlaylistSource struct {
	URL       string
	Extractor services.PlaylistExtractor
	Logger    *log.Logger
}

func (s *PlaylistSource) Describe() string { return "playlist:" + s.URL }

func (s *PlaylistSource) Tracks(ctx context.Context) ([]models.Track, error) {
	if s.Extractor == nil {
		return readFailure("no playlist extractor configured")
	}

	entries, err := s.Extractor.ExtractPlaylist(ctx, s.URL)
	if err != nil {
		return readFailure("extract %s: %v", s.URL, err)
	}

	return FromPlaylistEntries(entries, s.Logger), nil
}

// SplitDisplayName splits "Artist - Title" once on " - ". Names without the separator are title-only.
func SplitDisplayName(name string) (title, artist string) {
	if a, t, found := strings.Cut(name, " - "); found {
		return strings.TrimSpace(t), strings.TrimSpace(a)
	}
	return strings.TrimSpace(name), ""
}

// FromPlaylistEntries maps entries to tracks carrying their watch URL as a pre-resolved reference.
func FromPlaylistEntries(entries []services.PlaylistEntry, logger *log.Logger) []models.Track {
	tracks := []models.Track{}
	for i, e := range entries {
		title, artist := SplitDisplayName(e.Title)
		before := len(tracks)
		tracks = appendTrack(tracks, logger, fmt.Sprintf("entry %d", i+1), title, artist, "")
		if len(tracks) > before {
			tracks[len(tracks)-1] = tracks[len(tracks)-1].WithMedia(e.URL)
		}
	}
	return tracks
}

// SpotifyLister lists tracks behind a Spotify URL.
type SpotifyLister interface {
	Tracks(ctx context.Context, url string) ([]services.SpotifyTrack, string, error)
}

// SpotifySource reads a Spotify playlist, album or track. Tracks go through normal resolution.
type SpotifySource struct {
	URL    string
	Client SpotifyLister
	Logger *log.Logger
}

func (s *SpotifySource) Describe() string { return "spotify:" + s.URL }

func (s *SpotifySource) Tracks(ctx context.Context) ([]models.Track, error) {
	if s.Client == nil {
		return readFailure("spotify credentials not configured")
	}

	listing, name, err := s.Client.Tracks(ctx, s.URL)
	if err != nil {
		return readFailure("spotify %s: %v", s.URL, err)
	}
	if s.Logger != nil {
		s.Logger.Info("loaded spotify listing", "name", name, "tracks", len(listing))
	}

	tracks := []models.Track{}
	for i, st := range listing {
		tracks = appendTrack(tracks, s.Logger, fmt.Sprintf("spotify %d", i+1), st.Name, st.Artist, st.Album)
	}
	return tracks, nil
}

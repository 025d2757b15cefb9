// package sources turns heterogeneous inputs into an ordered list of [models.Track]
//
// Every adapter returns a non-nil slice. A source-level failure is reported as an error wrapping
// [shared.ErrSourceRead] alongside an empty slice; the caller decides whether that ends the run.
package sources

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/services"
	"github.com/desertthunder/songdl/internal/shared"
)

// Source produces the tracks for one run.
type Source interface {
	Tracks(ctx context.Context) ([]models.Track, error)
	Describe() string
}

// Kind names a source adapter.
type Kind int

const (
	KindLines Kind = iota
	KindCSV
	KindPlaylist
	KindSpotify
)

func (k Kind) String() string {
	switch k {
	case KindLines:
		return "lines"
	case KindCSV:
		return "csv"
	case KindPlaylist:
		return "playlist"
	case KindSpotify:
		return "spotify"
	default:
		return ""
	}
}

// Detect picks an adapter for a command-line argument.
func Detect(arg string) Kind {
	arg = strings.TrimSpace(arg)
	switch {
	case strings.HasSuffix(strings.ToLower(arg), ".csv"):
		return KindCSV
	case services.IsSpotifyURL(arg):
		return KindSpotify
	case services.IsPlaylistURL(arg):
		return KindPlaylist
	default:
		return KindLines
	}
}

// readFailure builds the empty-result diagnostic every adapter returns on a source-level failure.
func readFailure(format string, args ...any) ([]models.Track, error) {
	return []models.Track{}, fmt.Errorf("%w: %s", shared.ErrSourceRead, fmt.Sprintf(format, args...))
}

// openInput opens path, treating "-" as stdin.
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}

// appendTrack validates and appends, logging rows dropped for an empty title.
func appendTrack(tracks []models.Track, logger *log.Logger, where string, title, artist, album string) []models.Track {
	t, err := models.NewTrack(title, artist, album)
	if err != nil {
		if logger != nil {
			logger.Debug("dropping entry", "at", where, "reason", err)
		}
		return tracks
	}
	return append(tracks, t)
}

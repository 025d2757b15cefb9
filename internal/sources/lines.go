package sources

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/services"
)

// LinesSource reads free-text "Artist - Title" lines or bare media URLs, one per line.
//
// Path "-" reads from Stdin (or the process stdin when nil).
type LinesSource struct {
	Path   string
	Stdin  io.Reader
	Logger *log.Logger
}

func (s *LinesSource) Describe() string { return "lines:" + s.Path }

func (s *LinesSource) Tracks(ctx context.Context) ([]models.Track, error) {
	f, err := openInput(s.Path, s.Stdin)
	if err != nil {
		return readFailure("open %s: %v", s.Path, err)
	}
	defer f.Close()

	return ParseLines(f, s.Logger)
}

// ParseLine converts one line. ok is false for blank lines and # comments.
func ParseLine(line string) (title, artist, media string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", "", false
	}

	if ref := mediaURL(line); ref != "" {
		title = models.PlaceholderTitle
		if id := services.ParseVideoID(ref); id != "" {
			title = models.PlaceholderTitle + " " + id
		}
		return title, "", ref, true
	}

	if a, t, found := strings.Cut(line, "-"); found {
		return strings.TrimSpace(t), strings.TrimSpace(a), "", true
	}
	return line, "", "", true
}

// ParseLines reads every line of r, preserving order.
func ParseLines(r io.Reader, logger *log.Logger) ([]models.Track, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	tracks := []models.Track{}
	for n := 1; scanner.Scan(); n++ {
		title, artist, media, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}

		before := len(tracks)
		tracks = appendTrack(tracks, logger, fmt.Sprintf("line %d", n), title, artist, "")
		if media != "" && len(tracks) > before {
			tracks[len(tracks)-1] = tracks[len(tracks)-1].WithMedia(media)
		}
	}
	if err := scanner.Err(); err != nil {
		return readFailure("read lines: %v", err)
	}

	return tracks, nil
}

// mediaURL returns the first http(s) token of line, or "".
func mediaURL(line string) string {
	for _, token := range strings.Fields(line) {
		lower := strings.ToLower(token)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return token
		}
	}
	return ""
}

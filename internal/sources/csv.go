package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
)

const (
	titleHeader  = "track name"
	artistHeader = "artist name"
	albumHeader  = "album name"
)

// CSVSource reads an exported playlist spreadsheet.
type CSVSource struct {
	Path   string
	Logger *log.Logger
}

func (s *CSVSource) Describe() string { return "csv:" + s.Path }

// Tracks opens Path and parses it with [ReadCSV].
func (s *CSVSource) Tracks(ctx context.Context) ([]models.Track, error) {
	f, err := openInput(s.Path, nil)
	if err != nil {
		return readFailure("open %s: %v", s.Path, err)
	}
	defer f.Close()

	return ReadCSV(f, s.Logger)
}

// csvColumns holds the detected column index per field, -1 when absent.
type csvColumns struct {
	title, artist, album int
}

// detectColumns matches headers case-insensitively by substring. The first matching column wins.
func detectColumns(header []string) csvColumns {
	cols := csvColumns{title: -1, artist: -1, album: -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch {
		case cols.title < 0 && strings.Contains(h, titleHeader):
			cols.title = i
		case cols.artist < 0 && strings.Contains(h, artistHeader):
			cols.artist = i
		case cols.album < 0 && strings.Contains(h, albumHeader):
			cols.album = i
		}
	}
	return cols
}

// stripQuotes removes exactly one layer of matching wrapping quote characters.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return stripQuotes(record[idx])
}

// ReadCSV parses a header row plus records into tracks, dropping rows whose title is empty.
func ReadCSV(r io.Reader, logger *log.Logger) ([]models.Track, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return readFailure("empty csv")
	}
	if err != nil {
		return readFailure("read csv header: %v", err)
	}

	cols := detectColumns(header)
	if cols.title < 0 {
		return readFailure("no %q column in header %v", titleHeader, header)
	}

	tracks := []models.Track{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return readFailure("read csv line %d: %v", line, err)
		}

		tracks = appendTrack(tracks, logger, fmt.Sprintf("line %d", line),
			field(record, cols.title), field(record, cols.artist), field(record, cols.album))
	}

	return tracks, nil
}

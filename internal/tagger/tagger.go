// package tagger embeds title, artist and album metadata into downloaded audio files.
//
// Writing is best-effort: a failure is logged and reported as false, never returned as an error,
// so a tagging problem can not fail an acquisition.
package tagger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
	"github.com/dhowden/tag"
)

const id3Magic = "ID3"

// Fields is the metadata read back from a file.
type Fields struct {
	Title  string
	Artist string
	Album  string
	Format string
}

// Tagger writes ID3v2 frames into MP3 files in two independent passes.
type Tagger struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Tagger {
	if logger == nil {
		logger = log.Default()
	}
	return &Tagger{logger: logger}
}

// Tag writes title (and artist/album when non-empty) into the file at path.
//
// The first pass uses the high-level setters. The second pass replaces the raw TIT2/TPE1/TALB
// frames with explicit UTF-8 encoding and runs whatever the first pass did. Returns true when at
// least one pass saved.
func (t *Tagger) Tag(path, title, artist, album string) bool {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".mp3" {
		t.logger.Debug("skipping tags for unsupported container", "path", path, "ext", ext)
		return false
	}

	simple := t.guard("simple", path, func() error { return writeSimple(path, title, artist, album) })
	frames := t.guard("frames", path, func() error { return writeFrames(path, title, artist, album) })

	return simple || frames
}

// guard runs one pass, converting errors and panics into a logged false.
func (t *Tagger) guard(pass, path string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("tag pass panicked", "pass", pass, "path", path, "panic", r)
			ok = false
		}
	}()

	if err := fn(); err != nil {
		t.logger.Warn("tag pass failed", "pass", pass, "path", path, "error", err)
		return false
	}
	return true
}

func writeSimple(path, title, artist, album string) error {
	tg, err := open(path)
	if err != nil {
		return err
	}
	defer tg.Close()

	tg.SetVersion(4)
	tg.SetDefaultEncoding(id3v2.EncodingUTF8)
	tg.SetTitle(title)
	if artist != "" {
		tg.SetArtist(artist)
	}
	if album != "" {
		tg.SetAlbum(album)
	}

	if err := tg.Save(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func writeFrames(path, title, artist, album string) error {
	tg, err := open(path)
	if err != nil {
		return err
	}
	defer tg.Close()

	tg.SetVersion(4)
	setFrame(tg, "TIT2", title)
	setFrame(tg, "TPE1", artist)
	setFrame(tg, "TALB", album)

	if err := tg.Save(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func setFrame(tg *id3v2.Tag, id, value string) {
	if value == "" {
		return
	}
	tg.DeleteFrames(id)
	tg.AddTextFrame(id, id3v2.EncodingUTF8, value)
}

// open parses the tag at path, replacing an unsupported ID3v2.2 container with an empty one.
func open(path string) (*id3v2.Tag, error) {
	tg, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if errors.Is(err, id3v2.ErrUnsupportedVersion) {
		if stripErr := stripID3v2Tag(path); stripErr != nil {
			return nil, fmt.Errorf("strip unsupported tag: %w", stripErr)
		}
		tg, err = id3v2.Open(path, id3v2.Options{Parse: true})
	}
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return tg, nil
}

// stripID3v2Tag removes a leading ID3v2 container from the file, keeping the audio frames.
func stripID3v2Tag(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if len(data) < 10 || string(data[:3]) != id3Magic {
		return nil
	}

	// synchsafe: 7 bits per byte
	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	tagSize := size + 10
	if data[5]&0x10 != 0 {
		tagSize += 10
	}
	if tagSize >= len(data) {
		return fmt.Errorf("tag size %d exceeds file size %d", tagSize, len(data))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	return os.WriteFile(path, data[tagSize:], info.Mode())
}

// Read returns the embedded metadata of any container the tag reader understands.
func Read(path string) (*Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}

	return &Fields{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Format: string(m.Format()),
	}, nil
}

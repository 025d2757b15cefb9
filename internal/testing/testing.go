// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/songdl/internal/services"
)

// MockSearcher is a test double for [services.Searcher] keyed by exact query text.
type MockSearcher struct {
	mu      sync.Mutex
	Results map[string]string // query -> media URL
	Errors  map[string]error  // query -> search failure
	calls   []string
}

func NewMockSearcher(results map[string]string) *MockSearcher {
	return &MockSearcher{Results: results, Errors: map[string]error{}}
}

func (m *MockSearcher) Search(ctx context.Context, query string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, query)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := m.Errors[query]; ok {
		return "", err
	}
	return m.Results[query], nil
}

// Calls returns the queries searched so far, in order.
func (m *MockSearcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockDownloader is a test double for [services.Downloader] that writes a small file at stem+Ext.
type MockDownloader struct {
	mu         sync.Mutex
	Ext        string // extension appended to the stem, ".mp3" when empty
	Content    []byte
	Err        error // returned after writing (when Partial) or instead of writing
	Partial    bool  // write the artifact even when returning Err
	NoArtifact bool  // succeed without writing anything
	BareStem   bool  // write the artifact at stem with no extension
	urls       []string
	stems      []string
}

func (m *MockDownloader) Download(ctx context.Context, mediaURL, stem string, opts services.DownloadOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.urls = append(m.urls, mediaURL)
	m.stems = append(m.stems, stem)

	if m.Err != nil && !m.Partial {
		return m.Err
	}
	if m.NoArtifact {
		return m.Err
	}

	ext := m.Ext
	if ext == "" && !m.BareStem {
		ext = ".mp3"
	}
	content := m.Content
	if content == nil {
		content = []byte("audio")
	}
	if err := os.WriteFile(stem+ext, content, 0644); err != nil {
		return err
	}
	return m.Err
}

// URLs returns the media references downloaded so far.
func (m *MockDownloader) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.urls...)
}

// Stems returns the filename stems requested so far.
func (m *MockDownloader) Stems() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.stems...)
}

// MockTagger records tag requests and reports Result.
type MockTagger struct {
	mu     sync.Mutex
	Result bool
	Paths  []string
}

func (m *MockTagger) Tag(path, title, artist, album string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Paths = append(m.Paths, path)
	return m.Result
}

// MockExtractor is a test double for [services.PlaylistExtractor]
type MockExtractor struct {
	Entries []services.PlaylistEntry
	Err     error
}

func (m *MockExtractor) ExtractPlaylist(ctx context.Context, playlistURL string) ([]services.PlaylistEntry, error) {
	return m.Entries, m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

// AssertDirEntries checks that dir holds exactly the named files.
func AssertDirEntries(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read directory %s: %v", dir, err)
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	for _, e := range entries {
		if !want[e.Name()] {
			t.Errorf("Unexpected entry in %s: %s", dir, e.Name())
		}
		delete(want, e.Name())
	}
	for n := range want {
		t.Errorf("Missing entry in %s: %s", dir, n)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

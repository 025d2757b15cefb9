package tasks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/resolver"
	"github.com/desertthunder/songdl/internal/shared"
	tu "github.com/desertthunder/songdl/internal/testing"
)

var quiet = shared.NewLogger(&bytes.Buffer{})

type fixture struct {
	dir        string
	searcher   *tu.MockSearcher
	downloader *tu.MockDownloader
	tagger     *tu.MockTagger
	acquirer   *Acquirer
}

func newFixture(t *testing.T, results map[string]string, degraded bool) *fixture {
	t.Helper()
	f := &fixture{
		dir:        filepath.Join(t.TempDir(), "out"),
		searcher:   tu.NewMockSearcher(results),
		downloader: &tu.MockDownloader{},
		tagger:     &tu.MockTagger{Result: true},
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		t.Fatalf("failed to create output dir: %v", err)
	}
	f.acquirer = NewAcquirer(AcquirerOpts{
		OutputDir:     f.dir,
		Format:        "mp3",
		Quality:       "320",
		DegradedRetry: degraded,
		Resolver:      resolver.New(f.searcher, resolver.Options{Pacer: NoPacer{}, Logger: quiet}),
		Downloader:    f.downloader,
		Tagger:        f.tagger,
		Pacer:         NoPacer{},
		Logger:        quiet,
	})
	return f
}

func track(t *testing.T, title, artist string) models.Track {
	t.Helper()
	tr, err := models.NewTrack(title, artist, "Album")
	if err != nil {
		t.Fatalf("failed to build track: %v", err)
	}
	return tr
}

func TestAcquire(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads tags and commits", func(t *testing.T) {
		f := newFixture(t, map[string]string{"ACME - Midnight official audio": "https://yt/1"}, true)

		res := f.acquirer.Acquire(ctx, track(t, "Midnight", "ACME"), nil)
		if res.Outcome != models.Downloaded {
			t.Fatalf("expected Downloaded, got %v (%v)", res.Outcome, res.Err)
		}
		if res.Filename != "ACME - Midnight.mp3" || !res.Tagged {
			t.Errorf("unexpected result %+v", res)
		}
		if res.Media == nil || res.Media.Tier != models.TierOfficial {
			t.Errorf("expected official tier, got %+v", res.Media)
		}

		tu.AssertDirEntries(t, f.dir, "ACME - Midnight.mp3")
		if want := filepath.Join(f.dir, shared.StagingDir, "ACME - Midnight.mp3"); len(f.tagger.Paths) != 1 || f.tagger.Paths[0] != want {
			t.Errorf("expected tagging on staged path %s, got %v", want, f.tagger.Paths)
		}
		if want := filepath.Join(f.dir, shared.StagingDir, "ACME - Midnight"); len(f.downloader.Stems()) != 1 || f.downloader.Stems()[0] != want {
			t.Errorf("expected staged stem %s, got %v", want, f.downloader.Stems())
		}
	})

	t.Run("existing file skips network", func(t *testing.T) {
		f := newFixture(t, map[string]string{"ACME - Midnight official audio": "https://yt/1"}, true)
		tu.MustWriteFile(t, filepath.Join(f.dir, "ACME - Midnight.mp3"), []byte("kept"))

		res := f.acquirer.Acquire(ctx, track(t, "Midnight", "ACME"), nil)
		if res.Outcome != models.SkippedExisting || res.Networked() {
			t.Errorf("expected SkippedExisting, got %v", res.Outcome)
		}
		if len(f.searcher.Calls()) != 0 || len(f.downloader.URLs()) != 0 {
			t.Errorf("expected zero network calls, got %v / %v", f.searcher.Calls(), f.downloader.URLs())
		}
		if got := tu.MustReadFile(t, filepath.Join(f.dir, "ACME - Midnight.mp3")); got != "kept" {
			t.Errorf("existing file was modified: %q", got)
		}
	})

	t.Run("no result", func(t *testing.T) {
		f := newFixture(t, nil, true)

		res := f.acquirer.Acquire(ctx, track(t, "Nowhere", "Nobody"), nil)
		if res.Outcome != models.SkippedNoResult || !errors.Is(res.Err, shared.ErrNoResult) {
			t.Errorf("expected SkippedNoResult, got %v (%v)", res.Outcome, res.Err)
		}
		if len(f.downloader.URLs()) != 0 {
			t.Error("expected no download")
		}
		tu.AssertDirEntries(t, f.dir)
	})

	t.Run("degraded retry", func(t *testing.T) {
		f := newFixture(t, map[string]string{"ACME Midnight Dreams": "https://yt/d"}, true)

		res := f.acquirer.Acquire(ctx, track(t, "Midnight Dreams (Live at Wembley)", "ACME"), nil)
		if res.Outcome != models.Downloaded {
			t.Fatalf("expected Downloaded, got %v (%v)", res.Outcome, res.Err)
		}
		if res.Media.Tier != models.TierDegraded {
			t.Errorf("expected degraded tier, got %v", res.Media.Tier)
		}
		calls := f.searcher.Calls()
		if calls[len(calls)-1] != "ACME Midnight Dreams" {
			t.Errorf("expected degraded query last, got %v", calls)
		}
	})

	t.Run("degraded retry disabled", func(t *testing.T) {
		f := newFixture(t, map[string]string{"ACME Midnight Dreams": "https://yt/d"}, false)

		res := f.acquirer.Acquire(ctx, track(t, "Midnight Dreams (Live at Wembley)", "ACME"), nil)
		if res.Outcome != models.SkippedNoResult {
			t.Errorf("expected SkippedNoResult, got %v", res.Outcome)
		}
		if len(f.searcher.Calls()) != 3 {
			t.Errorf("expected only tier searches, got %v", f.searcher.Calls())
		}
	})

	t.Run("artifact missing", func(t *testing.T) {
		f := newFixture(t, map[string]string{"ACME - Midnight official audio": "https://yt/1"}, true)
		f.downloader.NoArtifact = true

		res := f.acquirer.Acquire(ctx, track(t, "Midnight", "ACME"), nil)
		if res.Outcome != models.Failed || !errors.Is(res.Err, shared.ErrArtifactMissing) {
			t.Fatalf("expected artifact missing failure, got %v (%v)", res.Outcome, res.Err)
		}
		if !strings.Contains(res.ErrorString(), "download artifact missing") {
			t.Errorf("unexpected error text %q", res.ErrorString())
		}
		tu.AssertDirEntries(t, f.dir)
	})

	t.Run("download failure removes partial artifact", func(t *testing.T) {
		f := newFixture(t, map[string]string{"ACME - Midnight official audio": "https://yt/1"}, true)
		f.downloader.Err = errors.New("connection reset")
		f.downloader.Partial = true
		f.downloader.Ext = ".webm"

		res := f.acquirer.Acquire(ctx, track(t, "Midnight", "ACME"), nil)
		if res.Outcome != models.Failed || !errors.Is(res.Err, shared.ErrDownload) {
			t.Fatalf("expected download failure, got %v (%v)", res.Outcome, res.Err)
		}
		tu.AssertDirEntries(t, f.dir)
	})

	t.Run("unexpected extensions are normalized", func(t *testing.T) {
		for _, ext := range []string{".webm", ".mp3.mp3", ".m4a", ""} {
			t.Run("ext"+ext, func(t *testing.T) {
				f := newFixture(t, map[string]string{"ACME - Midnight official audio": "https://yt/1"}, true)
				f.downloader.Ext = ext
				f.downloader.BareStem = ext == ""

				res := f.acquirer.Acquire(ctx, track(t, "Midnight", "ACME"), nil)
				if res.Outcome != models.Downloaded {
					t.Fatalf("expected Downloaded, got %v (%v)", res.Outcome, res.Err)
				}
				tu.AssertDirEntries(t, f.dir, "ACME - Midnight.mp3")
			})
		}
	})

	t.Run("tag failure is not fatal", func(t *testing.T) {
		f := newFixture(t, map[string]string{"ACME - Midnight official audio": "https://yt/1"}, true)
		f.tagger.Result = false

		res := f.acquirer.Acquire(ctx, track(t, "Midnight", "ACME"), nil)
		if res.Outcome != models.Downloaded || res.Tagged {
			t.Errorf("expected untagged download, got %v tagged=%v", res.Outcome, res.Tagged)
		}
		tu.AssertFileExists(t, filepath.Join(f.dir, "ACME - Midnight.mp3"))
	})

	t.Run("pre-resolved bypasses search", func(t *testing.T) {
		f := newFixture(t, nil, true)
		tr := track(t, "Unknown Title abc", "").WithMedia("https://www.youtube.com/watch?v=abc")

		res := f.acquirer.Acquire(ctx, tr, nil)
		if res.Outcome != models.Downloaded || res.Media.Tier != models.TierPreResolved {
			t.Fatalf("unexpected result %v (%v)", res.Outcome, res.Err)
		}
		if len(f.searcher.Calls()) != 0 {
			t.Errorf("expected no search, got %v", f.searcher.Calls())
		}
		if urls := f.downloader.URLs(); len(urls) != 1 || urls[0] != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("unexpected download urls %v", urls)
		}
	})

	t.Run("observer sees states in order", func(t *testing.T) {
		f := newFixture(t, map[string]string{"ACME - Midnight official audio": "https://yt/1"}, true)

		var states []State
		f.acquirer.Acquire(ctx, track(t, "Midnight", "ACME"), func(s State) { states = append(states, s) })

		want := []State{StateStart, StateCheckExisting, StateResolving, StateDownloading, StateTagging, StateCommitting, StateDone}
		if !reflect.DeepEqual(states, want) {
			t.Errorf("expected %v, got %v", want, states)
		}
	})

	t.Run("cancellation fails without artifacts", func(t *testing.T) {
		f := newFixture(t, map[string]string{"ACME - Midnight official audio": "https://yt/1"}, true)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		res := f.acquirer.Acquire(cctx, track(t, "Midnight", "ACME"), nil)
		if res.Outcome != models.Failed || !errors.Is(res.Err, context.Canceled) {
			t.Errorf("expected cancelled failure, got %v (%v)", res.Outcome, res.Err)
		}
		tu.AssertDirEntries(t, f.dir)
	})
}

type countingPacer struct {
	mu     sync.Mutex
	pauses int
}

func (p *countingPacer) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
	return ctx.Err()
}

type memoryRecorder struct {
	runIDs  []string
	results []models.AcquisitionResult
}

func (r *memoryRecorder) RecordResult(runID string, res models.AcquisitionResult) error {
	r.runIDs = append(r.runIDs, runID)
	r.results = append(r.results, res)
	return nil
}

func TestEngineRun(t *testing.T) {
	ctx := context.Background()
	hits := map[string]string{
		"ACME - Midnight official audio": "https://yt/1",
		"ACME - Sunrise official audio":  "https://yt/2",
	}

	t.Run("rerun is idempotent with zero network calls", func(t *testing.T) {
		f := newFixture(t, hits, true)
		engine := NewEngine(EngineOpts{OutputDir: f.dir, Acquirer: f.acquirer, Logger: quiet})
		tracks := []models.Track{track(t, "Midnight", "ACME"), track(t, "Sunrise", "ACME")}

		first, err := engine.Run(ctx, tracks, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if first.Downloaded != 2 {
			t.Fatalf("expected 2 downloads, got %+v", first)
		}

		searches, downloads := len(f.searcher.Calls()), len(f.downloader.URLs())

		second, err := engine.Run(ctx, tracks, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if second.SkippedExisting != 2 || second.Downloaded != 0 {
			t.Errorf("expected everything skipped, got %+v", second)
		}
		if len(f.searcher.Calls()) != searches || len(f.downloader.URLs()) != downloads {
			t.Error("expected no network calls on rerun")
		}
		tu.AssertDirEntries(t, f.dir, "ACME - Midnight.mp3", "ACME - Sunrise.mp3")
	})

	t.Run("failures do not abort the run", func(t *testing.T) {
		f := newFixture(t, hits, false)
		rec := &memoryRecorder{}
		engine := NewEngine(EngineOpts{OutputDir: f.dir, Acquirer: f.acquirer, Recorder: rec, Logger: quiet})
		tracks := []models.Track{track(t, "Midnight", "ACME"), track(t, "Lost", "Nobody"), track(t, "Sunrise", "ACME")}

		result, err := engine.Run(ctx, tracks, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Total != 3 || result.Processed() != 3 || result.Downloaded != 2 || result.SkippedNoResult != 1 {
			t.Errorf("unexpected counts %+v", result)
		}
		if result.Results[1].Track.Title() != "Lost" {
			t.Error("expected results in input order")
		}
		if len(rec.results) != 3 || rec.runIDs[0] != result.RunID {
			t.Errorf("expected every result recorded under the run id, got %d", len(rec.results))
		}
	})

	t.Run("sweeps stale temp files and creates output dir", func(t *testing.T) {
		f := newFixture(t, hits, true)
		stale := filepath.Join(f.dir, shared.StagingDir, "Old - Song.webm")
		tu.MustWriteFile(t, stale, []byte("junk"))
		nested := filepath.Join(f.dir, "nested")
		engine := NewEngine(EngineOpts{OutputDir: nested, Acquirer: f.acquirer, Logger: quiet})

		if _, err := engine.Run(ctx, nil, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertDirExists(t, nested)

		engine = NewEngine(EngineOpts{OutputDir: f.dir, Acquirer: f.acquirer, Logger: quiet})
		if _, err := engine.Run(ctx, nil, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertNoFile(t, stale)
		tu.AssertDirEntries(t, f.dir)
	})

	t.Run("rerun keeps files whose names look temporary", func(t *testing.T) {
		f := newFixture(t, map[string]string{"temp_mix official audio": "https://yt/mix"}, false)
		tracks := []models.Track{track(t, "temp_mix", "")}

		engine := NewEngine(EngineOpts{OutputDir: f.dir, Acquirer: f.acquirer, Logger: quiet})
		first, err := engine.Run(ctx, tracks, nil)
		if err != nil || first.Downloaded != 1 {
			t.Fatalf("expected first run to download, got %+v (%v)", first, err)
		}
		searches := len(f.searcher.Calls())

		second, err := engine.Run(ctx, tracks, nil)
		if err != nil || second.SkippedExisting != 1 {
			t.Fatalf("expected second run to skip, got %+v (%v)", second, err)
		}
		if len(f.downloader.URLs()) != 1 || len(f.searcher.Calls()) != searches {
			t.Errorf("expected no network calls on rerun, got %v / %v", f.searcher.Calls(), f.downloader.URLs())
		}
		tu.AssertDirEntries(t, f.dir, "temp_mix.mp3")
	})

	t.Run("paces only after networked tracks", func(t *testing.T) {
		f := newFixture(t, hits, true)
		tu.MustWriteFile(t, filepath.Join(f.dir, "ACME - Midnight.mp3"), []byte("kept"))
		pacer := &countingPacer{}
		engine := NewEngine(EngineOpts{OutputDir: f.dir, Acquirer: f.acquirer, Pacer: pacer, Logger: quiet})
		tracks := []models.Track{track(t, "Midnight", "ACME"), track(t, "Sunrise", "ACME"), track(t, "Midnight", "ACME")}

		if _, err := engine.Run(ctx, tracks, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pacer.pauses != 1 {
			t.Errorf("expected 1 pause, got %d", pacer.pauses)
		}
	})

	t.Run("progress yields one terminal update per track", func(t *testing.T) {
		f := newFixture(t, hits, true)
		engine := NewEngine(EngineOpts{OutputDir: f.dir, Acquirer: f.acquirer, Logger: quiet})
		tracks := []models.Track{track(t, "Midnight", "ACME"), track(t, "Lost", "Nobody")}

		progress := make(chan ProgressUpdate, 100)
		if _, err := engine.Run(ctx, tracks, progress); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		var done []ProgressUpdate
		var last ProgressUpdate
		for u := range progress {
			if u.Phase == TrackDone {
				done = append(done, u)
			}
			last = u
		}
		if len(done) != 2 {
			t.Fatalf("expected 2 TrackDone updates, got %d", len(done))
		}
		if done[1].Result.Outcome != models.SkippedNoResult || !strings.Contains(done[1].Message, "?") {
			t.Errorf("unexpected terminal update %+v", done[1])
		}
		if last.Phase != RunDone {
			t.Errorf("expected RunDone last, got %v", last.Phase)
		}
		if res, ok := last.Data.(*RunResult); !ok || res.Downloaded != 1 {
			t.Errorf("expected run result in RunDone data, got %#v", last.Data)
		}
	})

	t.Run("cancelled context stops early", func(t *testing.T) {
		f := newFixture(t, hits, true)
		engine := NewEngine(EngineOpts{OutputDir: f.dir, Acquirer: f.acquirer, Logger: quiet})
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := engine.Run(cctx, []models.Track{track(t, "Midnight", "ACME")}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result == nil || result.Processed() != 0 {
			t.Errorf("expected empty partial result, got %+v", result)
		}
	})

	t.Run("missing acquirer", func(t *testing.T) {
		engine := NewEngine(EngineOpts{OutputDir: t.TempDir()})
		if _, err := engine.Run(ctx, nil, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

type staticSource struct {
	tracks []models.Track
	err    error
}

func (s staticSource) Tracks(ctx context.Context) ([]models.Track, error) { return s.tracks, s.err }
func (s staticSource) Describe() string                                  { return "static" }

func TestRunSource(t *testing.T) {
	ctx := context.Background()

	t.Run("empty source is nothing to do", func(t *testing.T) {
		f := newFixture(t, nil, true)
		engine := NewEngine(EngineOpts{OutputDir: f.dir, Acquirer: f.acquirer, Logger: quiet})

		result, err := engine.RunSource(ctx, staticSource{tracks: []models.Track{}, err: shared.ErrSourceRead}, nil)
		if !errors.Is(err, shared.ErrSourceRead) {
			t.Errorf("expected source diagnostic, got %v", err)
		}
		if result.Total != 0 || result.Source != "static" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("runs loaded tracks", func(t *testing.T) {
		f := newFixture(t, map[string]string{"ACME - Midnight official audio": "https://yt/1"}, true)
		engine := NewEngine(EngineOpts{OutputDir: f.dir, Acquirer: f.acquirer, Logger: quiet})

		result, err := engine.RunSource(ctx, staticSource{tracks: []models.Track{track(t, "Midnight", "ACME")}}, nil)
		if err != nil || result.Downloaded != 1 || result.Source != "static" {
			t.Errorf("unexpected result %+v, %v", result, err)
		}
	})
}

func TestSweepTemp(t *testing.T) {
	dir := t.TempDir()
	staging := filepath.Join(dir, shared.StagingDir)
	tu.MustWriteFile(t, filepath.Join(staging, "a.mp3"), []byte("x"))
	tu.MustWriteFile(t, filepath.Join(staging, "b"), []byte("x"))
	tu.MustWriteFile(t, filepath.Join(dir, "Artist - Song.mp3"), []byte("x"))
	tu.MustWriteFile(t, filepath.Join(dir, "temp_notes.txt"), []byte("x"))

	n, err := SweepTemp(dir)
	if err != nil || n != 2 {
		t.Errorf("expected 2 removed, got %d (%v)", n, err)
	}
	tu.AssertDirEntries(t, dir, "Artist - Song.mp3", "temp_notes.txt")

	t.Run("keeps nested directories", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, shared.StagingDir, "sub"), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if n, err := SweepTemp(dir); n != 0 || err != nil {
			t.Errorf("expected nothing removed, got %d, %v", n, err)
		}
		tu.AssertDirExists(t, filepath.Join(dir, shared.StagingDir, "sub"))
	})

	if n, err := SweepTemp(filepath.Join(dir, "missing")); n != 0 || err != nil {
		t.Errorf("expected missing dir to be a no-op, got %d, %v", n, err)
	}
}

func TestJitterPacer(t *testing.T) {
	t.Run("delay within bounds", func(t *testing.T) {
		p := NewJitterPacer(10*time.Millisecond, 20*time.Millisecond)
		for range 50 {
			if d := p.Delay(); d < p.Min || d > p.Max {
				t.Fatalf("delay %v outside [%v, %v]", d, p.Min, p.Max)
			}
		}
	})

	t.Run("defaults", func(t *testing.T) {
		p := NewJitterPacer(0, 0)
		if p.Min != DefaultMinDelay || p.Max != DefaultMaxDelay {
			t.Errorf("unexpected defaults %v..%v", p.Min, p.Max)
		}
		if q := NewJitterPacer(2*time.Second, time.Second); q.Max != 2*time.Second {
			t.Errorf("expected max raised to min, got %v", q.Max)
		}
	})

	t.Run("cancellation interrupts pause", func(t *testing.T) {
		p := NewJitterPacer(time.Hour, time.Hour)
		cctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := p.Pause(cctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("short pause completes", func(t *testing.T) {
		p := NewJitterPacer(time.Millisecond, 2*time.Millisecond)
		if err := p.Pause(context.Background()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestEnums(t *testing.T) {
	if StateDownloading.String() != "downloading" || StateSkippedNoResult.String() != "skipped_no_result" {
		t.Error("unexpected state names")
	}
	if StateCommitting.Terminal() || !StateFailed.Terminal() {
		t.Error("unexpected terminal classification")
	}
	if TrackDone.String() != "track_done" || RunDone.String() != "run_done" || Phase(99).String() != "" {
		t.Error("unexpected phase names")
	}
}

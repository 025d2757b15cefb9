package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/resolver"
	"github.com/desertthunder/songdl/internal/services"
	"github.com/desertthunder/songdl/internal/shared"
)

// State is a step of the per-track acquisition state machine.
type State int

const (
	StateStart State = iota
	StateCheckExisting
	StateResolving
	StateDownloading
	StateTagging
	StateCommitting
	StateDone
	StateFailed
	StateSkippedExisting
	StateSkippedNoResult
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateCheckExisting:
		return "checking"
	case StateResolving:
		return "resolving"
	case StateDownloading:
		return "downloading"
	case StateTagging:
		return "tagging"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateSkippedExisting:
		return "skipped_existing"
	case StateSkippedNoResult:
		return "skipped_no_result"
	default:
		return ""
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s >= StateDone
}

// Resolver maps a track to a media reference.
type Resolver interface {
	Resolve(ctx context.Context, track models.Track) (*models.ResolvedMedia, error)
	ResolveDegraded(ctx context.Context, track models.Track) (*models.ResolvedMedia, error)
}

// Tagger embeds metadata into a file, reporting success as a bool.
type Tagger interface {
	Tag(path, title, artist, album string) bool
}

// AcquirerOpts wires an [Acquirer]. Tagger and Pacer are optional.
type AcquirerOpts struct {
	OutputDir     string
	Format        string
	Quality       models.Quality
	DegradedRetry bool
	Resolver      Resolver
	Downloader    services.Downloader
	Tagger        Tagger
	Pacer         resolver.Pacer
	Logger        *log.Logger
}

// Acquirer takes a single track from metadata to a committed, tagged file.
//
// A file only appears under its final name after a complete download. In-flight artifacts live
// in the [shared.StagingDir] subdirectory and are removed on every failure path.
type Acquirer struct {
	dir        string
	format     string
	quality    models.Quality
	degraded   bool
	resolver   Resolver
	downloader services.Downloader
	tagger     Tagger
	pacer      resolver.Pacer
	logger     *log.Logger
}

func NewAcquirer(opts AcquirerOpts) *Acquirer {
	format := opts.Format
	if format == "" {
		format = "mp3"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Acquirer{
		dir:        opts.OutputDir,
		format:     format,
		quality:    opts.Quality,
		degraded:   opts.DegradedRetry,
		resolver:   opts.Resolver,
		downloader: opts.Downloader,
		tagger:     opts.Tagger,
		pacer:      opts.Pacer,
		logger:     logger,
	}
}

// FinalPath is where a committed track lives.
func (a *Acquirer) FinalPath(track models.Track) string {
	return filepath.Join(a.dir, track.Filename()+"."+a.format)
}

func (a *Acquirer) tempStem(track models.Track) string {
	return filepath.Join(shared.StagingPath(a.dir), track.Filename())
}

// Acquire runs the state machine for track. observe, when non-nil, sees every state entered.
// Failures are reported in the result and never returned.
func (a *Acquirer) Acquire(ctx context.Context, track models.Track, observe func(State)) models.AcquisitionResult {
	start := time.Now()
	emit := func(s State) {
		if observe != nil {
			observe(s)
		}
	}
	finish := func(res models.AcquisitionResult, s State) models.AcquisitionResult {
		res.Duration = time.Since(start)
		emit(s)
		return res
	}

	emit(StateStart)
	res := models.AcquisitionResult{Track: track}
	final := a.FinalPath(track)
	res.Filename = filepath.Base(final)

	emit(StateCheckExisting)
	if shared.FileExists(final) {
		a.logger.Debug("already present", "file", res.Filename)
		res.Outcome = models.SkippedExisting
		return finish(res, StateSkippedExisting)
	}

	emit(StateResolving)
	media, err := a.resolve(ctx, track)
	if errors.Is(err, shared.ErrNoResult) {
		res.Outcome = models.SkippedNoResult
		res.Err = err
		return finish(res, StateSkippedNoResult)
	}
	if err != nil {
		res.Outcome = models.Failed
		res.Err = err
		return finish(res, StateFailed)
	}
	res.Media = media

	emit(StateDownloading)
	staging := shared.StagingPath(a.dir)
	if err := os.MkdirAll(staging, 0755); err != nil {
		res.Outcome = models.Failed
		res.Err = fmt.Errorf("%w: create staging directory: %v", shared.ErrFilesystem, err)
		return finish(res, StateFailed)
	}

	stem := a.tempStem(track)
	tempPath := stem + "." + a.format
	committed := false
	defer func() {
		if !committed {
			a.cleanup(stem)
		}
		// only succeeds once the staging directory is empty
		os.Remove(staging)
	}()

	opts := services.DownloadOptions{Format: a.format, Quality: a.quality}
	if err := a.downloader.Download(ctx, media.URL, stem, opts); err != nil {
		res.Outcome = models.Failed
		res.Err = fmt.Errorf("%w: %w", shared.ErrDownload, err)
		return finish(res, StateFailed)
	}

	if err := a.normalize(stem, tempPath); err != nil {
		res.Outcome = models.Failed
		res.Err = err
		return finish(res, StateFailed)
	}

	emit(StateTagging)
	if a.tagger != nil {
		res.Tagged = a.tagger.Tag(tempPath, track.Title(), track.Artist(), track.Album())
		if !res.Tagged {
			a.logger.Warn("could not write tags", "file", res.Filename)
		}
	}

	emit(StateCommitting)
	if err := os.Rename(tempPath, final); err != nil {
		res.Outcome = models.Failed
		res.Err = fmt.Errorf("%w: commit %s: %v", shared.ErrFilesystem, res.Filename, err)
		return finish(res, StateFailed)
	}
	committed = true
	if info, err := os.Stat(final); err == nil {
		res.Size = info.Size()
	}

	res.Outcome = models.Downloaded
	return finish(res, StateDone)
}

// resolve runs the tiers, then the degraded query when enabled and the tiers came up empty.
func (a *Acquirer) resolve(ctx context.Context, track models.Track) (*models.ResolvedMedia, error) {
	media, err := a.resolver.Resolve(ctx, track)
	if !errors.Is(err, shared.ErrNoResult) || !a.degraded {
		return media, err
	}

	if a.pacer != nil {
		if perr := a.pacer.Pause(ctx); perr != nil {
			return nil, perr
		}
	}
	a.logger.Debug("retrying with degraded query", "track", track.String())
	return a.resolver.ResolveDegraded(ctx, track)
}

// artifactCandidates lists where a backend may have written audio for stem, canonical name first.
func (a *Acquirer) artifactCandidates(stem string) []string {
	exts := []string{
		"." + a.format,
		"." + a.format + "." + a.format,
		".mp3", ".m4a", ".webm", ".opus", ".ogg", ".flac", ".wav",
		"",
	}

	seen := make(map[string]bool, len(exts))
	paths := make([]string, 0, len(exts))
	for _, ext := range exts {
		if seen[ext] {
			continue
		}
		seen[ext] = true
		paths = append(paths, stem+ext)
	}
	return paths
}

// normalize moves the first artifact found to the canonical temp path.
func (a *Acquirer) normalize(stem, tempPath string) error {
	for _, p := range a.artifactCandidates(stem) {
		if !shared.FileExists(p) {
			continue
		}
		if p == tempPath {
			return nil
		}
		if err := os.Rename(p, tempPath); err != nil {
			return fmt.Errorf("%w: normalize %s: %v", shared.ErrFilesystem, filepath.Base(p), err)
		}
		a.logger.Debug("normalized artifact", "from", filepath.Base(p), "to", filepath.Base(tempPath))
		return nil
	}
	return fmt.Errorf("%w: %s", shared.ErrArtifactMissing, filepath.Base(stem))
}

func (a *Acquirer) cleanup(stem string) {
	for _, p := range a.artifactCandidates(stem) {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			a.logger.Debug("cleanup failed", "path", p, "error", err)
		}
	}
}

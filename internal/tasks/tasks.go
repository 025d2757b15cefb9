package tasks

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/resolver"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/sources"
)

// RunResult aggregates every acquisition of a run, in input order.
type RunResult struct {
	RunID           string                     // Unique run identifier
	Source          string                     // Source description
	OutputDir       string                     // Directory finished files were written to
	Results         []models.AcquisitionResult // One entry per processed track
	Total           int                        // Tracks handed to the run
	Downloaded      int                        // Newly written files
	SkippedExisting int                        // Already present, no network
	SkippedNoResult int                        // No tier produced a hit
	Failed          int                        // Download, artifact or commit failures
	StartedAt       time.Time
	Duration        time.Duration
}

func (r *RunResult) add(res models.AcquisitionResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case models.Downloaded:
		r.Downloaded++
	case models.SkippedExisting:
		r.SkippedExisting++
	case models.SkippedNoResult:
		r.SkippedNoResult++
	case models.Failed:
		r.Failed++
	}
}

// Processed is the number of tracks that reached a terminal status.
func (r *RunResult) Processed() int {
	return len(r.Results)
}

// ResultRecorder persists per-track results, e.g. repositories.RunRepository.
//
// Recording is best-effort; errors are logged and never stop a run.
type ResultRecorder interface {
	RecordResult(runID string, res models.AcquisitionResult) error
}

// EngineOpts wires an [Engine]. Pacer, Recorder and Logger are optional.
type EngineOpts struct {
	OutputDir string
	Acquirer  *Acquirer
	Pacer     resolver.Pacer
	Recorder  ResultRecorder
	Logger    *log.Logger
}

// Engine processes a track list strictly sequentially with a single worker.
type Engine struct {
	dir      string
	acquirer *Acquirer
	pacer    resolver.Pacer
	recorder ResultRecorder
	logger   *log.Logger
}

func NewEngine(opts EngineOpts) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	pacer := opts.Pacer
	if pacer == nil {
		pacer = NoPacer{}
	}
	return &Engine{
		dir:      opts.OutputDir,
		acquirer: opts.Acquirer,
		pacer:    pacer,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// RunSource loads tracks from src and runs them.
//
// A source that yields nothing returns an empty result together with the source diagnostic, if any.
// The caller treats that as "nothing to do".
func (e *Engine) RunSource(ctx context.Context, src sources.Source, progress chan<- ProgressUpdate) (*RunResult, error) {
	sendProgress(progress, loadSourceUpdate(src.Describe()))

	tracks, err := src.Tracks(ctx)
	if err != nil {
		e.logger.Error("could not read source", "source", src.Describe(), "error", err)
	}
	if len(tracks) == 0 {
		return &RunResult{RunID: shared.GenerateID(), Source: src.Describe(), OutputDir: e.dir, StartedAt: time.Now()}, err
	}

	result, runErr := e.Run(ctx, tracks, progress)
	if result != nil {
		result.Source = src.Describe()
	}
	return result, runErr
}

// Run creates the output directory, sweeps stale temp files and acquires every track in order.
//
// Per-track failures are recorded in the result. Only cancellation stops the run early; the partial
// result is returned with the context error.
func (e *Engine) Run(ctx context.Context, tracks []models.Track, progress chan<- ProgressUpdate) (*RunResult, error) {
	if e.acquirer == nil {
		return nil, fmt.Errorf("%w: acquirer not initialized", shared.ErrServiceUnavailable)
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %v", shared.ErrFilesystem, err)
	}

	swept, err := SweepTemp(e.dir)
	if err != nil {
		e.logger.Warn("could not sweep temp files", "dir", e.dir, "error", err)
	}

	total := len(tracks)
	result := &RunResult{
		RunID:     shared.GenerateID(),
		OutputDir: e.dir,
		Total:     total,
		Results:   make([]models.AcquisitionResult, 0, total),
		StartedAt: time.Now(),
	}
	logger := shared.WithLogger(e.logger, "run_id", result.RunID)
	sendProgress(progress, prepareUpdate(total, e.dir, swept))

	var runErr error
	networked := false
	for i, track := range tracks {
		step := i + 1

		if networked {
			if err := e.pacer.Pause(ctx); err != nil {
				runErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		sendProgress(progress, acquireTrackUpdate(step, total, track))
		res := e.acquirer.Acquire(ctx, track, func(s State) {
			sendProgress(progress, trackStateUpdate(step, total, track, s))
		})

		result.add(res)
		e.record(result.RunID, res)
		logResult(logger, step, total, res)
		deliverProgress(ctx, progress, trackDoneUpdate(step, total, res))

		networked = res.Networked()
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
	}

	result.Duration = time.Since(result.StartedAt)
	deliverProgress(ctx, progress, runDoneUpdate(result))
	return result, runErr
}

func (e *Engine) record(runID string, res models.AcquisitionResult) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordResult(runID, res); err != nil {
		e.logger.Debug("could not record result", "track", res.Track.String(), "error", err)
	}
}

func logResult(logger *log.Logger, step, total int, res models.AcquisitionResult) {
	fields := []any{"step", step, "total", total, "track", res.Track.String(), "outcome", res.Outcome.String()}
	if res.Media != nil {
		fields = append(fields, "tier", res.Media.Tier.String())
	}

	switch res.Outcome {
	case models.Failed:
		logger.Error("track failed", append(fields, "error", res.Err)...)
	case models.SkippedNoResult:
		logger.Warn("no result", fields...)
	default:
		logger.Debug("track finished", fields...)
	}
}

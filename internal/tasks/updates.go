package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/songdl/internal/models"
)

// ProgressUpdate represents a progress event during a run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase                     // Operation phase
	Step    int                       // Current track number (1-based) within the run
	Total   int                       // Total tracks in the run
	Message string                    // Human-readable message for display
	Track   *models.Track             // Track being processed, if any
	State   State                     // Acquisition state for TrackState updates
	Result  *models.AcquisitionResult // Terminal result for TrackDone updates
	Data    any                       // *RunResult for RunDone
}

// Operation phase enumeration
type Phase int

const (
	LoadSource Phase = iota
	Prepare
	AcquireTrack
	TrackState
	TrackDone
	RunDone
)

func (p Phase) String() string {
	switch p {
	case LoadSource:
		return "load_source"
	case Prepare:
		return "prepare"
	case AcquireTrack:
		return "acquire_track"
	case TrackState:
		return "track_state"
	case TrackDone:
		return "track_done"
	case RunDone:
		return "run_done"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// deliverProgress blocks until the update is consumed or ctx is done.
// Terminal updates go through here so no track's final status is dropped.
func deliverProgress(ctx context.Context, progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	case <-ctx.Done():
	}
}

func loadSourceUpdate(desc string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadSource,
		Message: fmt.Sprintf("Loading tracks from %s...", desc),
	}
}

func prepareUpdate(total int, dir string, swept int) ProgressUpdate {
	msg := fmt.Sprintf("Writing %d tracks to %s", total, dir)
	if swept > 0 {
		msg += fmt.Sprintf(" (removed %d stale temp files)", swept)
	}
	return ProgressUpdate{
		Phase:   Prepare,
		Total:   total,
		Message: msg,
	}
}

func acquireTrackUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AcquireTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, tr.String()),
		Track:   &tr,
	}
}

func trackStateUpdate(step, total int, tr models.Track, s State) ProgressUpdate {
	return ProgressUpdate{
		Phase:   TrackState,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %s", step, total, tr.String(), s),
		Track:   &tr,
		State:   s,
	}
}

func trackDoneUpdate(step, total int, res models.AcquisitionResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s %s", step, total, res.Outcome.Symbol(), res.Track.String())
	switch res.Outcome {
	case models.SkippedExisting:
		msg += " (already present)"
	case models.SkippedNoResult:
		msg += " (no result)"
	case models.Failed:
		msg += ": " + res.ErrorString()
	}
	return ProgressUpdate{
		Phase:   TrackDone,
		Step:    step,
		Total:   total,
		Message: msg,
		Track:   &res.Track,
		Result:  &res,
	}
}

func runDoneUpdate(result *RunResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: RunDone,
		Step:  len(result.Results),
		Total: result.Total,
		Message: fmt.Sprintf("Done: %d downloaded, %d already present, %d not found, %d failed -> %s",
			result.Downloaded, result.SkippedExisting, result.SkippedNoResult, result.Failed, result.OutputDir),
		Data: result,
	}
}

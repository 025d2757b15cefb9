package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/tasks"
)

// Printer is the plain reporter: one styled line per finished track and a closing summary.
type Printer struct {
	w       io.Writer
	palette *Palette
	verbose bool
}

// NewPrinter writes to w. Verbose adds per-track state changes.
func NewPrinter(w io.Writer, verbose bool) *Printer {
	return &Printer{w: w, palette: styles, verbose: verbose}
}

// Consume prints every update until the channel is closed.
func (p *Printer) Consume(updates <-chan tasks.ProgressUpdate) {
	for update := range updates {
		p.Print(update)
	}
}

// Print renders a single update.
func (p *Printer) Print(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.LoadSource, tasks.Prepare:
		fmt.Fprintln(p.w, p.palette.help.Render(update.Message))
	case tasks.AcquireTrack, tasks.TrackState:
		if p.verbose {
			fmt.Fprintln(p.w, p.palette.help.Render(update.Message))
		}
	case tasks.TrackDone:
		if update.Result == nil {
			fmt.Fprintln(p.w, update.Message)
			return
		}
		fmt.Fprintln(p.w, p.palette.Line(*update.Result, update.Message))
	case tasks.RunDone:
		if result, ok := update.Data.(*tasks.RunResult); ok && result != nil {
			p.Summary(result)
			return
		}
		fmt.Fprintln(p.w, update.Message)
	}
}

// Summary prints the per-outcome counts, the tracks that need attention and the output location.
func (p *Printer) Summary(result *tasks.RunResult) {
	fmt.Fprintln(p.w)

	downloaded := fmt.Sprintf("%d downloaded", result.Downloaded)
	if size := TotalSize(result); size > 0 {
		downloaded += fmt.Sprintf(" (%s)", formatSize(size))
	}
	line := fmt.Sprintf("Done in %s: %s, %d already present, %d not found, %d failed",
		result.Duration.Round(time.Millisecond), downloaded, result.SkippedExisting, result.SkippedNoResult, result.Failed)
	fmt.Fprintln(p.w, p.palette.title.Render(line))

	for _, res := range result.Results {
		if res.Outcome != models.SkippedNoResult && res.Outcome != models.Failed {
			continue
		}
		entry := fmt.Sprintf("  %s %s", res.Outcome.Symbol(), res.Track.String())
		if msg := res.ErrorString(); msg != "" && res.Outcome == models.Failed {
			entry += ": " + msg
		}
		fmt.Fprintln(p.w, p.palette.Line(res, entry))
	}

	fmt.Fprintf(p.w, "Files are in %s\n", result.OutputDir)
}

// TotalSize sums the sizes of the files written by a run.
func TotalSize(result *tasks.RunResult) int64 {
	var total int64
	for _, res := range result.Results {
		if res.Outcome == models.Downloaded {
			total += res.Size
		}
	}
	return total
}

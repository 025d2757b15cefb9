package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/dustin/go-humanize"
)

var (
	_ list.DefaultItem = resultItem{}
)

// resultItem wraps [models.AcquisitionResult] to implement [list.DefaultItem].
type resultItem struct {
	result models.AcquisitionResult
}

func (i resultItem) FilterValue() string { return i.result.Track.String() }
func (i resultItem) Title() string {
	return i.result.Outcome.Symbol() + " " + i.result.Track.String()
}

func (i resultItem) Description() string {
	parts := []string{strings.ReplaceAll(i.result.Outcome.String(), "_", " ")}
	switch i.result.Outcome {
	case models.Downloaded:
		parts = append(parts, i.result.Filename)
		if i.result.Size > 0 {
			parts = append(parts, formatSize(i.result.Size))
		}
		if i.result.Media != nil {
			parts = append(parts, "via "+i.result.Media.Tier.String())
		}
	case models.Failed, models.SkippedNoResult:
		if msg := i.result.ErrorString(); msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, " • ")
}

// formatSize renders a byte count with SI unit names.
func formatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return strings.ReplaceAll(humanize.IBytes(uint64(bytes)), "iB", "B")
}

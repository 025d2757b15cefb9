package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/songdl/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette maps the parts of the download view and the plain printer to [lipgloss] styles.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds a palette from title, success, error, warning and muted colors.
func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// Outcome picks the style for a terminal track status.
func (p *Palette) Outcome(o models.Outcome) lipgloss.Style {
	switch o {
	case models.Downloaded:
		return p.ok
	case models.SkippedExisting:
		return p.help
	case models.SkippedNoResult:
		return p.warn
	default:
		return p.err
	}
}

// Line renders a finished track's status line in the style of its outcome.
func (p *Palette) Line(res models.AcquisitionResult, text string) string {
	return p.Outcome(res.Outcome).Render(text)
}

func NewStyle(fg string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(fg)) }
func NewBold(fg string) lipgloss.Style  { return NewStyle(fg).Bold(true) }
func NewEm(fg string) lipgloss.Style    { return NewStyle(fg).Italic(true) }

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/tasks"
	"github.com/desertthunder/songdl/internal/ui"
	"github.com/mattn/go-isatty"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// useFileLogger redirects logs to the configured file so they do not interfere with TUI rendering.
func (r *Runner) useFileLogger() error {
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	return nil
}

// runTUI runs the download view until the run finishes and the user quits.
func (r *Runner) runTUI(ctx context.Context, title string, run ui.RunFunc) (*tasks.RunResult, error) {
	model := ui.NewDownloadModel(ctx, title, run)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(r.output))

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}

	if m, ok := final.(*ui.DownloadModel); ok {
		return m.Result()
	}
	return model.Result()
}

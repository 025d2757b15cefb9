package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songdl/internal/tasks"
)

// RunFunc starts a run that reports through progress. It must not close the channel.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error)

// DownloadModel is the bubbletea view of a single download run.
type DownloadModel struct {
	ctx          context.Context
	cancel       context.CancelFunc
	title        string
	run          RunFunc
	progressChan chan tasks.ProgressUpdate
	done         chan runOutcome
	current      tasks.ProgressUpdate
	step         int
	total        int
	bar          progress.Model
	spinner      spinner.Model
	finished     list.Model
	result       *tasks.RunResult
	err          error
	complete     bool
	quitting     bool
	width        int
	height       int
	help         help.Model
	keys         keyMap
}

// NewDownloadModel creates the model. Quitting cancels ctx and waits for the run to stop.
func NewDownloadModel(ctx context.Context, title string, run RunFunc) *DownloadModel {
	ctx, cancel := context.WithCancel(ctx)

	finished := list.New(nil, list.NewDefaultDelegate(), 76, 12)
	finished.Title = "Finished"
	finished.SetFilteringEnabled(false)
	finished.SetShowHelp(false)
	finished.KeyMap.Quit.SetEnabled(false)
	finished.KeyMap.ForceQuit.SetEnabled(false)

	return &DownloadModel{
		ctx:      ctx,
		cancel:   cancel,
		title:    title,
		run:      run,
		bar:      progress.New(progress.WithDefaultGradient()),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		finished: finished,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the run and the spinner.
func (m *DownloadModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// Update handles incoming messages and updates the model state.
func (m *DownloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-4, 10)
		m.finished.SetSize(msg.Width-4, max(msg.Height-10, 4))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.quitting = true
			m.cancel()
			if m.complete {
				return m, tea.Quit
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.finished, cmd = m.finished.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if m.complete {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			return m, tea.Batch(m.apply(msg.data.(tasks.ProgressUpdate)), m.waitForProgress())
		case MsgRunComplete:
			outcome := msg.data.(runOutcome)
			m.result = outcome.result
			m.err = outcome.err
			m.complete = true
			m.progressChan = nil
			if m.quitting {
				return m, tea.Quit
			}
			return m, nil
		}
	}

	return m, nil
}

// View renders the progress bar, the in-flight track and the finished list.
func (m *DownloadModel) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.percent()))
	b.WriteString(fmt.Sprintf("  %d/%d\n\n", m.step, m.total))

	switch {
	case m.complete:
		b.WriteString(m.renderResult())
	case m.quitting:
		b.WriteString(styles.warn.Render("Cancelling, waiting for the current track to stop..."))
	case m.current.Message != "":
		b.WriteString(m.spinner.View() + " " + m.current.Message)
	default:
		b.WriteString(m.spinner.View() + " Starting...")
	}
	b.WriteString("\n\n")

	if len(m.finished.Items()) > 0 {
		b.WriteString(m.finished.View())
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Result returns the run outcome once the program has exited.
func (m *DownloadModel) Result() (*tasks.RunResult, error) {
	return m.result, m.err
}

// apply records an update and appends finished tracks to the list.
func (m *DownloadModel) apply(update tasks.ProgressUpdate) tea.Cmd {
	if update.Total > 0 {
		m.total = update.Total
	}

	switch update.Phase {
	case tasks.TrackDone:
		m.step = update.Step
		if update.Result != nil {
			return m.finished.InsertItem(len(m.finished.Items()), resultItem{result: *update.Result})
		}
	case tasks.RunDone:
		m.step = update.Step
		if result, ok := update.Data.(*tasks.RunResult); ok {
			m.result = result
		}
	default:
		m.current = update
	}
	return nil
}

func (m *DownloadModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.step) / float64(m.total)
}

// start runs the engine in the background. The outcome is handed over before the channel closes.
func (m *DownloadModel) start() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan runOutcome, 1)

	ch, done := m.progressChan, m.done
	go func() {
		result, err := m.run(m.ctx, ch)
		done <- runOutcome{result, err}
		close(ch)
	}()

	return m.waitForProgress()
}

func (m *DownloadModel) waitForProgress() tea.Cmd {
	ch, done := m.progressChan, m.done
	return func() tea.Msg {
		if ch == nil {
			return nil
		}
		update, ok := <-ch
		if !ok {
			outcome := <-done
			return runCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *DownloadModel) renderResult() string {
	if m.result == nil {
		return styles.err.Render(fmt.Sprintf("Run failed: %v", m.err))
	}

	line := fmt.Sprintf("Done: %d downloaded, %d already present, %d not found, %d failed",
		m.result.Downloaded, m.result.SkippedExisting, m.result.SkippedNoResult, m.result.Failed)
	out := styles.ok.Render(line) + "\nFiles are in " + m.result.OutputDir
	if m.err != nil {
		out += "\n" + styles.warn.Render(fmt.Sprintf("Stopped early: %v", m.err))
	}
	return out
}

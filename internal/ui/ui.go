package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"songlift/internal/models"
	"songlift/internal/tasks"
)

// RunFunc starts the pipeline and streams progress through the channel. The
// model closes over the profile and options; the UI only drives display.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.PipelineResult, error)

// Model renders live pipeline progress: a spinner for open-ended phases, a
// progress bar for counted ones, and a summary once the run completes.
type Model struct {
	ctx     context.Context
	profile string
	run     RunFunc

	spinner spinner.Model
	bar     progress.Model
	keys    keyMap

	progressChan chan tasks.ProgressUpdate
	current      tasks.ProgressUpdate
	result       *tasks.PipelineResult
	err          error
	done         bool
	width        int
}

// NewModel creates a progress model for one pipeline run.
func NewModel(ctx context.Context, profile string, run RunFunc) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = NewStyle("#7D56F4")

	return &Model{
		ctx:     ctx,
		profile: profile,
		run:     run,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		keys:    newKeyMap(),
	}
}

// Init starts the pipeline goroutine and the spinner.
func (m *Model) Init() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		result, err := m.run(m.ctx, m.progressChan)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgress:
			m.current = msg.data.(tasks.ProgressUpdate)
			return m, m.waitForProgress()
		case MsgRunComplete:
			data := msg.data.(struct {
				result *tasks.PipelineResult
				err    error
			})
			m.result = data.result
			m.err = data.err
			m.done = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the current phase, or the run summary once complete.
func (m *Model) View() string {
	if m.done {
		return m.renderResult()
	}

	title := styles.title.Render(fmt.Sprintf("songlift: @%s", m.profile))

	line := m.current.Message
	if line == "" {
		line = "Starting..."
	}

	body := fmt.Sprintf("%s %s", m.spinner.View(), line)
	if m.showBar() {
		pct := float64(m.current.Step) / float64(m.current.Total)
		body = fmt.Sprintf("%s\n\n%s", body, m.bar.ViewAs(pct))
	}

	helpView := styles.help.Render("q: quit")
	return fmt.Sprintf("%s\n%s\n\n%s\n", title, body, helpView)
}

// showBar reports whether the current phase has a meaningful step count.
func (m *Model) showBar() bool {
	if m.current.Total <= 1 {
		return false
	}
	switch m.current.Phase {
	case tasks.ScrapeVideos, tasks.ClassifyTitles, tasks.SearchTracks, tasks.AddTracks:
		return true
	default:
		return false
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return runCompleteMsg(m.result, m.err)
		}
		return progressMsg(update)
	}
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Pipeline failed: %v\n", m.err))
	}

	if m.result == nil {
		return styles.warn.Render("No result available\n")
	}

	title := styles.ok.Render("Pipeline complete")

	var info string
	if m.result.Scrape != nil {
		info = fmt.Sprintf(
			"\nProfile: @%s\nVideos scraped: %d\nUnique titles: %d\nSongs identified: %d",
			m.result.Scrape.Profile,
			m.result.Scrape.TotalVideosScraped,
			len(m.result.Scrape.UniqueTitles),
			models.CountRealSongs(m.result.Songs),
		)
	}

	var playlist string
	if m.result.Playlist != nil {
		playlist = fmt.Sprintf(
			"\n\nPlaylist: %s (%d tracks)\n%s",
			m.result.Playlist.Name,
			m.result.Playlist.TracksAdded,
			m.result.Playlist.WebURL,
		)
	} else {
		playlist = styles.warn.Render("\n\nNo playlist created")
	}

	return fmt.Sprintf("%s%s%s\n", title, info, playlist)
}

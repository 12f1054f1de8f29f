// Package tui is the interactive viewer: a bubbletea program that paces the
// scheduler at the display refresh rate and renders the materialized block
// list into a scrollable viewport.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"streamdown/internal/metrics"
	"streamdown/internal/pipeline"
	"streamdown/internal/schedule"
	"streamdown/internal/view"
)

type (
	tickMsg time.Time
	// changedMsg arrives when the sink's contents changed outside a drain,
	// e.g. a retraction during Clear.
	changedMsg struct{}
	// doneMsg arrives when the input stream is exhausted.
	doneMsg struct{ err error }
)

type Model struct {
	pipe    *pipeline.Pipeline
	sched   *schedule.Scheduler
	list    *view.List
	sampler *metrics.Sampler

	refresh   time.Duration
	backoff   time.Duration
	showStats bool

	spinner      spinner.Model
	changed      chan struct{}
	done         chan error
	width        int
	height       int
	scrollOffset int
	streaming    bool
	err          error
	quitting     bool
}

// Options configures the viewer.
type Options struct {
	Pipeline  *pipeline.Pipeline
	Scheduler *schedule.Scheduler
	List      *view.List
	Sampler   *metrics.Sampler
	Refresh   time.Duration
	Backoff   time.Duration
	ShowStats bool
	// Done is closed (or receives an error) when the feed goroutine finishes.
	Done chan error
}

func New(opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 4 * opts.Refresh
	}

	m := &Model{
		pipe:      opts.Pipeline,
		sched:     opts.Scheduler,
		list:      opts.List,
		sampler:   opts.Sampler,
		refresh:   opts.Refresh,
		backoff:   backoff,
		showStats: opts.ShowStats,
		spinner:   s,
		changed:   make(chan struct{}, 1),
		done:      opts.Done,
		streaming: true,
	}
	m.list.OnChange(func() {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.tick(m.refresh),
		m.spinner.Tick,
		m.listenChanged(),
		m.listenDone(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.Resize(msg.Width)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		if m.streaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tickMsg:
		more := m.sched.Drain()
		m.sched.SetRenderedUnits(m.list.Len())
		if m.sampler != nil {
			m.sampler.Frame()
		}
		next := m.refresh
		if m.sched.Overrun() {
			next = m.backoff
		}
		if more || m.streaming {
			cmds = append(cmds, m.tick(next))
		}

	case changedMsg:
		cmds = append(cmds, m.listenChanged())

	case doneMsg:
		m.streaming = false
		m.err = msg.err
		// One more tick to flush whatever the converter was still working on.
		cmds = append(cmds, m.tick(m.refresh))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.scrollOffset++
	case "down", "j":
		if m.scrollOffset > 0 {
			m.scrollOffset--
		}
	case "pgup":
		m.scrollOffset += m.bodyHeight()
	case "pgdown":
		m.scrollOffset -= m.bodyHeight()
		if m.scrollOffset < 0 {
			m.scrollOffset = 0
		}
	case "home":
		m.scrollOffset = m.list.TotalHeight() - m.bodyHeight()
		if m.scrollOffset < 0 {
			m.scrollOffset = 0
		}
	case "end", "G":
		m.scrollOffset = 0
	case "ctrl+l":
		m.scrollOffset = 0
		m.pipe.Clear()
	}
	return m, nil
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.list.Visible(m.bodyHeight(), m.scrollOffset))

	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	return b.String()
}

func (m *Model) bodyHeight() int {
	h := m.height - 2
	if h < 1 {
		h = 24
	}
	return h
}

func (m *Model) renderStatusLine() string {
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var parts []string
	if m.streaming {
		parts = append(parts, m.spinner.View()+"streaming")
	} else if m.err != nil {
		parts = append(parts, "error: "+m.err.Error())
	} else {
		parts = append(parts, "done")
	}

	stats := m.pipe.Stats()
	parts = append(parts, fmt.Sprintf("%d blocks", stats.MaterializedBlocks))
	if stats.QueuedBlocks > 0 {
		parts = append(parts, fmt.Sprintf("%d queued", stats.QueuedBlocks))
	}
	if m.scrollOffset > 0 {
		parts = append(parts, fmt.Sprintf("scroll +%d", m.scrollOffset))
	}
	if m.showStats && m.sampler != nil {
		snap := m.sampler.Snapshot()
		parts = append(parts, fmt.Sprintf("%.0f fps", snap.FPS))
		parts = append(parts, fmt.Sprintf("%.1f MiB", float64(snap.HeapBytes)/(1024*1024)))
	}

	return muted.Render(strings.Join(parts, " · "))
}

func (m *Model) tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) listenChanged() tea.Cmd {
	return func() tea.Msg {
		<-m.changed
		return changedMsg{}
	}
}

func (m *Model) listenDone() tea.Cmd {
	return func() tea.Msg {
		err, ok := <-m.done
		if !ok {
			return doneMsg{}
		}
		return doneMsg{err: err}
	}
}

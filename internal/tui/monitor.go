// Package tui holds the interactive surfaces: a live placement monitor on
// bubbletea and a first-run setup wizard on huh. Both talk to the agent
// only through the control socket.
package tui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wsanchor/wsanchor/internal/control"
	"github.com/wsanchor/wsanchor/internal/identity"
)

// Agent is the slice of the control socket client the monitor polls.
type Agent interface {
	Status() (*control.StatusData, error)
	Windows() ([]identity.WindowStatus, error)
}

var _ Agent = (*control.Client)(nil)

const refreshInterval = time.Second

// snapshotMsg carries one poll of the control socket.
type snapshotMsg struct {
	status  *control.StatusData
	windows []identity.WindowStatus
	err     error
}

type tickMsg time.Time

// monitorModel is the root bubbletea model for the live monitor.
type monitorModel struct {
	agent Agent

	status  *control.StatusData
	windows []identity.WindowStatus
	err     error

	liveOnly bool
	width    int
	height   int
}

func newMonitorModel(agent Agent) monitorModel {
	return monitorModel{agent: agent}
}

// Init implements tea.Model.
func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(m.poll(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) poll() tea.Cmd {
	agent := m.agent
	return func() tea.Msg {
		status, err := agent.Status()
		if err != nil {
			return snapshotMsg{err: err}
		}
		windows, err := agent.Windows()
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{status: status, windows: windows}
	}
}

// Update implements tea.Model.
func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "l":
			m.liveOnly = !m.liveOnly
			return m, nil
		case "r":
			return m, m.poll()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.poll(), tick())

	case snapshotMsg:
		if msg.err != nil {
			// Keep the last snapshot on screen; the status bar shows the
			// agent as unreachable.
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		m.windows = msg.windows
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m monitorModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.err, m.width)
	helpBar := renderHelpBar(m.width)

	contentHeight := m.height - lipgloss.Height(statusBar) - lipgloss.Height(helpBar)
	if contentHeight < 1 {
		contentHeight = 1
	}
	content := renderWindowTable(m.visibleWindows(), m.width, contentHeight)

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		content,
		helpBar,
	)
}

func (m monitorModel) visibleWindows() []identity.WindowStatus {
	if !m.liveOnly {
		return m.windows
	}
	live := make([]identity.WindowStatus, 0, len(m.windows))
	for _, w := range m.windows {
		if w.Live {
			live = append(live, w)
		}
	}
	return live
}

// RunMonitor runs the live monitor until the user quits.
func RunMonitor(agent Agent) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("monitor requires an interactive terminal")
	}

	p := tea.NewProgram(newMonitorModel(agent), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor failed: %w", err)
	}
	return nil
}

package cli

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/panerun/panerun/pkg/models"
	"github.com/panerun/panerun/pkg/process"
)

type phase int

const (
	phaseActive phase = iota
	phaseShuttingDown
)

type tickMsg time.Time

type lifecycleMsg struct {
	index  int
	action string
	err    error
}

type shutdownDoneMsg struct{}

// paneModel is the TUI state: one pane per supervised process.
type paneModel struct {
	sup      *process.Supervisor
	km       keyMap
	views    []models.ProcessView
	selected int
	width    int
	height   int
	phase    phase
	status   string
}

func newPaneModel(sup *process.Supervisor) paneModel {
	return paneModel{
		sup:   sup,
		km:    defaultKeyMap(sup.Len()),
		views: sup.Snapshot(),
	}
}

func (m paneModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m paneModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.phase == phaseShuttingDown {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.km.Quit):
			m.phase = phaseShuttingDown
			return m, m.shutdownCmd()
		case key.Matches(msg, m.km.Toggle):
			return m.toggleSelected()
		case key.Matches(msg, m.km.Up):
			m.scroll(1)
		case key.Matches(msg, m.km.Down):
			m.scroll(-1)
		case key.Matches(msg, m.km.PageUp):
			m.scroll(m.paneBodyHeight())
		case key.Matches(msg, m.km.PageDown):
			m.scroll(-m.paneBodyHeight())
		default:
			for i, b := range m.km.Select {
				if key.Matches(msg, b) {
					m.selected = i
					break
				}
			}
		}
		return m, nil

	case tea.MouseMsg:
		if m.phase == phaseShuttingDown {
			return m, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scroll(1)
		case tea.MouseButtonWheelDown:
			m.scroll(-1)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.views = m.sup.Snapshot()
		return m, tickCmd()

	case lifecycleMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = ""
		}
		m.views = m.sup.Snapshot()
		return m, nil

	case shutdownDoneMsg:
		return m, tea.Quit
	}
	return m, nil
}

// toggleSelected stops a live process or restarts a stopped one. The
// transition can block for the whole grace period, so it runs as a command
// off the update loop.
func (m paneModel) toggleSelected() (tea.Model, tea.Cmd) {
	if m.selected < 0 || m.selected >= len(m.views) {
		return m, nil
	}
	action, ok := m.views[m.selected].Toggleable()
	if !ok {
		return m, nil
	}
	idx := m.selected
	sup := m.sup
	return m, func() tea.Msg {
		var err error
		switch action {
		case "stop":
			err = sup.Stop(idx)
		case "restart":
			err = sup.Restart(idx)
		}
		return lifecycleMsg{index: idx, action: action, err: err}
	}
}

func (m paneModel) shutdownCmd() tea.Cmd {
	sup := m.sup
	return func() tea.Msg {
		sup.Shutdown()
		return shutdownDoneMsg{}
	}
}

func (m *paneModel) scroll(delta int) {
	if m.selected < 0 || m.selected >= m.sup.Len() {
		return
	}
	_ = m.sup.Scroll(m.selected, delta)
	m.views = m.sup.Snapshot()
}

// paneBodyHeight is the output-line capacity of one pane at the current
// terminal size, used as the page-scroll delta.
func (m paneModel) paneBodyHeight() int {
	n := len(m.views)
	if n == 0 {
		return 1
	}
	h := m.height
	if h <= 0 {
		h = 24
	}
	body := (h-chromeHeight)/n - 1
	if body < 1 {
		body = 1
	}
	return body
}

func (m paneModel) View() string {
	return renderScreen(m.views, m.selected, m.width, m.height,
		m.phase == phaseShuttingDown, m.status, m.km.helpLine())
}

// Package monitor provides the Bubbletea terminal monitor for a running
// cleandl daemon.
package monitor

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessro/cleandl/internal/daemon"
)

// DefaultPollInterval is how often the daemon status is refreshed.
const DefaultPollInterval = time.Second

// maxOutcomes bounds the outcome log.
const maxOutcomes = 500

// Client is the subset of daemon.Client the monitor uses.
type Client interface {
	Status() (*daemon.StatusResponse, error)
	StreamEvents(states []string) (<-chan daemon.EventResult, error)
	StopEventStream()
}

// Model is the Bubbletea model for the monitor.
type Model struct {
	// Window dimensions
	width  int
	height int
	ready  bool

	client       Client
	pollInterval time.Duration

	status     *daemon.StatusResponse
	lastUpdate time.Time
	connected  bool

	// Outcome log, oldest first
	outcomes []daemon.OutcomeInfo
	seeded   bool
	log      viewport.Model

	eventChan <-chan daemon.EventResult
	attaching bool

	err  error
	keys KeyBindings
}

// New creates a monitor model for client.
func New(client Client) Model {
	return Model{
		client:       client,
		pollInterval: DefaultPollInterval,
		keys:         DefaultKeyBindings(),
		attaching:    client != nil,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.client == nil {
		return nil
	}
	// Status first so the log is seeded before live events arrive.
	return tea.Sequence(m.fetchStatus(), m.attachToStream(), m.tickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.log = viewport.New(m.width, m.logHeight())
			m.ready = true
		} else {
			m.log.Width = m.width
			m.log.Height = m.logHeight()
		}
		m.refreshLog()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.client != nil {
				m.client.StopEventStream()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetchStatus()
		case key.Matches(msg, m.keys.Top):
			m.log.GotoTop()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			m.log.GotoBottom()
			return m, nil
		}
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd

	case tickMsg:
		cmds := []tea.Cmd{m.fetchStatus(), m.tickCmd()}
		if m.eventChan == nil && !m.attaching && m.connected {
			m.attaching = true
			cmds = append(cmds, m.attachToStream())
		}
		return m, tea.Batch(cmds...)

	case statusMsg:
		if msg.Err != nil {
			m.connected = false
			return m, m.setError(msg.Err)
		}
		m.connected = true
		m.status = msg.Status
		m.lastUpdate = time.Now()
		if !m.seeded && msg.Status != nil {
			m.outcomes = append(append([]daemon.OutcomeInfo(nil), msg.Status.Recent...), m.outcomes...)
			m.seeded = true
		}
		m.resizeLog()
		m.refreshLog()
		return m, nil

	case streamStartMsg:
		m.attaching = false
		m.eventChan = msg.EventChan
		return m, waitForEventCmd(m.eventChan)

	case streamEventMsg:
		if msg.Err != nil {
			slog.Debug("monitor event stream ended", "error", msg.Err)
			m.attaching = false
			m.eventChan = nil
			return m, m.setError(msg.Err)
		}
		if msg.Event != nil && msg.Event.Type == daemon.StreamEventOutcome {
			m.addOutcome(msg.Event.Outcome)
		}
		return m, waitForEventCmd(m.eventChan)

	case clearErrorMsg:
		m.err = nil
		return m, nil
	}

	return m, nil
}

// addOutcome appends to the log, keeping the view pinned to the bottom when
// it already was.
func (m *Model) addOutcome(o daemon.OutcomeInfo) {
	m.outcomes = append(m.outcomes, o)
	if over := len(m.outcomes) - maxOutcomes; over > 0 {
		m.outcomes = append([]daemon.OutcomeInfo(nil), m.outcomes[over:]...)
	}
	m.refreshLog()
}

func (m *Model) refreshLog() {
	if !m.ready {
		return
	}
	atBottom := m.log.AtBottom()
	m.log.SetContent(m.renderOutcomes())
	if atBottom {
		m.log.GotoBottom()
	}
}

func (m *Model) resizeLog() {
	if m.ready {
		m.log.Height = m.logHeight()
	}
}

// setError displays err and schedules it to clear.
func (m *Model) setError(err error) tea.Cmd {
	m.err = err
	return clearErrorCmd()
}

// Run starts the monitor against client.
func Run(client Client) error {
	p := tea.NewProgram(
		New(client),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}

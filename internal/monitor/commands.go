package monitor

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessro/cleandl/internal/daemon"
)

// tickCmd schedules the next status poll.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchStatus polls the daemon once.
func (m Model) fetchStatus() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if client == nil {
			return nil
		}
		resp, err := client.Status()
		return statusMsg{Status: resp, Err: err}
	}
}

// attachToStream connects to the outcome stream on a dedicated connection.
func (m Model) attachToStream() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if client == nil {
			return nil
		}
		eventChan, err := client.StreamEvents(nil)
		if err != nil {
			return streamEventMsg{Err: err}
		}
		return streamStartMsg{EventChan: eventChan}
	}
}

// waitForEventCmd waits for the next event from a channel.
func waitForEventCmd(eventChan <-chan daemon.EventResult) tea.Cmd {
	if eventChan == nil {
		return nil
	}
	return func() tea.Msg {
		result, ok := <-eventChan
		if !ok {
			return streamEventMsg{Err: fmt.Errorf("event stream closed")}
		}
		return streamEventMsg{Event: result.Event, Err: result.Err}
	}
}

// clearErrorCmd clears the error after a delay.
func clearErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

package monitor

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessro/cleandl/internal/daemon"
)

type fakeClient struct {
	status  *daemon.StatusResponse
	err     error
	stopped bool
}

func (c *fakeClient) Status() (*daemon.StatusResponse, error) { return c.status, c.err }

func (c *fakeClient) StreamEvents(states []string) (<-chan daemon.EventResult, error) {
	return make(chan daemon.EventResult), nil
}

func (c *fakeClient) StopEventStream() { c.stopped = true }

func sampleStatus() *daemon.StatusResponse {
	return &daemon.StatusResponse{
		Engine: daemon.EngineStatus{
			Running:     true,
			WatchFolder: "/home/u/Downloads",
			DeleteMode:  "trash",
		},
		Tracked: []daemon.TrackedStatus{
			{PID: 4242, Name: "evince", Path: "/home/u/Downloads/report.pdf", Since: time.Now().Add(-90 * time.Second)},
		},
		Recent: []daemon.OutcomeInfo{
			{PID: 7, Path: "/home/u/Downloads/setup.msi", State: "deleted", Mode: "trash", At: time.Now()},
		},
	}
}

// update applies msgs in order and returns the resulting model.
func update(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModel_ViewBeforeSize(t *testing.T) {
	m := New(nil)
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestModel_RendersStatus(t *testing.T) {
	m := update(t, New(&fakeClient{}),
		tea.WindowSizeMsg{Width: 120, Height: 30},
		statusMsg{Status: sampleStatus()},
	)

	view := m.View()
	for _, want := range []string{"cleandl", "1 tracked", "report.pdf", "evince", "setup.msi", "deleted", "Downloads"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if !m.connected {
		t.Error("expected connected after status")
	}
}

func TestModel_SeedsRecentOnce(t *testing.T) {
	status := sampleStatus()
	m := update(t, New(&fakeClient{}),
		tea.WindowSizeMsg{Width: 100, Height: 20},
		statusMsg{Status: status},
		statusMsg{Status: status},
	)
	if len(m.outcomes) != 1 {
		t.Errorf("expected 1 outcome after two polls, got %d", len(m.outcomes))
	}
}

func TestModel_StreamEventAppends(t *testing.T) {
	m := update(t, New(&fakeClient{}),
		tea.WindowSizeMsg{Width: 100, Height: 20},
		statusMsg{Status: sampleStatus()},
		streamEventMsg{Event: &daemon.StreamEvent{
			Type:    daemon.StreamEventOutcome,
			Outcome: daemon.OutcomeInfo{PID: 9, Path: "/home/u/Downloads/movie.mkv", State: "failed", Error: "trash unavailable"},
		}},
	)

	if len(m.outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(m.outcomes))
	}
	if !strings.Contains(m.View(), "movie.mkv") {
		t.Error("View() missing streamed outcome")
	}
}

func TestModel_OutcomeLogIsBounded(t *testing.T) {
	m := update(t, New(&fakeClient{}), tea.WindowSizeMsg{Width: 80, Height: 20})
	for i := 0; i < maxOutcomes+50; i++ {
		m = update(t, m, streamEventMsg{Event: &daemon.StreamEvent{
			Type:    daemon.StreamEventOutcome,
			Outcome: daemon.OutcomeInfo{PID: uint32(i), State: "deleted"},
		}})
	}
	if len(m.outcomes) != maxOutcomes {
		t.Errorf("expected %d outcomes, got %d", maxOutcomes, len(m.outcomes))
	}
	if m.outcomes[0].PID != 50 {
		t.Errorf("oldest kept outcome pid = %d, want 50", m.outcomes[0].PID)
	}
}

func TestModel_StatusErrorDisconnects(t *testing.T) {
	m := update(t, New(&fakeClient{}),
		tea.WindowSizeMsg{Width: 100, Height: 20},
		statusMsg{Status: sampleStatus()},
		statusMsg{Err: errors.New("connection refused")},
	)

	if m.connected {
		t.Error("expected disconnected after status error")
	}
	view := m.View()
	if !strings.Contains(view, "disconnected") || !strings.Contains(view, "connection refused") {
		t.Errorf("View() should report the error, got:\n%s", view)
	}

	m = update(t, m, clearErrorMsg{})
	if m.err != nil {
		t.Error("expected error cleared")
	}
}

func TestModel_StreamErrorAllowsReattach(t *testing.T) {
	m := update(t, New(&fakeClient{}),
		tea.WindowSizeMsg{Width: 100, Height: 20},
		statusMsg{Status: sampleStatus()},
		streamStartMsg{EventChan: make(chan daemon.EventResult)},
		streamEventMsg{Err: errors.New("event stream closed")},
	)
	if m.eventChan != nil || m.attaching {
		t.Fatal("stream error should clear the event channel")
	}

	m = update(t, m, tickMsg(time.Now()))
	if !m.attaching {
		t.Error("tick should start a new attach while connected")
	}
}

func TestModel_Quit(t *testing.T) {
	client := &fakeClient{}
	m := update(t, New(client), tea.WindowSizeMsg{Width: 80, Height: 20})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !client.stopped {
		t.Error("expected event stream stopped on quit")
	}
}

func TestTruncatePath(t *testing.T) {
	m := Model{}
	path := "/home/u/Downloads/some/long/folder/report.pdf"

	if got := m.truncatePath(path, 0); got != path {
		t.Errorf("width 0 should not truncate, got %q", got)
	}
	got := m.truncatePath(path, 15)
	if !strings.HasPrefix(got, "…") || !strings.HasSuffix(got, "report.pdf") {
		t.Errorf("truncatePath() = %q, want tail kept", got)
	}
	if w := len([]rune(got)); w > 15 {
		t.Errorf("truncatePath() width = %d, want <= 15", w)
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{42 * time.Second, "42s"},
		{5 * time.Minute, "5m"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.d); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

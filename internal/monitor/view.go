package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/tessro/cleandl/internal/daemon"
)

// Fixed rows: header, two section titles and the help bar.
const chromeRows = 4

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	sections := []string{
		m.renderHeader(),
		sectionTitleStyle.Render(m.trackedTitle()),
		m.renderTracked(),
		sectionTitleStyle.Render("Recent"),
		m.log.View(),
		m.renderHelp(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	brand := headerBrandStyle.Render("cleandl")

	var conn string
	if !m.connected {
		conn = headerDisconnectedStyle.Render(" ● disconnected")
	}

	var stats []string
	if m.status != nil {
		stats = append(stats,
			fmt.Sprintf("%d tracked", len(m.status.Tracked)),
			m.status.Engine.DeleteMode,
		)
		if n := m.status.Engine.BufferedTerminations; n > 0 {
			stats = append(stats, fmt.Sprintf("%d buffered", n))
		}
	}
	right := headerStatsStyle.Render(strings.Join(stats, " · "))

	left := brand + conn
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return headerContainerStyle.Width(m.width).Render(left + headerStatsStyle.Render(strings.Repeat(" ", gap)) + right)
}

func (m Model) trackedTitle() string {
	if m.status == nil || m.status.Engine.WatchFolder == "" {
		return "Watching"
	}
	return "Watching " + m.truncatePath(m.status.Engine.WatchFolder, m.width-12)
}

// trackedRows is the number of rows the tracked section occupies.
func (m Model) trackedRows() int {
	n := 0
	if m.status != nil {
		n = len(m.status.Tracked)
	}
	limit := max(m.height/3, 3)
	return min(max(n, 1), limit)
}

func (m Model) logHeight() int {
	return max(m.height-chromeRows-m.trackedRows(), 1)
}

func (m Model) renderTracked() string {
	if m.status == nil || len(m.status.Tracked) == 0 {
		return emptyStyle.Render("No files tracked")
	}

	rows := m.trackedRows()
	tracked := m.status.Tracked
	hidden := 0
	if len(tracked) > rows {
		hidden = len(tracked) - rows + 1
		tracked = tracked[:rows-1]
	}

	now := time.Now()
	lines := make([]string, 0, rows)
	for _, t := range tracked {
		lines = append(lines, m.trackedLine(t, now))
	}
	if hidden > 0 {
		lines = append(lines, emptyStyle.Render(fmt.Sprintf("… %d more", hidden)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) trackedLine(t daemon.TrackedStatus, now time.Time) string {
	pid := pidStyle.Render(fmt.Sprintf("%7d", t.PID))
	name := nameStyle.Render(fmt.Sprintf("%-16s", truncate.StringWithTail(t.Name, 16, "…")))
	age := ageStyle.Render(fmt.Sprintf("%6s", formatAge(now.Sub(t.Since))))

	used := lipgloss.Width(pid) + lipgloss.Width(name) + lipgloss.Width(age) + 5
	return fmt.Sprintf(" %s  %s %s  %s", pid, name, m.truncatePath(t.Path, m.width-used), age)
}

// renderOutcomes renders the full outcome log for the viewport.
func (m Model) renderOutcomes() string {
	if len(m.outcomes) == 0 {
		return emptyStyle.Render("No outcomes yet")
	}
	lines := make([]string, 0, len(m.outcomes))
	for _, o := range m.outcomes {
		lines = append(lines, m.outcomeLine(o))
	}
	return strings.Join(lines, "\n")
}

func (m Model) outcomeLine(o daemon.OutcomeInfo) string {
	at := ageStyle.Render(o.At.Local().Format("15:04:05"))
	state := stateStyle(o.State).Render(fmt.Sprintf("%-9s", o.State))
	pid := fmt.Sprintf("%7d", o.PID)

	line := fmt.Sprintf(" %s  %s %s  %s", at, state, pid, o.Path)
	if o.Error != "" {
		line += "  " + o.Error
	}
	if m.width > 0 {
		line = truncate.StringWithTail(line, uint(m.width), "…")
	}
	return line
}

func (m Model) renderHelp() string {
	if m.err != nil {
		return errorBarStyle.Width(m.width).Render("Error: " + m.err.Error())
	}
	parts := make([]string, 0, 6)
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	help := strings.Join(parts, "  ")
	if !m.lastUpdate.IsZero() {
		help += "  · updated " + m.lastUpdate.Format("15:04:05")
	}
	return helpStyle.Render(help)
}

// truncatePath shortens path to width cells, keeping the file name visible.
func (m Model) truncatePath(path string, width int) string {
	if width <= 0 || lipgloss.Width(path) <= width {
		return path
	}
	runes := []rune(path)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[1:]
	}
	return "…" + string(runes)
}

// formatAge formats a duration compactly (e.g. "42s", "5m", "2h 15m").
func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		d = d.Round(time.Minute)
		h := d / time.Hour
		return fmt.Sprintf("%dh %dm", h, (d-h*time.Hour)/time.Minute)
	}
}

package monitor

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#2563EB") // Blue
	secondaryColor = lipgloss.Color("#10B981") // Green
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	errorColor     = lipgloss.Color("#EF4444") // Red
	warningColor   = lipgloss.Color("#F59E0B") // Amber

	// Header styles
	headerContainerStyle = lipgloss.NewStyle().
				Background(primaryColor)

	headerBrandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(primaryColor).
				Padding(0, 1)

	headerStatsStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#E0E0E0")).
				Background(primaryColor).
				Padding(0, 1)

	headerDisconnectedStyle = lipgloss.NewStyle().
				Foreground(errorColor).
				Background(primaryColor)

	// Section styles
	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor).
				Padding(0, 1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 2)

	pidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0"))

	ageStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// Outcome state styles
	stateStyles = map[string]lipgloss.Style{
		"watching":  lipgloss.NewStyle().Foreground(primaryColor),
		"deleted":   lipgloss.NewStyle().Foreground(secondaryColor),
		"failed":    lipgloss.NewStyle().Foreground(errorColor),
		"abandoned": lipgloss.NewStyle().Foreground(warningColor),
		"skipped":   lipgloss.NewStyle().Foreground(mutedColor),
	}

	// Help bar styles
	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	errorBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(errorColor).
			Padding(0, 1)
)

func stateStyle(state string) lipgloss.Style {
	if s, ok := stateStyles[state]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

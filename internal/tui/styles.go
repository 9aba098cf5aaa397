package tui

import "github.com/charmbracelet/lipgloss"

// Colors used by the dashboard. Status colours use the basic ANSI palette so
// they follow the terminal theme.
var (
	colorError   = lipgloss.Color("5") // magenta
	colorFailed  = lipgloss.Color("1") // red
	colorSuccess = lipgloss.Color("2") // green
	colorAccent  = lipgloss.Color("62")
	colorMuted   = lipgloss.Color("241")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	summaryStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted)

	focusedPanelStyle = panelStyle.
				BorderForeground(colorAccent)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true)

	filterPromptStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	emptyStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	notificationStyle = lipgloss.NewStyle()
)

// statusStyle returns the style for a status label: error magenta, failed
// red, success green, anything else plain.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "error":
		return lipgloss.NewStyle().Foreground(colorError)
	case "failed":
		return lipgloss.NewStyle().Foreground(colorFailed)
	case "success":
		return lipgloss.NewStyle().Foreground(colorSuccess)
	default:
		return lipgloss.NewStyle()
	}
}

// selected marks the cursor row of the focused panel.
func selected(s lipgloss.Style, focused bool) lipgloss.Style {
	if focused {
		return s.Reverse(true)
	}
	return s.Underline(true)
}

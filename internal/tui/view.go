package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jpalmerr/citui/internal/selection"
	"github.com/jpalmerr/citui/internal/store"
)

// panel chrome: top and bottom border plus the title row
const panelChrome = 3

// maxNotificationRows caps the notifications panel; the list scrolls.
const maxNotificationRows = 5

// View implements tea.Model.
func (m Model) View() string {
	sections := []string{m.header()}
	if line := m.filterLine(); line != "" {
		sections = append(sections, line)
	}
	if m.cfg.Notifications {
		sections = append(sections, m.notificationsPanel())
	}
	sections = append(sections,
		m.sourcesPanel(),
		m.recentPanel(),
		m.help.View(m.keys),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) header() string {
	title := m.cfg.Title
	if title == "" {
		title = "citui"
	}

	counts := map[string]int{}
	for _, s := range m.snapshot.Sources {
		counts[s.Status]++
	}
	summary := fmt.Sprintf("%d sources", len(m.snapshot.Sources))
	for _, status := range []string{"failed", "error"} {
		if n := counts[status]; n > 0 {
			summary += fmt.Sprintf(" · %d %s", n, status)
		}
	}
	return titleStyle.Render(title) + "  " + summaryStyle.Render(summary)
}

func (m Model) filterLine() string {
	if !m.filtering && m.filter.Value() == "" {
		return ""
	}
	return m.filter.View()
}

// columnHeight is the number of source rows per column that fit on screen.
func (m Model) columnHeight() int {
	used := 1 // header
	if m.filterLine() != "" {
		used++
	}
	used += panelChrome + m.recentRows()
	if m.cfg.Notifications {
		used += panelChrome + m.notificationRows()
	}
	used += lipgloss.Height(m.help.View(m.keys))
	used += panelChrome

	return max(m.height-used, 1)
}

func (m Model) recentRows() int {
	return max(m.recent.Len(), 1)
}

func (m Model) notificationRows() int {
	return min(max(m.notifs.Len(), 1), maxNotificationRows)
}

func (m Model) panelWidth() int {
	// border on both sides
	return max(m.width-2, 10)
}

func (m Model) sourcesPanel() string {
	focused := m.focus == panelSources
	width := m.panelWidth()
	height := m.columnHeight()

	items := m.sources.Items()
	lines := []string{panelTitle("Sources", len(items), len(m.snapshot.Sources))}
	if len(items) == 0 {
		lines = append(lines, emptyStyle.Render("no matching sources"))
		return m.panel(focused, lines)
	}

	chunks := selection.Chunk(items, height)
	colWidth := max(width/len(chunks), 1)
	cursor, ok := m.sources.Cursor()

	columns := make([]string, len(chunks))
	for c, chunk := range chunks {
		local, here := selection.Locate(cursor, ok, height, c)
		rows := make([]string, len(chunk))
		for i, s := range chunk {
			style := statusStyle(s.Status)
			if here && i == local {
				style = selected(style, focused)
			}
			rows[i] = lipgloss.NewStyle().Width(colWidth).Render(style.Render(truncate(s.Label, colWidth-1)))
		}
		columns[c] = lipgloss.JoinVertical(lipgloss.Left, rows...)
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	return m.panel(focused, lines)
}

func (m Model) recentPanel() string {
	focused := m.focus == panelRecent
	items := m.recent.Items()
	lines := []string{panelTitle("Recent Runs", len(items), len(m.snapshot.Recent))}

	if len(items) == 0 {
		lines = append(lines, emptyStyle.Render("no completed runs yet"))
		return m.panel(focused, lines)
	}

	cursor, ok := m.recent.Cursor()
	width := m.panelWidth()
	for i, e := range items {
		lines = append(lines, recentRow(e, width, focused && ok && i == cursor))
	}
	return m.panel(focused, lines)
}

func (m Model) notificationsPanel() string {
	focused := m.focus == panelNotifications
	items := m.notifs.Items()
	lines := []string{panelTitle("Notifications", len(items), len(m.snapshot.Notifications))}

	if len(items) == 0 {
		lines = append(lines, emptyStyle.Render("no unread notifications"))
		return m.panel(focused, lines)
	}

	rows := m.notificationRows()
	cursor, ok := m.notifs.Cursor()
	start := 0
	if ok && cursor >= rows {
		start = cursor - rows + 1
	}

	width := m.panelWidth()
	for i := start; i < min(start+rows, len(items)); i++ {
		style := notificationStyle
		if focused && ok && i == cursor {
			style = selected(style, true)
		}
		lines = append(lines, style.Render(truncate(notificationText(items[i]), width)))
	}
	return m.panel(focused, lines)
}

func notificationText(n store.Notification) string {
	text := "[" + n.Repository + "] " + n.Title
	if n.Reason != "" {
		text += " (" + n.Reason + ")"
	}
	return text
}

// panelTitle renders "Name (total)", or "Name (shown/total)" while a filter
// hides some entries.
func panelTitle(name string, shown, total int) string {
	if shown == total {
		return panelTitleStyle.Render(fmt.Sprintf("%s (%d)", name, total))
	}
	return panelTitleStyle.Render(fmt.Sprintf("%s (%d/%d)", name, shown, total))
}

func recentRow(e store.Event, width int, isSelected bool) string {
	when := e.CompletedAt.Local().Format("Jan 02 15:04")
	status := fmt.Sprintf("%-9s", e.Status)
	label := truncate(e.Label, max(width-lipgloss.Width(when)-lipgloss.Width(status)-3, 1))

	style := statusStyle(e.Status)
	if isSelected {
		style = selected(style, true)
	}
	return timeStyle.Render(when) + "  " + style.Render(status+label)
}

func (m Model) panel(focused bool, lines []string) string {
	style := panelStyle
	if focused {
		style = focusedPanelStyle
	}
	return style.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
}

// truncate shortens s to at most n terminal cells, marking the cut with an
// ellipsis. Wide runes count as two cells.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return ansi.Truncate(s, n, "…")
}

package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/citui/internal/store"
)

func testStore(labels ...string) *store.MemoryStore {
	st := store.NewMemoryStore(store.DefaultHistorySize, store.EmptyUnknown)
	for i, label := range labels {
		st.Register(store.SourceStatus{
			Key:    fmt.Sprintf("k%d", i),
			Label:  label,
			Detail: label + " (build)",
			URL:    "https://ci.example.com/" + label,
		})
	}
	return st
}

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press feeds keys to the model and returns the final model and last command.
func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyPress(k))
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok, "Update must return a Model")
	}
	return m, cmd
}

func selectedLabel(t *testing.T, m Model) string {
	t.Helper()
	s, ok := m.SelectedSource()
	require.True(t, ok, "expected a selected source")
	return s.Label
}

func TestModel_Navigation(t *testing.T) {
	m := New(Config{Store: testStore("a", "b", "c")})

	_, ok := m.SelectedSource()
	assert.False(t, ok, "no source is selected before navigation")

	m, _ = press(t, m, "j")
	assert.Equal(t, "a", selectedLabel(t, m))

	m, _ = press(t, m, "down", "j")
	assert.Equal(t, "c", selectedLabel(t, m))

	m, _ = press(t, m, "j")
	assert.Equal(t, "c", selectedLabel(t, m), "next at the end is a no-op")

	m, _ = press(t, m, "g")
	assert.Equal(t, "a", selectedLabel(t, m))

	m, _ = press(t, m, "k", "up")
	assert.Equal(t, "a", selectedLabel(t, m), "prev at the start is a no-op")

	m, _ = press(t, m, "G")
	assert.Equal(t, "c", selectedLabel(t, m))
}

func TestModel_NavigationOnEmptyStore(t *testing.T) {
	m := New(Config{Store: testStore()})

	m, _ = press(t, m, "j", "k", "g", "G", "enter")
	_, ok := m.SelectedSource()
	assert.False(t, ok)
}

func TestModel_FilterNarrowsAndClampsCursor(t *testing.T) {
	m := New(Config{Store: testStore("acme/api", "acme/web", "other/api")})

	m, _ = press(t, m, "G")
	require.Equal(t, "other/api", selectedLabel(t, m))

	m, _ = press(t, m, "/")
	require.True(t, m.Filtering())

	m, _ = press(t, m, "W", "e", "b")
	require.Len(t, m.Sources(), 1)
	assert.Equal(t, "acme/web", m.Sources()[0].Label)
	assert.Equal(t, "acme/web", selectedLabel(t, m), "cursor is clamped into the filtered list")

	// enter keeps the filter, navigation works again
	m, _ = press(t, m, "enter")
	assert.False(t, m.Filtering())
	assert.Len(t, m.Sources(), 1)

	// esc clears it
	m, _ = press(t, m, "esc")
	assert.Len(t, m.Sources(), 3)
}

func TestModel_FilterWithNoMatchesClearsCursor(t *testing.T) {
	m := New(Config{Store: testStore("acme/api")})

	m, _ = press(t, m, "j", "/", "z", "z")
	assert.Empty(t, m.Sources())
	_, ok := m.SelectedSource()
	assert.False(t, ok)

	m, _ = press(t, m, "esc")
	assert.False(t, m.Filtering())
	assert.Len(t, m.Sources(), 1)
}

func TestModel_FilterKeysDoNotNavigate(t *testing.T) {
	refreshed := false
	m := New(Config{Store: testStore("a", "b"), Refresh: func() { refreshed = true }})

	// "q", "r" and "j" are text while filtering
	m, _ = press(t, m, "/", "q", "r", "j")
	assert.False(t, refreshed)
	assert.True(t, m.Filtering())
	assert.Equal(t, "qrj", m.filter.Value())
	_, ok := m.SelectedSource()
	assert.False(t, ok)
}

func TestModel_RecentNewestFirst(t *testing.T) {
	st := testStore("a", "b")
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st.Fold("k0", []store.Run{{ID: "1", Status: "success", CompletedAt: base}}, base)
	st.Fold("k1", []store.Run{{ID: "2", Status: "failed", CompletedAt: base.Add(time.Minute)}}, base)

	m := New(Config{Store: st})
	recent := m.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "2", recent[0].RunID)
	assert.Equal(t, "1", recent[1].RunID)

	m, _ = press(t, m, "tab", "j")
	run, ok := m.SelectedRun()
	require.True(t, ok)
	assert.Equal(t, "2", run.RunID)

	_, ok = m.SelectedSource()
	assert.False(t, ok, "moving in the recent panel leaves the source cursor alone")
}

func TestModel_OpenSelected(t *testing.T) {
	st := testStore("a", "b")
	at := time.Now()
	st.Fold("k1", []store.Run{{ID: "9", Status: "success", CompletedAt: at, URL: "https://ci.example.com/run/9"}}, at)
	st.Fold("k0", []store.Run{{ID: "8", Status: "failed", CompletedAt: at.Add(-time.Minute)}}, at)

	var opened []string
	m := New(Config{Store: st, Open: func(url string) { opened = append(opened, url) }})

	_, cmd := press(t, m, "enter")
	assert.Nil(t, cmd, "nothing selected, nothing to open")

	m, cmd = press(t, m, "j", "j", "enter")
	require.NotNil(t, cmd)
	cmd()

	// recent: the run's own URL, then the source page for a run without one
	m, cmd = press(t, m, "tab", "j", "enter")
	require.NotNil(t, cmd)
	cmd()
	_, cmd = press(t, m, "j", "enter")
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, []string{
		"https://ci.example.com/b",
		"https://ci.example.com/run/9",
		"https://ci.example.com/a",
	}, opened)
}

func TestModel_RefreshAndQuit(t *testing.T) {
	refreshed := 0
	m := New(Config{Store: testStore("a"), Refresh: func() { refreshed++ }})

	m, _ = press(t, m, "r", "r")
	assert.Equal(t, 2, refreshed)

	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = press(t, m, "ctrl+c")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_UpdatesReloadSnapshot(t *testing.T) {
	st := testStore("a")
	updates := st.Subscribe()
	defer st.Unsubscribe(updates)

	m := New(Config{Store: st, Updates: updates})
	cmd := m.Init()
	require.NotNil(t, cmd)

	st.Fold("k0", []store.Run{{ID: "1", Status: "failed", CompletedAt: time.Now()}}, time.Now())
	msg := cmd()
	require.IsType(t, updateMsg{}, msg)

	next, cmd := m.Update(msg)
	m = next.(Model)
	assert.NotNil(t, cmd, "the model keeps listening for updates")
	assert.Equal(t, "failed", m.Sources()[0].Status)
	assert.Len(t, m.Recent(), 1)
}

func TestModel_UpdatesClosed(t *testing.T) {
	ch := make(chan store.SourceStatus)
	close(ch)

	m := New(Config{Store: testStore("a"), Updates: ch})
	msg := m.Init()()
	assert.IsType(t, updatesClosedMsg{}, msg)

	_, cmd := m.Update(msg)
	assert.Nil(t, cmd)
}

func TestModel_ColumnsAndColumnJump(t *testing.T) {
	labels := []string{"src-0", "src-1", "src-2", "src-3", "src-4", "src-5"}
	m := New(Config{Store: testStore(labels...)})

	// header + two panels with chrome + one-line help leave three rows
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 12})
	m = next.(Model)
	require.Equal(t, 3, m.columnHeight())

	view := m.View()
	sideBySide := false
	for _, line := range strings.Split(view, "\n") {
		if strings.Contains(line, "src-0") && strings.Contains(line, "src-3") {
			sideBySide = true
		}
	}
	assert.True(t, sideBySide, "sources should wrap into a second column:\n%s", view)

	m, _ = press(t, m, "j", "l")
	assert.Equal(t, "src-3", selectedLabel(t, m))
	m, _ = press(t, m, "l")
	assert.Equal(t, "src-5", selectedLabel(t, m), "column jump clamps at the end")
	m, _ = press(t, m, "h", "h")
	assert.Equal(t, "src-0", selectedLabel(t, m))
}

func TestModel_View(t *testing.T) {
	st := testStore("acme/api", "acme/web")
	at := time.Now()
	st.Fold("k0", []store.Run{{ID: "1", Status: "failed", CompletedAt: at}}, at)

	m := New(Config{Title: "My CI", Store: st})
	view := m.View()

	assert.Contains(t, view, "My CI")
	assert.Contains(t, view, "2 sources · 1 failed")
	assert.Contains(t, view, "acme/api")
	assert.Contains(t, view, "acme/web")
	assert.Contains(t, view, "Recent Runs")
	assert.Contains(t, view, "acme/api (build)")

	m, _ = press(t, m, "/", "x")
	assert.Contains(t, m.View(), "/x")
	assert.Contains(t, m.View(), "no matching sources")
}

func TestModel_PanelTitlesCountFilteredEntries(t *testing.T) {
	st := testStore("acme/api", "acme/web")
	at := time.Now()
	st.Fold("k0", []store.Run{{ID: "1", Status: "success", CompletedAt: at}}, at)

	m := New(Config{Store: st})
	view := m.View()
	assert.Contains(t, view, "Sources (2)")
	assert.Contains(t, view, "Recent Runs (1)")

	m, _ = press(t, m, "/", "w", "e", "b", "enter")
	view = m.View()
	assert.Contains(t, view, "Sources (1/2)")
	assert.Contains(t, view, "Recent Runs (0/1)")
}

func testNotifications() []store.Notification {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []store.Notification{
		{ID: "3", Repository: "acme/api", Title: "Fix flaky test", Reason: "review_requested", UpdatedAt: at, URL: "https://github.com/acme/api/pull/7"},
		{ID: "2", Repository: "acme/web", Title: "Release 1.2", Reason: "subscribed", UpdatedAt: at.Add(-time.Hour), URL: "https://github.com/acme/web"},
		{ID: "1", Repository: "acme/docs", Title: "Typo in README", UpdatedAt: at.Add(-2 * time.Hour), URL: "https://github.com/acme/docs/issues/4"},
	}
}

func TestModel_NotificationsPanel(t *testing.T) {
	st := testStore("a")
	st.SetNotifications(testNotifications(), time.Now())

	var opened []string
	m := New(Config{Store: st, Notifications: true, Open: func(url string) { opened = append(opened, url) }})
	require.Len(t, m.Notifications(), 3)

	view := m.View()
	assert.Contains(t, view, "Notifications (3)")
	assert.Contains(t, view, "[acme/api] Fix flaky test (review_requested)")
	assert.Contains(t, view, "[acme/docs] Typo in README")

	// sources -> recent -> notifications
	m, _ = press(t, m, "tab", "tab", "j", "j")
	n, ok := m.SelectedNotification()
	require.True(t, ok)
	assert.Equal(t, "2", n.ID)
	_, ok = m.SelectedSource()
	assert.False(t, ok, "moving in the notifications panel leaves the source cursor alone")

	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"https://github.com/acme/web"}, opened)

	// and back to sources
	m, _ = press(t, m, "tab", "j")
	assert.Equal(t, "a", selectedLabel(t, m))

	m, _ = press(t, m, "/", "r", "e", "v", "i", "e", "w", "enter")
	require.Len(t, m.Notifications(), 1)
	assert.Contains(t, m.View(), "Notifications (1/3)")
}

func TestModel_NotificationsPanelHidden(t *testing.T) {
	st := testStore("a")
	st.SetNotifications(testNotifications(), time.Now())

	m := New(Config{Store: st})
	assert.NotContains(t, m.View(), "Notifications")

	// without the panel, focus cycles between sources and recent only
	m, _ = press(t, m, "tab", "tab", "j")
	assert.Equal(t, "a", selectedLabel(t, m))
	_, ok := m.SelectedNotification()
	assert.False(t, ok)
}

func TestModel_NotificationsPanelTakesColumnRows(t *testing.T) {
	st := testStore("a", "b")
	size := tea.WindowSizeMsg{Width: 80, Height: 30}

	plain, _ := New(Config{Store: st}).Update(size)
	next, _ := New(Config{Store: st, Notifications: true}).Update(size)
	assert.Equal(t, plain.(Model).columnHeight()-panelChrome-1, next.(Model).columnHeight(),
		"an empty notifications panel takes its chrome plus one row")

	st.SetNotifications(append(testNotifications(), testNotifications()...), time.Now())
	next, _ = New(Config{Store: st, Notifications: true}).Update(size)
	assert.Equal(t, plain.(Model).columnHeight()-panelChrome-maxNotificationRows, next.(Model).columnHeight(),
		"the panel is capped and scrolls")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
	assert.Equal(t, "", truncate("abcd", 0))

	wide := "组织/仓库 (构建 on 主分支)"
	for _, n := range []int{1, 5, 10, 16} {
		got := truncate(wide, n)
		assert.LessOrEqual(t, lipgloss.Width(got), n, "truncate(%q, %d) = %q", wide, n, got)
	}
	assert.Equal(t, "组织/…", truncate(wide, 6))
}

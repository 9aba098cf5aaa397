package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpalmerr/citui/internal/selection"
	"github.com/jpalmerr/citui/internal/store"
)

// default terminal size until the first tea.WindowSizeMsg arrives
const (
	defaultWidth  = 80
	defaultHeight = 24
)

// Snapshotter is the read-only view of the status store the UI needs.
type Snapshotter interface {
	Snapshot() store.Snapshot
}

// Config wires the UI to the rest of the dashboard.
type Config struct {
	// Title is shown in the header.
	Title string

	// Store is read on every redraw-triggering update.
	Store Snapshotter

	// Updates delivers per-source changes; the UI reloads its snapshot on
	// each one. May be nil.
	Updates <-chan store.SourceStatus

	// Refresh makes every source due again.
	Refresh func()

	// Open launches a browser on a URL.
	Open func(url string)

	// Notifications shows the GitHub notifications panel.
	Notifications bool
}

// panel identifies which list has keyboard focus.
type panel int

const (
	panelSources panel = iota
	panelRecent
	panelNotifications
)

// updateMsg carries one store change into the program.
type updateMsg struct {
	status store.SourceStatus
}

// updatesClosedMsg is sent once the update channel is closed.
type updatesClosedMsg struct{}

// Model is the root Bubble Tea model of the dashboard.
//
// The model never mutates scheduling or aggregation state: it reads store
// snapshots and owns only the two selection lists, the filter and the focus.
type Model struct {
	cfg    Config
	keys   KeyMap
	help   help.Model
	filter textinput.Model

	filtering bool
	focus     panel
	width     int
	height    int

	snapshot store.Snapshot
	sources  *selection.List[store.SourceStatus]
	recent   *selection.List[store.Event]
	notifs   *selection.List[store.Notification]
}

// New creates the dashboard model and loads the initial snapshot.
func New(cfg Config) Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = filterPromptStyle
	ti.Placeholder = "filter"
	ti.CharLimit = 64

	m := Model{
		cfg:     cfg,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		filter:  ti,
		width:   defaultWidth,
		height:  defaultHeight,
		sources: selection.New[store.SourceStatus](nil),
		recent:  selection.New[store.Event](nil),
		notifs:  selection.New[store.Notification](nil),
	}
	m.reload()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case updateMsg:
		m.reload()
		return m, m.waitForUpdate()

	case updatesClosedMsg:
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		m.moveBy(1)
	case key.Matches(msg, m.keys.Up):
		m.moveBy(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveColumn(1)
	case key.Matches(msg, m.keys.Left):
		m.moveColumn(-1)
	case key.Matches(msg, m.keys.First):
		m.first()
	case key.Matches(msg, m.keys.Last):
		m.last()
	case key.Matches(msg, m.keys.Focus):
		m.cycleFocus()
	case key.Matches(msg, m.keys.Refresh):
		if m.cfg.Refresh != nil {
			m.cfg.Refresh()
		}
	case key.Matches(msg, m.keys.Open):
		return m, m.openSelected()
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.Clear):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.reload()
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// updateFilter routes keys to the filter input while it is being edited.
// Enter keeps the filter; esc clears it.
func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.reload()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	before := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.reload()
	}
	return m, cmd
}

// reload reads a fresh snapshot and re-applies the filter. The selection
// lists re-validate their cursors against the new contents.
func (m *Model) reload() {
	if m.cfg.Store != nil {
		m.snapshot = m.cfg.Store.Snapshot()
	}
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))

	sources := make([]store.SourceStatus, 0, len(m.snapshot.Sources))
	for _, s := range m.snapshot.Sources {
		if matches(query, s.Label, s.Detail) {
			sources = append(sources, s)
		}
	}
	m.sources.SetItems(sources)

	// newest first
	recent := make([]store.Event, 0, len(m.snapshot.Recent))
	for i := len(m.snapshot.Recent) - 1; i >= 0; i-- {
		e := m.snapshot.Recent[i]
		if matches(query, e.Label) {
			recent = append(recent, e)
		}
	}
	m.recent.SetItems(recent)

	notifs := make([]store.Notification, 0, len(m.snapshot.Notifications))
	for _, n := range m.snapshot.Notifications {
		if matches(query, n.Repository, n.Title, n.Reason) {
			notifs = append(notifs, n)
		}
	}
	m.notifs.SetItems(notifs)
}

// cycleFocus moves focus sources → recent → notifications (when shown).
func (m *Model) cycleFocus() {
	switch m.focus {
	case panelSources:
		m.focus = panelRecent
	case panelRecent:
		if m.cfg.Notifications {
			m.focus = panelNotifications
		} else {
			m.focus = panelSources
		}
	default:
		m.focus = panelSources
	}
}

// mover is the cursor movement shared by every panel's selection list.
type mover interface {
	Next()
	Prev()
	First()
	Last()
}

// focused returns the selection list that has keyboard focus.
func (m *Model) focused() mover {
	switch m.focus {
	case panelRecent:
		return m.recent
	case panelNotifications:
		return m.notifs
	default:
		return m.sources
	}
}

func matches(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func (m *Model) moveBy(delta int) {
	if delta > 0 {
		m.focused().Next()
	} else {
		m.focused().Prev()
	}
}

// moveColumn jumps the source cursor to the same row of a neighbouring
// column, clamping at the ends.
func (m *Model) moveColumn(delta int) {
	if m.focus != panelSources {
		return
	}
	cursor, ok := m.sources.Cursor()
	if !ok {
		m.sources.First()
		return
	}
	m.sources.Select(cursor + delta*m.columnHeight())
}

func (m *Model) first() {
	m.focused().First()
}

func (m *Model) last() {
	m.focused().Last()
}

// openSelected returns a command that opens the selected source, run or
// notification. A run without its own URL falls back to its source's page.
func (m Model) openSelected() tea.Cmd {
	if m.cfg.Open == nil {
		return nil
	}

	var url string
	switch m.focus {
	case panelSources:
		s, ok := m.sources.Selected()
		if !ok {
			return nil
		}
		url = s.URL
	case panelRecent:
		e, ok := m.recent.Selected()
		if !ok {
			return nil
		}
		url = e.URL
		if url == "" {
			url = m.sourceURL(e.Key)
		}
	case panelNotifications:
		n, ok := m.notifs.Selected()
		if !ok {
			return nil
		}
		url = n.URL
	}
	if url == "" {
		return nil
	}

	open := m.cfg.Open
	return func() tea.Msg {
		open(url)
		return nil
	}
}

func (m Model) sourceURL(key string) string {
	for _, s := range m.snapshot.Sources {
		if s.Key == key {
			return s.URL
		}
	}
	return ""
}

// waitForUpdate blocks on the update channel.
func (m Model) waitForUpdate() tea.Cmd {
	ch := m.cfg.Updates
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		status, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg{status: status}
	}
}

// Sources returns the visible (filtered) sources.
func (m Model) Sources() []store.SourceStatus {
	return m.sources.Items()
}

// Recent returns the visible recent runs, newest first.
func (m Model) Recent() []store.Event {
	return m.recent.Items()
}

// SelectedSource returns the source under the cursor.
func (m Model) SelectedSource() (store.SourceStatus, bool) {
	return m.sources.Selected()
}

// SelectedRun returns the recent run under the cursor.
func (m Model) SelectedRun() (store.Event, bool) {
	return m.recent.Selected()
}

// Notifications returns the visible unread notifications, newest first.
func (m Model) Notifications() []store.Notification {
	return m.notifs.Items()
}

// SelectedNotification returns the notification under the cursor.
func (m Model) SelectedNotification() (store.Notification, bool) {
	return m.notifs.Selected()
}

// Filtering reports whether the filter input has focus.
func (m Model) Filtering() bool {
	return m.filtering
}

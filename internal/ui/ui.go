package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/multistream/internal/app"
	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/grid"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/shared"
	"github.com/desertthunder/multistream/internal/tasks"
)

// ViewID identifies the terminal view to the app's visibility tracking.
const ViewID = "tui"

const eventBuffer = 256

// Pane identifies which list has keyboard focus.
type Pane int

const (
	GridPane Pane = iota
	DirectoryPane
)

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	app    *app.App
	events chan events.Event
	unsub  func()
	open   func(url string) error

	pane      Pane
	width     int
	height    int
	gridList  list.Model
	dirList   list.Model
	input     textinput.Model
	inputting bool

	suggestions []models.ChannelSuggestion
	suggested   int // highlighted suggestion, -1 for none
	drag        *grid.Drag
	moving      bool

	layout    grid.Layout
	directory tasks.DirectoryView
	user      *models.SessionUser
	loading   bool
	notice    string
	noticeErr bool

	help help.Model
	keys keyMap
}

// NewModel creates the TUI over a started app and subscribes it to the app's bus.
func NewModel(ctx context.Context, a *app.App) *Model {
	input := textinput.New()
	input.Placeholder = "Twitch channel"
	input.CharLimit = 64

	m := &Model{
		ctx:       ctx,
		app:       a,
		events:    make(chan events.Event, eventBuffer),
		open:      shared.OpenBrowser,
		input:     input,
		suggested: -1,
		drag:      grid.NewDrag(a.Grid),
		gridList:  newList("Streams"),
		dirList:   newList("Followed channels"),
		help:      help.New(),
		keys:      newKeyMap(),
	}
	m.unsub = a.Bus.Subscribe(m.enqueue,
		events.AuthChanged, events.DirectoryUpdated, events.LoadingChanged,
		events.GridChanged, events.Notice, events.SearchResults,
	)
	m.syncGrid()
	m.syncDirectory()
	m.user = a.Session.User()
	m.loading = a.Directory.Loading()
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	return l
}

// enqueue runs on the publisher's goroutine.
func (m *Model) enqueue(e events.Event) {
	select {
	case m.events <- e:
	default:
		m.app.Logger.Warn("tui event queue full, dropping", "kind", e.Kind)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case e := <-m.events:
				if msg, ok := fromEvent(e); ok {
					return msg
				}
			case <-m.ctx.Done():
				return Msg{kind: MsgEventsClosed}
			}
		}
	}
}

// Close unsubscribes from the bus and tells the app the view is gone.
func (m *Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
	m.app.RemoveView(ViewID)
}

// Init marks the view visible, which starts the refresh loop when logged in.
func (m *Model) Init() tea.Cmd {
	m.app.SetVisible(ViewID, true)
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.FocusMsg:
		m.app.SetVisible(ViewID, true)
		return m, nil

	case tea.BlurMsg:
		m.app.SetVisible(ViewID, false)
		return m, nil

	case tea.KeyMsg:
		if m.inputting {
			return m.handleInputKeys(msg)
		}
		switch m.pane {
		case GridPane:
			return m.handleGridKeys(msg)
		case DirectoryPane:
			return m.handleDirectoryKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgEventsClosed:
		return m, nil
	case MsgAuthChanged:
		m.user = m.app.Session.User()
	case MsgDirectoryUpdated:
		m.syncDirectory()
	case MsgGridChanged:
		m.syncGrid()
	case MsgLoadingChanged:
		m.loading, _ = msg.data.(bool)
	case MsgNotice:
		n, _ := msg.data.(noticeData)
		m.notice, m.noticeErr = n.message, n.err
	case MsgSuggestions:
		s, _ := msg.data.(suggestionsData)
		if s.visible {
			m.suggestions = s.suggestions
		} else {
			m.suggestions = nil
		}
		if m.suggested >= len(m.suggestions) {
			m.suggested = -1
		}
	}
	return m, m.waitForEvent()
}

func (m *Model) handleGridKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moving {
		return m.handleMoveKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.pane):
		m.pane = DirectoryPane
		return m, nil
	case key.Matches(msg, m.keys.add):
		return m, m.startInput()
	case key.Matches(msg, m.keys.refresh):
		m.app.RefreshNow()
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if e, ok := m.selectedEntry(); ok {
			m.app.Grid.Remove(e.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.focus):
		if e, ok := m.selectedEntry(); ok {
			m.app.Grid.ToggleFocus(e.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.move):
		if _, ok := m.selectedEntry(); ok && len(m.layout.Entries) > 1 {
			m.moving = true
			m.drag.Start(m.gridList.Index())
			m.syncGrid()
		}
		return m, nil
	case key.Matches(msg, m.keys.open):
		if e, ok := m.selectedEntry(); ok {
			m.openURL("https://www.twitch.tv/" + e.Channel)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.gridList, cmd = m.gridList.Update(msg)
	return m, cmd
}

// handleMoveKeys drives a drag gesture from the keyboard: the cursor marks the drop target.
func (m *Model) handleMoveKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter), key.Matches(msg, m.keys.move):
		target := m.gridList.Index()
		m.drag.Drop(target)
		m.drag.End()
		m.moving = false
		m.syncGrid()
		m.gridList.Select(target)
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.drag.End()
		m.moving = false
		m.syncGrid()
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.gridList, cmd = m.gridList.Update(msg)
	if source, _ := m.drag.State(); m.gridList.Index() == source {
		m.drag.Leave(source)
	} else {
		m.drag.Over(m.gridList.Index())
	}
	m.syncGrid()
	return m, cmd
}

func (m *Model) handleDirectoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.pane):
		m.pane = GridPane
		return m, nil
	case key.Matches(msg, m.keys.add):
		return m, m.startInput()
	case key.Matches(msg, m.keys.refresh):
		m.app.RefreshNow()
		return m, nil
	case key.Matches(msg, m.keys.showMore):
		m.app.Directory.ShowMore()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		switch item := m.dirList.SelectedItem().(type) {
		case channelItem:
			m.app.Bus.Publish(events.AddChannelRequested, item.channel.Login)
		case moreItem:
			m.app.Directory.ShowMore()
		}
		return m, nil
	case key.Matches(msg, m.keys.open):
		if item, ok := m.dirList.SelectedItem().(channelItem); ok {
			m.openURL("https://www.twitch.tv/" + item.channel.Login)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.dirList, cmd = m.dirList.Update(msg)
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.stopInput()
		return m, nil
	case tea.KeyUp:
		if m.suggested >= 0 {
			m.suggested--
		}
		return m, nil
	case tea.KeyDown:
		if m.suggested < len(m.suggestions)-1 {
			m.suggested++
		}
		return m, nil
	case tea.KeyEnter:
		if m.suggested >= 0 && m.suggested < len(m.suggestions) {
			m.app.Searcher.Select(m.suggestions[m.suggested])
		} else {
			m.app.Bus.Publish(events.AddTypedRequested, m.input.Value())
		}
		m.stopInput()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before {
		m.suggested = -1
		m.app.Searcher.Input(strings.TrimSpace(value))
	}
	return m, cmd
}

func (m *Model) startInput() tea.Cmd {
	m.inputting = true
	m.notice = ""
	m.input.SetValue("")
	return m.input.Focus()
}

func (m *Model) stopInput() {
	m.inputting = false
	m.input.Blur()
	m.input.SetValue("")
	m.suggestions = nil
	m.suggested = -1
	m.app.Searcher.Hide()
}

func (m *Model) openURL(url string) {
	if err := m.open(url); err != nil {
		m.notice, m.noticeErr = fmt.Sprintf("Could not open browser: %v", err), true
	}
}

func (m *Model) selectedEntry() (models.StreamEntry, bool) {
	item, ok := m.gridList.SelectedItem().(entryItem)
	return item.entry, ok
}

func (m *Model) syncGrid() {
	m.layout = m.app.Grid.Layout()
	source, target := m.drag.State()
	items := make([]list.Item, len(m.layout.Entries))
	for i, e := range m.layout.Entries {
		items[i] = entryItem{
			entry:   e,
			focused: m.layout.FocusMode && e.ID == m.layout.FocusedID,
			moving:  m.moving && i == source,
			target:  m.moving && i == target,
		}
	}
	m.gridList.SetItems(items)
}

func (m *Model) syncDirectory() {
	m.directory = m.app.Directory.View()
	items := make([]list.Item, 0, len(m.directory.Live)+len(m.directory.Offline)+1)
	for _, c := range m.directory.Live {
		items = append(items, channelItem{channel: c})
	}
	for _, c := range m.directory.Offline {
		items = append(items, channelItem{channel: c})
	}
	if m.directory.HasMore {
		items = append(items, moreItem{remaining: m.directory.OfflineTotal - len(m.directory.Offline)})
	}
	m.dirList.SetItems(items)
}

func (m *Model) resize() {
	listHeight := max(m.height-8, 4)
	dirWidth := max(m.width/3, 24)
	m.dirList.SetSize(dirWidth, listHeight)
	m.gridList.SetSize(max(m.width-dirWidth-6, 24), listHeight)
	m.input.Width = max(m.width-20, 20)
}

// View renders the header, both panes and the status line.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.inputting {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.renderSuggestions())
	}

	dirStyle, gridStyle := styles.pane, styles.active
	if m.pane == DirectoryPane {
		dirStyle, gridStyle = styles.active, styles.pane
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		dirStyle.Render(m.dirList.View()),
		gridStyle.Render(m.renderGrid()),
	))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := styles.title.Render("multistream")
	var who string
	switch {
	case m.user != nil:
		who = styles.ok.Render(m.user.DisplayName)
	default:
		who = styles.help.Render("not logged in, run `multistream auth login`")
	}
	parts := []string{title, who}
	if m.directory.Demo {
		parts = append(parts, styles.help.Render("sample channels"))
	}
	if m.loading {
		parts = append(parts, styles.warn.Render("refreshing…"))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderGrid() string {
	if len(m.layout.Entries) == 0 {
		return styles.help.Render("No streams added yet. Add a Twitch channel to get started!")
	}
	return m.gridList.View()
}

func (m *Model) renderSuggestions() string {
	if len(m.suggestions) == 0 {
		return ""
	}
	var b strings.Builder
	for i, s := range m.suggestions {
		line := s.DisplayName
		if s.IsLive {
			line += " ● " + s.GameName
		}
		if i == m.suggested {
			b.WriteString(styles.picked.Render("› " + line))
		} else {
			b.WriteString(styles.suggest.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderStatus() string {
	var status string
	if m.notice != "" {
		if m.noticeErr {
			status = styles.err.Render(m.notice) + "\n"
		} else {
			status = styles.ok.Render(m.notice) + "\n"
		}
	}

	var keys []key.Binding
	switch {
	case m.inputting:
		keys = []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
			key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "suggestion")),
			m.keys.back,
		}
	case m.moving:
		keys = []key.Binding{
			m.keys.up, m.keys.down,
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop")),
			m.keys.back,
		}
	case m.pane == GridPane:
		keys = []key.Binding{m.keys.pane, m.keys.add, m.keys.remove, m.keys.move, m.keys.open, m.keys.quit}
		if m.layout.CanFocus {
			keys = append(keys[:3], append([]key.Binding{m.keys.focus}, keys[3:]...)...)
		}
	default:
		keys = []key.Binding{m.keys.pane, m.keys.enter, m.keys.add, m.keys.showMore, m.keys.refresh, m.keys.quit}
	}
	return status + m.help.ShortHelpView(keys)
}

// Run runs the TUI until the user quits.
func Run(ctx context.Context, a *app.App, opts ...tea.ProgramOption) error {
	m := NewModel(ctx, a)
	defer m.Close()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx)}, opts...)
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

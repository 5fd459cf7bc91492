package picker

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runger/texo/internal/frecency"
)

// keyMap holds the picker key bindings.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Backspace key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑/↓", "navigate"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "exit"),
		),
		Backspace: key.NewBinding(
			key.WithKeys("backspace", "ctrl+h"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Confirm, k.Cancel}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// Model is the Bubble Tea model for the file picker TUI. It owns a
// Selector and translates key presses into Selector events.
type Model struct {
	sel   Selector
	title string
	keys  keyMap
	help  help.Model

	width   int // Terminal width
	height  int // Terminal height
	maxRows int // 0 means as many as fit
}

// NewModel creates a picker over ranked candidates.
func NewModel(title string, candidates []frecency.Candidate) Model {
	return Model{
		sel:   *NewSelector(candidates),
		title: title,
		keys:  defaultKeyMap(),
		help:  help.New(),
	}
}

// WithMaxRows returns m drawing at most n candidate rows.
func (m Model) WithMaxRows(n int) Model {
	m.maxRows = n
	return m
}

// Result returns the chosen path, or false if nothing was chosen.
func (m Model) Result() (string, bool) {
	return m.sel.Result()
}

// IsCancelled reports whether the user aborted the picker.
func (m Model) IsCancelled() bool {
	return m.sel.State() == StateCancelled
}

// State returns the selector state.
func (m Model) State() State {
	return m.sel.State()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	}

	return m, nil
}

// handleKey maps a key press to a Selector event.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var ev Event
	switch {
	case key.Matches(msg, m.keys.Cancel):
		ev = Event{Kind: EventCancel}
	case key.Matches(msg, m.keys.Confirm):
		ev = Event{Kind: EventConfirm}
	case key.Matches(msg, m.keys.Up):
		ev = Event{Kind: EventUp}
	case key.Matches(msg, m.keys.Down):
		ev = Event{Kind: EventDown}
	case key.Matches(msg, m.keys.Backspace):
		ev = Event{Kind: EventBackspace}
	case msg.Type == tea.KeySpace:
		ev = Type(" ")
	case msg.Type == tea.KeyRunes:
		ev = Type(string(msg.Runes))
	default:
		return m, nil
	}

	if m.sel.Apply(ev).Terminal() {
		return m, tea.Quit
	}
	return m, nil
}

// listHeight returns the number of visible list rows.
func (m Model) listHeight() int {
	// title, counter, filter line, help footer
	const chrome = 4
	h := m.height - chrome
	if m.height == 0 {
		h = 20 // Sensible default before first WindowSizeMsg
	}
	if m.maxRows > 0 && h > m.maxRows {
		h = m.maxRows
	}
	if h < 1 {
		h = 1
	}
	return h
}

// scrollStart returns the first visible row so that the highlight stays
// on screen.
func scrollStart(index, total, height int) int {
	if index < height || total <= height {
		return 0
	}
	start := index - height + 1
	if start > total-height {
		start = total - height
	}
	return start
}

// --- View rendering ---

var (
	titleStyle         = lipgloss.NewStyle().Bold(true)
	selectedStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("238"))
	selectedMatchStyle = selectedStyle.Foreground(lipgloss.Color("214"))
	normalStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	matchStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	queryStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	selectedMarker = ">> "
	normalMarker   = "   "
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteRune('\n')

	b.WriteString(m.viewList())
	b.WriteRune('\n')

	b.WriteString(dimStyle.Render(fmt.Sprintf("%d/%d", len(m.sel.Visible()), len(m.sel.all))))
	b.WriteRune('\n')

	b.WriteString(queryStyle.Render("> ") + m.sel.Filter())
	b.WriteRune('\n')

	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// viewList renders the visible candidates with the highlight marker.
func (m Model) viewList() string {
	visible := m.sel.Visible()
	if len(visible) == 0 {
		return dimStyle.Render("No matches")
	}

	height := m.listHeight()
	start := scrollStart(m.sel.Index(), len(visible), height)
	end := start + height
	if end > len(visible) {
		end = len(visible)
	}

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.viewRow(visible[i], i == m.sel.Index()))
	}
	return strings.Join(rows, "\n")
}

// viewRow renders one candidate, highlighting the matched span when the
// path is displayed unmodified.
func (m Model) viewRow(c frecency.Candidate, selected bool) string {
	base, hl, marker := normalStyle, matchStyle, normalMarker
	if selected {
		base, hl, marker = selectedStyle, selectedMatchStyle, selectedMarker
	}

	display := DisplayPath(c.Path)
	if m.width > len(marker)+1 {
		display = MiddleTruncate(display, m.width-len(marker))
	}

	if display != c.Path || c.MatchEnd <= c.MatchStart {
		return base.Render(marker + display)
	}

	return base.Render(marker+c.Path[:c.MatchStart]) +
		hl.Render(c.Path[c.MatchStart:c.MatchEnd]) +
		base.Render(c.Path[c.MatchEnd:])
}

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cointhing/cointhing/internal/link"
)

// Messages delivered by the watch subscription
type updateMsg struct{ update link.Update }
type linkClosedMsg struct{}

type watchKeyMap struct {
	Help key.Binding
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Help, k.Quit}}
}

// WatchModel shows the device's settings and redraws on every push.
type WatchModel struct {
	Source  string
	Current *link.Update
	Pushes  int
	LastAt  time.Time
	Closed  bool

	updates <-chan link.Update
	done    <-chan struct{}

	Width   int
	Spinner spinner.Model
	Help    help.Model
	Keys    watchKeyMap
}

// NewWatchModel builds a watch view fed by updates until done closes.
// initial may be nil when the current settings are not yet known.
func NewWatchModel(source string, initial *link.Update, updates <-chan link.Update, done <-chan struct{}) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return WatchModel{
		Source:  source,
		Current: initial,
		updates: updates,
		done:    done,
		Width:   GetTerminalWidth(),
		Spinner: s,
		Help:    help.New(),
		Keys: watchKeyMap{
			Help: key.NewBinding(
				key.WithKeys("?"),
				key.WithHelp("?", "help"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

// waitForUpdate blocks until the next push or until the link closes.
func waitForUpdate(updates <-chan link.Update, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case u, ok := <-updates:
			if !ok {
				return linkClosedMsg{}
			}
			return updateMsg{update: u}
		case <-done:
			return linkClosedMsg{}
		}
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates, m.done), m.Spinner.Tick)
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Help):
			m.Help.ShowAll = !m.Help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = clampWidth(msg.Width)
		m.Help.Width = msg.Width
		return m, nil

	case updateMsg:
		u := msg.update
		m.Current = &u
		m.Pushes++
		m.LastAt = time.Now()
		return m, waitForUpdate(m.updates, m.done)

	case linkClosedMsg:
		m.Closed = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	status := fmt.Sprintf("%s Watching %s", m.Spinner.View(), m.Source)
	if m.Closed {
		status = ErrorTitleStyle.Render(FailureMarker) + " Link to " + m.Source + " closed"
	}
	b.WriteString(HeaderTitleStyle.Render(status))
	b.WriteString("\n")

	note := "no changes yet"
	if m.Pushes > 0 {
		note = fmt.Sprintf("%d change(s), last at %s", m.Pushes, m.LastAt.Format("15:04:05"))
	}
	b.WriteString(HeaderCommandStyle.Render(note))
	b.WriteString("\n\n")

	if m.Current == nil {
		b.WriteString(NoteStyle.Render("  waiting for settings..."))
	} else {
		b.WriteString(RenderSettings(m.Current.Settings, m.Current.Brightness, m.Width))
	}
	b.WriteString("\n\n")
	b.WriteString("  " + m.Help.View(m.Keys))
	b.WriteString("\n")
	return b.String()
}

// RunWatch runs the watch view until the user quits or the link closes.
func RunWatch(m WatchModel) error {
	_, err := tea.NewProgram(m).Run()
	return err
}

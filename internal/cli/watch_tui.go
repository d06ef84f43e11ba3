package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/matic113/freelance-platform-sub003/internal/cli/formatter"
	"github.com/matic113/freelance-platform-sub003/internal/events"
)

// maxWatchLines bounds the event log kept in memory.
const maxWatchLines = 500

type eventMsg events.Event

type watchDoneMsg struct{ err error }

type watchKeys struct {
	Quit  key.Binding
	Clear key.Binding
}

func defaultWatchKeys() watchKeys {
	return watchKeys{
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc")),
		Clear: key.NewBinding(key.WithKeys("c")),
	}
}

// watchModel is the full-screen event log behind "watch --tui".
type watchModel struct {
	contracts []string
	keys      watchKeys
	vp        viewport.Model
	ready     bool
	lines     []string
	err       error
}

func newWatchModel(contracts []string) watchModel {
	return watchModel{contracts: contracts, keys: defaultWatchKeys()}
}

func (m watchModel) Init() tea.Cmd { return nil }

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-3, 1)
		if !m.ready {
			m.vp = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.vp.Width, m.vp.Height = msg.Width, height
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.lines = nil
			m.refresh()
			return m, nil
		}

	case eventMsg:
		m.lines = append(m.lines, formatter.FormatEvent(events.Event(msg)))
		if len(m.lines) > maxWatchLines {
			m.lines = m.lines[len(m.lines)-maxWatchLines:]
		}
		m.refresh()
		return m, nil

	case watchDoneMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.ready {
		m.vp, cmd = m.vp.Update(msg)
	}
	return m, cmd
}

func (m *watchModel) refresh() {
	if !m.ready {
		return
	}
	m.vp.SetContent(strings.Join(m.lines, "\n"))
	m.vp.GotoBottom()
}

func (m watchModel) View() string {
	header := formatter.Header(fmt.Sprintf("Watching %d contract(s)", len(m.contracts)))
	footer := formatter.Dim(fmt.Sprintf("%d event(s)  q quit  c clear", len(m.lines)))
	body := strings.Join(m.lines, "\n")
	if m.ready {
		body = m.vp.View()
	}
	if len(m.lines) == 0 {
		body = formatter.Dim("Waiting for updates...")
	}
	return header + "\n" + body + "\n" + footer
}

// Package tui is the terminal table watcher. Spectators see every state push
// for one table; players can also type moves.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/parlor/internal/render"
	"github.com/lox/parlor/internal/server"
)

const requestTimeout = 10 * time.Second

// Actor sends moves on behalf of the seated participant.
type Actor interface {
	Action(ctx context.Context, t server.MessageType, data any) (server.StateData, error)
}

// StateMsg carries a table view pushed by the server or returned by a move.
type StateMsg server.StateData

// ErrMsg reports a rejected command.
type ErrMsg struct{ Err error }

// DisconnectedMsg ends the program when the connection drops.
type DisconnectedMsg struct{}

// Model is the bubbletea model for one table.
type Model struct {
	game    server.Game
	tableID string
	actor   Actor
	logger  *log.Logger

	viewport viewport.Model
	input    textinput.Model
	content  string
	status   string
	failed   bool

	width    int
	height   int
	quitting bool
}

// NewModel watches game/tableID. A nil actor makes a read-only spectator.
func NewModel(game server.Game, tableID string, actor Actor, logger *log.Logger) *Model {
	vp := viewport.New(80, 20)

	ti := textinput.New()
	ti.Placeholder = "roll, move 2, play JS, bid 18 H, call, start, bots 3"
	ti.CharLimit = 64
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	if actor != nil {
		ti.Focus()
	}

	return &Model{
		game:     game,
		tableID:  tableID,
		actor:    actor,
		logger:   logger.WithPrefix("tui"),
		viewport: vp,
		input:    ti,
	}
}

// SetState replaces the rendered table, ignoring other tables' pushes.
func (m *Model) SetState(s server.StateData) {
	if s.Game != m.game || s.TableID != m.tableID {
		return
	}
	out, err := render.State(string(s.Game), s.View)
	if err != nil {
		m.logger.Error("Failed to render state", "error", err)
		m.setStatus(err.Error(), true)
		return
	}
	m.content = out
	m.viewport.SetContent(out)
}

// Content returns the current table rendering.
func (m *Model) Content() string { return m.content }

// Status returns the status line text.
func (m *Model) Status() string { return m.status }

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

func (m *Model) Init() tea.Cmd {
	if m.actor != nil {
		return textinput.Blink
	}
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = max(msg.Width, 1)
		m.viewport.Height = max(msg.Height-m.chromeHeight(), 1)
		m.viewport.SetContent(m.content)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "q":
			if m.actor == nil {
				m.quitting = true
				return m, tea.Quit
			}
		case "enter":
			if m.actor != nil {
				cmds = append(cmds, m.submit(m.input.Value()))
				m.input.SetValue("")
			}
		}

	case StateMsg:
		m.SetState(server.StateData(msg))

	case ErrMsg:
		m.setStatus(msg.Err.Error(), true)

	case DisconnectedMsg:
		m.setStatus("disconnected", true)
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.actor != nil {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit parses a typed command and sends it in the background.
func (m *Model) submit(line string) tea.Cmd {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	t, data, err := ParseCommand(m.game, m.tableID, line)
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	m.setStatus("sent "+strings.TrimSpace(line), false)
	m.logger.Debug("Sending command", "type", t)

	actor := m.actor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		state, err := actor.Action(ctx, t, data)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return StateMsg(state)
	}
}

// chromeHeight is the rows taken by everything but the viewport.
func (m *Model) chromeHeight() int {
	if m.actor != nil {
		return 4
	}
	return 3
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(render.HeaderStyle.Render(fmt.Sprintf("parlor · %s · %s", m.game, m.tableID)))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.status == "":
		b.WriteString(render.InfoStyle.Render("waiting for updates"))
	case m.failed:
		b.WriteString(render.ErrorStyle.Render(m.status))
	default:
		b.WriteString(render.SuccessStyle.Render(m.status))
	}
	b.WriteString("\n")

	if m.actor != nil {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(render.InfoStyle.Render("Enter to send • PgUp/PgDn scroll • Esc to quit"))
	} else {
		b.WriteString(render.InfoStyle.Render("PgUp/PgDn scroll • q to quit"))
	}
	return b.String()
}

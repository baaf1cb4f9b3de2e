package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/parlor/internal/client"
	"github.com/lox/parlor/internal/server"
)

// Watch subscribes c to a table and runs the TUI until the user quits, ctx
// ends or the connection drops. With play set, typed commands are sent as
// moves.
func Watch(ctx context.Context, c *client.Client, game server.Game, tableID string, play bool, logger *log.Logger) error {
	state, err := c.Subscribe(ctx, game, tableID)
	if err != nil {
		return fmt.Errorf("subscribe to %s %s: %w", game, tableID, err)
	}

	var actor Actor
	if play {
		actor = c
	}
	m := NewModel(game, tableID, actor, logger)
	m.SetState(state)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	c.AddEventHandler(server.MessageTypeState, func(msg *server.Message) {
		var data server.StateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			logger.Warn("Dropping malformed state push", "error", err)
			return
		}
		p.Send(StateMsg(data))
	})
	go func() {
		select {
		case <-c.Done():
			p.Send(DisconnectedMsg{})
		case <-ctx.Done():
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

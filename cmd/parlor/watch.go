package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lox/parlor/internal/client"
	"github.com/lox/parlor/internal/render"
	"github.com/lox/parlor/internal/server"
	"github.com/lox/parlor/internal/tui"
)

// ClientFlags are shared by the commands that connect to a server.
type ClientFlags struct {
	Server   string `short:"s" default:"http://localhost:8080" env:"PARLOR_SERVER" help:"Server URL"`
	LogLevel string `short:"l" default:"warn" help:"Log level"`
	NoColor  bool   `help:"Disable colour output"`
}

func (f ClientFlags) connect(ctx context.Context) (*client.Client, error) {
	render.SetColor(!f.NoColor)
	c := client.NewClient(f.Server, newLogger(f.LogLevel))
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.Connect(dialCtx); err != nil {
		return nil, err
	}
	return c, nil
}

// WatchCmd opens the table TUI. With --token the participant is
// authenticated and can type moves.
type WatchCmd struct {
	ClientFlags
	Game  string `arg:"" enum:"teenpatti,ludo,twentynine" help:"Game of the table"`
	Table string `arg:"" help:"Table id"`
	Token string `short:"t" env:"PARLOR_TOKEN" help:"Auth token; enables playing"`
	Join  bool   `help:"Join the table before watching (needs --token)"`
	BuyIn int    `help:"Teen Patti buy-in when joining"`
}

func (c *WatchCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(c.LogLevel)
	cl, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	game := server.Game(c.Game)
	play := c.Token != ""
	if play {
		id, err := cl.Auth(ctx, c.Token)
		if err != nil {
			return err
		}
		logger.Info("Authenticated", "id", id.ParticipantID)
		if c.Join {
			if _, err := cl.Join(ctx, game, c.Table, c.BuyIn); err != nil {
				return fmt.Errorf("join %s: %w", c.Table, err)
			}
		}
	} else if c.Join {
		return fmt.Errorf("--join needs --token")
	}

	return tui.Watch(ctx, cl, game, c.Table, play, logger)
}

// TablesCmd prints the lobby of a running server.
type TablesCmd struct {
	ClientFlags
	Game string `arg:"" optional:"" enum:"teenpatti,ludo,twentynine," default:"" help:"Only list this game"`
}

func (c *TablesCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cl, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	lobby, err := cl.ListTables(ctx, server.Game(c.Game))
	if err != nil {
		return err
	}
	fmt.Println(render.Lobby(lobby.TeenPatti, lobby.Ludo, lobby.TwentyNine))
	return nil
}

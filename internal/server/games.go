package server

import (
	"fmt"

	"github.com/lox/parlor/internal/ludo"
	"github.com/lox/parlor/internal/table"
	"github.com/lox/parlor/internal/teenpatti"
	"github.com/lox/parlor/internal/twentynine"
)

// Game names one of the engines served.
type Game string

const (
	GameTeenPatti  Game = "teenpatti"
	GameLudo       Game = "ludo"
	GameTwentyNine Game = "twentynine"
)

// Games bundles the engines behind the server.
type Games struct {
	TeenPatti  *teenpatti.Engine
	Ludo       *ludo.Engine
	TwentyNine *twentynine.Engine
}

func (g *Games) check(game Game) error {
	switch game {
	case GameTeenPatti, GameLudo, GameTwentyNine:
		return nil
	}
	return table.Illegal("unknown game %q", game)
}

// Lobby lists the tables of game, or of every game when game is empty.
func (g *Games) Lobby(game Game) (Lobby, error) {
	var l Lobby
	if game != "" {
		if err := g.check(game); err != nil {
			return l, err
		}
	}
	if game == "" || game == GameTeenPatti {
		l.TeenPatti = g.TeenPatti.ListTables()
	}
	if game == "" || game == GameLudo {
		l.Ludo = g.Ludo.ListTables()
	}
	if game == "" || game == GameTwentyNine {
		l.TwentyNine = g.TwentyNine.ListTables()
	}
	return l, nil
}

// View returns viewerID's copy of a table.
func (g *Games) View(game Game, tableID, viewerID string) (any, error) {
	switch game {
	case GameTeenPatti:
		return g.TeenPatti.State(tableID, viewerID)
	case GameLudo:
		return g.Ludo.State(tableID, viewerID)
	case GameTwentyNine:
		return g.TwentyNine.State(tableID, viewerID)
	}
	return nil, g.check(game)
}

// Join seats a human participant. The resulting table is handed to ch.
func (g *Games) Join(game Game, tableID, participantID, name string, buyIn int, ch *change) error {
	var err error
	switch game {
	case GameTeenPatti:
		_, err = g.TeenPatti.Join(tableID, participantID, name, buyIn, false, observe[teenpatti.View](ch))
	case GameLudo:
		_, err = g.Ludo.Join(tableID, participantID, name, false, observe[ludo.View](ch))
	case GameTwentyNine:
		_, err = g.TwentyNine.Join(tableID, participantID, name, false, observe[twentynine.View](ch))
	default:
		err = g.check(game)
	}
	return err
}

func (g *Games) AddBots(game Game, tableID string, count int, ch *change) error {
	var err error
	switch game {
	case GameTeenPatti:
		_, err = g.TeenPatti.AddBots(tableID, count, observe[teenpatti.View](ch))
	case GameLudo:
		_, err = g.Ludo.AddBots(tableID, count, observe[ludo.View](ch))
	case GameTwentyNine:
		_, err = g.TwentyNine.AddBots(tableID, count, observe[twentynine.View](ch))
	default:
		err = g.check(game)
	}
	return err
}

// Start begins a Ludo game or Twenty-Nine hand. Teen Patti hands start on
// their own once two players are seated.
func (g *Games) Start(game Game, tableID string, ch *change) error {
	var err error
	switch game {
	case GameLudo:
		_, err = g.Ludo.Start(tableID, observe[ludo.View](ch))
	case GameTwentyNine:
		_, err = g.TwentyNine.Start(tableID, observe[twentynine.View](ch))
	case GameTeenPatti:
		err = table.InvalidState("teen patti hands start automatically")
	default:
		err = g.check(game)
	}
	if err != nil {
		return fmt.Errorf("start %s: %w", game, err)
	}
	return nil
}

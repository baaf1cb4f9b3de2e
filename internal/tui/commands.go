package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/parlor/internal/server"
)

// ParseCommand turns a typed line into a protocol message for game.
//
//	teenpatti:  pack | see | call | raise <amount> | show
//	ludo:       roll | move <token>
//	twentynine: bid <amount> <suit> | play <card>
//
// "start" and "bots <n>" work at any table.
func ParseCommand(game server.Game, tableID, input string) (server.MessageType, any, error) {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	verb, args := fields[0], fields[1:]

	intArg := func(i int, what string) (int, error) {
		if len(args) <= i {
			return 0, fmt.Errorf("%s needs %s", verb, what)
		}
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", what, args[i])
		}
		return n, nil
	}

	switch verb {
	case "start":
		return server.MessageTypeStart, server.TableRef{Game: game, TableID: tableID}, nil
	case "bots":
		n := 1
		if len(args) > 0 {
			var err error
			if n, err = intArg(0, "a count"); err != nil {
				return "", nil, err
			}
		}
		return server.MessageTypeAddBots, server.AddBotsData{Game: game, TableID: tableID, Count: n}, nil
	}

	switch game {
	case server.GameTeenPatti:
		switch verb {
		case "pack", "see", "call", "show":
			return server.MessageTypeAct, server.ActData{Action: verb}, nil
		case "raise":
			amount, err := intArg(0, "an amount")
			if err != nil {
				return "", nil, err
			}
			return server.MessageTypeAct, server.ActData{Action: verb, Amount: amount}, nil
		}
	case server.GameLudo:
		switch verb {
		case "roll":
			return server.MessageTypeRoll, struct{}{}, nil
		case "move":
			token, err := intArg(0, "a token")
			if err != nil {
				return "", nil, err
			}
			return server.MessageTypeMove, server.MoveData{TokenID: token}, nil
		}
	case server.GameTwentyNine:
		switch verb {
		case "bid":
			amount, err := intArg(0, "an amount")
			if err != nil {
				return "", nil, err
			}
			if len(args) < 2 {
				return "", nil, fmt.Errorf("bid needs a trump suit")
			}
			return server.MessageTypeBid, server.BidData{Amount: amount, Trump: strings.ToUpper(args[1])}, nil
		case "play":
			if len(args) < 1 {
				return "", nil, fmt.Errorf("play needs a card")
			}
			return server.MessageTypePlay, server.PlayData{Card: strings.ToUpper(args[0])}, nil
		}
	}
	return "", nil, fmt.Errorf("unknown command %q for %s", verb, game)
}

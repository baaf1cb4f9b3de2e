package ludo

import "time"

type EventKind string

const (
	EventJoin      EventKind = "join"
	EventBotJoin   EventKind = "bot_join"
	EventGameStart EventKind = "game_start"
	EventRoll      EventKind = "roll"
	EventForfeit   EventKind = "turn_forfeit"
	EventNoMove    EventKind = "no_move"
	EventMove      EventKind = "move"
	EventFinished  EventKind = "player_finished"
	EventGameEnd   EventKind = "game_end"
)

// Event is an entry in the table's capped log.
type Event struct {
	At          time.Time `json:"at"`
	Game        int       `json:"game"`
	Kind        EventKind `json:"event"`
	Participant string    `json:"participantId,omitempty"`
	Die         int       `json:"die,omitempty"`
	Token       int       `json:"token,omitempty"`
	From        int       `json:"from,omitempty"`
	To          int       `json:"to,omitempty"`
	Captured    []string  `json:"captured,omitempty"`
	Rank        int       `json:"rank,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Players   int    `json:"players"`
	Active    bool   `json:"active"`
	AutoStart bool   `json:"autoStart"`
}

// View is a copy of the table. Ludo hides nothing, so every viewer sees the
// same board; Movable is filled only for the viewer holding a pending roll.
type View struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Active        bool         `json:"active"`
	GameNumber    int          `json:"gameNumber"`
	CurrentPlayer string       `json:"currentPlayer,omitempty"`
	Dice          int          `json:"dice,omitempty"`
	PendingMove   bool         `json:"pendingMove"`
	Sixes         int          `json:"sixes"`
	Winners       []string     `json:"winners"`
	Blockades     []int        `json:"blockades"`
	Players       []PlayerView `json:"players"`
	Movable       []int        `json:"movable"`
	Log           []Event      `json:"log"`
}

type PlayerView struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Color  Color       `json:"color"`
	Bot    bool        `json:"bot"`
	Rank   int         `json:"rank,omitempty"`
	Tokens []TokenView `json:"tokens"`
}

type TokenView struct {
	ID       int  `json:"id"`
	Step     int  `json:"step"`
	Finished bool `json:"finished"`
	Cell     *int `json:"cell"`
}

func (t *Table) summary() Summary {
	return Summary{
		ID:        t.cfg.ID,
		Name:      t.cfg.Name,
		Players:   len(t.players),
		Active:    t.active,
		AutoStart: t.cfg.AutoStart,
	}
}

func (t *Table) view(viewerID string) View {
	b := t.board()
	v := View{
		ID:          t.cfg.ID,
		Name:        t.cfg.Name,
		Active:      t.active,
		GameNumber:  t.gameNumber,
		Dice:        t.dice,
		PendingMove: t.pending,
		Sixes:       t.sixes,
		Winners:     append([]string(nil), t.winners...),
		Blockades:   b.Blockades(),
		Players:     make([]PlayerView, 0, len(t.players)),
		Movable:     []int{},
		Log:         t.events.Items(),
	}
	if t.active && t.turn < len(t.players) {
		current := t.players[t.turn]
		v.CurrentPlayer = current.id
		if t.pending && viewerID != "" && current.id == viewerID {
			v.Movable = b.Movable(t.turn, t.dice)
		}
	}
	for seat, p := range t.players {
		pv := PlayerView{ID: p.id, Name: p.name, Color: p.color, Bot: p.bot, Rank: p.rank}
		for token, step := range p.tokens {
			tv := TokenView{ID: token, Step: step, Finished: step == FinishStep}
			if cell, ok := b.Cell(seat, step); ok {
				tv.Cell = &cell
			}
			pv.Tokens = append(pv.Tokens, tv)
		}
		v.Players = append(v.Players, pv)
	}
	return v
}

// Observer receives a table after a successful change, with the table lock
// still held. view renders the table for any viewer and is only valid during
// the call.
type Observer func(tableID string, view func(viewerID string) View)

func (t *Table) notify(observers []Observer) {
	for _, o := range observers {
		o(t.cfg.ID, t.view)
	}
}

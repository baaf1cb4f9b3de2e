package teenpatti

import (
	"time"

	"github.com/lox/parlor/internal/cards"
)

// HiddenCard replaces a card the viewer may not see.
const HiddenCard = "XX"

// EventKind names an entry in a table's event log.
type EventKind string

const (
	EventJoin          EventKind = "join"
	EventBotJoin       EventKind = "bot_join"
	EventRemoved       EventKind = "removed"
	EventHandStart     EventKind = "hand_start"
	EventHandCancelled EventKind = "hand_cancelled"
	EventAction        EventKind = "action"
	EventBotAction     EventKind = "bot_action"
	EventHandEnd       EventKind = "hand_end"
)

// Event is an entry in the table's capped log.
type Event struct {
	At          time.Time `json:"at"`
	Hand        int       `json:"hand"`
	Kind        EventKind `json:"event"`
	Participant string    `json:"participantId,omitempty"`
	Action      Action    `json:"action,omitempty"`
	Amount      int       `json:"amount,omitempty"`
	Pot         int       `json:"pot,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// Reason is how a hand ended.
type Reason string

const (
	ReasonFold Reason = "fold"
	ReasonShow Reason = "show"
	ReasonDraw Reason = "draw"
)

// Result describes the most recently settled hand.
type Result struct {
	Hand    int         `json:"hand"`
	Reason  Reason      `json:"reason"`
	Pot     int         `json:"pot"`
	Winners []Payout    `json:"winners"`
	Shown   []ShownHand `json:"shown,omitempty"`
}

type Payout struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

type ShownHand struct {
	ID       string   `json:"id"`
	Cards    []string `json:"cards"`
	Category string   `json:"category"`
}

// Summary is the lobby listing of a table.
type Summary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Ante       int    `json:"ante"`
	MinBuyIn   int    `json:"minBuyIn"`
	MaxBuyIn   int    `json:"maxBuyIn"`
	HandActive bool   `json:"handActive"`
}

// View is a viewer's copy of a table. It shares no memory with the table.
type View struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Ante          int          `json:"ante"`
	MinBuyIn      int          `json:"minBuyIn"`
	MaxBuyIn      int          `json:"maxBuyIn"`
	MaxPlayers    int          `json:"maxPlayers"`
	HandActive    bool         `json:"handActive"`
	HandNumber    int          `json:"handNumber"`
	Pot           int          `json:"pot"`
	CurrentBet    int          `json:"currentBet"`
	Dealer        int          `json:"dealer"`
	CurrentPlayer string       `json:"currentPlayer,omitempty"`
	Players       []PlayerView `json:"players"`
	Log           []Event      `json:"log"`
	LastResult    *Result      `json:"lastResult,omitempty"`
}

type PlayerView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Bot         bool     `json:"bot"`
	Chips       int      `json:"chips"`
	Seen        bool     `json:"seen"`
	Packed      bool     `json:"packed"`
	Contributed int      `json:"contributed"`
	Cards       []string `json:"cards"`
}

func (t *Table) summary() Summary {
	return Summary{
		ID:         t.cfg.ID,
		Name:       t.cfg.Name,
		Players:    len(t.players),
		MaxPlayers: t.cfg.MaxPlayers,
		Ante:       t.cfg.Ante,
		MinBuyIn:   t.cfg.MinBuyIn,
		MaxBuyIn:   t.cfg.MaxBuyIn,
		HandActive: t.active,
	}
}

// view copies the table for viewerID. While a hand is active every other
// seat's cards are replaced with placeholders.
func (t *Table) view(viewerID string) View {
	v := View{
		ID:         t.cfg.ID,
		Name:       t.cfg.Name,
		Ante:       t.cfg.Ante,
		MinBuyIn:   t.cfg.MinBuyIn,
		MaxBuyIn:   t.cfg.MaxBuyIn,
		MaxPlayers: t.cfg.MaxPlayers,
		HandActive: t.active,
		HandNumber: t.handNumber,
		Pot:        t.pot,
		CurrentBet: t.bet,
		Dealer:     t.dealer,
		Players:    make([]PlayerView, 0, len(t.players)),
		Log:        t.events.Items(),
	}
	if t.active && t.turn < len(t.players) {
		v.CurrentPlayer = t.players[t.turn].id
	}
	for _, p := range t.players {
		pv := PlayerView{
			ID:          p.id,
			Name:        p.name,
			Bot:         p.bot,
			Chips:       p.chips,
			Seen:        p.seen,
			Packed:      p.packed,
			Contributed: p.contributed,
		}
		if !t.active || p.id == viewerID {
			pv.Cards = cards.Codes(p.cards)
		} else {
			pv.Cards = make([]string, len(p.cards))
			for i := range pv.Cards {
				pv.Cards[i] = HiddenCard
			}
		}
		v.Players = append(v.Players, pv)
	}
	if t.last != nil {
		last := *t.last
		last.Winners = append([]Payout(nil), t.last.Winners...)
		last.Shown = make([]ShownHand, len(t.last.Shown))
		for i, s := range t.last.Shown {
			s.Cards = append([]string(nil), s.Cards...)
			last.Shown[i] = s
		}
		v.LastResult = &last
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

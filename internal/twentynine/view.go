package twentynine

import (
	"time"

	"github.com/lox/parlor/internal/cards"
)

const HiddenCard = "XX"

type EventKind string

const (
	EventJoin      EventKind = "join"
	EventBotJoin   EventKind = "bot_join"
	EventHandStart EventKind = "hand_start"
	EventBid       EventKind = "bid"
	EventBotBid    EventKind = "bot_bid"
	EventForcedBid EventKind = "forced_bid"
	EventPlay      EventKind = "play"
	EventBotPlay   EventKind = "bot_play"
	EventTrickWin  EventKind = "trick_win"
	EventHandEnd   EventKind = "hand_end"
)

type Event struct {
	At          time.Time `json:"at"`
	Hand        int       `json:"hand"`
	Kind        EventKind `json:"event"`
	Participant string    `json:"participantId,omitempty"`
	Amount      int       `json:"amount,omitempty"`
	Trump       string    `json:"trump,omitempty"`
	Card        string    `json:"card,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// Result settles a hand against the winning bid.
type Result struct {
	Hand         int    `json:"hand"`
	Bidder       string `json:"bidder"`
	Bid          int    `json:"bid"`
	Trump        string `json:"trump"`
	Forced       bool   `json:"forced"`
	BidderTeam   int    `json:"bidderTeam"`
	BidderPoints int    `json:"bidderPoints"`
	TeamPoints   [2]int `json:"teamPoints"`
	ContractMade bool   `json:"contractMade"`
}

type Summary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Active     bool   `json:"active"`
}

type TrickCard struct {
	Participant string `json:"participantId"`
	Card        string `json:"card"`
}

type View struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Active        bool         `json:"active"`
	HandNumber    int          `json:"handNumber"`
	CurrentPlayer string       `json:"currentPlayer,omitempty"`
	HighestBid    int          `json:"highestBid"`
	Bidder        string       `json:"bidder,omitempty"`
	ForcedBid     bool         `json:"forcedBid"`
	Trump         string       `json:"trump,omitempty"`
	BiddingOpen   bool         `json:"biddingOpen"`
	Trick         []TrickCard  `json:"trick"`
	LastTrick     []TrickCard  `json:"lastTrick,omitempty"`
	TeamPoints    [2]int       `json:"teamPoints"`
	Players       []PlayerView `json:"players"`
	Log           []Event      `json:"log"`
	LastResult    *Result      `json:"lastResult,omitempty"`
}

type PlayerView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Bot       bool     `json:"bot"`
	Team      int      `json:"team"`
	WonTricks int      `json:"wonTricks"`
	Cards     []string `json:"cards"`
}

func (t *Table) summary() Summary {
	return Summary{
		ID:         t.cfg.ID,
		Name:       t.cfg.Name,
		Players:    len(t.players),
		MaxPlayers: Seats,
		Active:     t.active,
	}
}

func (t *Table) trickCards(trick []Played) []TrickCard {
	out := make([]TrickCard, 0, len(trick))
	for _, pl := range trick {
		out = append(out, TrickCard{Participant: t.players[pl.Seat].id, Card: pl.Card.String()})
	}
	return out
}

// view copies the table for viewerID, hiding other hands while a hand is
// in play.
func (t *Table) view(viewerID string) View {
	v := View{
		ID:          t.cfg.ID,
		Name:        t.cfg.Name,
		Active:      t.active,
		HandNumber:  t.handNumber,
		HighestBid:  t.highest,
		ForcedBid:   t.forced,
		BiddingOpen: t.active && t.played == 0,
		Trick:       t.trickCards(t.trick),
		TeamPoints:  t.teamPoints,
		Players:     make([]PlayerView, 0, len(t.players)),
		Log:         t.events.Items(),
	}
	if t.bidder >= 0 {
		v.Bidder = t.players[t.bidder].id
		v.Trump = t.trump.String()
	}
	if len(t.lastTrick) > 0 {
		v.LastTrick = t.trickCards(t.lastTrick)
	}
	if t.active {
		v.CurrentPlayer = t.players[t.turn].id
	}
	for idx, p := range t.players {
		pv := PlayerView{
			ID:        p.id,
			Name:      p.name,
			Bot:       p.bot,
			Team:      idx % 2,
			WonTricks: p.wonTricks,
		}
		if !t.active || p.id == viewerID {
			pv.Cards = cards.Codes(p.hand)
		} else {
			pv.Cards = make([]string, len(p.hand))
			for i := range pv.Cards {
				pv.Cards[i] = HiddenCard
			}
		}
		v.Players = append(v.Players, pv)
	}
	if t.last != nil {
		last := *t.last
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

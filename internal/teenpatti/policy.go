package teenpatti

import (
	"github.com/lox/parlor/internal/cards"
	"github.com/lox/parlor/internal/randutil"
)

// SeatInfo is a player's state as a policy sees it, cards included.
type SeatInfo struct {
	ID    string
	Chips int
	Seen  bool
	Cards []cards.Card
}

// Situation is everything a bot knows when it is due to act. Bots see every
// holding at the table.
type Situation struct {
	Self       SeatInfo
	Opponents  []SeatInfo // still in the hand
	CurrentBet int
	Pot        int
}

// Decision is a policy's chosen action.
type Decision struct {
	Action Action
	Amount int
	Reason string
}

// Policy decides bot actions.
type Policy interface {
	Decide(s Situation) Decision
}

// Dominance thresholds for ElitePolicy.
const (
	packBelow  = 0.2
	showAt     = 0.95
	raiseAt    = 0.75
	callAt     = 0.4
	raiseScale = 8
)

// ElitePolicy plays with perfect information: it measures how many live
// opponents its hand beats and climbs a fixed ladder from pack to show.
type ElitePolicy struct {
	rng       randutil.Source
	BluffRate float64
}

func NewElitePolicy(rng randutil.Source) *ElitePolicy {
	return &ElitePolicy{rng: rng, BluffRate: 0.05}
}

func (p *ElitePolicy) Decide(s Situation) Decision {
	seen := s.Self.Seen
	call := Commit(Call, seen, s.CurrentBet, 0)
	raise := Commit(Raise, seen, s.CurrentBet, raiseScale*s.CurrentBet)
	chips := s.Self.Chips

	if chips < call {
		return Decision{Action: Pack, Reason: "cannot cover the call"}
	}

	dom := dominance(s.Self.Cards, s.Opponents)
	switch {
	case dom < packBelow:
		return Decision{Action: Pack, Reason: "beaten"}
	case len(s.Opponents) == 1 && dom >= showAt:
		return Decision{Action: Show, Reason: "dominant heads-up"}
	case dom >= raiseAt && chips >= raise:
		return Decision{Action: Raise, Amount: raise, Reason: "strong"}
	case dom >= callAt:
		return Decision{Action: Call, Amount: call, Reason: "competitive"}
	}
	if p.rng.Float64() < p.BluffRate && chips >= raise {
		return Decision{Action: Raise, Amount: raise, Reason: "bluff"}
	}
	return Decision{Action: Pack, Reason: "weak"}
}

// dominance is the share of opponents hand beats, counting a draw as half.
func dominance(hand []cards.Card, opponents []SeatInfo) float64 {
	if len(opponents) == 0 {
		return 1
	}
	wins := 0.0
	for _, o := range opponents {
		cmp, err := Compare(hand, o.Cards)
		if err != nil {
			continue
		}
		switch {
		case cmp > 0:
			wins++
		case cmp == 0:
			wins += 0.5
		}
	}
	return wins / float64(len(opponents))
}

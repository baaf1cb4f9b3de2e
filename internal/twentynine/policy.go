package twentynine

import (
	"math"

	"github.com/lox/parlor/internal/cards"
)

// Bid is an offer to win at least Amount points with Trump as trumps.
type Bid struct {
	Amount int
	Trump  cards.Suit
}

// BidSituation is what a bot sees during bidding.
type BidSituation struct {
	Seat    int
	Hand    []cards.Card
	Highest int
}

// PlaySituation is what a bot sees when it is due to play.
type PlaySituation struct {
	Seat  int
	Hand  []cards.Card
	Legal []cards.Card
	Trick []Played
	Trump cards.Suit
}

// Policy decides bot bids and plays.
type Policy interface {
	Bid(s BidSituation) (Bid, bool)
	Play(s PlaySituation) cards.Card
}

// ElitePolicy bids on point strength and suit length, and plays the
// cheapest card that takes the trick.
type ElitePolicy struct{}

// Strength blends point share and suit length into [0, 1].
func Strength(hand []cards.Card) float64 {
	s := 0.75*float64(HandPoints(hand))/TotalPoints + 0.25*float64(LongestSuit(hand))/HandSize
	return math.Min(1, s)
}

func (ElitePolicy) Bid(s BidSituation) (Bid, bool) {
	target := min(MaxBid, MinBid+int(math.Floor(Strength(s.Hand)*(MaxBid-MinBid))))
	if target <= s.Highest {
		return Bid{}, false
	}
	return Bid{Amount: target, Trump: BestTrump(s.Hand)}, true
}

func (ElitePolicy) Play(s PlaySituation) cards.Card {
	if len(s.Trick) == 0 {
		return leadCard(s.Legal, s.Trump)
	}

	lead := s.Trick[0].Card.Suit
	current := s.Trick[TrickWinner(s.Trick, s.Trump)].Card
	beat := StrengthOf(current, lead, s.Trump)

	var (
		winner   cards.Card
		winnerSt Strength
		found    bool
	)
	for _, c := range s.Legal {
		st := StrengthOf(c, lead, s.Trump)
		if st.Compare(beat) <= 0 {
			continue
		}
		order := st.Compare(winnerSt)
		if !found || order < 0 || (order == 0 && Points(c) < Points(winner)) {
			winner, winnerSt, found = c, st, true
		}
	}
	if found {
		return winner
	}

	discard := s.Legal[0]
	for _, c := range s.Legal[1:] {
		if Points(c) < Points(discard) || (Points(c) == Points(discard) && RankIndex(c.Rank) > RankIndex(discard.Rank)) {
			discard = c
		}
	}
	return discard
}

// leadCard prefers points, then trumps, then the stronger rank.
func leadCard(legal []cards.Card, trump cards.Suit) cards.Card {
	best := legal[0]
	for _, c := range legal[1:] {
		pc, pb := Points(c), Points(best)
		switch {
		case pc != pb:
			if pc > pb {
				best = c
			}
		case (c.Suit == trump) != (best.Suit == trump):
			if c.Suit == trump {
				best = c
			}
		case RankIndex(c.Rank) < RankIndex(best.Rank):
			best = c
		}
	}
	return best
}

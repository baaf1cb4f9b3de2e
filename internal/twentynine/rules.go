package twentynine

import (
	"cmp"
	"slices"

	"github.com/lox/parlor/internal/cards"
)

const (
	// HandSize is the number of cards dealt to each seat.
	HandSize = 8
	// TotalPoints is the value of every point card in the deck.
	TotalPoints = 28

	MinBid = 16
	MaxBid = 29
)

// rankOrder lists ranks strongest first.
var rankOrder = []cards.Rank{cards.Jack, cards.Nine, cards.Ace, cards.Ten, cards.King, cards.Queen, cards.Eight, cards.Seven}

// RankIndex is a rank's position in trick strength order, 0 strongest.
func RankIndex(r cards.Rank) int {
	return slices.Index(rankOrder, r)
}

// Points is a card's trick value.
func Points(c cards.Card) int {
	switch c.Rank {
	case cards.Jack:
		return 3
	case cards.Nine:
		return 2
	case cards.Ace, cards.Ten:
		return 1
	}
	return 0
}

// Strength orders cards within a trick: trumps beat the lead suit, which
// beats everything else; within a class the rank order decides.
type Strength struct {
	Class int
	Rank  int
}

func (s Strength) Compare(o Strength) int {
	if c := cmp.Compare(s.Class, o.Class); c != 0 {
		return c
	}
	return cmp.Compare(s.Rank, o.Rank)
}

func StrengthOf(c cards.Card, lead, trump cards.Suit) Strength {
	class := 1
	switch c.Suit {
	case trump:
		class = 3
	case lead:
		class = 2
	}
	return Strength{Class: class, Rank: -RankIndex(c.Rank)}
}

// Played is a card in the open trick.
type Played struct {
	Seat int
	Card cards.Card
}

// TrickWinner returns the index in trick of the winning card.
func TrickWinner(trick []Played, trump cards.Suit) int {
	lead := trick[0].Card.Suit
	best := 0
	for i := 1; i < len(trick); i++ {
		if StrengthOf(trick[i].Card, lead, trump).Compare(StrengthOf(trick[best].Card, lead, trump)) > 0 {
			best = i
		}
	}
	return best
}

// Legal returns the cards in hand playable on trick: any card when leading,
// otherwise the lead suit if held.
func Legal(hand []cards.Card, trick []Played) []cards.Card {
	if len(trick) == 0 {
		return slices.Clone(hand)
	}
	lead := trick[0].Card.Suit
	var follow []cards.Card
	for _, c := range hand {
		if c.Suit == lead {
			follow = append(follow, c)
		}
	}
	if len(follow) > 0 {
		return follow
	}
	return slices.Clone(hand)
}

// SortHand orders cards by suit, then strongest rank first.
func SortHand(hand []cards.Card) {
	slices.SortFunc(hand, func(a, b cards.Card) int {
		if c := cmp.Compare(a.Suit, b.Suit); c != 0 {
			return c
		}
		return cmp.Compare(RankIndex(a.Rank), RankIndex(b.Rank))
	})
}

// HandPoints sums the point value of hand.
func HandPoints(hand []cards.Card) int {
	total := 0
	for _, c := range hand {
		total += Points(c)
	}
	return total
}

// LongestSuit is the size of the largest single-suit group in hand.
func LongestSuit(hand []cards.Card) int {
	counts := map[cards.Suit]int{}
	longest := 0
	for _, c := range hand {
		counts[c.Suit]++
		longest = max(longest, counts[c.Suit])
	}
	return longest
}

// BestTrump picks the suit carrying the most points, weighting length.
// Ties go to the earlier suit in spades, hearts, diamonds, clubs order.
func BestTrump(hand []cards.Card) cards.Suit {
	best, bestScore := cards.Suits[0], -1
	for _, s := range cards.Suits {
		score := 0
		for _, c := range hand {
			if c.Suit == s {
				score += 4*Points(c) + 1
			}
		}
		if score > bestScore {
			best, bestScore = s, score
		}
	}
	return best
}

package teenpatti

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lox/parlor/internal/cards"
)

// ErrInvalidHand is returned for hands that are not exactly three distinct
// cards.
var ErrInvalidHand = errors.New("invalid hand")

// HandSize is the number of cards dealt to each seat.
const HandSize = 3

// Category is the class of a three-card hand, weakest first.
type Category int

const (
	HighCard Category = iota + 1
	Pair
	Color
	Sequence
	PureSequence
	Trail
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "high card"
	case Pair:
		return "pair"
	case Color:
		return "color"
	case Sequence:
		return "sequence"
	case PureSequence:
		return "pure sequence"
	case Trail:
		return "trail"
	default:
		return "unknown"
	}
}

// Sequence strengths for the two special straights; every other straight
// scores its top card.
const (
	topSequence    = 100 // Q K A
	secondSequence = 99  // A 2 3
)

// Score ranks a hand. Scores compare by category, then lexicographically by
// tiebreak.
type Score struct {
	Category Category `json:"category"`
	Tiebreak []int    `json:"tiebreak"`
}

// Compare returns 1 if s beats o, -1 if o beats s and 0 for a draw.
func (s Score) Compare(o Score) int {
	if s.Category != o.Category {
		if s.Category > o.Category {
			return 1
		}
		return -1
	}
	return slices.Compare(s.Tiebreak, o.Tiebreak)
}

func (s Score) String() string {
	return fmt.Sprintf("%s %v", s.Category, s.Tiebreak)
}

// Evaluate scores a three-card hand.
func Evaluate(hand []cards.Card) (Score, error) {
	if len(hand) != HandSize {
		return Score{}, fmt.Errorf("%w: need %d cards, got %d", ErrInvalidHand, HandSize, len(hand))
	}
	for i := 0; i < len(hand); i++ {
		for j := i + 1; j < len(hand); j++ {
			if hand[i] == hand[j] {
				return Score{}, fmt.Errorf("%w: duplicate card %s", ErrInvalidHand, hand[i])
			}
		}
	}

	values := make([]int, len(hand))
	counts := make(map[int]int, len(hand))
	flush := true
	for i, c := range hand {
		values[i] = int(c.Rank)
		counts[values[i]]++
		if c.Suit != hand[0].Suit {
			flush = false
		}
	}
	slices.Sort(values)
	desc := []int{values[2], values[1], values[0]}

	if len(counts) == 1 {
		return Score{Category: Trail, Tiebreak: []int{values[0]}}, nil
	}
	if strength, ok := sequenceStrength(values); ok {
		if flush {
			return Score{Category: PureSequence, Tiebreak: []int{strength}}, nil
		}
		return Score{Category: Sequence, Tiebreak: []int{strength}}, nil
	}
	if flush {
		return Score{Category: Color, Tiebreak: desc}, nil
	}
	if len(counts) == 2 {
		var pair, kicker int
		for v, n := range counts {
			if n == 2 {
				pair = v
			} else {
				kicker = v
			}
		}
		return Score{Category: Pair, Tiebreak: []int{pair, kicker}}, nil
	}
	return Score{Category: HighCard, Tiebreak: desc}, nil
}

// sequenceStrength expects ascending values.
func sequenceStrength(v []int) (int, bool) {
	switch {
	case v[0] == int(cards.Queen) && v[1] == int(cards.King) && v[2] == int(cards.Ace):
		return topSequence, true
	case v[0] == int(cards.Two) && v[1] == int(cards.Three) && v[2] == int(cards.Ace):
		return secondSequence, true
	case v[1] == v[0]+1 && v[2] == v[1]+1:
		return v[2], true
	}
	return 0, false
}

// Compare returns 1 if a beats b, -1 if b beats a and 0 for a draw.
func Compare(a, b []cards.Card) (int, error) {
	sa, err := Evaluate(a)
	if err != nil {
		return 0, err
	}
	sb, err := Evaluate(b)
	if err != nil {
		return 0, err
	}
	return sa.Compare(sb), nil
}

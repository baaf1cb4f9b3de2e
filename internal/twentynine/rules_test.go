package twentynine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/parlor/internal/cards"
	"github.com/lox/parlor/internal/cards/cardtest"
	"github.com/lox/parlor/internal/randutil"
)

func trick(t *testing.T, codes string) []Played {
	t.Helper()
	out := []Played{}
	for i, c := range cardtest.Deck(codes) {
		out = append(out, Played{Seat: i, Card: c})
	}
	return out
}

func TestDeckCarriesTwentyEightPoints(t *testing.T) {
	deck := cards.NewDeck(cards.Trick32, randutil.New(1))
	all := deck.Deal(cards.Trick32.Size())
	assert.Equal(t, TotalPoints, HandPoints(all))
}

func TestRankOrder(t *testing.T) {
	assert.Equal(t, 0, RankIndex(cards.Jack))
	assert.Equal(t, 1, RankIndex(cards.Nine))
	assert.Equal(t, 7, RankIndex(cards.Seven))
	assert.Equal(t, -1, RankIndex(cards.Two))
}

func TestTrickWinner(t *testing.T) {
	tests := []struct {
		name  string
		trick string
		trump cards.Suit
		want  int
	}{
		{"jack beats ace", "AH JH 9H 10H", cards.Spades, 1},
		{"nine beats ace", "AH 9H KH 7H", cards.Spades, 1},
		{"off suit never wins", "7H AD JC 8H", cards.Spades, 3},
		{"lowest trump beats lead", "JH 7S 9H AH", cards.Spades, 1},
		{"higher trump wins", "JH 7S JS 9S", cards.Spades, 2},
		{"lead suit is trump", "QS JS 7H 8D", cards.Spades, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrickWinner(trick(t, tt.trick), tt.trump))
		})
	}
}

func TestLegalFollowsSuit(t *testing.T) {
	hand := cardtest.Deck("JS 7S AH 8D")
	assert.Equal(t, hand, Legal(hand, nil), "leader plays anything")
	assert.Equal(t, cardtest.Deck("JS 7S"), Legal(hand, trick(t, "9S")))
	assert.Equal(t, hand, Legal(hand, trick(t, "9C")), "void in lead suit")
}

func TestSortHand(t *testing.T) {
	hand := cardtest.Deck("7D AS JH JS 9S 10C")
	SortHand(hand)
	assert.Equal(t, []string{"JS", "9S", "AS", "JH", "7D", "10C"}, cards.Codes(hand))
}

func TestBestTrump(t *testing.T) {
	assert.Equal(t, cards.Hearts, BestTrump(cardtest.Deck("JH 9H 7S 8S KD QD 7C 8C")))
	assert.Equal(t, cards.Spades, BestTrump(cardtest.Deck("7S 7H 7D 7C")), "ties go to spades")
	assert.Equal(t, cards.Diamonds, BestTrump(cardtest.Deck("JD 7S 8S 9S")), "points outweigh length")
}

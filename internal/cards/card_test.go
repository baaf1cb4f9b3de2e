package cards

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/parlor/internal/randutil"
)

func TestParseCodes(t *testing.T) {
	tests := []struct {
		code string
		want Card
	}{
		{"AS", NewCard(Ace, Spades)},
		{"10H", NewCard(Ten, Hearts)},
		{"TH", NewCard(Ten, Hearts)},
		{"7c", NewCard(Seven, Clubs)},
		{"JD", NewCard(Jack, Diamonds)},
		{"2S", NewCard(Two, Spades)},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := Parse(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, code := range []string{"", "A", "1S", "AX", "11H", "ASS", "XX"} {
		_, err := Parse(code)
		assert.Error(t, err, code)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, suit := range Suits {
		for _, rank := range Standard52.Ranks {
			c := NewCard(rank, suit)
			parsed, err := Parse(c.String())
			require.NoError(t, err)
			assert.Equal(t, c, parsed)
			assert.LessOrEqual(t, len(c.String()), 3)
		}
	}
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, MustParse("AS").Compare(MustParse("AS")))
	assert.Equal(t, 1, MustParse("AS").Compare(MustParse("KS")))
	assert.Equal(t, -1, MustParse("AS").Compare(MustParse("AH")))
}

func TestCardJSON(t *testing.T) {
	b, err := json.Marshal([]Card{MustParse("10H"), MustParse("QS")})
	require.NoError(t, err)
	assert.JSONEq(t, `["10H","QS"]`, string(b))

	var back []Card
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []Card{MustParse("10H"), MustParse("QS")}, back)
}

func TestDecksAreDuplicateFree(t *testing.T) {
	for name, u := range map[string]Universe{"standard": Standard52, "trick": Trick32} {
		t.Run(name, func(t *testing.T) {
			d := NewDeck(u, randutil.New(3))
			dealt := d.Deal(u.Size())
			require.Len(t, dealt, u.Size())
			seen := map[Card]bool{}
			for _, c := range dealt {
				assert.False(t, seen[c], "duplicate %s", c)
				seen[c] = true
			}
			assert.Zero(t, d.CardsRemaining())
			assert.Nil(t, d.Deal(1))
		})
	}
}

func TestDeckShuffleIsSeeded(t *testing.T) {
	a := NewDeck(Standard52, randutil.New(9)).Deal(52)
	b := NewDeck(Standard52, randutil.New(9)).Deal(52)
	c := NewDeck(Standard52, randutil.New(10)).Deal(52)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestStackedDeck(t *testing.T) {
	cs, err := ParseList("AS KS QS")
	require.NoError(t, err)
	d := NewStackedDeck(cs)
	assert.Equal(t, cs[:2], d.Deal(2))
	assert.Equal(t, 1, d.CardsRemaining())
}

package cards

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// Suits lists the four suits in canonical order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// String returns the wire token of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "S"
	case Hearts:
		return "H"
	case Diamonds:
		return "D"
	case Clubs:
		return "C"
	default:
		return "?"
	}
}

// Symbol returns the display glyph of a suit
func (s Suit) Symbol() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// ParseSuit parses a suit token (S, H, D, C), case-insensitive.
func ParseSuit(token string) (Suit, error) {
	switch strings.ToUpper(token) {
	case "S":
		return Spades, nil
	case "H":
		return Hearts, nil
	case "D":
		return Diamonds, nil
	case "C":
		return Clubs, nil
	}
	return 0, fmt.Errorf("invalid suit %q", token)
}

// Rank represents a card rank. Values are the natural face values with the
// ace high.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the wire token of a rank
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Nine:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "10"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// ParseRank parses a rank token. "T" is accepted as an alias for "10".
func ParseRank(token string) (Rank, error) {
	switch strings.ToUpper(token) {
	case "10", "T":
		return Ten, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	}
	if len(token) == 1 && token[0] >= '2' && token[0] <= '9' {
		return Rank(token[0] - '0'), nil
	}
	return 0, fmt.Errorf("invalid rank %q", token)
}

// Card represents a playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the wire code of a card (e.g. "AS", "10H")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Pretty returns the display form of a card (e.g. "A♠")
func (c Card) Pretty() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// Compare orders cards by rank then suit.
func (c Card) Compare(o Card) int {
	switch {
	case c.Rank != o.Rank:
		if c.Rank < o.Rank {
			return -1
		}
		return 1
	case c.Suit != o.Suit:
		if c.Suit < o.Suit {
			return -1
		}
		return 1
	}
	return 0
}

// MarshalText encodes the card as its wire code.
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a wire code.
func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse parses a two or three character card code: rank token followed by
// a suit token.
func Parse(code string) (Card, error) {
	code = strings.TrimSpace(code)
	if len(code) < 2 || len(code) > 3 {
		return Card{}, fmt.Errorf("invalid card %q", code)
	}
	rank, err := ParseRank(code[:len(code)-1])
	if err != nil {
		return Card{}, fmt.Errorf("invalid card %q: %w", code, err)
	}
	suit, err := ParseSuit(code[len(code)-1:])
	if err != nil {
		return Card{}, fmt.Errorf("invalid card %q: %w", code, err)
	}
	return NewCard(rank, suit), nil
}

// MustParse is Parse for literals in tests and tables.
func MustParse(code string) Card {
	c, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseList parses space separated card codes.
func ParseList(codes string) ([]Card, error) {
	fields := strings.Fields(codes)
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Codes returns the wire codes of cards.
func Codes(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

// Contains reports whether c is in cs.
func Contains(cs []Card, c Card) bool {
	return Index(cs, c) >= 0
}

// Index returns the position of c in cs or -1.
func Index(cs []Card, c Card) int {
	for i, x := range cs {
		if x == c {
			return i
		}
	}
	return -1
}

package cards

import "github.com/lox/parlor/internal/randutil"

// Universe is the set of ranks and suits a game deals from.
type Universe struct {
	Ranks []Rank
	Suits []Suit
}

// Size returns the number of distinct cards in the universe.
func (u Universe) Size() int {
	return len(u.Ranks) * len(u.Suits)
}

var (
	// Standard52 is the full French deck.
	Standard52 = Universe{
		Ranks: []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace},
		Suits: Suits,
	}

	// Trick32 drops the two through six.
	Trick32 = Universe{
		Ranks: []Rank{Seven, Eight, Nine, Ten, Jack, Queen, King, Ace},
		Suits: Suits,
	}
)

// Deck is a shuffled, duplicate-free pile of cards dealt from the top.
type Deck struct {
	cards []Card
	next  int
}

// NewDeck creates a new shuffled deck of the universe with explicit RNG
func NewDeck(u Universe, rng randutil.Source) *Deck {
	d := &Deck{cards: make([]Card, 0, u.Size())}
	for _, suit := range u.Suits {
		for _, rank := range u.Ranks {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// NewStackedDeck returns an unshuffled deck dealing cs in order.
func NewStackedDeck(cs []Card) *Deck {
	return &Deck{cards: append([]Card(nil), cs...)}
}

// Deal deals n cards from the deck. It returns nil when fewer than n remain.
func (d *Deck) Deal(n int) []Card {
	if d.next+n > len(d.cards) {
		return nil
	}
	out := make([]Card, n)
	copy(out, d.cards[d.next:d.next+n])
	d.next += n
	return out
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards) - d.next
}

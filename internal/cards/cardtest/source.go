// Package cardtest provides a scripted random source for engine tests.
package cardtest

import (
	"sync"

	"github.com/lox/parlor/internal/cards"
)

// Source replays scripted values. IntN consumes Ints (reduced modulo n, zero
// once exhausted), Float64 consumes Floats (Fallback once exhausted) and
// Shuffle consumes Decks, placing the listed cards on top of the deck in
// order. The last deck repeats. Without decks Shuffle leaves the deck in
// universe order.
type Source struct {
	mu       sync.Mutex
	Ints     []int
	Floats   []float64
	Fallback float64
	Decks    [][]cards.Card
}

func (s *Source) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[0]
	s.Ints = s.Ints[1:]
	return ((v % n) + n) % n
}

func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return s.Fallback
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return v
}

func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Decks) == 0 {
		return
	}
	top := s.Decks[0]
	if len(s.Decks) > 1 {
		s.Decks = s.Decks[1:]
	}

	u := cards.Standard52
	if n == cards.Trick32.Size() {
		u = cards.Trick32
	}
	cur := make([]cards.Card, 0, n)
	for _, suit := range u.Suits {
		for _, rank := range u.Ranks {
			cur = append(cur, cards.NewCard(rank, suit))
		}
	}
	for k, c := range top {
		j := cards.Index(cur, c)
		if j < 0 || j == k {
			continue
		}
		swap(k, j)
		cur[k], cur[j] = cur[j], cur[k]
	}
}

// Deck parses space separated card codes, panicking on error.
func Deck(codes string) []cards.Card {
	cs, err := cards.ParseList(codes)
	if err != nil {
		panic(err)
	}
	return cs
}

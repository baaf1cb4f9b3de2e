package ludo

import (
	"slices"
)

// Board geometry. Steps are relative to a colour's entry cell: Yard before
// entry, 0..LastRingStep on the shared ring, then the private home stretch
// up to FinishStep.
const (
	Seats         = 4
	TokensPerSeat = 4
	RingSize      = 52
	LastRingStep  = 50
	FinishStep    = 56
	Yard          = -1

	// EntryDie is the roll needed to leave the yard.
	EntryDie = 6
)

// Color identifies a seat's tokens. Seat i plays Colors[i].
type Color string

const (
	Red    Color = "red"
	Green  Color = "green"
	Yellow Color = "yellow"
	Blue   Color = "blue"
)

var Colors = [Seats]Color{Red, Green, Yellow, Blue}

// Offset is the ring cell where seat's tokens enter.
func Offset(seat int) int {
	return seat * RingSize / Seats
}

var safeCells = map[int]bool{0: true, 8: true, 13: true, 21: true, 26: true, 34: true, 39: true, 47: true}

// IsSafe reports whether cell protects its occupants from capture.
func IsSafe(cell int) bool {
	return safeCells[cell]
}

// Board holds token steps indexed by seat then token.
type Board [][TokensPerSeat]int

// Cell returns the ring cell for seat at step, or false off the ring.
func (b Board) Cell(seat, step int) (int, bool) {
	if step < 0 || step > LastRingStep {
		return 0, false
	}
	return (Offset(seat) + step) % RingSize, true
}

// Destination is where token lands with die, ignoring legality.
func (b Board) Destination(seat, token, die int) int {
	if b[seat][token] == Yard {
		return 0
	}
	return b[seat][token] + die
}

// count returns how many of seat's tokens sit on cell.
func (b Board) count(seat, cell int) int {
	n := 0
	for _, step := range b[seat] {
		if c, ok := b.Cell(seat, step); ok && c == cell {
			n++
		}
	}
	return n
}

// blockadeOwners maps each cell holding two or more tokens of one seat to a
// bitmask of those seats.
func (b Board) blockadeOwners() map[int]uint8 {
	owners := make(map[int]uint8)
	for seat := range b {
		seen := make(map[int]int, TokensPerSeat)
		for _, step := range b[seat] {
			if c, ok := b.Cell(seat, step); ok {
				seen[c]++
			}
		}
		for c, n := range seen {
			if n >= 2 {
				owners[c] |= 1 << seat
			}
		}
	}
	return owners
}

// Blockades lists every blockaded cell in ascending order.
func (b Board) Blockades() []int {
	owners := b.blockadeOwners()
	out := make([]int, 0, len(owners))
	for c := range owners {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Movable lists seat's tokens that may legally move with die.
func (b Board) Movable(seat, die int) []int {
	owners := b.blockadeOwners()
	var out []int
	for token, step := range b[seat] {
		if step == FinishStep {
			continue
		}
		if step == Yard && die != EntryDie {
			continue
		}
		to := b.Destination(seat, token, die)
		if to > FinishStep {
			continue
		}
		if b.blocked(seat, step, to, owners) {
			continue
		}
		out = append(out, token)
	}
	return out
}

// blocked reports whether an opposing blockade sits on any ring cell the
// move passes through, destination included. Entering checks the entry
// cell.
func (b Board) blocked(seat, from, to int, owners map[int]uint8) bool {
	first := from + 1
	if from == Yard {
		first = 0
	}
	for step := first; step <= to && step <= LastRingStep; step++ {
		c, _ := b.Cell(seat, step)
		if owners[c]&^(1<<seat) != 0 {
			return true
		}
	}
	return false
}

// Victim is an opposing token a move would send back to the yard.
type Victim struct {
	Seat  int
	Token int
}

// Victims lists the opposing tokens captured by seat landing on step. Safe
// cells and stacks of two or more same-owner tokens are never captured.
func (b Board) Victims(seat, step int) []Victim {
	cell, ok := b.Cell(seat, step)
	if !ok || IsSafe(cell) {
		return nil
	}
	var out []Victim
	for other := range b {
		if other == seat || b.count(other, cell) >= 2 {
			continue
		}
		for token, s := range b[other] {
			if c, ok := b.Cell(other, s); ok && c == cell {
				out = append(out, Victim{Seat: other, Token: token})
			}
		}
	}
	return out
}

// InOwnBlockade reports whether token shares its ring cell with another of
// seat's tokens.
func (b Board) InOwnBlockade(seat, token int) bool {
	cell, ok := b.Cell(seat, b[seat][token])
	return ok && b.count(seat, cell) >= 2
}

// Finished reports whether all of seat's tokens are home.
func (b Board) Finished(seat int) bool {
	for _, step := range b[seat] {
		if step != FinishStep {
			return false
		}
	}
	return true
}

// Package gameid mints identifiers for tables created at runtime and for
// bots seated by the engines.
package gameid

import (
	"fmt"
	"strings"

	"github.com/coder/quartz"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// tableIDLength is 10 timestamp characters (50 bits of milliseconds) plus
// 6 random characters.
const tableIDLength = 16

// RandSource interface for dependency injection of randomness
type RandSource interface {
	IntN(n int) int
}

// Generator handles ID generation with configurable randomness and time.
type Generator struct {
	rng   RandSource
	clock quartz.Clock
}

// NewGenerator creates a new generator.
func NewGenerator(rng RandSource, clock quartz.Clock) *Generator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Generator{rng: rng, clock: clock}
}

// TableID returns a time-sortable id with the given prefix, e.g.
// "ludo-01j9x3m2k7abcdef".
func (g *Generator) TableID(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + 1 + tableIDLength)
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('-')
	}
	ms := uint64(g.clock.Now().UnixMilli())
	for shift := 45; shift >= 0; shift -= 5 {
		b.WriteByte(alphabet[(ms>>uint(shift))&0x1f])
	}
	for i := 0; i < tableIDLength-10; i++ {
		b.WriteByte(alphabet[g.rng.IntN(len(alphabet))])
	}
	return b.String()
}

// BotID returns an id for the bot filling seat (1-based) at tableID.
func (g *Generator) BotID(game, tableID string, seat int) string {
	return fmt.Sprintf("%s-bot-%s-%d-%d", game, tableID, seat, 1000+g.rng.IntN(9000))
}

// BotName picks a display name from names and suffixes it with " Bot".
func (g *Generator) BotName(names []string) string {
	if len(names) == 0 {
		return "Bot"
	}
	return names[g.rng.IntN(len(names))] + " Bot"
}

// Validate checks that id has the prefix and a well-formed suffix.
func Validate(prefix, id string) error {
	suffix := id
	if prefix != "" {
		if !strings.HasPrefix(id, prefix+"-") {
			return fmt.Errorf("id %q does not start with %q", id, prefix+"-")
		}
		suffix = id[len(prefix)+1:]
	}
	if len(suffix) != tableIDLength {
		return fmt.Errorf("id suffix must be exactly %d characters, got %d", tableIDLength, len(suffix))
	}
	for i, char := range suffix {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}

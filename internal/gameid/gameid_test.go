package gameid

import (
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/parlor/internal/randutil"
)

func TestTableIDFormat(t *testing.T) {
	g := NewGenerator(randutil.New(1), nil)
	id := g.TableID("ludo")
	require.NoError(t, Validate("ludo", id))
	assert.True(t, strings.HasPrefix(id, "ludo-"))
}

func TestTableIDTimeSorted(t *testing.T) {
	clock := quartz.NewMock(t)
	g := NewGenerator(randutil.New(1), clock)

	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, g.TableID("t"))
		clock.Advance(time.Millisecond)
	}
	for i := 1; i < len(ids); i++ {
		assert.Negative(t, strings.Compare(ids[i-1], ids[i]), "%s >= %s", ids[i-1], ids[i])
	}
}

func TestTableIDUnique(t *testing.T) {
	g := NewGenerator(randutil.New(5), nil)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id := g.TableID("")
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		id      string
		wantErr bool
	}{
		{"valid", "tp", "tp-0123456789abcdef", false},
		{"no prefix", "", "0123456789abcdef", false},
		{"wrong prefix", "tp", "ludo-0123456789abcdef", true},
		{"too short", "tp", "tp-0123", true},
		{"bad char", "tp", "tp-0123456789abcdeu", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.prefix, tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBotIDAndName(t *testing.T) {
	g := NewGenerator(randutil.New(2), nil)
	id := g.BotID("ludo", "7", 3)
	assert.True(t, strings.HasPrefix(id, "ludo-bot-7-3-"), id)
	assert.Equal(t, "Bot", g.BotName(nil))
	assert.Equal(t, "Nova Bot", g.BotName([]string{"Nova"}))
}

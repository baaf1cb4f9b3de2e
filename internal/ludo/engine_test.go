package ludo

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/parlor/internal/cards/cardtest"
	"github.com/lox/parlor/internal/randutil"
	"github.com/lox/parlor/internal/table"
)

var players = []string{"a", "b", "c", "d"}

// dice scripts die faces.
func dice(faces ...int) *cardtest.Source {
	src := &cardtest.Source{}
	for _, f := range faces {
		src.Ints = append(src.Ints, f-1)
	}
	return src
}

func newTestEngine(t *testing.T, src randutil.Source) *Engine {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	return New(logger, WithRand(src), WithClock(quartz.NewMock(t)))
}

// startedTable seats a, b, c and d at table "t1" and starts a game.
func startedTable(t *testing.T, src randutil.Source) *Engine {
	t.Helper()
	e := newTestEngine(t, src)
	_, err := e.CreateTable(TableConfig{ID: "t1"})
	require.NoError(t, err)
	for _, id := range players {
		_, err := e.Join("t1", id, "", false)
		require.NoError(t, err)
	}
	v, err := e.Start("t1")
	require.NoError(t, err)
	require.True(t, v.Active)
	require.Equal(t, "a", v.CurrentPlayer)
	return e
}

// arrange edits table state directly.
func arrange(t *testing.T, e *Engine, fn func(tb *Table)) {
	t.Helper()
	tb, ok := e.tables.Get("t1")
	require.True(t, ok)
	tb.mu.Lock()
	defer tb.mu.Unlock()
	fn(tb)
}

func lastEvent(v View, kind EventKind) (Event, bool) {
	for i := len(v.Log) - 1; i >= 0; i-- {
		if v.Log[i].Kind == kind {
			return v.Log[i], true
		}
	}
	return Event{}, false
}

func TestRollWithoutMovesAdvances(t *testing.T) {
	e := startedTable(t, dice(3, 6))

	v, err := e.Roll("a")
	require.NoError(t, err)
	assert.Equal(t, "b", v.CurrentPlayer)
	assert.Zero(t, v.Dice)
	_, ok := lastEvent(v, EventNoMove)
	assert.True(t, ok)

	v, err = e.Roll("b")
	require.NoError(t, err)
	assert.True(t, v.PendingMove)
	assert.Equal(t, []int{0, 1, 2, 3}, v.Movable)

	v, err = e.Move("b", 2)
	require.NoError(t, err)
	assert.Equal(t, "b", v.CurrentPlayer, "a six grants a bonus turn")
	assert.Equal(t, 0, v.Players[1].Tokens[2].Step)
	require.NotNil(t, v.Players[1].Tokens[2].Cell)
	assert.Equal(t, 13, *v.Players[1].Tokens[2].Cell)
}

func TestRollAndMoveGuards(t *testing.T) {
	e := newTestEngine(t, dice(6))
	_, err := e.CreateTable(TableConfig{ID: "t1"})
	require.NoError(t, err)
	_, err = e.Join("t1", "a", "", false)
	require.NoError(t, err)
	_, err = e.Roll("a")
	assert.True(t, errors.Is(err, table.ErrInvalidState), "no game yet")
	_, err = e.Start("t1")
	assert.True(t, errors.Is(err, table.ErrInvalidState), "needs four players")

	for _, id := range players[1:] {
		_, err = e.Join("t1", id, "", false)
		require.NoError(t, err)
	}
	_, err = e.Join("t1", "e", "", false)
	assert.True(t, errors.Is(err, table.ErrIllegalAction), "table full")

	_, err = e.Start("t1")
	require.NoError(t, err)
	_, err = e.Start("t1")
	assert.True(t, errors.Is(err, table.ErrInvalidState))

	_, err = e.Move("a", 0)
	assert.True(t, errors.Is(err, table.ErrInvalidState), "roll first")
	_, err = e.Roll("b")
	assert.True(t, errors.Is(err, table.ErrIllegalAction), "not b's turn")
	_, err = e.Roll("ghost")
	assert.True(t, errors.Is(err, table.ErrNotFound))

	_, err = e.Roll("a")
	require.NoError(t, err)
	_, err = e.Roll("a")
	assert.True(t, errors.Is(err, table.ErrInvalidState), "move pending")
	_, err = e.Move("a", 7)
	assert.True(t, errors.Is(err, table.ErrIllegalAction))
	_, err = e.Move("a", 0)
	require.NoError(t, err)
}

func TestOvershootRejectedWithoutSideEffects(t *testing.T) {
	e := startedTable(t, dice(3))
	arrange(t, e, func(tb *Table) {
		tb.players[0].tokens = [TokensPerSeat]int{55, 10, Yard, Yard}
	})

	v, err := e.Roll("a")
	require.NoError(t, err)
	require.True(t, v.PendingMove)
	assert.Equal(t, []int{1}, v.Movable)

	_, err = e.Move("a", 0)
	assert.True(t, errors.Is(err, table.ErrIllegalAction))
	v, err = e.State("t1", "a")
	require.NoError(t, err)
	assert.Equal(t, 55, v.Players[0].Tokens[0].Step)
	assert.True(t, v.PendingMove)

	v, err = e.Move("a", 1)
	require.NoError(t, err)
	assert.Equal(t, 13, v.Players[0].Tokens[1].Step)
	assert.Equal(t, "b", v.CurrentPlayer)
}

func TestBlockadeBlocksOpponentMove(t *testing.T) {
	e := startedTable(t, dice(3))
	arrange(t, e, func(tb *Table) {
		tb.players[0].tokens = [TokensPerSeat]int{10, Yard, Yard, Yard}
		tb.players[1].tokens = [TokensPerSeat]int{0, 0, Yard, Yard} // cell 13
	})

	v, err := e.Roll("a")
	require.NoError(t, err)
	assert.False(t, v.PendingMove, "the only token would land on the blockade")
	assert.Equal(t, "b", v.CurrentPlayer)
	assert.Equal(t, []int{13}, v.Blockades)
}

func TestThreeSixesForfeit(t *testing.T) {
	e := startedTable(t, dice(6, 6, 6))

	_, err := e.Roll("a")
	require.NoError(t, err)
	_, err = e.Move("a", 0)
	require.NoError(t, err)
	v, err := e.Roll("a")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Sixes)
	_, err = e.Move("a", 0)
	require.NoError(t, err)

	v, err = e.Roll("a")
	require.NoError(t, err)
	assert.Equal(t, "b", v.CurrentPlayer)
	assert.Zero(t, v.Sixes)
	assert.False(t, v.PendingMove)
	assert.Equal(t, 6, v.Players[0].Tokens[0].Step, "the third six is discarded")
	_, ok := lastEvent(v, EventForfeit)
	assert.True(t, ok)
}

func TestCaptureGrantsBonusTurn(t *testing.T) {
	e := startedTable(t, dice(2))
	arrange(t, e, func(tb *Table) {
		tb.players[0].tokens = [TokensPerSeat]int{3, Yard, Yard, Yard}
		tb.players[1].tokens = [TokensPerSeat]int{44, Yard, Yard, Yard} // cell 5
	})

	_, err := e.Roll("a")
	require.NoError(t, err)
	v, err := e.Move("a", 0)
	require.NoError(t, err)

	assert.Equal(t, "a", v.CurrentPlayer)
	assert.Equal(t, Yard, v.Players[1].Tokens[0].Step)
	assert.Nil(t, v.Players[1].Tokens[0].Cell)
	ev, ok := lastEvent(v, EventMove)
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, ev.Captured)
}

func TestSafeCellPreventsCapture(t *testing.T) {
	e := startedTable(t, dice(2))
	arrange(t, e, func(tb *Table) {
		tb.players[0].tokens = [TokensPerSeat]int{6, Yard, Yard, Yard}
		tb.players[1].tokens = [TokensPerSeat]int{47, Yard, Yard, Yard} // cell 8
	})

	_, err := e.Roll("a")
	require.NoError(t, err)
	v, err := e.Move("a", 0)
	require.NoError(t, err)
	assert.Equal(t, 47, v.Players[1].Tokens[0].Step)
	assert.Equal(t, "b", v.CurrentPlayer, "no capture, no bonus")
}

func TestPlainMoveAdvancesAndResetsStreak(t *testing.T) {
	e := startedTable(t, dice(2))
	arrange(t, e, func(tb *Table) {
		tb.players[0].tokens = [TokensPerSeat]int{3, Yard, Yard, Yard}
		tb.players[1].rank = 1
		tb.winners = []string{"b"}
		tb.sixes = 2
	})

	_, err := e.Roll("a")
	require.NoError(t, err)
	v, err := e.Move("a", 0)
	require.NoError(t, err)
	assert.Equal(t, "c", v.CurrentPlayer, "ranked seats are skipped")
	assert.Zero(t, v.Sixes)
}

func TestFinishingTokenGrantsBonus(t *testing.T) {
	e := startedTable(t, dice(2))
	arrange(t, e, func(tb *Table) {
		tb.players[0].tokens = [TokensPerSeat]int{54, 20, Yard, Yard}
	})

	_, err := e.Roll("a")
	require.NoError(t, err)
	v, err := e.Move("a", 0)
	require.NoError(t, err)
	assert.True(t, v.Players[0].Tokens[0].Finished)
	assert.Equal(t, "a", v.CurrentPlayer)
}

func TestFinishRankAndGameEnd(t *testing.T) {
	e := startedTable(t, dice(2, 2))
	arrange(t, e, func(tb *Table) {
		tb.players[0].tokens = [TokensPerSeat]int{56, 56, 56, 54}
		tb.players[1].tokens = [TokensPerSeat]int{56, 56, 56, 56}
		tb.players[1].rank = 1
		tb.players[2].tokens = [TokensPerSeat]int{56, 56, 56, 54}
		tb.winners = []string{"b"}
	})

	_, err := e.Roll("a")
	require.NoError(t, err)
	v, err := e.Move("a", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Players[0].Rank)
	assert.Equal(t, "c", v.CurrentPlayer, "a finished player hands on the turn")

	_, err = e.Roll("c")
	require.NoError(t, err)
	v, err = e.Move("c", 3)
	require.NoError(t, err)
	assert.False(t, v.Active)
	assert.Equal(t, []string{"b", "a", "c"}, v.Winners)
	assert.Zero(t, v.Players[3].Rank, "the last player is implicitly fourth")
	_, ok := lastEvent(v, EventGameEnd)
	assert.True(t, ok)

	_, err = e.Roll("d")
	assert.True(t, errors.Is(err, table.ErrInvalidState))

	// A rematch resets the board.
	v, err = e.Start("t1")
	require.NoError(t, err)
	assert.Equal(t, 2, v.GameNumber)
	assert.Empty(t, v.Winners)
	assert.Equal(t, Yard, v.Players[0].Tokens[0].Step)
}

func TestJoinDuringGameRejected(t *testing.T) {
	e := startedTable(t, dice())
	_, err := e.CreateTable(TableConfig{ID: "t2"})
	require.NoError(t, err)
	_, err = e.Join("t2", "a", "", false)
	assert.True(t, errors.Is(err, table.ErrIllegalAction), "already seated")

	_, err = e.CreateTable(TableConfig{ID: "t1"})
	assert.Error(t, err)

	arrange(t, e, func(tb *Table) { tb.players = tb.players[:3] })
	_, err = e.Join("t1", "late", "", false)
	assert.True(t, errors.Is(err, table.ErrInvalidState))
}

func TestAutoStartWaitsForHuman(t *testing.T) {
	e := newTestEngine(t, dice())
	_, err := e.CreateTable(TableConfig{ID: "auto", AutoStart: true})
	require.NoError(t, err)

	_, err = e.Join("auto", "h", "Human", false)
	require.NoError(t, err)
	v, err := e.AddBots("auto", 5)
	require.NoError(t, err)

	require.True(t, v.Active)
	assert.Len(t, v.Players, Seats)
	assert.Equal(t, "h", v.CurrentPlayer)
	for i, p := range v.Players {
		assert.Equal(t, Colors[i], p.Color)
		assert.Equal(t, i > 0, p.Bot)
	}

	_, err = e.AddBots("auto", 1)
	assert.True(t, errors.Is(err, table.ErrInvalidState))
}

func TestAllBotGameFinishes(t *testing.T) {
	e := newTestEngine(t, randutil.New(11))
	_, err := e.CreateTable(TableConfig{ID: "bots", AutoStart: true})
	require.NoError(t, err)

	v, err := e.AddBots("bots", Seats)
	require.NoError(t, err)
	for i := 0; i < 2000 && v.Active; i++ {
		v, err = e.PlayBots("bots")
		require.NoError(t, err)
	}
	require.False(t, v.Active, "game should finish")
	require.Len(t, v.Winners, Podium)
	assert.LessOrEqual(t, len(v.Log), logCapacity)

	ranks := map[int]bool{}
	for _, p := range v.Players {
		if p.Rank == 0 {
			continue
		}
		ranks[p.Rank] = true
		for _, tok := range p.Tokens {
			assert.True(t, tok.Finished, p.ID)
		}
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, ranks)
}

func TestConcurrentJoinsSeatOnce(t *testing.T) {
	e := newTestEngine(t, randutil.New(1))
	for i := 0; i < 8; i++ {
		_, err := e.CreateTable(TableConfig{ID: fmt.Sprintf("t%d", i)})
		require.NoError(t, err)
	}
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := e.Join(fmt.Sprintf("t%d", i), "racer", "", false); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Len(t, e.ListTables(), 8)
}

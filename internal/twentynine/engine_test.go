package twentynine

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

	"github.com/lox/parlor/internal/cards"
	"github.com/lox/parlor/internal/cards/cardtest"
	"github.com/lox/parlor/internal/randutil"
	"github.com/lox/parlor/internal/table"
)

var players = []string{"a", "b", "c", "d"}

// randomPolicy never bids and plays a random legal card.
type randomPolicy struct{ rng randutil.Source }

func (randomPolicy) Bid(BidSituation) (Bid, bool) { return Bid{}, false }

func (p randomPolicy) Play(s PlaySituation) cards.Card {
	return s.Legal[p.rng.IntN(len(s.Legal))]
}

// stubbornPolicy always tries to play a card it does not hold.
type stubbornPolicy struct{}

func (stubbornPolicy) Bid(BidSituation) (Bid, bool) { return Bid{}, false }

func (stubbornPolicy) Play(PlaySituation) cards.Card { return cards.MustParse("2S") }

func newTestEngine(t *testing.T, src randutil.Source, opts ...Option) *Engine {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	base := []Option{WithRand(src), WithClock(quartz.NewMock(t))}
	return New(logger, append(base, opts...)...)
}

// dealtTable seats four humans at "t1" and deals an unshuffled deck: a holds
// every spade, b hearts, c diamonds and d clubs.
func dealtTable(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t, &cardtest.Source{})
	_, err := e.CreateTable(TableConfig{ID: "t1"})
	require.NoError(t, err)
	for _, id := range players {
		_, err := e.Join("t1", id, "", false)
		require.NoError(t, err)
	}
	v, err := e.Start("t1")
	require.NoError(t, err)
	require.True(t, v.Active)
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

func TestForcedBidWhenNobodyBids(t *testing.T) {
	e := dealtTable(t)

	v, err := e.State("t1", "a")
	require.NoError(t, err)
	assert.Equal(t, MinBid, v.HighestBid)
	assert.Equal(t, "a", v.Bidder)
	assert.True(t, v.ForcedBid)
	assert.Equal(t, "S", v.Trump)
	assert.True(t, v.BiddingOpen)
	assert.Equal(t, "a", v.CurrentPlayer)
	assert.Equal(t, EventForcedBid, v.Log[len(v.Log)-1].Kind)

	_, err = e.Bid("b", MinBid, cards.Hearts)
	assert.True(t, errors.Is(err, table.ErrIllegalAction), "forced bid counts as the standing bid")

	v, err = e.Bid("b", 17, cards.Hearts)
	require.NoError(t, err)
	assert.Equal(t, "b", v.Bidder)
	assert.Equal(t, "H", v.Trump)
	assert.False(t, v.ForcedBid)
}

func TestBidValidation(t *testing.T) {
	e := newTestEngine(t, &cardtest.Source{})
	_, err := e.CreateTable(TableConfig{ID: "t1"})
	require.NoError(t, err)
	_, err = e.Join("t1", "a", "", false)
	require.NoError(t, err)

	_, err = e.Bid("a", 20, cards.Spades)
	assert.True(t, errors.Is(err, table.ErrInvalidState), "no hand dealt")
	_, err = e.Bid("ghost", 20, cards.Spades)
	assert.True(t, errors.Is(err, table.ErrNotFound))
	_, err = e.Start("t1")
	assert.True(t, errors.Is(err, table.ErrInvalidState), "needs four players")

	e = dealtTable(t)
	for _, tc := range []struct {
		amount int
		trump  cards.Suit
	}{
		{MinBid - 1, cards.Spades},
		{MaxBid + 1, cards.Spades},
		{20, cards.Suit(9)},
	} {
		_, err := e.Bid("c", tc.amount, tc.trump)
		assert.True(t, errors.Is(err, table.ErrIllegalAction), "%d %v", tc.amount, tc.trump)
	}

	_, err = e.Start("t1")
	assert.True(t, errors.Is(err, table.ErrInvalidState), "hand in progress")

	_, err = e.Play("a", cards.MustParse("JS"))
	require.NoError(t, err)
	_, err = e.Bid("c", 25, cards.Diamonds)
	assert.True(t, errors.Is(err, table.ErrInvalidState), "bidding closes at the first card")
}

func TestPlayMustFollowSuit(t *testing.T) {
	e := dealtTable(t)
	arrange(t, e, func(tb *Table) {
		tb.players[0].hand = cardtest.Deck("JS 7H")
		tb.players[1].hand = cardtest.Deck("9S 8H")
	})

	_, err := e.Play("b", cards.MustParse("9S"))
	assert.True(t, errors.Is(err, table.ErrIllegalAction), "not b's turn")
	_, err = e.Play("a", cards.MustParse("AS"))
	assert.True(t, errors.Is(err, table.ErrIllegalAction), "card not held")

	_, err = e.Play("a", cards.MustParse("JS"))
	require.NoError(t, err)
	_, err = e.Play("b", cards.MustParse("8H"))
	assert.True(t, errors.Is(err, table.ErrIllegalAction), "must follow spades")

	v, err := e.Play("b", cards.MustParse("9S"))
	require.NoError(t, err)
	assert.Equal(t, []TrickCard{{"a", "JS"}, {"b", "9S"}}, v.Trick)
	assert.Equal(t, "c", v.CurrentPlayer)
}

func TestTrickGoesToTrumpAndScoresTeam(t *testing.T) {
	e := dealtTable(t)

	for _, step := range []struct{ id, card string }{
		{"a", "JS"}, {"b", "JH"}, {"c", "JD"}, {"d", "JC"},
	} {
		_, err := e.Play(step.id, cards.MustParse(step.card))
		require.NoError(t, err, step.id)
	}

	v, err := e.State("t1", "")
	require.NoError(t, err)
	assert.Empty(t, v.Trick)
	assert.Len(t, v.LastTrick, 4)
	assert.Equal(t, [2]int{12, 0}, v.TeamPoints)
	assert.Equal(t, "a", v.CurrentPlayer, "trick winner leads")
	assert.Equal(t, 1, v.Players[0].WonTricks)
	assert.False(t, v.BiddingOpen)
	assert.Equal(t, EventTrickWin, v.Log[len(v.Log)-1].Kind)
}

func TestFullHandBySeatOrder(t *testing.T) {
	e := dealtTable(t)

	// Spades are trump and a leads every trick, so team 0 takes all 28.
	for range HandSize {
		for _, id := range players {
			v, err := e.State("t1", id)
			require.NoError(t, err)
			require.Equal(t, id, v.CurrentPlayer)
			_, err = e.Play(id, cards.MustParse(playerCards(t, v, id)[0]))
			require.NoError(t, err)
		}
	}

	v, err := e.State("t1", "b")
	require.NoError(t, err)
	assert.False(t, v.Active)
	require.NotNil(t, v.LastResult)
	assert.Equal(t, Result{
		Hand:         1,
		Bidder:       "a",
		Bid:          MinBid,
		Trump:        "S",
		Forced:       true,
		BidderTeam:   0,
		BidderPoints: TotalPoints,
		TeamPoints:   [2]int{TotalPoints, 0},
		ContractMade: true,
	}, *v.LastResult)
	assert.Equal(t, HandSize, v.Players[0].WonTricks)
}

func playerCards(t *testing.T, v View, id string) []string {
	t.Helper()
	for _, p := range v.Players {
		if p.ID == id {
			return p.Cards
		}
	}
	t.Fatalf("player %s not in view", id)
	return nil
}

func TestViewRedactsOtherHands(t *testing.T) {
	e := dealtTable(t)

	v, err := e.State("t1", "b")
	require.NoError(t, err)
	for _, p := range v.Players {
		require.Len(t, p.Cards, HandSize)
		if p.ID == "b" {
			assert.Equal(t, []string{"JH", "9H", "AH", "10H", "KH", "QH", "8H", "7H"}, p.Cards)
			continue
		}
		for _, c := range p.Cards {
			assert.Equal(t, HiddenCard, c, p.ID)
		}
	}
	assert.Equal(t, []int{0, 1, 0, 1}, []int{v.Players[0].Team, v.Players[1].Team, v.Players[2].Team, v.Players[3].Team})

	v.Players[1].Cards[0] = "mutated"
	again, err := e.State("t1", "b")
	require.NoError(t, err)
	assert.Equal(t, "JH", again.Players[1].Cards[0])
}

func TestBotsBidAndPlayUntilHumanTurn(t *testing.T) {
	e := newTestEngine(t, randutil.New(7))
	_, err := e.CreateTable(TableConfig{ID: "t1", AutoStart: true})
	require.NoError(t, err)
	_, err = e.Join("t1", "a", "", false)
	require.NoError(t, err)

	v, err := e.AddBots("t1", 5)
	require.NoError(t, err)
	require.Len(t, v.Players, Seats)
	require.True(t, v.Active, "auto start on the fourth seat")
	assert.Equal(t, "a", v.CurrentPlayer, "seat 0 leads")
	assert.NotEmpty(t, v.Bidder)
	assert.GreaterOrEqual(t, v.HighestBid, MinBid)

	a := playerCards(t, v, "a")
	card := cards.MustParse(a[0])
	v, err = e.Play("a", card)
	require.NoError(t, err)
	if v.Active {
		assert.Equal(t, "a", v.CurrentPlayer, "bots play through to the human")
	}
}

func TestBotFallsBackToLegalCard(t *testing.T) {
	e := newTestEngine(t, &cardtest.Source{}, WithPolicy(stubbornPolicy{}))
	_, err := e.CreateTable(TableConfig{ID: "t1"})
	require.NoError(t, err)
	_, err = e.Join("t1", "a", "", false)
	require.NoError(t, err)
	_, err = e.AddBots("t1", 3)
	require.NoError(t, err)
	_, err = e.Start("t1")
	require.NoError(t, err)

	v, err := e.Play("a", cards.MustParse("7S"))
	require.NoError(t, err)
	// Each bot falls back to the first card of its sorted hand.
	assert.Equal(t, []string{"7S", "JH", "JD", "JC"}, []string{
		v.LastTrick[0].Card, v.LastTrick[1].Card, v.LastTrick[2].Card, v.LastTrick[3].Card,
	})
	assert.Equal(t, "a", v.CurrentPlayer, "only trump wins")
}

func TestAllBotHandsScoreTwentyEight(t *testing.T) {
	rng := randutil.New(29)
	e := newTestEngine(t, rng, WithPolicy(randomPolicy{rng: randutil.New(30)}))
	_, err := e.CreateTable(TableConfig{ID: "t1"})
	require.NoError(t, err)
	_, err = e.AddBots("t1", Seats)
	require.NoError(t, err)

	for hand := 1; hand <= 25; hand++ {
		v, err := e.Start("t1")
		require.NoError(t, err)
		require.False(t, v.Active, "bots finish the hand")
		require.NotNil(t, v.LastResult)
		res := v.LastResult
		assert.Equal(t, hand, res.Hand)
		assert.Equal(t, TotalPoints, res.TeamPoints[0]+res.TeamPoints[1])
		assert.True(t, res.Forced)
		assert.Equal(t, res.BidderPoints >= res.Bid, res.ContractMade)
	}

	v, err := e.State("t1", "")
	require.NoError(t, err)
	tricks := 0
	for _, p := range v.Players {
		tricks += p.WonTricks
	}
	assert.Equal(t, 25*HandSize, tricks, "won tricks accumulate across hands")
}

func TestEliteBotsFinishHands(t *testing.T) {
	e := newTestEngine(t, randutil.New(11))
	_, err := e.CreateTable(TableConfig{ID: "t1"})
	require.NoError(t, err)
	_, err = e.AddBots("t1", Seats)
	require.NoError(t, err)

	for range 10 {
		v, err := e.Start("t1")
		require.NoError(t, err)
		require.NotNil(t, v.LastResult)
		assert.Equal(t, TotalPoints, v.LastResult.TeamPoints[0]+v.LastResult.TeamPoints[1])
		assert.False(t, v.LastResult.Forced, "elite bots always open at least the minimum")
	}
}

func TestJoinValidation(t *testing.T) {
	e := newTestEngine(t, &cardtest.Source{})
	_, err := e.Join("missing", "a", "", false)
	assert.True(t, errors.Is(err, table.ErrNotFound))

	e = dealtTable(t)
	_, err = e.Join("t1", "e", "", false)
	assert.True(t, errors.Is(err, table.ErrIllegalAction), "table full")
	_, err = e.AddBots("t1", 1)
	assert.True(t, errors.Is(err, table.ErrIllegalAction))
	_, err = e.AddBots("t1", 0)
	assert.True(t, errors.Is(err, table.ErrIllegalAction))

	_, err = e.CreateTable(TableConfig{ID: "t2"})
	require.NoError(t, err)
	_, err = e.Join("t2", "a", "", false)
	assert.True(t, errors.Is(err, table.ErrIllegalAction), "already seated elsewhere")
}

func TestSeedAndListTables(t *testing.T) {
	e := newTestEngine(t, &cardtest.Source{})
	n, err := e.Seed([]TableConfig{{ID: "t29-b"}, {ID: "t29-a", Name: "Alpha"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = e.Seed([]TableConfig{{ID: "t29-a"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	list := e.ListTables()
	require.Len(t, list, 2)
	assert.Equal(t, "t29-a", list[0].ID)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, Seats, list[0].MaxPlayers)

	s, err := e.CreateTable(TableConfig{})
	require.NoError(t, err)
	assert.Regexp(t, `^t29-`, s.ID)
}

func TestConcurrentJoinsSeatOnce(t *testing.T) {
	e := newTestEngine(t, randutil.New(3))
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
}

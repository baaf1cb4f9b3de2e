// Package twentynine runs Twenty-Nine tables: four players in fixed
// partnerships bid for the right to name trumps, then play eight tricks
// from a 32-card deck.
package twentynine

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/parlor/internal/cards"
	"github.com/lox/parlor/internal/gameid"
	"github.com/lox/parlor/internal/randutil"
	"github.com/lox/parlor/internal/table"
)

const (
	Seats = 4

	logCapacity = 40
	maxBotSteps = 64
)

var botNames = []string{"Orion", "Nova", "Alpha", "Sigma"}

// TableConfig describes a Twenty-Nine table. AutoStart deals a hand as soon
// as the fourth seat fills.
type TableConfig struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AutoStart bool   `json:"autoStart"`
}

type Option func(*Engine)

// WithRand sets the shuffle source. It is wrapped for concurrent use.
func WithRand(src randutil.Source) Option {
	return func(e *Engine) { e.rng = randutil.NewLocked(src) }
}

func WithClock(clock quartz.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// Engine owns every Twenty-Nine table in the process.
type Engine struct {
	tables *table.Registry[Table]
	seats  *table.SeatIndex
	rng    randutil.Source
	clock  quartz.Clock
	policy Policy
	ids    *gameid.Generator
	logger *log.Logger
}

func New(logger *log.Logger, opts ...Option) *Engine {
	e := &Engine{
		tables: table.NewRegistry[Table](),
		seats:  table.NewSeatIndex(),
		clock:  quartz.NewReal(),
		policy: ElitePolicy{},
		logger: logger.WithPrefix("twentynine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = randutil.NewTimeSeeded()
	}
	e.ids = gameid.NewGenerator(randutil.NewTimeSeeded(), e.clock)
	return e
}

// Table is a single Twenty-Nine table. All fields are guarded by mu.
type Table struct {
	mu sync.Mutex

	cfg        TableConfig
	players    []*player
	active     bool
	handNumber int
	highest    int
	bidder     int // seat, -1 before any bid
	forced     bool
	trump      cards.Suit
	turn       int
	played     int // cards played this hand
	trick      []Played
	lastTrick  []Played
	teamPoints [2]int
	events     *table.Ring[Event]
	last       *Result
	logger     *log.Logger
}

type player struct {
	id        string
	name      string
	bot       bool
	hand      []cards.Card
	wonTricks int
}

func (e *Engine) CreateTable(cfg TableConfig) (Summary, error) {
	if cfg.ID == "" {
		cfg.ID = e.ids.TableID("t29")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}
	t := &Table{
		cfg:    cfg,
		bidder: -1,
		events: table.NewRing[Event](logCapacity),
		logger: e.logger.With("table", cfg.ID),
	}
	if !e.tables.Add(cfg.ID, t) {
		return Summary{}, table.Illegal("table %s already exists", cfg.ID)
	}
	e.logger.Info("Created table", "id", cfg.ID, "name", cfg.Name, "autoStart", cfg.AutoStart)
	return t.summary(), nil
}

// Seed creates the configured tables that do not exist yet.
func (e *Engine) Seed(cfgs []TableConfig) (int, error) {
	var errs []error
	created := 0
	for _, cfg := range cfgs {
		if _, ok := e.tables.Get(cfg.ID); ok && cfg.ID != "" {
			continue
		}
		if _, err := e.CreateTable(cfg); err != nil {
			errs = append(errs, fmt.Errorf("table %q: %w", cfg.ID, err))
			continue
		}
		created++
	}
	return created, errors.Join(errs...)
}

func (e *Engine) ListTables() []Summary {
	all := e.tables.All()
	out := make([]Summary, 0, len(all))
	for _, t := range all {
		t.mu.Lock()
		out = append(out, t.summary())
		t.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b Summary) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (e *Engine) TableOf(participantID string) (string, bool) {
	return e.seats.TableOf(participantID)
}

// Join seats a participant. Seats 0 and 2 partner against 1 and 3.
func (e *Engine) Join(tableID, participantID, name string, isBot bool, observers ...Observer) (View, error) {
	t, err := e.tables.Lookup(tableID)
	if err != nil {
		return View{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := e.seat(t, participantID, name, isBot); err != nil {
		return View{}, err
	}
	e.maybeAutoStart(t)
	t.notify(observers)
	return t.view(participantID), nil
}

// AddBots fills up to count free seats with bots.
func (e *Engine) AddBots(tableID string, count int, observers ...Observer) (View, error) {
	if count <= 0 {
		return View{}, table.Illegal("bot count must be positive, got %d", count)
	}
	t, err := e.tables.Lookup(tableID)
	if err != nil {
		return View{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.players) >= Seats {
		return View{}, table.Illegal("table %s is full", tableID)
	}
	for i := 0; i < count && len(t.players) < Seats; i++ {
		id := e.ids.BotID("t29", t.cfg.ID, len(t.players)+1)
		if err := e.seat(t, id, e.ids.BotName(botNames), true); err != nil {
			return View{}, err
		}
	}
	e.maybeAutoStart(t)
	t.notify(observers)
	return t.view(""), nil
}

// Start deals a new hand. It needs exactly four seated participants.
func (e *Engine) Start(tableID string, observers ...Observer) (View, error) {
	t, err := e.tables.Lookup(tableID)
	if err != nil {
		return View{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return View{}, table.InvalidState("hand already in progress")
	}
	if len(t.players) != Seats {
		return View{}, table.InvalidState("twenty-nine needs exactly %d players, have %d", Seats, len(t.players))
	}
	e.deal(t)
	t.notify(observers)
	return t.view(""), nil
}

// Bid offers amount with trump. Bids are open from the deal until the
// first card of the hand is played.
func (e *Engine) Bid(participantID string, amount int, trump cards.Suit, observers ...Observer) (View, error) {
	t, idx, err := e.lockSeat(participantID)
	if err != nil {
		return View{}, err
	}
	defer t.mu.Unlock()

	switch {
	case !t.active:
		return View{}, table.InvalidState("no hand in progress")
	case t.played > 0:
		return View{}, table.InvalidState("bidding closed once play began")
	case !slices.Contains(cards.Suits, trump):
		return View{}, table.Illegal("invalid trump suit %d", int(trump))
	case amount < MinBid || amount > MaxBid:
		return View{}, table.Illegal("bid must be between %d and %d", MinBid, MaxBid)
	case amount <= t.highest:
		return View{}, table.Illegal("bid must exceed %d", t.highest)
	}

	e.acceptBid(t, idx, Bid{Amount: amount, Trump: trump})
	e.botBids(t)
	e.playBots(t)
	t.notify(observers)
	return t.view(participantID), nil
}

// Play plays card from participantID's hand.
func (e *Engine) Play(participantID string, card cards.Card, observers ...Observer) (View, error) {
	t, idx, err := e.lockSeat(participantID)
	if err != nil {
		return View{}, err
	}
	defer t.mu.Unlock()

	if !t.active {
		return View{}, table.InvalidState("no hand in progress")
	}
	if t.turn != idx {
		return View{}, table.Illegal("not your turn")
	}
	if err := e.play(t, idx, card); err != nil {
		return View{}, err
	}
	e.playBots(t)
	t.notify(observers)
	return t.view(participantID), nil
}

// PlayBots resumes bot play at a table where only bots are due to act.
func (e *Engine) PlayBots(tableID string, observers ...Observer) (View, error) {
	t, err := e.tables.Lookup(tableID)
	if err != nil {
		return View{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e.playBots(t)
	t.notify(observers)
	return t.view(""), nil
}

func (e *Engine) State(tableID, viewerID string) (View, error) {
	t, err := e.tables.Lookup(tableID)
	if err != nil {
		return View{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view(viewerID), nil
}

// lockSeat returns participantID's table locked with their seat index.
func (e *Engine) lockSeat(participantID string) (*Table, int, error) {
	t, err := table.Resolve(e.tables, e.seats, participantID)
	if err != nil {
		return nil, 0, err
	}
	t.mu.Lock()
	idx := slices.IndexFunc(t.players, func(p *player) bool { return p.id == participantID })
	if idx < 0 {
		t.mu.Unlock()
		return nil, 0, table.NotFound("participant %s is not seated at table %s", participantID, t.cfg.ID)
	}
	return t, idx, nil
}

func (e *Engine) seat(t *Table, id, name string, isBot bool) error {
	if id == "" {
		return table.Illegal("participant id is required")
	}
	if len(t.players) >= Seats {
		return table.Illegal("table %s is full", t.cfg.ID)
	}
	if err := e.seats.Claim(id, t.cfg.ID); err != nil {
		return err
	}
	if name == "" {
		name = id
	}
	t.players = append(t.players, &player{id: id, name: name, bot: isBot})

	kind := EventJoin
	if isBot {
		kind = EventBotJoin
	}
	e.record(t, Event{Kind: kind, Participant: id})
	t.logger.Info("Player joined table", "player", name, "bot", isBot, "players", len(t.players))
	return nil
}

func (e *Engine) maybeAutoStart(t *Table) {
	if t.cfg.AutoStart && !t.active && len(t.players) == Seats {
		e.deal(t)
	}
}

// deal starts a hand: shuffle, deal eight each, collect bot bids, force a
// bidder if nobody bid, then let bots play.
func (e *Engine) deal(t *Table) {
	deck := cards.NewDeck(cards.Trick32, e.rng)
	for _, p := range t.players {
		p.hand = deck.Deal(HandSize)
		SortHand(p.hand)
	}
	t.active = true
	t.handNumber++
	t.highest = 0
	t.bidder = -1
	t.forced = false
	t.trump = cards.Spades
	t.turn = 0
	t.played = 0
	t.trick = nil
	t.lastTrick = nil
	t.teamPoints = [2]int{}

	e.record(t, Event{Kind: EventHandStart})
	t.logger.Info("Hand started", "hand", t.handNumber)

	e.botBids(t)
	if t.bidder < 0 {
		t.highest = MinBid
		t.bidder = 0
		t.forced = true
		t.trump = BestTrump(t.players[0].hand)
		e.record(t, Event{Kind: EventForcedBid, Participant: t.players[0].id, Amount: MinBid, Trump: t.trump.String()})
	}
	e.playBots(t)
}

func (e *Engine) acceptBid(t *Table, idx int, b Bid) {
	p := t.players[idx]
	t.highest = b.Amount
	t.bidder = idx
	t.trump = b.Trump
	t.forced = false

	kind := EventBid
	if p.bot {
		kind = EventBotBid
	}
	e.record(t, Event{Kind: kind, Participant: p.id, Amount: b.Amount, Trump: b.Trump.String()})
	t.logger.Debug("Bid accepted", "player", p.name, "amount", b.Amount, "trump", b.Trump)
}

// botBids gives every bot, in seat order, one chance to outbid.
func (e *Engine) botBids(t *Table) {
	for idx, p := range t.players {
		if !p.bot {
			continue
		}
		b, ok := e.policy.Bid(BidSituation{Seat: idx, Hand: slices.Clone(p.hand), Highest: t.highest})
		if !ok || b.Amount <= t.highest || b.Amount < MinBid || b.Amount > MaxBid || !slices.Contains(cards.Suits, b.Trump) {
			continue
		}
		e.acceptBid(t, idx, b)
	}
}

// play validates and plays card for the seat at idx.
func (e *Engine) play(t *Table, idx int, card cards.Card) error {
	p := t.players[idx]
	pos := cards.Index(p.hand, card)
	if pos < 0 {
		return table.Illegal("card %s not in hand", card)
	}
	if !cards.Contains(Legal(p.hand, t.trick), card) {
		return table.Illegal("must follow %s", t.trick[0].Card.Suit.Symbol())
	}

	p.hand = slices.Delete(p.hand, pos, pos+1)
	t.trick = append(t.trick, Played{Seat: idx, Card: card})
	t.played++

	kind := EventPlay
	if p.bot {
		kind = EventBotPlay
	}
	e.record(t, Event{Kind: kind, Participant: p.id, Card: card.String()})

	if len(t.trick) < Seats {
		t.turn = (t.turn + 1) % Seats
		return nil
	}
	e.finishTrick(t)
	return nil
}

func (e *Engine) finishTrick(t *Table) {
	win := t.trick[TrickWinner(t.trick, t.trump)]
	points := 0
	for _, pl := range t.trick {
		points += Points(pl.Card)
	}
	winner := t.players[win.Seat]
	t.teamPoints[win.Seat%2] += points
	winner.wonTricks++
	t.lastTrick = t.trick
	t.trick = nil
	t.turn = win.Seat

	e.record(t, Event{Kind: EventTrickWin, Participant: winner.id, Card: win.Card.String(), Amount: points})
	t.logger.Debug("Trick won", "player", winner.name, "card", win.Card, "points", points)

	for _, p := range t.players {
		if len(p.hand) > 0 {
			return
		}
	}
	e.finishHand(t)
}

func (e *Engine) finishHand(t *Table) {
	t.active = false
	team := t.bidder % 2
	res := &Result{
		Hand:         t.handNumber,
		Bidder:       t.players[t.bidder].id,
		Bid:          t.highest,
		Trump:        t.trump.String(),
		Forced:       t.forced,
		BidderTeam:   team,
		BidderPoints: t.teamPoints[team],
		TeamPoints:   t.teamPoints,
		ContractMade: t.teamPoints[team] >= t.highest,
	}
	t.last = res

	detail := "contract lost"
	if res.ContractMade {
		detail = "contract made"
	}
	e.record(t, Event{Kind: EventHandEnd, Participant: res.Bidder, Amount: res.BidderPoints, Detail: detail})
	t.logger.Info("Hand completed", "hand", res.Hand, "bid", res.Bid, "points", res.BidderPoints, "made", res.ContractMade)
}

func (e *Engine) playBots(t *Table) {
	for steps := 0; t.active; steps++ {
		if steps == maxBotSteps {
			t.logger.Warn("Bot cascade limit reached", "steps", steps)
			return
		}
		idx := t.turn
		p := t.players[idx]
		if !p.bot {
			return
		}
		legal := Legal(p.hand, t.trick)
		card := e.policy.Play(PlaySituation{
			Seat:  idx,
			Hand:  slices.Clone(p.hand),
			Legal: legal,
			Trick: slices.Clone(t.trick),
			Trump: t.trump,
		})
		if err := e.play(t, idx, card); err != nil {
			t.logger.Debug("Bot play rejected, using first legal card", "bot", p.name, "error", err)
			_ = e.play(t, idx, legal[0])
		}
	}
}

func (e *Engine) record(t *Table, ev Event) {
	ev.At = e.clock.Now()
	ev.Hand = t.handNumber
	t.events.Push(ev)
}

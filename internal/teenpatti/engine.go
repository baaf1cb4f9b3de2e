// Package teenpatti runs Teen Patti tables: three-card hands played blind or
// seen against a shared pot, settled when one player remains or on a
// heads-up show.
package teenpatti

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

// Action is a player decision.
type Action string

const (
	Pack  Action = "pack"
	See   Action = "see"
	Call  Action = "call"
	Raise Action = "raise"
	Show  Action = "show"
)

// ParseAction accepts the wire names of the actions.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case Pack, See, Call, Raise, Show:
		return a, nil
	}
	return "", table.Illegal("unknown action %q", s)
}

const (
	// DefaultMaxPlayers seats a table when the config leaves it unset.
	DefaultMaxPlayers = 6

	logCapacity = 30
	maxBotSteps = 40
)

var botNames = []string{"Ava", "Rex", "Nora", "Leo", "Mia", "Kane", "Iris"}

// TableConfig describes a table's stakes and size.
type TableConfig struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
	Ante       int    `json:"ante"`
	MinBuyIn   int    `json:"minBuyIn"`
	MaxBuyIn   int    `json:"maxBuyIn"`
}

// Validate checks the stakes are coherent.
func (c TableConfig) Validate() error {
	switch {
	case c.Ante <= 0:
		return table.Illegal("ante must be positive, got %d", c.Ante)
	case c.MaxPlayers < 2:
		return table.Illegal("max players must be at least 2, got %d", c.MaxPlayers)
	case c.MinBuyIn < c.Ante:
		return table.Illegal("min buy-in %d is below the ante %d", c.MinBuyIn, c.Ante)
	case c.MaxBuyIn < c.MinBuyIn:
		return table.Illegal("max buy-in %d is below min buy-in %d", c.MaxBuyIn, c.MinBuyIn)
	}
	return nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the source for shuffles and bot bluffs. It is wrapped for
// concurrent use.
func WithRand(src randutil.Source) Option {
	return func(e *Engine) { e.rng = randutil.NewLocked(src) }
}

// WithClock sets the clock used to timestamp events.
func WithClock(clock quartz.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithPolicy replaces the bot policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// Engine owns every Teen Patti table in the process.
type Engine struct {
	tables *table.Registry[Table]
	seats  *table.SeatIndex
	rng    randutil.Source
	clock  quartz.Clock
	policy Policy
	ids    *gameid.Generator
	logger *log.Logger
}

// New constructs an engine with no tables.
func New(logger *log.Logger, opts ...Option) *Engine {
	e := &Engine{
		tables: table.NewRegistry[Table](),
		seats:  table.NewSeatIndex(),
		clock:  quartz.NewReal(),
		logger: logger.WithPrefix("teenpatti"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = randutil.NewTimeSeeded()
	}
	if e.policy == nil {
		e.policy = NewElitePolicy(e.rng)
	}
	e.ids = gameid.NewGenerator(randutil.NewTimeSeeded(), e.clock)
	return e
}

// Table is a single Teen Patti table. All fields are guarded by mu.
type Table struct {
	mu sync.Mutex

	cfg        TableConfig
	players    []*player
	pot        int
	bet        int
	dealer     int
	turn       int
	active     bool
	handNumber int
	events     *table.Ring[Event]
	last       *Result
	logger     *log.Logger
}

type player struct {
	id          string
	name        string
	bot         bool
	chips       int
	seen        bool
	packed      bool
	cards       []cards.Card
	contributed int
}

// CreateTable registers a table. An empty id is generated; a zero
// MaxPlayers defaults to DefaultMaxPlayers.
func (e *Engine) CreateTable(cfg TableConfig) (Summary, error) {
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = DefaultMaxPlayers
	}
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	if cfg.ID == "" {
		cfg.ID = e.ids.TableID("tp")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}

	t := &Table{
		cfg:    cfg,
		events: table.NewRing[Event](logCapacity),
		logger: e.logger.With("table", cfg.ID),
	}
	if !e.tables.Add(cfg.ID, t) {
		return Summary{}, table.Illegal("table %s already exists", cfg.ID)
	}
	e.logger.Info("Created table", "id", cfg.ID, "name", cfg.Name, "ante", cfg.Ante, "seats", cfg.MaxPlayers)
	return t.summary(), nil
}

// Seed creates every table whose id is not registered yet and returns how
// many were created.
func (e *Engine) Seed(cfgs []TableConfig) (int, error) {
	var errs []error
	created := 0
	for _, cfg := range cfgs {
		if cfg.ID != "" {
			if _, ok := e.tables.Get(cfg.ID); ok {
				continue
			}
		}
		if _, err := e.CreateTable(cfg); err != nil {
			errs = append(errs, fmt.Errorf("table %q: %w", cfg.ID, err))
			continue
		}
		created++
	}
	return created, errors.Join(errs...)
}

// ListTables returns a summary of every table sorted by id.
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

// TableOf returns the table participantID is seated at.
func (e *Engine) TableOf(participantID string) (string, bool) {
	return e.seats.TableOf(participantID)
}

// Join seats a participant with buyIn chips. Humans must buy in within the
// table's range. A hand starts once two players are seated; participants
// joining mid-hand sit it out.
func (e *Engine) Join(tableID, participantID, name string, buyIn int, isBot bool, observers ...Observer) (View, error) {
	t, err := e.tables.Lookup(tableID)
	if err != nil {
		return View{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := e.seat(t, participantID, name, buyIn, isBot); err != nil {
		return View{}, err
	}
	if !t.active && len(t.players) >= 2 {
		e.startHand(t)
	}
	e.playBots(t)
	t.notify(observers)
	return t.view(participantID), nil
}

// AddBots fills up to count free seats with bots buying in at twice the
// minimum.
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

	free := t.cfg.MaxPlayers - len(t.players)
	if free <= 0 {
		return View{}, table.Illegal("table %s is full", tableID)
	}
	for i := 0; i < min(count, free); i++ {
		id := e.ids.BotID("teenpatti", t.cfg.ID, len(t.players)+1)
		if err := e.seat(t, id, e.ids.BotName(botNames), 2*t.cfg.MinBuyIn, true); err != nil {
			return View{}, err
		}
	}
	if !t.active && len(t.players) >= 2 {
		e.startHand(t)
	}
	e.playBots(t)
	t.notify(observers)
	return t.view(""), nil
}

// Act applies participantID's action at their table, then lets bots play
// until a human is due to act.
func (e *Engine) Act(participantID string, action Action, amount int, observers ...Observer) (View, error) {
	t, err := table.Resolve(e.tables, e.seats, participantID)
	if err != nil {
		return View{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(participantID)
	if idx < 0 {
		return View{}, table.NotFound("participant %s is not seated at table %s", participantID, t.cfg.ID)
	}
	if !t.active {
		return View{}, table.InvalidState("no hand in progress")
	}
	if t.turn != idx {
		return View{}, table.Illegal("not your turn")
	}
	if t.players[idx].packed {
		return View{}, table.Illegal("already packed")
	}
	if err := e.apply(t, idx, action, amount); err != nil {
		return View{}, err
	}
	e.playBots(t)
	t.notify(observers)
	return t.view(participantID), nil
}

// PlayBots resumes bot play at a table, for tables where only bots are due
// to act.
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

// State returns the table as viewerID may see it. An empty viewer sees no
// hidden cards.
func (e *Engine) State(tableID, viewerID string) (View, error) {
	t, err := e.tables.Lookup(tableID)
	if err != nil {
		return View{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view(viewerID), nil
}

func (e *Engine) seat(t *Table, id, name string, buyIn int, isBot bool) error {
	if id == "" {
		return table.Illegal("participant id is required")
	}
	if len(t.players) >= t.cfg.MaxPlayers {
		return table.Illegal("table %s is full", t.cfg.ID)
	}
	if !isBot && (buyIn < t.cfg.MinBuyIn || buyIn > t.cfg.MaxBuyIn) {
		return table.Illegal("buy-in %d outside %d..%d", buyIn, t.cfg.MinBuyIn, t.cfg.MaxBuyIn)
	}
	if err := e.seats.Claim(id, t.cfg.ID); err != nil {
		return err
	}
	if name == "" {
		name = id
	}

	t.players = append(t.players, &player{
		id:     id,
		name:   name,
		bot:    isBot,
		chips:  buyIn,
		packed: t.active,
	})
	kind := EventJoin
	if isBot {
		kind = EventBotJoin
	}
	e.record(t, Event{Kind: kind, Participant: id, Amount: buyIn})
	t.logger.Info("Player joined table", "player", name, "buyIn", buyIn, "bot", isBot, "players", len(t.players))
	return nil
}

func (e *Engine) startHand(t *Table) {
	kept := make([]*player, 0, len(t.players))
	for _, p := range t.players {
		if p.chips >= t.cfg.Ante {
			kept = append(kept, p)
			continue
		}
		e.seats.Release(p.id)
		e.record(t, Event{Kind: EventRemoved, Participant: p.id, Amount: p.chips})
		t.logger.Info("Removed player below ante", "player", p.name, "chips", p.chips)
	}
	t.players = kept

	if len(t.players) < 2 {
		t.active = false
		e.record(t, Event{Kind: EventHandCancelled})
		return
	}
	if t.dealer >= len(t.players) {
		t.dealer = 0
	}

	deck := cards.NewDeck(cards.Standard52, e.rng)
	t.handNumber++
	t.pot = 0
	t.bet = t.cfg.Ante
	for _, p := range t.players {
		p.seen = false
		p.packed = false
		p.chips -= t.cfg.Ante
		p.contributed = t.cfg.Ante
		p.cards = deck.Deal(HandSize)
		t.pot += t.cfg.Ante
	}
	t.turn = (t.dealer + 1) % len(t.players)
	t.active = true

	e.record(t, Event{Kind: EventHandStart, Amount: t.cfg.Ante, Pot: t.pot})
	t.logger.Info("Hand started", "hand", t.handNumber, "players", len(t.players), "pot", t.pot)
}

// apply validates and performs one action for the seat at idx. On error
// nothing has changed.
func (e *Engine) apply(t *Table, idx int, action Action, amount int) error {
	p := t.players[idx]
	committed := 0

	switch action {
	case Pack:
		p.packed = true
	case See:
		if p.seen {
			return table.Illegal("cards already seen")
		}
		p.seen = true
	case Call, Raise:
		committed = Commit(action, p.seen, t.bet, amount)
		if p.chips < committed {
			return table.Insufficient("%s needs %d chips, have %d", action, committed, p.chips)
		}
		t.commit(p, committed)
		level := committed
		if p.seen {
			level = committed / 2
		}
		if level > t.bet {
			t.bet = level
		}
	case Show:
		return e.show(t, idx)
	default:
		return table.Illegal("unknown action %q", action)
	}

	e.record(t, Event{Kind: actionKind(p), Participant: p.id, Action: action, Amount: committed, Pot: t.pot})
	t.logger.Debug("Player action", "player", p.name, "action", action, "amount", committed, "pot", t.pot)

	if live := t.unpacked(); len(live) == 1 {
		e.award(t, live, ReasonFold)
		return nil
	}
	if action != See {
		t.advance()
	}
	return nil
}

func (e *Engine) show(t *Table, idx int) error {
	p := t.players[idx]
	live := t.unpacked()
	if len(live) != 2 {
		return table.Illegal("show needs exactly two players in the hand, have %d", len(live))
	}
	cost := t.bet
	if p.seen {
		cost *= 2
	}
	if p.chips < cost {
		return table.Insufficient("show needs %d chips, have %d", cost, p.chips)
	}
	opp := live[0]
	if opp == idx {
		opp = live[1]
	}
	cmp, err := Compare(p.cards, t.players[opp].cards)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}

	t.commit(p, cost)
	e.record(t, Event{Kind: actionKind(p), Participant: p.id, Action: Show, Amount: cost, Pot: t.pot})

	switch {
	case cmp > 0:
		e.award(t, []int{idx}, ReasonShow)
	case cmp < 0:
		e.award(t, []int{opp}, ReasonShow)
	default:
		e.award(t, live, ReasonDraw)
	}
	return nil
}

// award pays the pot to winners and ends the hand. A split pot gives the
// odd chip to the first winner in seat order after the dealer.
func (e *Engine) award(t *Table, winners []int, reason Reason) {
	n := len(t.players)
	order := slices.Clone(winners)
	slices.SortFunc(order, func(a, b int) int {
		return (a-t.dealer-1+n)%n - (b-t.dealer-1+n)%n
	})

	res := &Result{Hand: t.handNumber, Reason: reason, Pot: t.pot}
	share, odd := t.pot/len(order), t.pot%len(order)
	for i, idx := range order {
		p := t.players[idx]
		amount := share
		if i < odd {
			amount++
		}
		p.chips += amount
		res.Winners = append(res.Winners, Payout{ID: p.id, Name: p.name, Amount: amount})
	}
	if reason != ReasonFold {
		for _, idx := range t.unpacked() {
			p := t.players[idx]
			shown := ShownHand{ID: p.id, Cards: cards.Codes(p.cards)}
			if score, err := Evaluate(p.cards); err == nil {
				shown.Category = score.Category.String()
			}
			res.Shown = append(res.Shown, shown)
		}
	}
	t.pot = 0
	t.last = res

	e.record(t, Event{Kind: EventHandEnd, Amount: res.Pot, Detail: string(reason)})
	t.logger.Info("Hand completed", "hand", res.Hand, "reason", reason, "pot", res.Pot, "winners", len(res.Winners))

	t.active = false
	t.dealer = (t.dealer + 1) % n
	eligible := 0
	for _, p := range t.players {
		if p.chips >= t.cfg.Ante {
			eligible++
		}
	}
	if eligible >= 2 {
		e.startHand(t)
	}
}

// playBots lets bots act while one holds the turn.
func (e *Engine) playBots(t *Table) {
	for steps := 0; t.active; steps++ {
		if steps == maxBotSteps {
			t.logger.Warn("Bot cascade limit reached", "steps", steps)
			return
		}
		idx := t.turn
		p := t.players[idx]
		if !p.bot || p.packed {
			return
		}
		if len(t.unpacked()) == 2 && !p.seen {
			p.seen = true
			e.record(t, Event{Kind: EventBotAction, Participant: p.id, Action: See, Pot: t.pot})
		}

		d := e.policy.Decide(t.situation(idx))
		t.logger.Debug("Bot decision", "bot", p.name, "action", d.Action, "amount", d.Amount, "reason", d.Reason)
		if err := e.apply(t, idx, d.Action, d.Amount); err != nil {
			t.logger.Debug("Bot action rejected, packing", "bot", p.name, "error", err)
			_ = e.apply(t, idx, Pack, 0)
		}
	}
}

func (e *Engine) record(t *Table, ev Event) {
	ev.At = e.clock.Now()
	ev.Hand = t.handNumber
	t.events.Push(ev)
}

// Commit is the chip cost of a call or raise. Blind players call the bet
// and raise to at least double it; seen players pay twice that.
func Commit(action Action, seen bool, bet, requested int) int {
	switch action {
	case Call:
		if seen {
			return 2 * bet
		}
		return bet
	case Raise:
		if seen {
			return max(requested, 4*bet)
		}
		return max(requested, 2*bet)
	}
	return 0
}

func actionKind(p *player) EventKind {
	if p.bot {
		return EventBotAction
	}
	return EventAction
}

func (t *Table) commit(p *player, amount int) {
	p.chips -= amount
	p.contributed += amount
	t.pot += amount
}

func (t *Table) indexOf(id string) int {
	return slices.IndexFunc(t.players, func(p *player) bool { return p.id == id })
}

// unpacked returns the seat indices still in the hand, in seat order.
func (t *Table) unpacked() []int {
	var out []int
	for i, p := range t.players {
		if !p.packed {
			out = append(out, i)
		}
	}
	return out
}

// advance moves the turn to the next unpacked seat with chips, falling back
// to any unpacked seat when every remaining stack is empty.
func (t *Table) advance() {
	n := len(t.players)
	fallback := -1
	for i := 1; i <= n; i++ {
		idx := (t.turn + i) % n
		p := t.players[idx]
		if p.packed {
			continue
		}
		if p.chips > 0 {
			t.turn = idx
			return
		}
		if fallback < 0 {
			fallback = idx
		}
	}
	if fallback >= 0 {
		t.turn = fallback
	}
}

func (t *Table) situation(idx int) Situation {
	self := t.players[idx]
	s := Situation{
		Self:       self.info(),
		CurrentBet: t.bet,
		Pot:        t.pot,
	}
	for _, i := range t.unpacked() {
		if i != idx {
			s.Opponents = append(s.Opponents, t.players[i].info())
		}
	}
	return s
}

func (p *player) info() SeatInfo {
	return SeatInfo{ID: p.id, Chips: p.chips, Seen: p.seen, Cards: slices.Clone(p.cards)}
}

// Package ludo runs four-player Ludo races: tokens leave the yard on a six,
// circle a shared 52-cell ring and finish up a private home stretch.
package ludo

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/parlor/internal/gameid"
	"github.com/lox/parlor/internal/randutil"
	"github.com/lox/parlor/internal/table"
)

const (
	// Podium is the number of finishers that ends a game.
	Podium = 3

	logCapacity = 80
	maxBotSteps = 120
	maxSixes    = 3
)

var botNames = []string{"Atlas", "Nova", "Titan", "Pulse"}

// TableConfig describes a Ludo table. AutoStart begins a game as soon as
// the fourth seat fills.
type TableConfig struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AutoStart bool   `json:"autoStart"`
}

type Option func(*Engine)

// WithRand sets the dice source. It is wrapped for concurrent use.
func WithRand(src randutil.Source) Option {
	return func(e *Engine) { e.rng = randutil.NewLocked(src) }
}

func WithClock(clock quartz.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// Engine owns every Ludo table in the process.
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
		policy: GreedyPolicy{},
		logger: logger.WithPrefix("ludo"),
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

// Table is a single Ludo table. All fields are guarded by mu.
type Table struct {
	mu sync.Mutex

	cfg        TableConfig
	players    []*player
	active     bool
	gameNumber int
	turn       int
	dice       int
	pending    bool
	sixes      int
	winners    []string
	events     *table.Ring[Event]
	logger     *log.Logger
}

type player struct {
	id     string
	name   string
	bot    bool
	color  Color
	tokens [TokensPerSeat]int
	rank   int
}

func (e *Engine) CreateTable(cfg TableConfig) (Summary, error) {
	if cfg.ID == "" {
		cfg.ID = e.ids.TableID("ludo")
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

// Join seats a participant in the next free colour. Seats only change
// between games.
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

	if t.active {
		return View{}, table.InvalidState("cannot join during an active game")
	}
	if len(t.players) >= Seats {
		return View{}, table.Illegal("table %s is full", tableID)
	}
	for i := 0; i < count && len(t.players) < Seats; i++ {
		id := e.ids.BotID("ludo", t.cfg.ID, len(t.players)+1)
		if err := e.seat(t, id, e.ids.BotName(botNames), true); err != nil {
			return View{}, err
		}
	}
	e.maybeAutoStart(t)
	t.notify(observers)
	return t.view(""), nil
}

// Start begins a game. It needs exactly four seated participants.
func (e *Engine) Start(tableID string, observers ...Observer) (View, error) {
	t, err := e.tables.Lookup(tableID)
	if err != nil {
		return View{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return View{}, table.InvalidState("game already in progress")
	}
	if len(t.players) != Seats {
		return View{}, table.InvalidState("ludo needs exactly %d players, have %d", Seats, len(t.players))
	}
	e.start(t)
	t.notify(observers)
	return t.view(""), nil
}

// Roll throws the die for participantID.
func (e *Engine) Roll(participantID string, observers ...Observer) (View, error) {
	t, idx, err := e.lockTurn(participantID)
	if err != nil {
		return View{}, err
	}
	defer t.mu.Unlock()

	if t.pending {
		return View{}, table.InvalidState("move pending, play a token first")
	}
	e.roll(t, idx)
	e.playBots(t)
	t.notify(observers)
	return t.view(participantID), nil
}

// Move advances one of participantID's tokens by the pending roll.
func (e *Engine) Move(participantID string, token int, observers ...Observer) (View, error) {
	t, idx, err := e.lockTurn(participantID)
	if err != nil {
		return View{}, err
	}
	defer t.mu.Unlock()

	if !t.pending {
		return View{}, table.InvalidState("roll the die first")
	}
	if token < 0 || token >= TokensPerSeat {
		return View{}, table.Illegal("invalid token %d", token)
	}
	if !slices.Contains(t.board().Movable(idx, t.dice), token) {
		return View{}, table.Illegal("token %d cannot move %d", token, t.dice)
	}
	e.move(t, idx, token)
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

func (e *Engine) State(tableID, viewerID string) (View, error) {
	t, err := e.tables.Lookup(tableID)
	if err != nil {
		return View{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view(viewerID), nil
}

// lockTurn resolves participantID's table and returns it locked when it is
// their turn in an active game.
func (e *Engine) lockTurn(participantID string) (*Table, int, error) {
	t, err := table.Resolve(e.tables, e.seats, participantID)
	if err != nil {
		return nil, 0, err
	}
	t.mu.Lock()
	idx := slices.IndexFunc(t.players, func(p *player) bool { return p.id == participantID })
	switch {
	case idx < 0:
		err = table.NotFound("participant %s is not seated at table %s", participantID, t.cfg.ID)
	case !t.active:
		err = table.InvalidState("no game in progress")
	case t.turn != idx:
		err = table.Illegal("not your turn")
	}
	if err != nil {
		t.mu.Unlock()
		return nil, 0, err
	}
	return t, idx, nil
}

func (e *Engine) seat(t *Table, id, name string, isBot bool) error {
	if id == "" {
		return table.Illegal("participant id is required")
	}
	if t.active {
		return table.InvalidState("cannot join during an active game")
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

	p := &player{id: id, name: name, bot: isBot, color: Colors[len(t.players)]}
	p.reset()
	t.players = append(t.players, p)

	kind := EventJoin
	if isBot {
		kind = EventBotJoin
	}
	e.record(t, Event{Kind: kind, Participant: id, Detail: string(p.color)})
	t.logger.Info("Player joined table", "player", name, "color", p.color, "bot", isBot, "players", len(t.players))
	return nil
}

func (e *Engine) maybeAutoStart(t *Table) {
	if t.cfg.AutoStart && !t.active && len(t.players) == Seats {
		e.start(t)
	}
}

func (e *Engine) start(t *Table) {
	for _, p := range t.players {
		p.reset()
	}
	t.active = true
	t.gameNumber++
	t.turn = 0
	t.dice = 0
	t.pending = false
	t.sixes = 0
	t.winners = nil

	e.record(t, Event{Kind: EventGameStart})
	t.logger.Info("Game started", "game", t.gameNumber)
	e.playBots(t)
}

func (e *Engine) roll(t *Table, idx int) {
	p := t.players[idx]
	die := e.rng.IntN(6) + 1
	t.dice = die
	if die == 6 {
		t.sixes++
	} else {
		t.sixes = 0
	}
	e.record(t, Event{Kind: EventRoll, Participant: p.id, Die: die})

	if t.sixes >= maxSixes {
		e.record(t, Event{Kind: EventForfeit, Participant: p.id, Die: die, Detail: "three consecutive sixes"})
		t.logger.Debug("Turn forfeited", "player", p.name)
		t.dice = 0
		t.sixes = 0
		t.advance()
		return
	}
	if len(t.board().Movable(idx, die)) == 0 {
		e.record(t, Event{Kind: EventNoMove, Participant: p.id, Die: die})
		t.dice = 0
		if die != 6 {
			t.advance()
		}
		return
	}
	t.pending = true
}

// move applies a validated move and resolves captures, finishing and the
// bonus turn.
func (e *Engine) move(t *Table, idx, token int) {
	p := t.players[idx]
	die := t.dice
	b := t.board()
	from := p.tokens[token]
	to := b.Destination(idx, token, die)

	victims := b.Victims(idx, to)
	p.tokens[token] = to
	var captured []string
	for _, v := range victims {
		victim := t.players[v.Seat]
		victim.tokens[v.Token] = Yard
		if !slices.Contains(captured, victim.id) {
			captured = append(captured, victim.id)
		}
	}
	e.record(t, Event{Kind: EventMove, Participant: p.id, Die: die, Token: token, From: from, To: to, Captured: captured})
	t.logger.Debug("Token moved", "player", p.name, "token", token, "from", from, "to", to, "captured", len(captured))

	if p.rank == 0 && t.board().Finished(idx) {
		t.winners = append(t.winners, p.id)
		p.rank = len(t.winners)
		e.record(t, Event{Kind: EventFinished, Participant: p.id, Rank: p.rank})
		t.logger.Info("Player finished", "player", p.name, "rank", p.rank)
	}

	t.pending = false
	t.dice = 0

	if len(t.winners) >= Podium {
		t.active = false
		e.record(t, Event{Kind: EventGameEnd, Detail: strings.Join(t.winners, ",")})
		t.logger.Info("Game completed", "game", t.gameNumber, "winners", t.winners)
		return
	}

	bonus := len(captured) > 0 || to == FinishStep || die == 6
	if bonus && p.rank == 0 {
		return
	}
	t.sixes = 0
	t.advance()
}

func (e *Engine) playBots(t *Table) {
	for steps := 0; t.active; steps++ {
		if steps == maxBotSteps {
			t.logger.Warn("Bot cascade limit reached", "steps", steps)
			return
		}
		idx := t.turn
		if !t.players[idx].bot {
			return
		}
		if !t.pending {
			e.roll(t, idx)
			continue
		}

		b := t.board()
		movable := b.Movable(idx, t.dice)
		choice := e.policy.Choose(Situation{Seat: idx, Die: t.dice, Board: b, Movable: movable})
		if !slices.Contains(movable, choice) {
			t.logger.Debug("Bot chose an illegal token, using first legal", "token", choice)
			choice = movable[0]
		}
		e.move(t, idx, choice)
	}
}

func (e *Engine) record(t *Table, ev Event) {
	ev.At = e.clock.Now()
	ev.Game = t.gameNumber
	t.events.Push(ev)
}

// advance passes the turn to the next seat without a finish rank.
func (t *Table) advance() {
	n := len(t.players)
	for i := 1; i <= n; i++ {
		idx := (t.turn + i) % n
		if t.players[idx].rank == 0 {
			t.turn = idx
			return
		}
	}
}

// board snapshots token positions.
func (t *Table) board() Board {
	b := make(Board, len(t.players))
	for i, p := range t.players {
		b[i] = p.tokens
	}
	return b
}

func (p *player) reset() {
	p.rank = 0
	for i := range p.tokens {
		p.tokens[i] = Yard
	}
}

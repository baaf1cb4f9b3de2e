package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/parlor/internal/ludo"
	"github.com/lox/parlor/internal/randutil"
	"github.com/lox/parlor/internal/render"
	"github.com/lox/parlor/internal/teenpatti"
	"github.com/lox/parlor/internal/twentynine"
)

// maxResumes bounds how often a stalled bot cascade is resumed per round.
const maxResumes = 10_000

// SimulateCmd plays all-bot tables concurrently in-process.
type SimulateCmd struct {
	Game     string `arg:"" enum:"teenpatti,ludo,twentynine" help:"Game to simulate"`
	Rounds   int    `short:"n" default:"10" help:"Hands (or Ludo games) per table"`
	Tables   int    `short:"t" default:"1" help:"Tables to run concurrently"`
	Seed     int64  `default:"0" help:"RNG seed (0 for random)"`
	Show     bool   `help:"Print each table's final state"`
	NoColor  bool   `help:"Disable colour output"`
	LogLevel string `short:"l" default:"warn" help:"Log level"`
}

// tally aggregates results across tables. Teen Patti tables can settle
// several hands in one bot cascade; only the last of those is counted.
type tally struct {
	mu     sync.Mutex
	rounds int
	wins   map[string]int
	detail map[string]int
}

func (t *tally) add(winners []string, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rounds++
	for _, w := range winners {
		t.wins[w]++
	}
	if detail != "" {
		t.detail[detail]++
	}
}

func (c *SimulateCmd) Run() error {
	render.SetColor(!c.NoColor)
	logger := newLogger(c.LogLevel)
	seed := c.Seed
	if seed == 0 {
		seed = int64(randutil.NewTimeSeeded().IntN(1 << 30))
	}
	logger.Info("Simulating", "game", c.Game, "tables", c.Tables, "rounds", c.Rounds, "seed", seed)

	res := &tally{wins: make(map[string]int), detail: make(map[string]int)}
	views := make([]string, c.Tables)
	if err := c.run(seed, logger, res, views); err != nil {
		return err
	}
	c.report(os.Stdout, seed, res, views)
	return nil
}

func (c *SimulateCmd) run(seed int64, logger *log.Logger, res *tally, views []string) error {
	rng := randutil.New(seed)
	clock := quartz.NewReal()

	var g errgroup.Group
	switch c.Game {
	case "teenpatti":
		e := teenpatti.New(logger, teenpatti.WithRand(rng), teenpatti.WithClock(clock))
		for i := range c.Tables {
			id := fmt.Sprintf("sim-%d", i+1)
			if _, err := e.CreateTable(teenpatti.TableConfig{ID: id, Name: id, MaxPlayers: teenpatti.DefaultMaxPlayers, Ante: 10, MinBuyIn: 400, MaxBuyIn: 8000}); err != nil {
				return err
			}
			g.Go(func() error { return c.teenPatti(e, id, res, &views[i]) })
		}
	case "ludo":
		e := ludo.New(logger, ludo.WithRand(rng), ludo.WithClock(clock))
		for i := range c.Tables {
			id := fmt.Sprintf("sim-%d", i+1)
			if _, err := e.CreateTable(ludo.TableConfig{ID: id, Name: id}); err != nil {
				return err
			}
			g.Go(func() error { return c.ludo(e, id, res, &views[i]) })
		}
	case "twentynine":
		e := twentynine.New(logger, twentynine.WithRand(rng), twentynine.WithClock(clock))
		for i := range c.Tables {
			id := fmt.Sprintf("sim-%d", i+1)
			if _, err := e.CreateTable(twentynine.TableConfig{ID: id, Name: id}); err != nil {
				return err
			}
			g.Go(func() error { return c.twentyNine(e, id, res, &views[i]) })
		}
	default:
		return fmt.Errorf("unknown game %q", c.Game)
	}
	return g.Wait()
}

func (c *SimulateCmd) teenPatti(e *teenpatti.Engine, id string, res *tally, out *string) error {
	v, err := e.AddBots(id, teenpatti.DefaultMaxPlayers)
	if err != nil {
		return err
	}
	seen := 0
	for resumes := 0; resumes < maxResumes && seen < c.Rounds; resumes++ {
		if r := v.LastResult; r != nil && r.Hand > seen {
			seen = r.Hand
			names := make([]string, len(r.Winners))
			for i, w := range r.Winners {
				names[i] = w.Name
			}
			res.add(names, string(r.Reason))
		}
		if !v.HandActive {
			break
		}
		if v, err = e.PlayBots(id); err != nil {
			return err
		}
	}
	*out = render.TeenPatti(v)
	return nil
}

func (c *SimulateCmd) ludo(e *ludo.Engine, id string, res *tally, out *string) error {
	v, err := e.AddBots(id, ludo.Seats)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(v.Players))
	for _, p := range v.Players {
		names[p.ID] = p.Name
	}
	for round := 0; round < c.Rounds; round++ {
		if v, err = e.Start(id); err != nil {
			return err
		}
		for resumes := 0; v.Active && resumes < maxResumes; resumes++ {
			if v, err = e.PlayBots(id); err != nil {
				return err
			}
		}
		if len(v.Winners) > 0 {
			res.add([]string{names[v.Winners[0]]}, "")
		}
	}
	*out = render.Ludo(v)
	return nil
}

func (c *SimulateCmd) twentyNine(e *twentynine.Engine, id string, res *tally, out *string) error {
	v, err := e.AddBots(id, twentynine.Seats)
	if err != nil {
		return err
	}
	for round := 0; round < c.Rounds; round++ {
		if v, err = e.Start(id); err != nil {
			return err
		}
		for resumes := 0; v.Active && resumes < maxResumes; resumes++ {
			if v, err = e.PlayBots(id); err != nil {
				return err
			}
		}
		if r := v.LastResult; r != nil {
			detail := "contract lost"
			if r.ContractMade {
				detail = "contract made"
			}
			if r.Forced {
				detail += " (forced)"
			}
			winner := r.BidderTeam
			if !r.ContractMade {
				winner = 1 - winner
			}
			res.add([]string{fmt.Sprintf("Team %d", winner+1)}, detail)
		}
	}
	*out = render.TwentyNine(v)
	return nil
}

func (c *SimulateCmd) report(w io.Writer, seed int64, res *tally, views []string) {
	if c.Show {
		for _, v := range views {
			fmt.Fprintln(w, v)
		}
	}

	fmt.Fprintln(w, render.HeaderStyle.Render(fmt.Sprintf("%s · %d results · seed %d", c.Game, res.rounds, seed)))
	writeCounts(w, "Winners", res.wins)
	writeCounts(w, "Outcomes", res.detail)
}

func writeCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	fmt.Fprintln(w, render.InfoStyle.Render(title))
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	for _, k := range keys {
		fmt.Fprintf(w, "  %s %d\n", k+strings.Repeat(" ", width-len(k)), counts[k])
	}
}

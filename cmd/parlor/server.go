package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/parlor/internal/auth"
	"github.com/lox/parlor/internal/config"
	"github.com/lox/parlor/internal/ledger"
	"github.com/lox/parlor/internal/ludo"
	"github.com/lox/parlor/internal/randutil"
	"github.com/lox/parlor/internal/server"
	"github.com/lox/parlor/internal/teenpatti"
	"github.com/lox/parlor/internal/twentynine"
)

// ServerCmd runs the WebSocket server. Flags override the environment, which
// overrides the config file.
type ServerCmd struct {
	Config   string `short:"c" default:"parlor.hcl" help:"Path to HCL configuration file"`
	Address  string `help:"Address to bind to (overrides config)"`
	Port     int    `help:"Port to listen on (overrides config)"`
	LogLevel string `short:"l" help:"Log level: debug, info, warn, error (overrides config)"`
	Seed     *int64 `help:"Deterministic RNG seed (overrides config)"`
	DB       string `help:"SQLite ledger path (overrides config)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg.Server.LogLevel)
	clock := quartz.NewReal()

	games, err := buildGames(cfg, clock, logger)
	if err != nil {
		return err
	}

	bank, err := openBank(cfg, clock, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := bank.Close(); err != nil {
			logger.Error("Failed to close ledger", "error", err)
		}
	}()

	srv := server.NewServer(cfg.Address(), games, server.Options{
		Validator: validatorFor(cfg.Server, clock, logger),
		Bank:      bank,
		Clock:     clock,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (c *ServerCmd) apply(cfg *config.Config) {
	if c.Address != "" {
		cfg.Server.Address = c.Address
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Seed != nil {
		cfg.Server.Seed = *c.Seed
	}
	if c.DB != "" {
		cfg.Server.DBPath = c.DB
	}
}

// sourceFor returns the rng for one engine. A zero seed picks one from the
// clock; otherwise each engine gets its own derived stream.
func sourceFor(seed int64, offset int64) randutil.Source {
	if seed == 0 {
		return randutil.NewTimeSeeded()
	}
	return randutil.New(seed + offset)
}

func buildGames(cfg *config.Config, clock quartz.Clock, logger *log.Logger) (*server.Games, error) {
	seed := cfg.Server.Seed
	if seed != 0 {
		logger.Info("Using deterministic seed", "seed", seed)
	}
	games := &server.Games{
		TeenPatti:  teenpatti.New(logger, teenpatti.WithRand(sourceFor(seed, 0)), teenpatti.WithClock(clock)),
		Ludo:       ludo.New(logger, ludo.WithRand(sourceFor(seed, 1)), ludo.WithClock(clock)),
		TwentyNine: twentynine.New(logger, twentynine.WithRand(sourceFor(seed, 2)), twentynine.WithClock(clock)),
	}

	tp, err := games.TeenPatti.Seed(cfg.TeenPattiTables())
	if err != nil {
		return nil, fmt.Errorf("seed teen patti tables: %w", err)
	}
	ld, err := games.Ludo.Seed(cfg.LudoTables())
	if err != nil {
		return nil, fmt.Errorf("seed ludo tables: %w", err)
	}
	tn, err := games.TwentyNine.Seed(cfg.TwentyNineTables())
	if err != nil {
		return nil, fmt.Errorf("seed twenty-nine tables: %w", err)
	}
	logger.Info("Tables seeded", "teenpatti", tp, "ludo", ld, "twentynine", tn)
	return games, nil
}

func openBank(cfg *config.Config, clock quartz.Clock, logger *log.Logger) (ledger.Bank, error) {
	if cfg.Server.DBPath == "" {
		logger.Info("Using in-memory ledger")
		return ledger.NewMemoryBank(cfg.Server.StartingBalance, clock), nil
	}
	bank, err := ledger.OpenSQLite(cfg.Server.DBPath, cfg.Server.StartingBalance, clock)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	logger.Info("Using SQLite ledger", "path", cfg.Server.DBPath)
	return bank, nil
}

func validatorFor(s *config.Settings, clock quartz.Clock, logger *log.Logger) auth.Validator {
	switch {
	case s.AuthURL != "":
		logger.Info("Validating tokens over HTTP", "url", s.AuthURL)
		return auth.NewHTTPValidator(s.AuthURL, s.AuthSecret)
	case s.AuthSecret != "":
		logger.Info("Validating signed tokens")
		return auth.NewJWTValidator(s.AuthSecret, tokenIssuer, clock)
	default:
		logger.Warn("No auth configured, accepting display names as tokens")
		return auth.NameValidator{}
	}
}

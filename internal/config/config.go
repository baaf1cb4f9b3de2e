// Package config loads the parlor server configuration from an HCL file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/parlor/internal/ledger"
	"github.com/lox/parlor/internal/ludo"
	"github.com/lox/parlor/internal/teenpatti"
	"github.com/lox/parlor/internal/twentynine"
)

// Config is the complete server configuration.
type Config struct {
	Server     *Settings         `hcl:"server,block"`
	TeenPatti  []TeenPattiTable  `hcl:"teenpatti_table,block"`
	Ludo       []LudoTable       `hcl:"ludo_table,block"`
	TwentyNine []TwentyNineTable `hcl:"twentynine_table,block"`
}

// Settings are server-level options. Every field can be overridden from the
// environment.
type Settings struct {
	Address         string `hcl:"address,optional" env:"PARLOR_ADDRESS"`
	Port            int    `hcl:"port,optional" env:"PARLOR_PORT"`
	LogLevel        string `hcl:"log_level,optional" env:"PARLOR_LOG_LEVEL"`
	Seed            int64  `hcl:"seed,optional" env:"PARLOR_SEED"`
	DBPath          string `hcl:"db_path,optional" env:"PARLOR_DB_PATH"`
	AuthSecret      string `hcl:"auth_secret,optional" env:"PARLOR_AUTH_SECRET"`
	AuthURL         string `hcl:"auth_url,optional" env:"PARLOR_AUTH_URL"`
	StartingBalance int    `hcl:"starting_balance,optional" env:"PARLOR_STARTING_BALANCE"`
}

type TeenPattiTable struct {
	ID         string `hcl:"id,label"`
	Name       string `hcl:"name,optional"`
	MaxPlayers int    `hcl:"max_players,optional"`
	Ante       int    `hcl:"ante"`
	MinBuyIn   int    `hcl:"min_buy_in,optional"`
	MaxBuyIn   int    `hcl:"max_buy_in,optional"`
}

type LudoTable struct {
	ID        string `hcl:"id,label"`
	Name      string `hcl:"name,optional"`
	AutoStart bool   `hcl:"auto_start,optional"`
}

type TwentyNineTable struct {
	ID        string `hcl:"id,label"`
	Name      string `hcl:"name,optional"`
	AutoStart bool   `hcl:"auto_start,optional"`
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// DefaultTeenPattiTables is the lobby catalogue: 120 tables in three stake
// tiers of forty.
func DefaultTeenPattiTables() []TeenPattiTable {
	tiers := []struct{ ante, minBuyIn int }{
		{50, 2000},
		{200, 10000},
		{500, 30000},
	}
	out := make([]TeenPattiTable, 0, 120)
	for i := 1; i <= 120; i++ {
		tier := tiers[(i-1)/40]
		out = append(out, TeenPattiTable{
			ID:         fmt.Sprintf("tp-%03d", i),
			Name:       fmt.Sprintf("Global Table %d", i),
			MaxPlayers: teenpatti.DefaultMaxPlayers,
			Ante:       tier.ante,
			MinBuyIn:   tier.minBuyIn,
			MaxBuyIn:   20 * tier.minBuyIn,
		})
	}
	return out
}

// Load reads filename, falling back to defaults when it does not exist, then
// applies environment overrides.
func Load(filename string) (*Config, error) {
	var cfg Config
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			parser := hclparse.NewParser()
			file, diags := parser.ParseHCLFile(filename)
			if diags.HasErrors() {
				return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
			}
			if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
				return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}

	if cfg.Server == nil {
		cfg.Server = &Settings{}
	}
	if err := env.Parse(cfg.Server); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &Settings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.StartingBalance == 0 {
		c.Server.StartingBalance = ledger.DefaultStartingBalance
	}

	if len(c.TeenPatti) == 0 {
		c.TeenPatti = DefaultTeenPattiTables()
	}
	for i := range c.TeenPatti {
		t := &c.TeenPatti[i]
		if t.Name == "" {
			t.Name = t.ID
		}
		if t.MaxPlayers == 0 {
			t.MaxPlayers = teenpatti.DefaultMaxPlayers
		}
		if t.MinBuyIn == 0 {
			t.MinBuyIn = t.Ante * 40
		}
		if t.MaxBuyIn == 0 {
			t.MaxBuyIn = t.MinBuyIn * 20
		}
	}

	if len(c.Ludo) == 0 {
		c.Ludo = []LudoTable{{ID: "ludo-main", Name: "Ludo Lounge"}}
	}
	for i := range c.Ludo {
		if c.Ludo[i].Name == "" {
			c.Ludo[i].Name = c.Ludo[i].ID
		}
	}

	if len(c.TwentyNine) == 0 {
		c.TwentyNine = []TwentyNineTable{{ID: "t29-main", Name: "Twenty-Nine Club"}}
	}
	for i := range c.TwentyNine {
		if c.TwentyNine[i].Name == "" {
			c.TwentyNine[i].Name = c.TwentyNine[i].ID
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Server.Port))
	}
	if !slices.Contains(logLevels, c.Server.LogLevel) {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Server.LogLevel))
	}
	if c.Server.StartingBalance < 0 {
		errs = append(errs, fmt.Errorf("starting balance must not be negative"))
	}

	seen := map[string]bool{}
	unique := func(kind, id string) {
		if id == "" {
			errs = append(errs, fmt.Errorf("%s: table id is required", kind))
			return
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("%s %s: duplicate table id", kind, id))
		}
		seen[id] = true
	}
	for _, t := range c.TeenPatti {
		unique("teenpatti_table", t.ID)
		if err := t.engineConfig().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("teenpatti_table %s: %w", t.ID, err))
		}
	}
	for _, t := range c.Ludo {
		unique("ludo_table", t.ID)
	}
	for _, t := range c.TwentyNine {
		unique("twentynine_table", t.ID)
	}
	return errors.Join(errs...)
}

// Address returns host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

func (t TeenPattiTable) engineConfig() teenpatti.TableConfig {
	return teenpatti.TableConfig{
		ID:         t.ID,
		Name:       t.Name,
		MaxPlayers: t.MaxPlayers,
		Ante:       t.Ante,
		MinBuyIn:   t.MinBuyIn,
		MaxBuyIn:   t.MaxBuyIn,
	}
}

func (c *Config) TeenPattiTables() []teenpatti.TableConfig {
	out := make([]teenpatti.TableConfig, 0, len(c.TeenPatti))
	for _, t := range c.TeenPatti {
		out = append(out, t.engineConfig())
	}
	return out
}

func (c *Config) LudoTables() []ludo.TableConfig {
	out := make([]ludo.TableConfig, 0, len(c.Ludo))
	for _, t := range c.Ludo {
		out = append(out, ludo.TableConfig{ID: t.ID, Name: t.Name, AutoStart: t.AutoStart})
	}
	return out
}

func (c *Config) TwentyNineTables() []twentynine.TableConfig {
	out := make([]twentynine.TableConfig, 0, len(c.TwentyNine))
	for _, t := range c.TwentyNine {
		out = append(out, twentynine.TableConfig{ID: t.ID, Name: t.Name, AutoStart: t.AutoStart})
	}
	return out
}

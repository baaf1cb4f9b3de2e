package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/parlor/internal/auth"
	"github.com/lox/parlor/internal/config"
	"github.com/lox/parlor/internal/render"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func TestSimulateEachGame(t *testing.T) {
	render.SetColor(false)
	for _, game := range []string{"teenpatti", "ludo", "twentynine"} {
		t.Run(game, func(t *testing.T) {
			cmd := &SimulateCmd{Game: game, Rounds: 2, Tables: 2, Show: true}
			res := &tally{wins: make(map[string]int), detail: make(map[string]int)}
			views := make([]string, cmd.Tables)

			require.NoError(t, cmd.run(9, quietLogger(), res, views))
			assert.Positive(t, res.rounds)
			for _, v := range views {
				assert.Contains(t, v, "sim-")
			}

			var out bytes.Buffer
			cmd.report(&out, 9, res, views)
			assert.Contains(t, out.String(), "seed 9")
			assert.Contains(t, out.String(), "Winners")
		})
	}
}

func TestTwentyNineSimulationCountsEveryHand(t *testing.T) {
	cmd := &SimulateCmd{Game: "twentynine", Rounds: 5, Tables: 3}
	res := &tally{wins: make(map[string]int), detail: make(map[string]int)}
	require.NoError(t, cmd.run(4, quietLogger(), res, make([]string, 3)))
	assert.Equal(t, 15, res.rounds)
	assert.Equal(t, 15, res.wins["Team 1"]+res.wins["Team 2"])
}

func TestServerFlagsOverrideConfig(t *testing.T) {
	cfg := config.Default()
	seed := int64(77)
	cmd := &ServerCmd{Address: "0.0.0.0", Port: 9001, LogLevel: "debug", Seed: &seed, DB: "parlor.db"}
	cmd.apply(cfg)

	assert.Equal(t, "0.0.0.0:9001", cfg.Address())
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, int64(77), cfg.Server.Seed)
	assert.Equal(t, "parlor.db", cfg.Server.DBPath)
}

func TestBuildGamesSeedsConfiguredTables(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Seed = 3
	games, err := buildGames(cfg, quartz.NewMock(t), quietLogger())
	require.NoError(t, err)

	assert.Len(t, games.TeenPatti.ListTables(), len(cfg.TeenPattiTables()))
	assert.Len(t, games.Ludo.ListTables(), len(cfg.LudoTables()))
	assert.Len(t, games.TwentyNine.ListTables(), len(cfg.TwentyNineTables()))
}

func TestValidatorSelection(t *testing.T) {
	clock := quartz.NewMock(t)
	logger := quietLogger()

	assert.IsType(t, auth.NameValidator{}, validatorFor(&config.Settings{}, clock, logger))
	assert.IsType(t, &auth.JWTValidator{}, validatorFor(&config.Settings{AuthSecret: "s"}, clock, logger))
	assert.IsType(t, &auth.HTTPValidator{}, validatorFor(&config.Settings{AuthURL: "http://auth", AuthSecret: "s"}, clock, logger))
}

func TestOpenBankInMemoryAndSQLite(t *testing.T) {
	cfg := config.Default()
	bank, err := openBank(cfg, quartz.NewMock(t), quietLogger())
	require.NoError(t, err)
	require.NoError(t, bank.Close())

	cfg.Server.DBPath = t.TempDir() + "/ledger.db"
	bank, err = openBank(cfg, quartz.NewMock(t), quietLogger())
	require.NoError(t, err)
	require.NoError(t, bank.Close())
}

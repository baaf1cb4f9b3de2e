package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the game server"`
	Simulate SimulateCmd      `cmd:"" help:"Play all-bot tables headless and print the results"`
	Tables   TablesCmd        `cmd:"" help:"List the tables of a running server"`
	Watch    WatchCmd         `cmd:"" help:"Watch or play a table in the terminal"`
	Token    TokenCmd         `cmd:"" help:"Issue a signed participant token"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("parlor"),
		kong.Description("Concurrent Teen Patti, Ludo and Twenty-Nine tables"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

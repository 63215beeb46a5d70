// Command statementbank runs and inspects escrow ledgers kept in a local
// database.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/eigerco/statementbank/pkg/log"
)

func newApp() *cli.App {
	var cfg Config

	app := cli.NewApp()
	app.Name = "statementbank"
	app.Usage = "Escrow-backed statement ledgers with stake-weighted challenges"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	app.Flags = globalFlags()
	app.Before = func(c *cli.Context) error {
		var err error
		if cfg, err = makeConfig(c); err != nil {
			return err
		}
		log.Init(log.Options{
			LogLevel: cfg.LogLevel,
			Type:     cfg.LogFormat,
			Output:   os.Stderr,
		})
		log.CLI.Debug().Str("datadir", cfg.DataDir).Msg("configuration loaded")
		return nil
	}
	app.Commands = []cli.Command{
		simulateCommand(&cfg),
		ledgersCommand(&cfg),
		inspectCommand(&cfg),
		verifyCommand(&cfg),
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

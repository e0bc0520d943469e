package main

import (
	"fmt"
	stdlog "log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "annogql"
	app.Usage = "Serve an annotated GraphQL schema"
	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "verbosity",
			Aliases: []string{"v"},
			Usage:   "log verbosity, V(n) logs with n <= verbosity are written",
			EnvVars: []string{"ANNOGQL_VERBOSITY"},
		},
	}
	app.Commands = []*cli.Command{
		serveCommand(),
		inspectCommand(),
	}

	return app
}

func newLogger(c *cli.Context, verbosity int) logr.Logger {
	if c.IsSet("verbosity") {
		verbosity = c.Int("verbosity")
	}
	stdr.SetVerbosity(verbosity)
	return stdr.New(stdlog.New(c.App.ErrWriter, "", stdlog.LstdFlags))
}

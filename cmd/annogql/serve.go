package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/urfave/cli/v2"
	"github.com/vvakame/annogql/internal/config"
	"github.com/vvakame/annogql/internal/log"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the GraphQL server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path of the config file",
				EnvVars:  []string{"ANNOGQL_CONFIG"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address, overrides addr of the config file",
				EnvVars: []string{"ANNOGQL_ADDR"},
			},
			&cli.BoolFlag{
				Name:    "playground",
				Usage:   "serve GraphQL playground on /",
				Value:   true,
				EnvVars: []string{"ANNOGQL_PLAYGROUND"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("addr"); v != "" {
		cfg.Addr = v
	}

	logger := newLogger(c, cfg.Verbosity)
	ctx := log.WithLogger(c.Context, logger)

	ep, err := cfg.NewEndpoint(ctx)
	if err != nil {
		logger.Error(err, "failed to build endpoint")
		return err
	}

	srv := handler.NewDefaultServer(ep)
	mux := http.NewServeMux()
	if c.Bool("playground") {
		mux.Handle("/", playground.Handler("annogql", "/query"))
	}
	mux.Handle("/query", srv)

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(log.WithLogger(r.Context(), logger))
			mux.ServeHTTP(w, r)
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, "failed to shutdown server")
		}
	}()

	logger.Info("listening server", "addr", cfg.Addr, "schema", cfg.SchemaPath(), "mode", cfg.Mode)

	err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

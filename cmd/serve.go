package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// tokenTTL matches the session cookie lifetime; older tokens can no longer be reached.
const tokenTTL = 30 * 24 * time.Hour

// Serve opens the token database and runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, _, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	serverConfig := config.Server
	if host := cmd.String("host"); host != "" {
		serverConfig.Host = host
	}
	if cmd.IsSet("port") {
		serverConfig.Port = cmd.Int("port")
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	tokens := repositories.NewTokenRepository(db)
	if pruned, err := tokens.Prune(time.Now().Add(-tokenTTL)); err != nil {
		r.logger.Warn("failed to prune expired session tokens", "error", err)
	} else if pruned > 0 {
		r.logger.Info("pruned expired session tokens", "count", pruned)
	}

	factory, err := r.newFactory(config, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create sources: %w", err)
	}

	opts := server.AppOpts{
		Config:  config,
		Factory: factory,
		Tokens:  tokens,
		Logger:  r.logger,
		Version: r.version,
	}
	if auth := spotifyAuth(config); auth != nil {
		opts.Auth = auth
	} else {
		r.logger.Warn("spotify credentials not configured, login disabled")
	}

	app := server.NewApp(opts)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, serverConfig.Addr(), app.Handler(), r.logger)
}

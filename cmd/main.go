package main

import (
	"context"
	"os"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

const version = "0.3.0"

func main() {
	if err := shared.LoadEnv(); err != nil {
		shared.NewLogger(nil).Warn("failed to load .env", "error", err)
	}

	configPath := os.Getenv("MIXTAPE_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}

	config, err := shared.ResolveConfig(configPath)
	if err != nil {
		shared.NewLogger(nil).Warn("failed to load config, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
		shared.ApplyEnv(config)
	}

	logger, closer := shared.NewAppLogger(config.Logging, config.Server.Debug)
	defer closer.Close()

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
		Version:    version,
	})

	app := &cli.Command{
		Name:     "mixtape",
		Usage:    "Analyze Spotify & YouTube Music playlists and recommend tracks",
		Version:  version,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error("application error", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

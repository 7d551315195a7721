package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// FactoryFunc builds the source factory for a loaded configuration.
type FactoryFunc func(cfg *shared.Config, logger *log.Logger) (services.SourceFactory, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	newFactory  FactoryFunc
	logger      *log.Logger
	output      io.Writer
	palette     *formatter.Palette
	browser     func(url string) error
	endpoint    *oauth2.Endpoint
	authTimeout time.Duration
	version     string
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config is used for commands whose --config flag matches ConfigPath; any other path is loaded from disk.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Factory    FactoryFunc
	Logger     *log.Logger
	Output     io.Writer
	Palette    *formatter.Palette

	// Browser opens the Spotify authorization URL. Defaults to [shared.OpenBrowser].
	Browser func(url string) error
	// SpotifyEndpoint overrides the Spotify authorization server used by `auth spotify`.
	SpotifyEndpoint *oauth2.Endpoint
	AuthTimeout     time.Duration
	Version         string
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Factory == nil {
		opts.Factory = defaultFactory
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Palette == nil {
		opts.Palette = formatter.DefaultPalette
	}
	if opts.Browser == nil {
		opts.Browser = shared.OpenBrowser
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = 2 * time.Minute
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		newFactory:  opts.Factory,
		logger:      opts.Logger,
		output:      opts.Output,
		palette:     opts.Palette,
		browser:     opts.Browser,
		endpoint:    opts.SpotifyEndpoint,
		authTimeout: opts.AuthTimeout,
		version:     opts.Version,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, analyzeCommand, recommendCommand, validateCommand, authCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig returns the configuration named by the command's --config flag.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, string, error) {
	path := cmd.String("config")
	if path == "" || path == r.configPath {
		return r.config, r.configPath, nil
	}

	config, err := shared.ResolveConfig(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load config: %w", err)
	}
	r.config, r.configPath = config, path
	return config, path, nil
}

// spotifyAuth returns nil when the config has no Spotify client credentials.
func spotifyAuth(cfg *shared.Config) *services.SpotifyAuth {
	auth, err := services.NewSpotifyAuth(cfg.Credentials.Spotify, shared.NewHTTPClient(cfg.HTTP, nil))
	if err != nil {
		return nil
	}
	return auth
}

func defaultFactory(cfg *shared.Config, logger *log.Logger) (services.SourceFactory, error) {
	return services.NewConfigFactory(cfg, spotifyAuth(cfg), shared.NewHTTPClient(cfg.HTTP, nil), logger), nil
}

// pipeline builds a pipeline that calls Spotify with the token saved by `auth spotify`, if any.
// Refreshed tokens are written back to the config file.
func (r *Runner) pipeline(ctx context.Context, cmd *cli.Command) (*tasks.Pipeline, error) {
	config, path, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	factory, err := r.newFactory(config, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sources: %w", err)
	}

	onRefresh := func(token *oauth2.Token) {
		if err := config.Credentials.Spotify.Update(token); err != nil {
			r.logger.Warn("failed to update spotify token", "error", err)
			return
		}
		if path == "" {
			return
		}
		if err := shared.SaveConfig(path, config); err != nil {
			r.logger.Warn("failed to save refreshed spotify token", "error", err)
			return
		}
		r.logger.Debug("saved refreshed spotify token", "path", path)
	}

	sources := tasks.SourcesFor(ctx, factory, config.Credentials.Spotify.Token(), onRefresh)
	return tasks.NewPipeline(sources, config.Recommendations, r.logger), nil
}

// watchProgress logs pipeline progress until the returned stop func is called.
func (r *Runner) watchProgress() (chan tasks.ProgressUpdate, func()) {
	progressCh := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.logger.Info(update.Message, "phase", update.Phase, "step", fmt.Sprintf("%d/%d", update.Step, update.Total))
		}
	}()

	return progressCh, func() {
		close(progressCh)
		<-done
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return r.writeBytes(append(output, '\n'))
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	return r.writeBytes(fmt.Appendf(nil, format, args...))
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writeBytes([]byte("\n" + fmt.Sprintf(format, args...) + "\n"))
}

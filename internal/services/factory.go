package services

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// SourceFactory builds per-request sources from configuration and the caller's token.
//
// A nil [Source] means the platform is unavailable: credentials are missing or the backend is disabled.
type SourceFactory interface {
	Spotify(ctx context.Context, token *oauth2.Token, onRefresh TokenRefreshFunc) Source
	YouTube(ctx context.Context) Source
}

// ConfigFactory is the [SourceFactory] backed by [shared.Config].
type ConfigFactory struct {
	config     *shared.Config
	auth       *SpotifyAuth
	httpClient *http.Client
	logger     *log.Logger

	// SpotifyOptions are passed to every Spotify client, e.g. to override the API base URL.
	SpotifyOptions []spotify.ClientOption
}

// NewConfigFactory creates a factory. auth may be nil when Spotify credentials are not configured.
func NewConfigFactory(cfg *shared.Config, auth *SpotifyAuth, httpClient *http.Client, logger *log.Logger) *ConfigFactory {
	if httpClient == nil {
		httpClient = shared.NewHTTPClient(cfg.HTTP, nil)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ConfigFactory{config: cfg, auth: auth, httpClient: httpClient, logger: logger}
}

// Spotify returns a Spotify source authenticated with token, or client credentials when token is nil.
func (f *ConfigFactory) Spotify(ctx context.Context, token *oauth2.Token, onRefresh TokenRefreshFunc) Source {
	if f.auth == nil {
		f.logger.Debug("spotify source unavailable: no credentials")
		return nil
	}
	client := f.auth.Client(ctx, token, onRefresh)
	return NewSpotifySource(client, f.config.Credentials.Spotify.Market, f.logger, f.SpotifyOptions...)
}

// YouTube returns the configured YouTube backend.
func (f *ConfigFactory) YouTube(ctx context.Context) Source {
	yt := f.config.Credentials.YouTube
	if !yt.Enabled() {
		f.logger.Debug("youtube source unavailable", "backend", yt.Backend)
		return nil
	}

	switch yt.Backend {
	case shared.YouTubeBackendDataAPI:
		src, err := NewYouTubeDataSource(ctx, yt.APIKey, f.httpClient, f.logger)
		if err != nil {
			f.logger.Error("failed to create youtube data source", "error", err)
			return nil
		}
		return src
	default:
		return NewYouTubeMusicSource(yt.ProxyURL, yt.AuthFile, f.httpClient, f.logger)
	}
}

// Available reports which platforms can be served without a user token.
func (f *ConfigFactory) Available() map[models.Platform]bool {
	return map[models.Platform]bool{
		models.Spotify:      f.auth != nil,
		models.YouTubeMusic: f.config.Credentials.YouTube.Enabled(),
	}
}

package playlist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

const invalidURLMessage = "Invalid playlist URL format. Please check the URL and try again."

// Validation is the result of a cheap playlist check.
type Validation struct {
	Valid           bool            `json:"valid" yaml:"valid"`
	Platform        models.Platform `json:"platform" yaml:"platform,omitempty"`
	Name            string          `json:"name" yaml:"name,omitempty"`
	TrackCount      int             `json:"track_count" yaml:"track_count,omitempty"`
	HasEnoughTracks bool            `json:"has_enough_tracks" yaml:"has_enough_tracks,omitempty"`
	Error           string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// MarshalJSON reduces an invalid result to `{"valid": false, "error": ...}`.
func (v Validation) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return json.Marshal(struct {
			Valid bool   `json:"valid"`
			Error string `json:"error"`
		}{false, v.Error})
	}
	type alias Validation
	return json.Marshal(alias(v))
}

func invalid(msg string) *Validation {
	return &Validation{Valid: false, Error: msg}
}

// Fetcher retrieves playlists from whichever source serves the URL's platform.
//
// A nil source marks that platform as unavailable.
type Fetcher struct {
	spotify services.Source
	youtube services.Source
	logger  *log.Logger
}

// NewFetcher creates a fetcher. Either source may be nil.
func NewFetcher(spotify, youtube services.Source, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Fetcher{spotify: spotify, youtube: youtube, logger: shared.WithLogger(logger, "component", "playlist")}
}

// Locate classifies rawURL, logging through the fetcher's logger.
func (f *Fetcher) Locate(rawURL string) (models.Platform, string) {
	return locate(rawURL, f.logger)
}

// Available reports whether a source for platform is configured.
func (f *Fetcher) Available(platform models.Platform) bool {
	src, err := f.source(platform)
	return err == nil && src != nil
}

func (f *Fetcher) source(platform models.Platform) (services.Source, error) {
	var src services.Source
	switch {
	case platform == models.Spotify:
		src = f.spotify
	case platform.IsYouTube():
		src = f.youtube
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnsupportedPlatform, platform)
	}

	if src == nil {
		return nil, fmt.Errorf("%w: Platform %s client not initialized", shared.ErrServiceUnavailable, platform)
	}
	return src, nil
}

// Fetch retrieves the full playlist. YouTube playlists are reported as youtube_music.
func (f *Fetcher) Fetch(ctx context.Context, platform models.Platform, id string) (*models.Playlist, error) {
	src, err := f.source(platform)
	if err != nil {
		f.logger.Error("cannot fetch playlist", "platform", platform, "id", id, "error", err)
		return nil, err
	}

	playlist, err := src.Playlist(ctx, id)
	if err != nil {
		f.logger.Error("failed to fetch playlist", "platform", platform, "id", id, "error", err)
		return nil, err
	}

	playlist.Platform = platform.Canonical()
	f.logger.Info("fetched playlist", "platform", playlist.Platform, "name", playlist.Name, "tracks", len(playlist.Tracks))
	return playlist, nil
}

// FetchURL locates rawURL and fetches the playlist behind it.
func (f *Fetcher) FetchURL(ctx context.Context, rawURL string) (*models.Playlist, error) {
	platform, id := f.Locate(rawURL)
	if platform == "" || id == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrInvalidInput, invalidURLMessage)
	}
	return f.Fetch(ctx, platform, id)
}

// Validate checks that rawURL points at a reachable playlist, fetching only its name and track count.
//
// Failures are reported in the result rather than as an error.
func (f *Fetcher) Validate(ctx context.Context, rawURL string, minTracks int) *Validation {
	platform, id := f.Locate(rawURL)
	if platform == "" || id == "" {
		return invalid(invalidURLMessage)
	}

	src, err := f.source(platform)
	if err != nil {
		return invalid(fmt.Sprintf("Platform %s client not initialized", platform))
	}

	summary, err := src.PlaylistSummary(ctx, id)
	if err != nil {
		f.logger.Error("error validating playlist", "platform", platform, "id", id, "error", err)
		return invalid(fmt.Sprintf("Error validating playlist: %v", err))
	}

	return &Validation{
		Valid:           true,
		Platform:        platform.Canonical(),
		Name:            summary.Name,
		TrackCount:      summary.TrackCount,
		HasEnoughTracks: summary.TrackCount >= minTracks,
	}
}

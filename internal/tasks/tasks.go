// package tasks implements the validate, analyze and recommend pipelines over playlist URLs.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/analysis"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/playlist"
	"github.com/desertthunder/mixtape/internal/recommend"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

// NotEnoughTracksError reports a playlist too small to seed recommendations.
type NotEnoughTracksError struct {
	Have, Need int
}

func (e *NotEnoughTracksError) Error() string {
	return fmt.Sprintf("Playlist has only %d tracks, but at least %d are needed for good recommendations.", e.Have, e.Need)
}

func (e *NotEnoughTracksError) Unwrap() error {
	return shared.ErrNotEnoughTracks
}

// Sources are the per-request data sources. Either may be nil when its platform is unavailable.
type Sources struct {
	Spotify services.Source
	YouTube services.Source
}

// SourcesFor builds the sources for one caller. token may be nil for anonymous access.
func SourcesFor(ctx context.Context, factory services.SourceFactory, token *oauth2.Token, onRefresh services.TokenRefreshFunc) Sources {
	return Sources{
		Spotify: factory.Spotify(ctx, token, onRefresh),
		YouTube: factory.YouTube(ctx),
	}
}

// Pipeline runs the playlist operations for a single caller.
type Pipeline struct {
	sources  Sources
	fetcher  *playlist.Fetcher
	limits   shared.RecommendationsConfig
	logger   *log.Logger
	progress chan<- ProgressUpdate
}

// NewPipeline creates a pipeline over sources with the configured recommendation limits.
func NewPipeline(sources Sources, limits shared.RecommendationsConfig, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Pipeline{
		sources: sources,
		fetcher: playlist.NewFetcher(sources.Spotify, sources.YouTube, logger),
		limits:  limits,
		logger:  shared.WithLogger(logger, "component", "pipeline"),
	}
}

// WithProgress sets the channel that receives progress updates. Sends never block.
func (p *Pipeline) WithProgress(progress chan<- ProgressUpdate) *Pipeline {
	p.progress = progress
	return p
}

// sendProgress sends a progress update through the channel without blocking.
func (p *Pipeline) sendProgress(update ProgressUpdate) {
	if p.progress == nil {
		return
	}
	select {
	case p.progress <- update:
	default:
	}
}

// Available reports which platforms this pipeline can serve.
func (p *Pipeline) Available() map[models.Platform]bool {
	return map[models.Platform]bool{
		models.Spotify:      p.fetcher.Available(models.Spotify),
		models.YouTubeMusic: p.fetcher.Available(models.YouTubeMusic),
	}
}

// Validate checks rawURL against the configured minimum track count.
func (p *Pipeline) Validate(ctx context.Context, rawURL string) *playlist.Validation {
	p.sendProgress(validateUpdate(1, 1, rawURL))

	v := p.fetcher.Validate(ctx, rawURL, p.limits.MinimumTracks)
	if v.Valid {
		p.logger.Info("playlist validated", "name", v.Name, "tracks", v.TrackCount)
	} else {
		p.logger.Warn("playlist validation failed", "error", v.Error)
	}
	return v
}

func (p *Pipeline) fetch(ctx context.Context, rawURL string, step, total int) (*models.Playlist, error) {
	platform, id := p.fetcher.Locate(rawURL)
	p.sendProgress(fetchingPlaylistUpdate(step, total, platform))

	if platform == "" || id == "" {
		return nil, fmt.Errorf("%w: unrecognized playlist URL %q", shared.ErrFetchFailed, rawURL)
	}

	pl, err := p.fetcher.Fetch(ctx, platform, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrFetchFailed, err)
	}

	p.sendProgress(foundPlaylistUpdate(step, total, pl))
	return pl, nil
}

// Analyze fetches and analyzes the playlist at rawURL.
//
// The report's Analysis is nil when the playlist has no tracks.
func (p *Pipeline) Analyze(ctx context.Context, rawURL string) (*models.Report, error) {
	pl, err := p.fetch(ctx, rawURL, 1, 2)
	if err != nil {
		return nil, err
	}

	p.sendProgress(analyzingUpdate(2, 2))
	return &models.Report{Playlist: pl.Summary(), Analysis: analysis.Analyze(pl)}, nil
}

// Recommend fetches, analyzes and recommends up to n tracks for the playlist at rawURL.
//
// n is clamped to the configured range, with 0 selecting the default. Spotify playlists that yield no
// recommendations fall back once to the YouTube Music path with no exclusions.
func (p *Pipeline) Recommend(ctx context.Context, rawURL string, n int) (*models.Report, error) {
	n = p.limits.Clamp(n)
	const total = 3

	pl, err := p.fetch(ctx, rawURL, 1, total)
	if err != nil {
		return nil, err
	}

	if len(pl.Tracks) < p.limits.MinimumTracks {
		err := &NotEnoughTracksError{Have: len(pl.Tracks), Need: p.limits.MinimumTracks}
		p.logger.Warn(err.Error())
		return nil, err
	}

	p.sendProgress(analyzingUpdate(2, total))
	a := analysis.Analyze(pl)

	p.sendProgress(recommendingUpdate(3, total, n))
	res := recommend.NewEngine(p.source(pl.Platform), p.logger).Recommend(ctx, pl, a, n)

	report := &models.Report{
		Playlist:        pl.Summary(),
		Analysis:        a,
		Recommendations: res.Tracks,
		SkippedArtists:  res.Misses,
	}

	if pl.Platform == models.Spotify && len(res.Tracks) == 0 {
		p.logger.Info("no spotify recommendations found, trying youtube music as fallback")
		p.sendProgress(fallbackUpdate(3, total))

		alt := recommend.NewEngine(p.sources.YouTube, p.logger).Run(ctx, models.YouTubeMusic, a, nil, n)
		if len(alt.Tracks) > 0 {
			p.logger.Info("using youtube music recommendations as fallback", "count", len(alt.Tracks))
			report.Recommendations = alt.Tracks
			report.SkippedArtists = append(report.SkippedArtists, alt.Misses...)
			report.Fallback = true
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) source(platform models.Platform) services.Source {
	if platform == models.Spotify {
		return p.sources.Spotify
	}
	return p.sources.YouTube
}

// IsFetchError reports whether err means the playlist could not be retrieved.
func IsFetchError(err error) bool {
	return errors.Is(err, shared.ErrFetchFailed)
}

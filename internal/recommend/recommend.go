// Package recommend builds track recommendations from a playlist's most frequent artists.
//
// Seeds are the analysis' top artists in rank order. Each seed is resolved to a provider artist id by name and its
// top tracks are collected, skipping anything already in the playlist. Results are deduplicated by id in first
// occurrence order and truncated to the requested count.
package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	maxSpotifySeeds   = 5
	maxTracksPerSeed  = 10
	minYouTubeSeeds   = 3
	maxYouTubeSeeds   = 10
	extraYouTubeSeeds = 5
	tracksPerSeedUnit = 5
)

// Result is an ordered, duplicate-free recommendation list and the seed artists that contributed nothing.
type Result struct {
	Tracks []models.Track      `json:"recommendations" yaml:"recommendations"`
	Misses []models.ArtistMiss `json:"skipped_artists" yaml:"skipped_artists"`
}

func emptyResult() Result {
	return Result{Tracks: []models.Track{}, Misses: []models.ArtistMiss{}}
}

// Engine generates recommendations using a single [services.Source].
type Engine struct {
	source services.Source
	logger *log.Logger
}

// NewEngine creates an engine over source. A nil source yields empty results.
func NewEngine(source services.Source, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{source: source, logger: shared.WithLogger(logger, "component", "recommend")}
}

// Recommend returns up to n tracks for playlist, excluding every track already in it.
func (e *Engine) Recommend(ctx context.Context, playlist *models.Playlist, analysis *models.Analysis, n int) Result {
	if playlist == nil || analysis == nil {
		e.logger.Error("cannot generate recommendations without playlist data and analysis")
		return emptyResult()
	}
	return e.Run(ctx, playlist.Platform, analysis, playlist.TrackIDs(), n)
}

// Run generates recommendations for platform from analysis, skipping ids in exclude.
func (e *Engine) Run(ctx context.Context, platform models.Platform, analysis *models.Analysis, exclude map[string]struct{}, n int) Result {
	if analysis == nil || n <= 0 {
		return emptyResult()
	}
	if len(analysis.TopArtists) == 0 {
		e.logger.Warn("no top artists found in analysis for recommendations")
		return emptyResult()
	}
	if e.source == nil {
		e.logger.Error("cannot generate recommendations: client not initialized", "platform", platform)
		return emptyResult()
	}
	if exclude == nil {
		exclude = map[string]struct{}{}
	}

	e.logger.Info("generating recommendations", "platform", platform, "count", n)

	var res Result
	switch {
	case platform == models.Spotify:
		res = e.spotify(ctx, analysis.TopArtists, exclude, n)
	case platform.IsYouTube():
		res = e.youtube(ctx, analysis.TopArtists, exclude, n)
	default:
		e.logger.Error("unsupported platform for recommendations", "platform", platform)
		return emptyResult()
	}

	e.logger.Info("generated recommendations", "platform", platform, "count", len(res.Tracks), "skipped", len(res.Misses))
	return res
}

// spotify resolves top artists in rank order until five have been found and takes up to perArtist
// non-excluded top tracks from each.
func (e *Engine) spotify(ctx context.Context, top []models.Count, exclude map[string]struct{}, n int) Result {
	seeds := min(len(top), maxSpotifySeeds)
	perArtist := min(maxTracksPerSeed, ceilDiv(n, seeds))

	res := emptyResult()
	var collected []models.Track
	resolved := 0

	for _, artist := range top {
		if resolved >= maxSpotifySeeds || ctx.Err() != nil {
			break
		}

		id, err := e.resolve(ctx, artist.Name)
		if err != nil {
			res.Misses = append(res.Misses, e.miss(artist.Name, err))
			continue
		}
		resolved++

		tracks, err := e.source.ArtistTopTracks(ctx, id)
		if err != nil {
			res.Misses = append(res.Misses, e.miss(artist.Name, err))
			continue
		}

		added := 0
		for _, t := range tracks {
			if added >= perArtist {
				break
			}
			if _, skip := exclude[t.ID]; skip {
				continue
			}
			t.Source = models.SourceArtistTopTracks
			collected = append(collected, t)
			added++
		}
		e.logger.Debug("added artist top tracks", "artist", artist.Name, "count", added)
	}

	res.Tracks = truncate(dedupe(collected, nil), n)
	return res
}

// youtube takes a fixed number of seed artists, then widens the search by up to five more when short.
func (e *Engine) youtube(ctx context.Context, top []models.Count, exclude map[string]struct{}, n int) Result {
	seeds := min(len(top), max(minYouTubeSeeds, ceilDiv(n, tracksPerSeedUnit)), maxYouTubeSeeds)
	perArtist := min(maxTracksPerSeed, ceilDiv(n, seeds))

	res := emptyResult()
	var collected []models.Track

	for _, artist := range top[:seeds] {
		if ctx.Err() != nil {
			break
		}

		tracks, err := e.seedTracks(ctx, artist.Name, perArtist)
		if err != nil {
			res.Misses = append(res.Misses, e.miss(artist.Name, err))
			continue
		}
		for _, t := range tracks {
			if _, skip := exclude[t.ID]; !skip {
				collected = append(collected, t)
			}
		}
	}

	seen := map[string]struct{}{}
	unique := dedupe(collected, seen)

	if len(unique) < n && len(top) > seeds {
		e.logger.Info("too few recommendations, trying more artists", "have", len(unique), "want", n)
		extra := top[seeds:min(len(top), seeds+extraYouTubeSeeds)]

		for _, artist := range extra {
			if len(unique) >= n || ctx.Err() != nil {
				break
			}

			tracks, err := e.seedTracks(ctx, artist.Name, perArtist)
			if err != nil {
				res.Misses = append(res.Misses, e.miss(artist.Name, err))
				continue
			}
			for _, t := range tracks {
				if t.ID == "" {
					continue
				}
				if _, skip := exclude[t.ID]; skip {
					continue
				}
				if _, dup := seen[t.ID]; dup {
					continue
				}
				seen[t.ID] = struct{}{}
				unique = append(unique, t)
			}
		}
	}

	res.Tracks = truncate(unique, n)
	return res
}

// seedTracks returns the first limit songs of the named artist, attributed to that artist.
func (e *Engine) seedTracks(ctx context.Context, name string, limit int) ([]models.Track, error) {
	id, err := e.resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	songs, err := e.source.ArtistTopTracks(ctx, id)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("found artist songs", "artist", name, "id", id, "count", len(songs))

	songs = songs[:min(limit, len(songs))]
	for i := range songs {
		songs[i].Artist = name
		songs[i].Source = models.SourceArtistTopTracks
	}
	return songs, nil
}

func (e *Engine) resolve(ctx context.Context, name string) (string, error) {
	id, err := e.source.SearchArtist(ctx, name)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%w: no artist id for %s", shared.ErrArtistNotFound, name)
	}
	return id, nil
}

func (e *Engine) miss(artist string, err error) models.ArtistMiss {
	reason := "provider error"
	if errors.Is(err, shared.ErrArtistNotFound) {
		reason = "artist not found"
	}
	e.logger.Warn("skipping seed artist", "artist", artist, "reason", reason, "error", err)
	return models.ArtistMiss{Artist: artist, Reason: reason}
}

// dedupe drops tracks without an id and repeats of an id already seen, keeping first occurrences. seen may be nil;
// when given it is updated with every kept id.
func dedupe(tracks []models.Track, seen map[string]struct{}) []models.Track {
	if seen == nil {
		seen = map[string]struct{}{}
	}
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

func truncate(tracks []models.Track, n int) []models.Track {
	if len(tracks) > n {
		return tracks[:n]
	}
	return tracks
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

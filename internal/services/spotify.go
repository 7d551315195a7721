// Spotify Web API implementation of [Source]
//
// Built on github.com/zmb3/spotify/v2. Authentication is handled by the *http.Client handed to [NewSpotifySource],
// see [SpotifyAuth.Client].
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/zmb3/spotify/v2"
)

const (
	spotifyPageSize      = 100
	defaultSpotifyMarket = "US"
)

// SpotifySource implements [Source] for Spotify.
type SpotifySource struct {
	client *spotify.Client
	market string
	logger *log.Logger
}

// NewSpotifySource creates a Spotify source. market is the country used for artist top tracks and defaults to US.
func NewSpotifySource(httpClient *http.Client, market string, logger *log.Logger, opts ...spotify.ClientOption) *SpotifySource {
	if market == "" {
		market = defaultSpotifyMarket
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifySource{
		client: spotify.New(httpClient, opts...),
		market: market,
		logger: shared.WithLogger(logger, "source", models.Spotify),
	}
}

func (s *SpotifySource) Platform() models.Platform {
	return models.Spotify
}

// Playlist fetches the playlist metadata once, then walks the item pages.
//
// Items without a track (removed tracks, podcast episodes) are skipped and counted in [models.Playlist.Skipped].
func (s *SpotifySource) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	meta, err := s.client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, wrapSpotifyError(err)
	}
	s.logger.Info("retrieved playlist", "id", playlistID, "name", meta.Name)

	playlist := &models.Playlist{
		ID:          meta.ID.String(),
		Name:        orDefault(meta.Name, unknownPlaylist),
		Description: meta.Description,
		Owner:       orDefault(meta.Owner.DisplayName, unknown),
		Platform:    models.Spotify,
		Tracks:      []models.Track{},
	}
	if len(meta.Images) > 0 {
		playlist.ImageURL = meta.Images[0].URL
	}

	page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(spotifyPageSize))
	if err != nil {
		return nil, wrapSpotifyError(err)
	}

	for {
		for _, item := range page.Items {
			if item.Track.Track == nil {
				playlist.Skipped++
				continue
			}
			playlist.Tracks = append(playlist.Tracks, NormalizeSpotifyTrack(item.Track.Track))
		}

		err := s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, wrapSpotifyError(err)
		}
		s.logger.Debug("fetched next page of tracks", "id", playlistID, "count", len(playlist.Tracks))
	}

	if playlist.Skipped > 0 {
		s.logger.Warn("skipped playlist items without a track", "id", playlistID, "skipped", playlist.Skipped)
	}
	s.logger.Debug("audio feature enrichment is unavailable, skipping")

	return playlist, nil
}

// PlaylistSummary requests only the name and total track count.
func (s *SpotifySource) PlaylistSummary(ctx context.Context, playlistID string) (*PlaylistSummary, error) {
	meta, err := s.client.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Fields("name,tracks.total"))
	if err != nil {
		return nil, wrapSpotifyError(err)
	}
	return &PlaylistSummary{
		Name:       orDefault(meta.Name, unknownPlaylist),
		TrackCount: int(meta.Tracks.Total),
	}, nil
}

// SearchArtist searches with an `artist:` filter and keeps the first hit.
func (s *SpotifySource) SearchArtist(ctx context.Context, name string) (string, error) {
	results, err := s.client.Search(ctx, "artist:"+name, spotify.SearchTypeArtist, spotify.Limit(1))
	if err != nil {
		return "", wrapSpotifyError(err)
	}
	if results.Artists == nil || len(results.Artists.Artists) == 0 || results.Artists.Artists[0].ID == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrArtistNotFound, name)
	}
	return results.Artists.Artists[0].ID.String(), nil
}

// ArtistTopTracks returns the artist's top tracks in the configured market.
func (s *SpotifySource) ArtistTopTracks(ctx context.Context, artistID string) ([]models.Track, error) {
	top, err := s.client.GetArtistsTopTracks(ctx, spotify.ID(artistID), s.market)
	if err != nil {
		return nil, wrapSpotifyError(err)
	}

	tracks := make([]models.Track, 0, len(top))
	for i := range top {
		tracks = append(tracks, NormalizeSpotifyTrack(&top[i]))
	}
	return tracks, nil
}

func wrapSpotifyError(err error) error {
	var spErr spotify.Error
	if errors.As(err, &spErr) && spErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %v", shared.ErrPlaylistNotFound, err)
	}
	return fmt.Errorf("%w: spotify: %v", shared.ErrAPIRequest, err)
}

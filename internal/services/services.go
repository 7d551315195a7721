// package services defines interface Source for reading playlists and artist catalogs from streaming providers
//
// Spotify (zmb3/spotify), YouTube Music (via proxy), YouTube Data API
package services

import (
	"context"

	"github.com/desertthunder/mixtape/internal/models"
)

// Source is a read-only view of one streaming platform.
type Source interface {
	// Platform returns the platform every track from this source belongs to.
	Platform() models.Platform

	// Playlist retrieves a playlist and all of its tracks, following pagination until exhausted.
	Playlist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// PlaylistSummary retrieves only the playlist name and total track count.
	PlaylistSummary(ctx context.Context, playlistID string) (*PlaylistSummary, error)

	// SearchArtist resolves an artist name to the provider's artist identifier using the first search hit.
	// Returns [shared.ErrArtistNotFound] when the search has no usable result.
	SearchArtist(ctx context.Context, name string) (string, error)

	// ArtistTopTracks returns the artist's most popular tracks in provider order.
	ArtistTopTracks(ctx context.Context, artistID string) ([]models.Track, error)
}

// PlaylistSummary is the cheap existence and size check for a playlist.
type PlaylistSummary struct {
	Name       string
	TrackCount int
}

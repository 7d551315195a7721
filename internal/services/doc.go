// Package services reads playlists and artist catalogs from music streaming providers.
//
// # Source Interface
//
// Every provider implements [Source], a read-only view that returns canonical [models.Playlist] and
// [models.Track] values. Provider-specific shapes never leave this package; the Track Normalizer
// ([NormalizeSpotifyTrack], [NormalizeYouTubeTrack]) fills defaults so callers never check for blank fields.
//
// # Spotify Implementation
//
// [SpotifySource] is built on github.com/zmb3/spotify/v2. [SpotifyAuth] supplies the authenticated client:
// a user token refreshed on demand through golang.org/x/oauth2, or app-only client credentials when no user
// is logged in. Refreshed tokens are reported through a [TokenRefreshFunc] so callers can persist them.
//
// # YouTube Implementations
//
// [YouTubeMusicSource] talks to a ytmusicapi HTTP proxy. The auth_file path, when set, is sent via the
// X-Auth-File header on each request.
//
// [YouTubeDataSource] uses the YouTube Data API v3 with an API key for deployments without the proxy.
//
// # Source Factory
//
// [ConfigFactory] builds sources per request from [shared.Config]. A nil source means the platform is
// unavailable, which callers report rather than treat as a fault.
//
// # Error Handling
//
// Sources wrap sentinel errors from the shared package:
//   - [shared.ErrAPIRequest] : provider request failed
//   - [shared.ErrPlaylistNotFound] : playlist id not found
//   - [shared.ErrArtistNotFound] : artist search had no usable hit
//   - [shared.ErrMissingCredentials] : source cannot be built from config
package services

// YouTube Music implementation of [Source]
//
// Communicates with a ytmusicapi HTTP proxy. The proxy wraps the ytmusicapi Python library and
// exposes playlists, search and artist pages as JSON.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeImage represents an image/thumbnail from YouTube Music.
type YouTubeImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
	Thumbnails  []YouTubeImage  `json:"thumbnails"`
}

// YouTubePlaylist represents a playlist from YouTube Music.
type YouTubePlaylist struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Author      *YouTubeArtist `json:"author"`
	Thumbnails  []YouTubeImage `json:"thumbnails"`
	TrackCount  int            `json:"trackCount"`
	Tracks      []YouTubeTrack `json:"tracks"`
}

type youtubeArtistPage struct {
	Name  string `json:"name"`
	Songs struct {
		Results []YouTubeTrack `json:"results"`
	} `json:"songs"`
}

// YouTubeMusicSource implements [Source] for YouTube Music via the proxy.
type YouTubeMusicSource struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
	logger     *log.Logger
}

// NewYouTubeMusicSource creates a YouTube Music source. authFile is optional; without it the proxy is used
// anonymously, which covers public playlists and catalog lookups.
func NewYouTubeMusicSource(baseURL, authFile string, httpClient *http.Client, logger *log.Logger) *YouTubeMusicSource {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &YouTubeMusicSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authFile:   authFile,
		httpClient: httpClient,
		logger:     shared.WithLogger(logger, "source", models.YouTubeMusic),
	}
}

func (y *YouTubeMusicSource) Platform() models.Platform {
	return models.YouTubeMusic
}

func (y *YouTubeMusicSource) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: youtube music request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		sentinel := shared.ErrAPIRequest
		if resp.StatusCode == http.StatusNotFound {
			sentinel = shared.ErrPlaylistNotFound
		}

		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: youtube music API error (status %d): %s", sentinel, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: youtube music API error: status %d", sentinel, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

func (y *YouTubeMusicSource) fetchPlaylist(ctx context.Context, playlistID string) (*YouTubePlaylist, error) {
	var yp YouTubePlaylist
	endpoint := "/api/playlists/" + url.PathEscape(playlistID)
	if err := y.doRequest(ctx, endpoint, &yp); err != nil {
		return nil, err
	}
	return &yp, nil
}

// Playlist retrieves the whole playlist in a single proxy call.
//
// Calls GET /api/playlists/{id} on the proxy.
func (y *YouTubeMusicSource) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	yp, err := y.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	y.logger.Info("retrieved playlist", "id", playlistID, "name", yp.Title)

	playlist := &models.Playlist{
		ID:          playlistID,
		Name:        orDefault(yp.Title, unknownPlaylist),
		Description: yp.Description,
		Owner:       unknown,
		Platform:    models.YouTubeMusic,
		Tracks:      make([]models.Track, 0, len(yp.Tracks)),
	}
	if yp.Author != nil {
		playlist.Owner = orDefault(yp.Author.Name, unknown)
	}
	if n := len(yp.Thumbnails); n > 0 {
		playlist.ImageURL = yp.Thumbnails[n-1].URL
	}

	for _, yt := range yp.Tracks {
		playlist.Tracks = append(playlist.Tracks, NormalizeYouTubeTrack(yt))
	}
	return playlist, nil
}

// PlaylistSummary counts the tracks the proxy returns, since the reported total may include unavailable videos.
func (y *YouTubeMusicSource) PlaylistSummary(ctx context.Context, playlistID string) (*PlaylistSummary, error) {
	yp, err := y.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return &PlaylistSummary{
		Name:       orDefault(yp.Title, unknownPlaylist),
		TrackCount: len(yp.Tracks),
	}, nil
}

// SearchArtist returns the browse id of the first artist result.
//
// Calls GET /api/search?q={name}&filter=artists on the proxy.
func (y *YouTubeMusicSource) SearchArtist(ctx context.Context, name string) (string, error) {
	var results []struct {
		BrowseID string `json:"browseId"`
		Artist   string `json:"artist"`
	}

	endpoint := fmt.Sprintf("/api/search?q=%s&filter=artists", url.QueryEscape(name))
	if err := y.doRequest(ctx, endpoint, &results); err != nil {
		return "", err
	}
	if len(results) == 0 || results[0].BrowseID == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrArtistNotFound, name)
	}
	return results[0].BrowseID, nil
}

// ArtistTopTracks returns the songs listed on the artist's page.
//
// Calls GET /api/artists/{id} on the proxy.
func (y *YouTubeMusicSource) ArtistTopTracks(ctx context.Context, artistID string) ([]models.Track, error) {
	var page youtubeArtistPage
	if err := y.doRequest(ctx, "/api/artists/"+url.PathEscape(artistID), &page); err != nil {
		return nil, err
	}
	y.logger.Debug("retrieved artist songs", "id", artistID, "count", len(page.Songs.Results))

	tracks := make([]models.Track, 0, len(page.Songs.Results))
	for _, yt := range page.Songs.Results {
		tracks = append(tracks, NormalizeYouTubeTrack(yt))
	}
	return tracks, nil
}

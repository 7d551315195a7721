// YouTube Data API implementation of [Source]
//
// Used when no ytmusicapi proxy is available. Channels stand in for artists and a channel's most viewed videos
// stand in for its top tracks.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	ytDataPageSize  = 50
	ytDataTopTracks = 10
)

var unavailableVideoTitles = map[string]bool{
	"Deleted video": true,
	"Private video": true,
}

// YouTubeDataSource implements [Source] over the YouTube Data API v3 with an API key.
type YouTubeDataSource struct {
	service *youtube.Service
	logger  *log.Logger
}

// NewYouTubeDataSource creates a YouTube Data API source. The API key is attached by the client transport so the
// rate-limited httpClient is kept.
func NewYouTubeDataSource(ctx context.Context, apiKey string, httpClient *http.Client, logger *log.Logger, opts ...option.ClientOption) (*YouTubeDataSource, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: youtube api_key is required", shared.ErrMissingCredentials)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	keyed := &http.Client{
		Transport: &transport.APIKey{Key: apiKey, Transport: httpClient.Transport},
		Timeout:   httpClient.Timeout,
	}

	service, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(keyed)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: youtube data api: %v", shared.ErrServiceUnavailable, err)
	}

	return &YouTubeDataSource{
		service: service,
		logger:  shared.WithLogger(logger, "source", "youtube_data"),
	}, nil
}

// Platform reports YouTube Music so downstream code treats both YouTube backends alike.
func (y *YouTubeDataSource) Platform() models.Platform {
	return models.YouTubeMusic
}

func (y *YouTubeDataSource) playlistMeta(ctx context.Context, playlistID string) (*youtube.Playlist, error) {
	resp, err := y.service.Playlists.List([]string{"snippet", "contentDetails"}).Id(playlistID).Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleError(err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return resp.Items[0], nil
}

// Playlist pages through the playlist items, then looks up durations for the collected videos.
//
// Deleted and private videos are skipped and counted in [models.Playlist.Skipped].
func (y *YouTubeDataSource) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	meta, err := y.playlistMeta(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	playlist := &models.Playlist{
		ID:       playlistID,
		Name:     unknownPlaylist,
		Owner:    unknown,
		Platform: models.YouTubeMusic,
		Tracks:   []models.Track{},
	}
	if meta.Snippet != nil {
		playlist.Name = orDefault(meta.Snippet.Title, unknownPlaylist)
		playlist.Description = meta.Snippet.Description
		playlist.Owner = orDefault(meta.Snippet.ChannelTitle, unknown)
		playlist.ImageURL = bestThumbnail(meta.Snippet.Thumbnails)
	}
	y.logger.Info("retrieved playlist", "id", playlistID, "name", playlist.Name)

	pageToken := ""
	for {
		call := y.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(ytDataPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, wrapGoogleError(err)
		}

		for _, item := range resp.Items {
			track, ok := playlistItemTrack(item)
			if !ok {
				playlist.Skipped++
				continue
			}
			playlist.Tracks = append(playlist.Tracks, track)
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if err := y.fillDurations(ctx, playlist.Tracks); err != nil {
		y.logger.Warn("could not fetch video durations", "id", playlistID, "error", err)
	}
	return playlist, nil
}

// PlaylistSummary reads the item count from the playlist's content details.
func (y *YouTubeDataSource) PlaylistSummary(ctx context.Context, playlistID string) (*PlaylistSummary, error) {
	meta, err := y.playlistMeta(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	summary := &PlaylistSummary{Name: unknownPlaylist}
	if meta.Snippet != nil {
		summary.Name = orDefault(meta.Snippet.Title, unknownPlaylist)
	}
	if meta.ContentDetails != nil {
		summary.TrackCount = int(meta.ContentDetails.ItemCount)
	}
	return summary, nil
}

// SearchArtist resolves an artist name to the first matching channel id.
func (y *YouTubeDataSource) SearchArtist(ctx context.Context, name string) (string, error) {
	resp, err := y.service.Search.List([]string{"snippet"}).
		Q(name).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", wrapGoogleError(err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == nil || resp.Items[0].Id.ChannelId == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrArtistNotFound, name)
	}
	return resp.Items[0].Id.ChannelId, nil
}

// ArtistTopTracks returns the channel's most viewed videos.
func (y *YouTubeDataSource) ArtistTopTracks(ctx context.Context, channelID string) ([]models.Track, error) {
	resp, err := y.service.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		Type("video").
		Order("viewCount").
		MaxResults(ytDataTopTracks).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapGoogleError(err)
	}

	tracks := make([]models.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		tracks = append(tracks, withDefaults(models.Track{
			ID:          item.Id.VideoId,
			Name:        item.Snippet.Title,
			Artists:     []string{orDefault(item.Snippet.ChannelTitle, unknown)},
			ExternalURL: ytWatchURL + item.Id.VideoId,
			ImageURL:    bestThumbnail(item.Snippet.Thumbnails),
			Platform:    models.YouTubeMusic,
		}))
	}

	if err := y.fillDurations(ctx, tracks); err != nil {
		y.logger.Warn("could not fetch video durations", "channel", channelID, "error", err)
	}
	return tracks, nil
}

// fillDurations sets DurationMS in place, batching the video lookups by page size.
func (y *YouTubeDataSource) fillDurations(ctx context.Context, tracks []models.Track) error {
	index := make(map[string][]int, len(tracks))
	ids := make([]string, 0, len(tracks))
	for i, t := range tracks {
		if _, ok := index[t.ID]; !ok {
			ids = append(ids, t.ID)
		}
		index[t.ID] = append(index[t.ID], i)
	}

	for start := 0; start < len(ids); start += ytDataPageSize {
		end := min(start+ytDataPageSize, len(ids))
		resp, err := y.service.Videos.List([]string{"contentDetails"}).Id(ids[start:end]...).Context(ctx).Do()
		if err != nil {
			return wrapGoogleError(err)
		}

		for _, v := range resp.Items {
			if v.ContentDetails == nil {
				continue
			}
			ms := ParseISODuration(v.ContentDetails.Duration)
			for _, i := range index[v.Id] {
				tracks[i].DurationMS = ms
			}
		}
	}
	return nil
}

func playlistItemTrack(item *youtube.PlaylistItem) (models.Track, bool) {
	if item == nil || item.Snippet == nil {
		return models.Track{}, false
	}

	videoID := ""
	if item.ContentDetails != nil {
		videoID = item.ContentDetails.VideoId
	}
	if videoID == "" && item.Snippet.ResourceId != nil {
		videoID = item.Snippet.ResourceId.VideoId
	}
	if videoID == "" || unavailableVideoTitles[item.Snippet.Title] {
		return models.Track{}, false
	}

	artists := []string{}
	if owner := strings.TrimSuffix(item.Snippet.VideoOwnerChannelTitle, " - Topic"); owner != "" {
		artists = append(artists, owner)
	}

	return withDefaults(models.Track{
		ID:          videoID,
		Name:        item.Snippet.Title,
		Artists:     artists,
		ExternalURL: ytWatchURL + videoID,
		ImageURL:    bestThumbnail(item.Snippet.Thumbnails),
		Platform:    models.YouTubeMusic,
	}), true
}

// ParseISODuration converts an ISO 8601 duration such as PT3M25S to milliseconds. Unparsable values yield 0.
func ParseISODuration(s string) int {
	if !strings.HasPrefix(s, "PT") {
		return 0
	}
	d, err := time.ParseDuration(strings.ToLower(strings.TrimPrefix(s, "PT")))
	if err != nil || d < 0 {
		return 0
	}
	return int(d.Milliseconds())
}

func bestThumbnail(details *youtube.ThumbnailDetails) string {
	if details == nil {
		return ""
	}
	for _, t := range []*youtube.Thumbnail{details.Maxres, details.Standard, details.High, details.Medium, details.Default} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}

func wrapGoogleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", shared.ErrPlaylistNotFound, err)
	}
	return fmt.Errorf("%w: youtube data api: %v", shared.ErrAPIRequest, err)
}

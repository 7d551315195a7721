package services

import (
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/zmb3/spotify/v2"
)

const (
	unknown         = "Unknown"
	unknownPlaylist = "Unknown Playlist"
	ytWatchURL      = "https://music.youtube.com/watch?v="
)

// withDefaults fills the fields a provider left blank so downstream code never has to check for them.
func withDefaults(t models.Track) models.Track {
	if t.Name == "" {
		t.Name = unknown
	}
	if t.Album == "" {
		t.Album = unknown
	}
	if t.Artists == nil {
		t.Artists = []string{}
	}
	if t.Artist == "" {
		if len(t.Artists) > 0 && t.Artists[0] != "" {
			t.Artist = t.Artists[0]
		} else {
			t.Artist = unknown
		}
	}
	if t.DurationMS < 0 {
		t.DurationMS = 0
	}
	return t
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// NormalizeSpotifyTrack converts a Spotify track into a [models.Track].
func NormalizeSpotifyTrack(ft *spotify.FullTrack) models.Track {
	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, orDefault(a.Name, unknown))
	}

	popularity := int(ft.Popularity)
	t := models.Track{
		ID:          ft.ID.String(),
		Name:        ft.Name,
		Artists:     artists,
		Album:       ft.Album.Name,
		DurationMS:  int(ft.Duration),
		Popularity:  &popularity,
		PreviewURL:  ft.PreviewURL,
		ExternalURL: ft.ExternalURLs["spotify"],
		Platform:    models.Spotify,
	}
	if len(ft.Album.Images) > 0 {
		t.ImageURL = ft.Album.Images[0].URL
	}
	return withDefaults(t)
}

// NormalizeYouTubeTrack converts a YouTube Music proxy track into a [models.Track].
//
// Durations arrive in seconds and are stored in milliseconds.
func NormalizeYouTubeTrack(yt YouTubeTrack) models.Track {
	artists := make([]string, 0, len(yt.Artists))
	for _, a := range yt.Artists {
		artists = append(artists, orDefault(a.Name, unknown))
	}

	t := models.Track{
		ID:         yt.VideoID,
		Name:       yt.Title,
		Artists:    artists,
		DurationMS: yt.DurationSec * 1000,
		Platform:   models.YouTubeMusic,
	}
	if yt.Album != nil {
		t.Album = yt.Album.Name
	}
	if yt.VideoID != "" {
		t.ExternalURL = ytWatchURL + yt.VideoID
	}
	if n := len(yt.Thumbnails); n > 0 {
		t.ImageURL = yt.Thumbnails[n-1].URL
	}
	return withDefaults(t)
}

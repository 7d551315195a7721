// Package playlist turns playlist URLs into fetched, canonical playlists.
//
// [Locate] classifies a URL by platform, and [Fetcher] dispatches to the [services.Source] for that platform.
package playlist

import (
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
)

// Locate extracts the platform and playlist id from a playlist URL.
//
// Spotify links need a /playlist/{id} path; YouTube and YouTube Music links need a list query parameter. Anything
// else, including unparsable input, yields an empty platform and id.
func Locate(rawURL string) (models.Platform, string) {
	return locate(rawURL, log.Default())
}

func locate(rawURL string, logger *log.Logger) (models.Platform, string) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		logger.Warn("unparsable playlist URL", "url", rawURL, "error", err)
		return "", ""
	}

	host := strings.ToLower(parsed.Host)
	switch {
	case strings.Contains(host, "spotify.com"):
		parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if len(parts) >= 2 && parts[0] == "playlist" && parts[1] != "" {
			logger.Debug("detected spotify playlist", "id", parts[1])
			return models.Spotify, parts[1]
		}
	case strings.Contains(host, "music.youtube.com"):
		if id := parsed.Query().Get("list"); id != "" {
			logger.Debug("detected youtube music playlist", "id", id)
			return models.YouTubeMusic, id
		}
	case strings.Contains(host, "youtube.com"):
		if id := parsed.Query().Get("list"); id != "" {
			logger.Debug("detected youtube playlist", "id", id)
			return models.YouTube, id
		}
	}

	logger.Warn("unrecognized playlist URL format", "url", rawURL)
	return "", ""
}

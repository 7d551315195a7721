// Package analysis derives descriptive statistics from a canonical playlist.
//
// [Analyze] is pure: it makes no network calls and never modifies its input.
package analysis

import (
	"slices"

	"github.com/desertthunder/mixtape/internal/models"
)

const (
	TopArtistLimit = 10
	TopAlbumLimit  = 5

	GenreUnavailableMessage = "Artist genre analysis requires additional data not available in basic playlist info"
	AudioUnavailableMessage = "Audio features are no longer available through Spotify API"

	unknown = "Unknown"
)

// Popularity tiers, checked from the top down against the average popularity.
var tiers = []struct {
	min   float64
	label string
}{
	{80, "Very Mainstream"},
	{60, "Mainstream"},
	{40, "Mixed Popularity"},
	{20, "Niche"},
}

const lowestTier = "Very Niche"

// Analyze computes the statistics for playlist. It returns nil for a nil playlist or one without tracks.
func Analyze(playlist *models.Playlist) *models.Analysis {
	if playlist == nil || len(playlist.Tracks) == 0 {
		return nil
	}

	tracks := playlist.Tracks
	artists := countBy(tracks, func(t models.Track) string { return t.Artist })

	a := &models.Analysis{
		TrackCount:         len(tracks),
		Platform:           playlist.Platform,
		TopArtists:         head(artists, TopArtistLimit),
		UniqueArtists:      len(artists),
		ArtistDiversity:    float64(len(artists)) / float64(len(tracks)),
		ArtistDistribution: make(map[string]int, len(artists)),
		GenreAnalysis:      models.Capability{Available: false, Message: GenreUnavailableMessage},
		AudioFeatures:      models.Capability{Available: false, Message: AudioUnavailableMessage},
		General:            general(tracks),
	}
	for _, c := range artists {
		a.ArtistDistribution[c.Name] = c.Count
	}

	if playlist.Platform == models.Spotify {
		a.Popularity = popularity(tracks)
	}
	return a
}

// MainstreamLevel maps an average popularity to its tier label.
func MainstreamLevel(avg float64) string {
	for _, tier := range tiers {
		if avg >= tier.min {
			return tier.label
		}
	}
	return lowestTier
}

func popularity(tracks []models.Track) *models.PopularityStats {
	var sum, n int
	for _, t := range tracks {
		if t.Popularity != nil {
			sum += *t.Popularity
			n++
		}
	}
	if n == 0 {
		return nil
	}

	avg := float64(sum) / float64(n)
	return &models.PopularityStats{Available: true, Average: avg, MainstreamLevel: MainstreamLevel(avg)}
}

func general(tracks []models.Track) models.GeneralStats {
	var total, n int
	for _, t := range tracks {
		if t.DurationMS > 0 {
			total += t.DurationMS
			n++
		}
	}

	stats := models.GeneralStats{}
	if n > 0 {
		stats.AvgDurationMS = float64(total) / float64(n)
		stats.AvgDurationMinutes = stats.AvgDurationMS / 60000
	}

	albums := countBy(tracks, func(t models.Track) string { return t.Album })
	stats.TopAlbums = head(albums, TopAlbumLimit)
	stats.UniqueAlbums = len(albums)
	return stats
}

// countBy tallies key(t) across tracks, most frequent first. Ties keep first-seen order.
func countBy(tracks []models.Track, key func(models.Track) string) []models.Count {
	index := make(map[string]int)
	counts := []models.Count{}
	for _, t := range tracks {
		k := key(t)
		if k == "" {
			k = unknown
		}
		if i, ok := index[k]; ok {
			counts[i].Count++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, models.Count{Name: k, Count: 1})
	}

	slices.SortStableFunc(counts, func(a, b models.Count) int { return b.Count - a.Count })
	return counts
}

func head(counts []models.Count, n int) []models.Count {
	return slices.Clone(counts[:min(n, len(counts))])
}

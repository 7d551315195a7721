package models

import (
	"encoding/json"
	"fmt"
)

// Count pairs a name with the number of times it occurs.
//
// It encodes to JSON as a two element array, `["Artist", 3]`.
type Count struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (c Count) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Name, c.Count})
}

func (c *Count) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("count: expected [name, count], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.Name); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &c.Count)
}

// Capability marks an analysis section that the upstream providers cannot supply.
type Capability struct {
	Available bool   `json:"available" yaml:"available"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
}

// PopularityStats summarizes track popularity.
type PopularityStats struct {
	Available       bool    `json:"available" yaml:"available"`
	Average         float64 `json:"average" yaml:"average"`
	MainstreamLevel string  `json:"mainstream_level" yaml:"mainstream_level"`
}

// GeneralStats holds the metrics computed for every platform.
type GeneralStats struct {
	AvgDurationMS      float64 `json:"avg_duration_ms" yaml:"avg_duration_ms"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes" yaml:"avg_duration_minutes"`
	TopAlbums          []Count `json:"top_albums" yaml:"top_albums"`
	UniqueAlbums       int     `json:"unique_albums" yaml:"unique_albums"`
}

// Analysis is the set of statistics derived from one playlist.
type Analysis struct {
	TrackCount         int              `json:"track_count" yaml:"track_count"`
	Platform           Platform         `json:"platform" yaml:"platform"`
	TopArtists         []Count          `json:"top_artists" yaml:"top_artists"`
	UniqueArtists      int              `json:"unique_artists" yaml:"unique_artists"`
	ArtistDiversity    float64          `json:"artist_diversity" yaml:"artist_diversity"`
	ArtistDistribution map[string]int   `json:"artist_distribution" yaml:"artist_distribution"`
	GenreAnalysis      Capability       `json:"genre_analysis" yaml:"genre_analysis"`
	AudioFeatures      Capability       `json:"audio_features" yaml:"audio_features"`
	Popularity         *PopularityStats `json:"popularity,omitempty" yaml:"popularity,omitempty"`
	General            GeneralStats     `json:"general" yaml:"general"`
}

// ArtistMiss records a seed artist that produced no recommendations.
type ArtistMiss struct {
	Artist string `json:"artist" yaml:"artist"`
	Reason string `json:"reason" yaml:"reason"`
}

// Report bundles a playlist's summary with its analysis and, when requested, its recommendations.
type Report struct {
	Playlist        PlaylistSummary `json:"playlist" yaml:"playlist"`
	Analysis        *Analysis       `json:"analysis" yaml:"analysis"`
	Recommendations []Track         `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	SkippedArtists  []ArtistMiss    `json:"skipped_artists,omitempty" yaml:"skipped_artists,omitempty"`
	Fallback        bool            `json:"fallback,omitempty" yaml:"fallback,omitempty"` // recommendations came from YouTube Music instead of Spotify
}

// package models defines the canonical data model for the playlist analysis service
package models

import "encoding/json"

// Platform identifies the streaming service a playlist or track belongs to.
type Platform string

const (
	Spotify      Platform = "spotify"
	YouTubeMusic Platform = "youtube_music"
	YouTube      Platform = "youtube" // plain youtube.com playlist links, handled as [YouTubeMusic]
)

// Canonical folds [YouTube] into [YouTubeMusic]. Every other value is returned unchanged.
func (p Platform) Canonical() Platform {
	if p == YouTube {
		return YouTubeMusic
	}
	return p
}

// IsYouTube reports whether p is served by the YouTube Music data sources.
func (p Platform) IsYouTube() bool {
	return p == YouTube || p == YouTubeMusic
}

// Known reports whether p is one of the supported platforms.
func (p Platform) Known() bool {
	return p == Spotify || p.IsYouTube()
}

func (p Platform) String() string {
	return string(p)
}

// Source tags how a recommended track was discovered.
type Source string

const SourceArtistTopTracks Source = "artist_top_tracks"

// Track is the provider-agnostic track record.
//
// Fields a provider does not supply carry defaults ("Unknown", 0, "") instead of being left out, with the exception of
// Popularity which is nil when the provider has no notion of it.
type Track struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Artist      string   `json:"artist" yaml:"artist"`
	Artists     []string `json:"artists" yaml:"artists"`
	Album       string   `json:"album" yaml:"album"`
	DurationMS  int      `json:"duration_ms" yaml:"duration_ms"`
	Popularity  *int     `json:"popularity,omitempty" yaml:"popularity,omitempty"`
	PreviewURL  string   `json:"preview_url" yaml:"preview_url"`
	ExternalURL string   `json:"external_url" yaml:"external_url"`
	ImageURL    string   `json:"image_url" yaml:"image_url"`
	Platform    Platform `json:"platform" yaml:"platform"`
	Source      Source   `json:"source,omitempty" yaml:"source,omitempty"`
}

// MarshalJSON keeps "artists" an array even when no artist names are known.
func (t Track) MarshalJSON() ([]byte, error) {
	type alias Track
	if t.Artists == nil {
		t.Artists = []string{}
	}
	return json.Marshal(alias(t))
}

// Playlist is a fully fetched playlist with its tracks in provider order.
type Playlist struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Owner       string   `json:"owner" yaml:"owner"`
	Platform    Platform `json:"platform" yaml:"platform"`
	ImageURL    string   `json:"image_url" yaml:"image_url"`
	Tracks      []Track  `json:"tracks" yaml:"tracks"`
	Skipped     int      `json:"skipped" yaml:"skipped"` // provider entries dropped during normalization
}

// TrackIDs returns the set of non-empty track IDs in the playlist.
func (p *Playlist) TrackIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(p.Tracks))
	for _, t := range p.Tracks {
		if t.ID != "" {
			ids[t.ID] = struct{}{}
		}
	}
	return ids
}

// Summary returns the short form of the playlist used in API responses.
func (p *Playlist) Summary() PlaylistSummary {
	return PlaylistSummary{
		Name:       p.Name,
		Owner:      p.Owner,
		TrackCount: len(p.Tracks),
		Platform:   p.Platform,
		ImageURL:   p.ImageURL,
	}
}

// PlaylistSummary is the playlist header reported alongside analyses and recommendations.
type PlaylistSummary struct {
	Name       string   `json:"name" yaml:"name"`
	Owner      string   `json:"owner" yaml:"owner"`
	TrackCount int      `json:"track_count" yaml:"track_count"`
	Platform   Platform `json:"platform" yaml:"platform"`
	ImageURL   string   `json:"image_url" yaml:"image_url"`
}

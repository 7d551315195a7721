// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// FakeSource is an in-memory test double for [services.Source]. It records every call in order.
type FakeSource struct {
	mu sync.Mutex

	Kind         models.Platform
	Playlists    map[string]*models.Playlist
	PlaylistErr  error
	SummaryErr   error
	Artists      map[string]string         // artist name -> artist id
	SearchErrs   map[string]error          // artist name -> error
	TopTracks    map[string][]models.Track // artist id -> tracks
	TopTrackErrs map[string]error          // artist id -> error
	Calls        []string
}

// NewFakeSource creates an empty [FakeSource] for platform.
func NewFakeSource(platform models.Platform) *FakeSource {
	return &FakeSource{
		Kind:         platform,
		Playlists:    map[string]*models.Playlist{},
		Artists:      map[string]string{},
		SearchErrs:   map[string]error{},
		TopTracks:    map[string][]models.Track{},
		TopTrackErrs: map[string]error{},
	}
}

func (f *FakeSource) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

// CallCount returns how many recorded calls were made.
func (f *FakeSource) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *FakeSource) Platform() models.Platform { return f.Kind }

func (f *FakeSource) Playlist(ctx context.Context, id string) (*models.Playlist, error) {
	f.record("Playlist:" + id)
	if f.PlaylistErr != nil {
		return nil, f.PlaylistErr
	}
	p, ok := f.Playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	cp := *p
	cp.Tracks = append([]models.Track(nil), p.Tracks...)
	return &cp, nil
}

func (f *FakeSource) PlaylistSummary(ctx context.Context, id string) (*services.PlaylistSummary, error) {
	f.record("PlaylistSummary:" + id)
	if f.SummaryErr != nil {
		return nil, f.SummaryErr
	}
	p, ok := f.Playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return &services.PlaylistSummary{Name: p.Name, TrackCount: len(p.Tracks)}, nil
}

func (f *FakeSource) SearchArtist(ctx context.Context, name string) (string, error) {
	f.record("SearchArtist:" + name)
	if err := f.SearchErrs[name]; err != nil {
		return "", err
	}
	id, ok := f.Artists[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrArtistNotFound, name)
	}
	return id, nil
}

func (f *FakeSource) ArtistTopTracks(ctx context.Context, id string) ([]models.Track, error) {
	f.record("ArtistTopTracks:" + id)
	if err := f.TopTrackErrs[id]; err != nil {
		return nil, err
	}
	return append([]models.Track(nil), f.TopTracks[id]...), nil
}

// Track builds a minimal track on platform.
func Track(platform models.Platform, id, artist string) models.Track {
	return models.Track{
		ID:       id,
		Name:     "Track " + id,
		Artist:   artist,
		Artists:  []string{artist},
		Album:    "Unknown",
		Platform: platform,
	}
}

// Tracks builds tracks for artist with ids prefix1..prefixN.
func Tracks(platform models.Platform, artist, prefix string, n int) []models.Track {
	tracks := make([]models.Track, 0, n)
	for i := 1; i <= n; i++ {
		tracks = append(tracks, Track(platform, fmt.Sprintf("%s%d", prefix, i), artist))
	}
	return tracks
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper returns a fixed response or error for every request.
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser is a response body whose reads always fail.
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

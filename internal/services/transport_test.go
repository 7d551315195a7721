package services_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	tu "github.com/desertthunder/mixtape/internal/testing"
)

func TestYouTubeMusicSourceTransportFailures(t *testing.T) {
	newSource := func(rt http.RoundTripper) *services.YouTubeMusicSource {
		client := &http.Client{Transport: shared.NewRateLimitedTransport(rt, 0, 1)}
		return services.NewYouTubeMusicSource("http://ytmusic.test", "", client, nil)
	}

	t.Run("transport error", func(t *testing.T) {
		src := newSource(tu.NewMockRoundTripper(nil, errors.New("connection refused")))

		_, err := src.Playlist(context.Background(), "PL1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("expected transport error in message, got %v", err)
		}
	})

	t.Run("body read failure", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: &tu.FCloser{}}
		src := newSource(tu.NewMockRoundTripper(resp, nil))

		_, err := src.SearchArtist(context.Background(), "Artist")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "read failed") {
			t.Errorf("expected read error in message, got %v", err)
		}
	})

	t.Run("error body read failure", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusNotFound, Header: http.Header{}, Body: &tu.FCloser{}}
		src := newSource(tu.NewMockRoundTripper(resp, nil))

		_, err := src.PlaylistSummary(context.Background(), "PL1")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

package tasks

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	tu "github.com/desertthunder/mixtape/internal/testing"
	"golang.org/x/oauth2"
)

var limits = shared.RecommendationsConfig{MinimumTracks: 10, Default: 10, Maximum: 50}

const (
	spotifyURL = "https://open.spotify.com/playlist/sp1"
	youtubeURL = "https://music.youtube.com/playlist?list=PL1"
)

// fixture builds a 12 track Spotify playlist (A x6, B x4, C x2) and a 12 track YouTube playlist (D x12).
func fixture() (*tu.FakeSource, *tu.FakeSource) {
	sp := tu.NewFakeSource(models.Spotify)
	tracks := append(tu.Tracks(models.Spotify, "A", "a", 6), tu.Tracks(models.Spotify, "B", "b", 4)...)
	tracks = append(tracks, tu.Tracks(models.Spotify, "C", "c", 2)...)
	sp.Playlists["sp1"] = &models.Playlist{ID: "sp1", Name: "Spotify Mix", Owner: "Sam", Platform: models.Spotify, Tracks: tracks}
	sp.Playlists["small"] = &models.Playlist{ID: "small", Name: "Small", Platform: models.Spotify, Tracks: tu.Tracks(models.Spotify, "A", "s", 3)}
	for _, name := range []string{"A", "B", "C"} {
		sp.Artists[name] = "sp-" + name
		sp.TopTracks["sp-"+name] = tu.Tracks(models.Spotify, name, "sp"+name, 10)
	}

	yt := tu.NewFakeSource(models.YouTubeMusic)
	yt.Playlists["PL1"] = &models.Playlist{ID: "PL1", Name: "YT Mix", Platform: models.YouTubeMusic, Tracks: tu.Tracks(models.YouTubeMusic, "D", "d", 12)}
	for _, name := range []string{"A", "B", "C", "D"} {
		yt.Artists[name] = "yt-" + name
		yt.TopTracks["yt-"+name] = tu.Tracks(models.YouTubeMusic, name, "yt"+name, 10)
	}
	return sp, yt
}

func TestPipeline_Validate(t *testing.T) {
	sp, yt := fixture()
	p := NewPipeline(Sources{Spotify: sp, YouTube: yt}, limits, nil)

	t.Run("valid", func(t *testing.T) {
		v := p.Validate(context.Background(), spotifyURL)
		if !v.Valid || !v.HasEnoughTracks || v.TrackCount != 12 {
			t.Errorf("unexpected validation: %+v", v)
		}
	})

	t.Run("unrecognized host", func(t *testing.T) {
		v := p.Validate(context.Background(), "https://example.com/playlist/1")
		if v.Valid || v.Error == "" {
			t.Errorf("expected invalid result with error, got %+v", v)
		}
	})
}

func TestPipeline_Analyze(t *testing.T) {
	sp, yt := fixture()
	p := NewPipeline(Sources{Spotify: sp, YouTube: yt}, limits, nil)

	t.Run("returns summary and analysis", func(t *testing.T) {
		report, err := p.Analyze(context.Background(), spotifyURL)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Playlist.Name != "Spotify Mix" || report.Playlist.TrackCount != 12 || report.Playlist.Owner != "Sam" {
			t.Errorf("unexpected summary: %+v", report.Playlist)
		}
		if report.Analysis == nil || report.Analysis.TopArtists[0].Name != "A" {
			t.Errorf("unexpected analysis: %+v", report.Analysis)
		}
		if len(report.Recommendations) != 0 {
			t.Error("expected no recommendations from Analyze")
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		_, err := p.Analyze(context.Background(), "https://open.spotify.com/playlist/nope")
		if !IsFetchError(err) {
			t.Errorf("expected fetch error, got %v", err)
		}
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected underlying cause to be kept, got %v", err)
		}
	})

	t.Run("invalid URL is a fetch failure", func(t *testing.T) {
		if _, err := p.Analyze(context.Background(), "not a url"); !IsFetchError(err) {
			t.Errorf("expected fetch error, got %v", err)
		}
	})

	t.Run("source unavailable", func(t *testing.T) {
		p := NewPipeline(Sources{YouTube: yt}, limits, nil)
		_, err := p.Analyze(context.Background(), spotifyURL)
		if !IsFetchError(err) || !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected unavailable fetch error, got %v", err)
		}
	})
}

func TestPipeline_Recommend(t *testing.T) {
	ctx := context.Background()

	t.Run("spotify recommendations exclude playlist tracks", func(t *testing.T) {
		sp, yt := fixture()
		report, err := NewPipeline(Sources{Spotify: sp, YouTube: yt}, limits, nil).Recommend(ctx, spotifyURL, 6)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []string{"spA1", "spA2", "spB1", "spB2", "spC1", "spC2"}
		var got []string
		for _, tr := range report.Recommendations {
			got = append(got, tr.ID)
		}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if report.Fallback {
			t.Error("expected no fallback")
		}
	})

	t.Run("zero selects default count", func(t *testing.T) {
		sp, yt := fixture()
		report, err := NewPipeline(Sources{Spotify: sp, YouTube: yt}, limits, nil).Recommend(ctx, spotifyURL, 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(report.Recommendations) != limits.Default {
			t.Errorf("expected %d recommendations, got %d", limits.Default, len(report.Recommendations))
		}
	})

	t.Run("count clamped to maximum", func(t *testing.T) {
		sp, yt := fixture()
		small := limits
		small.Maximum = 4
		report, err := NewPipeline(Sources{Spotify: sp, YouTube: yt}, small, nil).Recommend(ctx, spotifyURL, 100)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(report.Recommendations) != 4 {
			t.Errorf("expected 4 recommendations, got %d", len(report.Recommendations))
		}
	})

	t.Run("too few tracks", func(t *testing.T) {
		sp, yt := fixture()
		_, err := NewPipeline(Sources{Spotify: sp, YouTube: yt}, limits, nil).Recommend(ctx, "https://open.spotify.com/playlist/small", 5)

		var nerr *NotEnoughTracksError
		if !errors.As(err, &nerr) || !errors.Is(err, shared.ErrNotEnoughTracks) {
			t.Fatalf("expected NotEnoughTracksError, got %v", err)
		}
		want := "Playlist has only 3 tracks, but at least 10 are needed for good recommendations."
		if err.Error() != want {
			t.Errorf("expected %q, got %q", want, err.Error())
		}
	})

	t.Run("youtube playlist", func(t *testing.T) {
		sp, yt := fixture()
		report, err := NewPipeline(Sources{Spotify: sp, YouTube: yt}, limits, nil).Recommend(ctx, youtubeURL, 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(report.Recommendations) != 5 || report.Recommendations[0].Artist != "D" {
			t.Errorf("unexpected recommendations: %+v", report.Recommendations)
		}
		if sp.CallCount() != 0 {
			t.Errorf("expected no spotify calls, got %v", sp.Calls)
		}
	})

	t.Run("falls back to youtube music when spotify yields nothing", func(t *testing.T) {
		sp, yt := fixture()
		sp.Artists = map[string]string{}

		report, err := NewPipeline(Sources{Spotify: sp, YouTube: yt}, limits, nil).Recommend(ctx, spotifyURL, 6)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !report.Fallback {
			t.Error("expected fallback")
		}
		if len(report.Recommendations) != 6 || report.Recommendations[0].Platform != models.YouTubeMusic {
			t.Errorf("unexpected fallback recommendations: %+v", report.Recommendations)
		}
		if len(report.SkippedArtists) != 3 {
			t.Errorf("expected spotify misses to be kept, got %+v", report.SkippedArtists)
		}
	})

	t.Run("fallback also empty", func(t *testing.T) {
		sp, _ := fixture()
		sp.Artists = map[string]string{}

		report, err := NewPipeline(Sources{Spotify: sp}, limits, nil).Recommend(ctx, spotifyURL, 6)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Fallback || len(report.Recommendations) != 0 {
			t.Errorf("expected empty result without fallback, got %+v", report.Recommendations)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		sp, yt := fixture()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := NewPipeline(Sources{Spotify: sp, YouTube: yt}, limits, nil).Recommend(ctx, spotifyURL, 6); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	sp, yt := fixture()

	t.Run("delivers updates in order", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 10)
		p := NewPipeline(Sources{Spotify: sp, YouTube: yt}, limits, nil).WithProgress(progress)

		if _, err := p.Recommend(context.Background(), spotifyURL, 3); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		want := []Phase{FetchPlaylist, FetchPlaylist, AnalyzePlaylist, Recommend}
		if !slices.Equal(phases, want) {
			t.Errorf("expected %v, got %v", want, phases)
		}
	})

	t.Run("full channel does not block", func(t *testing.T) {
		progress := make(chan ProgressUpdate)
		p := NewPipeline(Sources{Spotify: sp, YouTube: yt}, limits, nil).WithProgress(progress)

		if _, err := p.Analyze(context.Background(), spotifyURL); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestPhase_String(t *testing.T) {
	if Fallback.String() != "fallback" || Phase(99).String() != "" {
		t.Errorf("unexpected phase names: %q %q", Fallback.String(), Phase(99).String())
	}
}

type fakeFactory struct {
	sp, yt *tu.FakeSource
	token  *oauth2.Token
}

func (f *fakeFactory) Spotify(ctx context.Context, token *oauth2.Token, _ services.TokenRefreshFunc) services.Source {
	f.token = token
	return f.sp
}

func (f *fakeFactory) YouTube(ctx context.Context) services.Source { return f.yt }

func TestSourcesFor(t *testing.T) {
	sp, yt := fixture()
	f := &fakeFactory{sp: sp, yt: yt}
	token := &oauth2.Token{AccessToken: "user"}

	sources := SourcesFor(context.Background(), f, token, nil)
	if sources.Spotify != sp || sources.YouTube != yt {
		t.Error("expected factory sources")
	}
	if f.token != token {
		t.Error("expected caller token to be passed to the factory")
	}
}

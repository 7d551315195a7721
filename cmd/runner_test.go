package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	tu "github.com/desertthunder/mixtape/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const (
	spotifyURL = "https://open.spotify.com/playlist/sp1"
	smallURL   = "https://open.spotify.com/playlist/small"
)

type fakeFactory struct {
	spotify   services.Source
	youtube   services.Source
	token     *oauth2.Token
	onRefresh services.TokenRefreshFunc
}

func (f *fakeFactory) Spotify(ctx context.Context, token *oauth2.Token, onRefresh services.TokenRefreshFunc) services.Source {
	f.token, f.onRefresh = token, onRefresh
	return f.spotify
}

func (f *fakeFactory) YouTube(ctx context.Context) services.Source {
	return f.youtube
}

func newFakeFactory() *fakeFactory {
	sp := tu.NewFakeSource(models.Spotify)
	tracks := append(tu.Tracks(models.Spotify, "A", "a", 6), tu.Tracks(models.Spotify, "B", "b", 6)...)
	sp.Playlists["sp1"] = &models.Playlist{ID: "sp1", Name: "Spotify Mix", Owner: "Sam", Platform: models.Spotify, Tracks: tracks}
	sp.Playlists["small"] = &models.Playlist{ID: "small", Name: "Small", Platform: models.Spotify, Tracks: tu.Tracks(models.Spotify, "A", "s", 3)}
	for _, name := range []string{"A", "B"} {
		sp.Artists[name] = "sp-" + name
		sp.TopTracks["sp-"+name] = tu.Tracks(models.Spotify, name, "sp"+name, 10)
	}

	yt := tu.NewFakeSource(models.YouTubeMusic)
	return &fakeFactory{spotify: sp, youtube: yt}
}

type fixture struct {
	runner  *Runner
	factory *fakeFactory
	output  *bytes.Buffer
	config  *shared.Config
	path    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "data", "mixtape.db")
	config.Logging.File = ""

	factory := newFakeFactory()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: path,
		Factory: func(cfg *shared.Config, logger *log.Logger) (services.SourceFactory, error) {
			return factory, nil
		},
		Logger:  shared.NewLogger(&tu.FWriter{}),
		Output:  output,
		Palette: formatter.PlainPalette(),
		Version: "test",
	})

	return &fixture{runner: runner, factory: factory, output: output, config: config, path: path}
}

// run invokes the CLI with args, passing --config so commands use the fixture's config.
func (f *fixture) run(ctx context.Context, args ...string) error {
	app := &cli.Command{
		Name:      "mixtape",
		Commands:  f.runner.register(),
		Writer:    &bytes.Buffer{},
		ErrWriter: &bytes.Buffer{},
	}
	full := append([]string{"mixtape"}, args[0])
	if args[0] == "auth" || args[0] == "setup" {
		full = append(full, args[1])
		args = args[1:]
	}
	full = append(full, "--config", f.path)
	full = append(full, args[1:]...)
	return app.Run(ctx, full)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil || runner.logger == nil || runner.palette == nil || runner.browser == nil {
				t.Error("expected defaults to be set")
			}
			if runner.authTimeout != 2*time.Minute {
				t.Errorf("expected default auth timeout, got %s", runner.authTimeout)
			}
		})

		t.Run("registers every command", func(t *testing.T) {
			var names []string
			for _, c := range NewRunner(RunnerOpts{}).register() {
				names = append(names, c.Name)
			}
			if strings.Join(names, ",") != "serve,analyze,recommend,validate,auth,setup" {
				t.Errorf("unexpected commands: %v", names)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `"key": "value"`) || !strings.HasSuffix(output.String(), "\n") {
				t.Errorf("expected formatted JSON with newline, got %q", output.String())
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != `{"key":"value"}`+"\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		buf := &bytes.Buffer{}
		limited := tu.NewLimitedWriter(1, 0, buf)
		runner := NewRunner(RunnerOpts{Output: &limited})

		if err := runner.writePlain("first %d\n", 1); err != nil {
			t.Fatalf("expected first write to succeed, got %v", err)
		}
		if err := runner.writePlainln("second"); err == nil {
			t.Error("expected second write to fail")
		}
		if buf.String() != "first 1\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("loads config named by flag", func(t *testing.T) {
		f := newFixture(t)
		other := filepath.Join(t.TempDir(), "other.toml")
		cfg := shared.DefaultConfig()
		cfg.Recommendations.Default = 7
		if err := shared.SaveConfig(other, cfg); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		app := &cli.Command{Name: "mixtape", Commands: f.runner.register()}
		err := app.Run(context.Background(), []string{"mixtape", "recommend", "--config", other, "--format", "json", spotifyURL})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var decoded struct {
			Recommendations []models.Track `json:"recommendations"`
		}
		if err := json.Unmarshal(f.output.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded.Recommendations) != 7 || f.runner.configPath != other {
			t.Errorf("expected 7 recommendations from %s, got %d (path %s)", other, len(decoded.Recommendations), f.runner.configPath)
		}
	})
}

func TestCallbackAddr(t *testing.T) {
	tc := []struct {
		redirect string
		want     string
	}{
		{"http://127.0.0.1:8888/callback", "127.0.0.1:8888"},
		{"http://localhost/callback", "localhost:80"},
		{"", "127.0.0.1:5000"},
	}
	for _, tt := range tc {
		t.Run(tt.redirect, func(t *testing.T) {
			cfg := shared.DefaultConfig()
			cfg.Credentials.Spotify.RedirectURI = tt.redirect
			cfg.Server.Host, cfg.Server.Port = "127.0.0.1", 5000

			if got := callbackAddr(cfg); got != tt.want {
				t.Errorf("callbackAddr(%q) = %q, want %q", tt.redirect, got, tt.want)
			}
		})
	}
}

func TestPlaylistCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("analyze", func(t *testing.T) {
		t.Run("text report", func(t *testing.T) {
			f := newFixture(t)
			if err := f.run(ctx, "analyze", spotifyURL); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			out := f.output.String()
			if !strings.Contains(out, "Playlist: Spotify Mix") || !strings.Contains(out, "Top artists") {
				t.Errorf("unexpected output:\n%s", out)
			}
		})

		t.Run("json report", func(t *testing.T) {
			f := newFixture(t)
			if err := f.run(ctx, "analyze", "--format", "json", spotifyURL); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var decoded map[string]any
			if err := json.Unmarshal(f.output.Bytes(), &decoded); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, f.output.String())
			}
			if decoded["analysis"].(map[string]any)["track_count"] != float64(12) {
				t.Errorf("unexpected analysis: %v", decoded["analysis"])
			}
		})

		t.Run("csv is rejected", func(t *testing.T) {
			f := newFixture(t)
			if err := f.run(ctx, "analyze", "--format", "csv", spotifyURL); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})

		t.Run("missing url", func(t *testing.T) {
			f := newFixture(t)
			if err := f.run(ctx, "analyze"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected missing argument, got %v", err)
			}
		})

		t.Run("unknown format", func(t *testing.T) {
			f := newFixture(t)
			if err := f.run(ctx, "analyze", "--format", "xml", spotifyURL); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})
	})

	t.Run("recommend", func(t *testing.T) {
		t.Run("csv with count", func(t *testing.T) {
			f := newFixture(t)
			if err := f.run(ctx, "recommend", "--format", "csv", "--count", "3", spotifyURL); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			lines := strings.Split(strings.TrimSpace(f.output.String()), "\n")
			if len(lines) != 4 || !strings.HasPrefix(lines[0], "ID,Name") {
				t.Errorf("expected header and 3 rows, got:\n%s", f.output.String())
			}
		})

		t.Run("default count from config", func(t *testing.T) {
			f := newFixture(t)
			f.config.Recommendations.Default = 5
			if err := f.run(ctx, "recommend", "--format", "json", spotifyURL); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var decoded struct {
				Recommendations []models.Track `json:"recommendations"`
			}
			if err := json.Unmarshal(f.output.Bytes(), &decoded); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(decoded.Recommendations) != 5 {
				t.Errorf("expected 5 recommendations, got %d", len(decoded.Recommendations))
			}
		})

		t.Run("too few tracks", func(t *testing.T) {
			f := newFixture(t)
			err := f.run(ctx, "recommend", smallURL)
			if !errors.Is(err, shared.ErrNotEnoughTracks) {
				t.Errorf("expected not enough tracks, got %v", err)
			}
		})

		t.Run("writes report to file", func(t *testing.T) {
			f := newFixture(t)
			path := filepath.Join(t.TempDir(), "out", "mix.md")
			if err := f.run(ctx, "recommend", "--format", "md", "--output", path, spotifyURL); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			tu.AssertFileExists(t, path)
			if !strings.Contains(tu.MustReadFile(t, path), "## Recommendations") {
				t.Error("expected markdown recommendations section")
			}
			if !strings.Contains(f.output.String(), "✓ Report saved to") {
				t.Errorf("unexpected output: %s", f.output.String())
			}
		})

		t.Run("refreshed token is saved to config", func(t *testing.T) {
			f := newFixture(t)
			f.config.Credentials.Spotify.AccessToken = "old-access"
			if err := f.run(ctx, "recommend", "--format", "json", spotifyURL); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if f.factory.token == nil || f.factory.token.AccessToken != "old-access" {
				t.Fatalf("expected saved token to be passed to the factory, got %+v", f.factory.token)
			}

			f.factory.onRefresh(&oauth2.Token{AccessToken: "new-access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)})

			saved, err := shared.LoadConfig(f.path)
			if err != nil {
				t.Fatalf("failed to load saved config: %v", err)
			}
			if saved.Credentials.Spotify.AccessToken != "new-access" {
				t.Errorf("expected refreshed token to be persisted, got %q", saved.Credentials.Spotify.AccessToken)
			}
		})
	})

	t.Run("validate", func(t *testing.T) {
		t.Run("text", func(t *testing.T) {
			f := newFixture(t)
			if err := f.run(ctx, "validate", spotifyURL); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(f.output.String(), "✓ valid: Spotify Mix (spotify, 12 tracks)") {
				t.Errorf("unexpected output: %s", f.output.String())
			}
		})

		t.Run("json", func(t *testing.T) {
			f := newFixture(t)
			if err := f.run(ctx, "validate", "--json", "https://example.com/nope"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(f.output.String(), `"valid": false`) {
				t.Errorf("unexpected output: %s", f.output.String())
			}
		})

		t.Run("write failure", func(t *testing.T) {
			f := newFixture(t)
			f.runner.output = &tu.FWriter{}
			if err := f.run(ctx, "validate", spotifyURL); err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})
}

func TestSetupCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("database", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, f.config.Database.Path)
		if !strings.Contains(f.output.String(), "Applied migrations: [1]") {
			t.Errorf("unexpected output: %s", f.output.String())
		}
	})

	t.Run("config", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(ctx, "setup", "config"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, f.path)

		if err := f.run(ctx, "setup", "config"); err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected error for existing config, got %v", err)
		}
	})
}

func TestServeCommand(t *testing.T) {
	f := newFixture(t)
	f.config.Database.Path = ":memory:"
	f.config.Server.Host, f.config.Server.Port = "127.0.0.1", 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.run(ctx, "serve"); err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}

func TestAuthSpotify(t *testing.T) {
	ctx := context.Background()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"user-access","token_type":"Bearer","refresh_token":"user-refresh","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	authFixture := func(t *testing.T, browser func(string) error, timeout time.Duration) *fixture {
		f := newFixture(t)
		f.config.Credentials.Spotify.ClientID = "client-id"
		f.config.Credentials.Spotify.ClientSecret = "client-secret"
		f.config.Credentials.Spotify.RedirectURI = "http://" + freeAddr(t) + "/callback"
		f.runner.browser = browser
		f.runner.authTimeout = timeout
		f.runner.endpoint = &oauth2.Endpoint{AuthURL: tokenServer.URL + "/authorize", TokenURL: tokenServer.URL + "/api/token"}
		return f
	}

	t.Run("saves token from callback", func(t *testing.T) {
		browser := func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			q := u.Query()
			resp, err := http.Get(q.Get("redirect_uri") + "?code=abc&state=" + url.QueryEscape(q.Get("state")))
			if err != nil {
				return err
			}
			return resp.Body.Close()
		}
		f := authFixture(t, browser, 5*time.Second)

		if err := f.run(ctx, "auth", "spotify"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		saved, err := shared.LoadConfig(f.path)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if saved.Credentials.Spotify.AccessToken != "user-access" || saved.Credentials.Spotify.RefreshToken != "user-refresh" {
			t.Errorf("unexpected saved credentials: %+v", saved.Credentials.Spotify)
		}
		if !strings.Contains(f.output.String(), "✓ Authorization successful") {
			t.Errorf("unexpected output: %s", f.output.String())
		}
	})

	t.Run("prints url when browser fails and times out", func(t *testing.T) {
		f := authFixture(t, func(string) error { return errors.New("no browser") }, 50*time.Millisecond)

		err := f.run(ctx, "auth", "spotify")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected timeout, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Open this URL in your browser") {
			t.Errorf("expected auth URL in output, got %s", f.output.String())
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		f := newFixture(t)
		f.config.Credentials.Spotify.ClientID = ""

		if err := f.run(ctx, "auth", "spotify"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})
}

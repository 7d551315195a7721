package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	maxBodyBytes = 1 << 20

	missingURLMessage   = "No playlist URL provided"
	fetchFailedMessage  = "Failed to fetch playlist data. Please check the URL and try again."
	authURLErrorMessage = "Could not generate Spotify authentication URL. Please check your API credentials."
)

// TokenStore persists OAuth tokens per session. Implemented by repositories.TokenRepository.
type TokenStore interface {
	Save(record *models.SessionToken) error
	Get(sessionID string, platform models.Platform) (*models.SessionToken, error)
	Delete(sessionID string, platform models.Platform) error
}

// Authenticator runs the Spotify authorization code flow. Implemented by [services.SpotifyAuth].
type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// availability is implemented by factories that can report platform support without building sources.
type availability interface {
	Available() map[models.Platform]bool
}

// App serves the JSON API.
type App struct {
	config   *shared.Config
	factory  services.SourceFactory
	auth     Authenticator
	tokens   TokenStore
	sessions *Sessions
	logger   *log.Logger
	version  string
}

// AppOpts configures [NewApp].
//
// Auth and Tokens may be left nil: without Auth, Spotify login is unavailable; without Tokens, every request
// is anonymous. Leave Auth unset rather than passing a typed nil pointer.
type AppOpts struct {
	Config   *shared.Config
	Factory  services.SourceFactory
	Auth     Authenticator
	Tokens   TokenStore
	Sessions *Sessions
	Logger   *log.Logger
	Version  string
}

// NewApp creates the web application.
func NewApp(opts AppOpts) *App {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Sessions == nil {
		opts.Sessions = NewSessions(opts.Config.Server.SecretKey)
	}
	return &App{
		config:   opts.Config,
		factory:  opts.Factory,
		auth:     opts.Auth,
		tokens:   opts.Tokens,
		sessions: opts.Sessions,
		logger:   shared.WithLogger(opts.Logger, "component", "server"),
		version:  opts.Version,
	}
}

var routes = []string{
	"GET /",
	"GET /health",
	"GET /login-spotify",
	"GET /callback",
	"POST /validate-playlist",
	"POST /analyze-playlist",
	"POST /get-recommendations",
}

// Handler returns the routed application wrapped in request id, logging and recovery middleware.
func (a *App) Handler() http.Handler {
	r := NewBasicRouter()
	r.Use(WithRequestID(), WithLogging(a.logger), WithRecovery(a.logger))
	r.NotFound(http.HandlerFunc(a.NotFound))

	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.Index))
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(a.Health))
	r.Handle(http.MethodGet, "/login-spotify", http.HandlerFunc(a.LoginSpotify))
	r.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.Callback))
	r.Handle(http.MethodPost, "/validate-playlist", http.HandlerFunc(a.ValidatePlaylist))
	r.Handle(http.MethodPost, "/analyze-playlist", http.HandlerFunc(a.AnalyzePlaylist))
	r.Handle(http.MethodPost, "/get-recommendations", http.HandlerFunc(a.GetRecommendations))
	return r
}

// Index describes the service. A failed login redirect surfaces its reason here.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	sid, _ := a.sessions.Lookup(r)
	body := map[string]any{
		"name":          "mixtape",
		"version":       a.version,
		"routes":        routes,
		"authenticated": a.hasToken(sid),
	}
	if reason := r.URL.Query().Get("error"); reason != "" {
		body["error"] = reason
	}
	writeJSON(w, http.StatusOK, body)
}

// Health reports which platforms can currently be served.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	avail := a.available(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"spotify":       avail[models.Spotify],
		"youtube_music": avail[models.YouTubeMusic],
	})
}

func (a *App) available(ctx context.Context) map[models.Platform]bool {
	if f, ok := a.factory.(availability); ok {
		return f.Available()
	}
	return tasks.NewPipeline(tasks.SourcesFor(ctx, a.factory, nil, nil), a.config.Recommendations, a.logger).Available()
}

// LoginSpotify starts the OAuth flow and returns the authorization URL.
func (a *App) LoginSpotify(w http.ResponseWriter, r *http.Request) {
	a.logger.Info("starting spotify login flow")
	if a.auth == nil {
		a.logger.Error("failed to generate spotify auth url", "error", shared.ErrMissingCredentials)
		writeJSON(w, http.StatusInternalServerError, errorBody(authURLErrorMessage))
		return
	}

	state := uuid.NewString()
	if err := a.sessions.SetState(w, r, state); err != nil {
		a.logger.Error("failed to store oauth state", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(authURLErrorMessage))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"auth_url": a.auth.AuthURL(state)})
}

// Callback completes the OAuth flow and stores the token for the session.
func (a *App) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expected := a.sessions.PopState(w, r)

	code := q.Get("code")
	if code == "" {
		a.logger.Error("no authorization code received from spotify", "error", q.Get("error"))
		http.Redirect(w, r, "/?error=no_code", http.StatusFound)
		return
	}

	if expected == "" || q.Get("state") != expected {
		a.logger.Error("oauth state mismatch", "error", shared.ErrInvalidState)
		http.Redirect(w, r, "/?error=invalid_state", http.StatusFound)
		return
	}

	if err := a.completeLogin(w, r, code); err != nil {
		a.logger.Error("failed to get access token from spotify", "error", err)
		http.Redirect(w, r, "/?error=token_failure", http.StatusFound)
		return
	}

	a.logger.Info("successfully authenticated with spotify")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) completeLogin(w http.ResponseWriter, r *http.Request, code string) error {
	if a.auth == nil {
		return shared.ErrMissingCredentials
	}
	if a.tokens == nil {
		return fmt.Errorf("%w: no token store configured", shared.ErrServiceUnavailable)
	}

	token, err := a.auth.Exchange(r.Context(), code)
	if err != nil {
		return err
	}

	sid, err := a.sessions.ID(w, r)
	if err != nil {
		return err
	}
	return a.tokens.Save(models.NewSessionToken(sid, models.Spotify, token))
}

// ValidatePlaylist checks a playlist URL and its size.
func (a *App) ValidatePlaylist(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlaylistRequest(r)
	if err != nil || req.PlaylistURL == "" {
		a.logger.Warn("no playlist url provided for validation")
		writeJSON(w, http.StatusBadRequest, map[string]any{"valid": false, "error": missingURLMessage})
		return
	}

	a.logger.Info("validating playlist url", "url", req.PlaylistURL)
	writeJSON(w, http.StatusOK, a.pipeline(r).Validate(r.Context(), req.PlaylistURL))
}

// AnalyzePlaylist fetches and analyzes a playlist.
func (a *App) AnalyzePlaylist(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlaylistRequest(r)
	if err != nil || req.PlaylistURL == "" {
		a.logger.Warn("no playlist url provided for analysis")
		writeJSON(w, http.StatusBadRequest, errorBody(missingURLMessage))
		return
	}

	a.logger.Info("analyzing playlist", "url", req.PlaylistURL)
	report, err := a.pipeline(r).Analyze(r.Context(), req.PlaylistURL)
	if err != nil {
		a.writeTaskError(w, "Error analyzing playlist", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"playlist": report.Playlist,
		"analysis": analysisBody(report.Analysis),
	})
}

// GetRecommendations fetches, analyzes and recommends tracks for a playlist.
func (a *App) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlaylistRequest(r)
	if errors.Is(err, errInvalidCount) {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err != nil || req.PlaylistURL == "" {
		a.logger.Warn("no playlist url provided for recommendations")
		writeJSON(w, http.StatusBadRequest, errorBody(missingURLMessage))
		return
	}

	a.logger.Info("getting recommendations for playlist", "url", req.PlaylistURL, "count", req.NumRecommendations)
	report, err := a.pipeline(r).Recommend(r.Context(), req.PlaylistURL, req.NumRecommendations)
	if err != nil {
		a.writeTaskError(w, "Error getting recommendations", err)
		return
	}

	recs := report.Recommendations
	if recs == nil {
		recs = []models.Track{}
	}
	misses := report.SkippedArtists
	if misses == nil {
		misses = []models.ArtistMiss{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"playlist":        report.Playlist,
		"analysis":        analysisBody(report.Analysis),
		"recommendations": recs,
		"skipped_artists": misses,
		"fallback":        report.Fallback,
	})
}

// NotFound answers unmatched routes.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.logger.Warn("404 error", "path", r.URL.Path)
	notFound(w, r)
}

func (a *App) writeTaskError(w http.ResponseWriter, prefix string, err error) {
	var short *tasks.NotEnoughTracksError
	switch {
	case errors.As(err, &short):
		writeJSON(w, http.StatusBadRequest, errorBody(short.Error()))
	case tasks.IsFetchError(err):
		a.logger.Error("failed to fetch playlist data", "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody(fetchFailedMessage))
	default:
		a.logger.Error(strings.ToLower(prefix), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(fmt.Sprintf("%s: %v", prefix, err)))
	}
}

// pipeline builds a pipeline over sources authenticated as the caller.
func (a *App) pipeline(r *http.Request) *tasks.Pipeline {
	ctx := r.Context()
	logger := shared.WithLogger(a.logger, "request_id", RequestID(ctx))

	sid, _ := a.sessions.Lookup(r)
	token := a.spotifyToken(ctx, sid)

	var onRefresh services.TokenRefreshFunc
	if token != nil {
		onRefresh = a.persistToken(sid)
	}

	sources := tasks.SourcesFor(ctx, a.factory, token, onRefresh)
	return tasks.NewPipeline(sources, a.config.Recommendations, logger)
}

func (a *App) hasToken(sid string) bool {
	if a.tokens == nil || sid == "" {
		return false
	}
	_, err := a.tokens.Get(sid, models.Spotify)
	return err == nil
}

// spotifyToken returns the session's Spotify token, refreshing it when it expires within a minute.
// A token that cannot be refreshed is deleted and the request proceeds anonymously.
func (a *App) spotifyToken(ctx context.Context, sid string) *oauth2.Token {
	if a.tokens == nil || sid == "" {
		return nil
	}

	record, err := a.tokens.Get(sid, models.Spotify)
	if err != nil {
		if !errors.Is(err, shared.ErrTokenNotFound) {
			a.logger.Error("failed to load spotify token", "error", err)
		} else {
			a.logger.Debug("no spotify token found in session")
		}
		return nil
	}

	token := record.Token()
	if !services.NeedsRefresh(token) {
		return token
	}

	a.logger.Debug("spotify token is expired, refreshing")
	var refreshed *oauth2.Token
	if a.auth == nil {
		err = shared.ErrMissingCredentials
	} else {
		refreshed, err = a.auth.Refresh(ctx, token)
	}
	if err != nil {
		a.logger.Warn("failed to refresh spotify token, removed from session", "error", err)
		if err := a.tokens.Delete(sid, models.Spotify); err != nil {
			a.logger.Error("failed to delete spotify token", "error", err)
		}
		return nil
	}

	a.persistToken(sid)(refreshed)
	a.logger.Info("successfully refreshed spotify token")
	return refreshed
}

func (a *App) persistToken(sid string) services.TokenRefreshFunc {
	return func(token *oauth2.Token) {
		if err := a.tokens.Save(models.NewSessionToken(sid, models.Spotify, token)); err != nil {
			a.logger.Error("failed to persist refreshed spotify token", "error", err)
		}
	}
}

// analysisBody renders a nil analysis as an empty object.
func analysisBody(a *models.Analysis) any {
	if a == nil {
		return struct{}{}
	}
	return a
}

var errInvalidCount = errors.New("num_recommendations must be an integer")

type playlistRequest struct {
	PlaylistURL        string
	NumRecommendations int
}

// decodePlaylistRequest reads {playlist_url, num_recommendations}. The count may be a number or a numeric string.
func decodePlaylistRequest(r *http.Request) (playlistRequest, error) {
	var raw struct {
		PlaylistURL string          `json:"playlist_url"`
		Count       json.RawMessage `json:"num_recommendations"`
	}

	var req playlistRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		return req, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	req.PlaylistURL = strings.TrimSpace(raw.PlaylistURL)

	if len(raw.Count) == 0 || string(raw.Count) == "null" {
		return req, nil
	}

	var f float64
	if err := json.Unmarshal(raw.Count, &f); err == nil {
		req.NumRecommendations = countFromFloat(f)
		return req, nil
	}

	var s string
	if err := json.Unmarshal(raw.Count, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err == nil || errors.Is(err, strconv.ErrRange) {
			req.NumRecommendations = n
			return req, nil
		}
	}
	return req, errInvalidCount
}

// countFromFloat truncates f toward zero, saturating at the int32 range so huge values still clamp to the maximum.
func countFromFloat(f float64) int {
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	default:
		return int(f)
	}
}

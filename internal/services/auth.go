package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// RefreshWindow is how close to expiry a token may get before it is refreshed.
const RefreshWindow = 60 * time.Second

// SpotifyScopes are requested during user login.
var SpotifyScopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserTopRead,
}

// TokenRefreshFunc receives a token after the token source replaced the previous one.
type TokenRefreshFunc func(token *oauth2.Token)

// SpotifyAuth holds the OAuth2 configuration for Spotify user login and app-only client credentials.
type SpotifyAuth struct {
	config      *oauth2.Config
	credentials *clientcredentials.Config
	httpClient  *http.Client
}

// NewSpotifyAuth creates a [SpotifyAuth] from config. httpClient is used for token requests and defaults to
// [http.DefaultClient].
func NewSpotifyAuth(cfg shared.SpotifyConfig, httpClient *http.Client) (*SpotifyAuth, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	endpoint := oauth2.Endpoint{AuthURL: spotifyauth.AuthURL, TokenURL: spotifyauth.TokenURL}
	return &SpotifyAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       SpotifyScopes,
			Endpoint:     endpoint,
		},
		credentials: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     endpoint.TokenURL,
		},
		httpClient: httpClient,
	}, nil
}

// WithEndpoint points both flows at a different authorization server.
func (a *SpotifyAuth) WithEndpoint(endpoint oauth2.Endpoint) *SpotifyAuth {
	a.config.Endpoint = endpoint
	a.credentials.TokenURL = endpoint.TokenURL
	return a
}

// AuthURL returns the Spotify authorization URL for user login.
func (a *SpotifyAuth) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (a *SpotifyAuth) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// Exchange trades an authorization code for a token.
func (a *SpotifyAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(a.context(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// NeedsRefresh reports whether token expires within [RefreshWindow]. Tokens without an expiry never do.
func NeedsRefresh(token *oauth2.Token) bool {
	if token == nil || token.Expiry.IsZero() {
		return false
	}
	return time.Until(token.Expiry) < RefreshWindow
}

// Refresh exchanges the token's refresh token for a new access token regardless of its expiry.
func (a *SpotifyAuth) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", shared.ErrRefreshFailed)
	}

	expired := *token
	expired.Expiry = time.Now().Add(-time.Minute)

	refreshed, err := a.config.TokenSource(a.context(ctx), &expired).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	return refreshed, nil
}

// Client returns an authenticated HTTP client for the Spotify Web API.
//
// With a user token, expired tokens are refreshed on demand and onRefresh is told about each new token.
// Without one, the app's client credentials are used, which is enough for public playlists and catalog lookups.
func (a *SpotifyAuth) Client(ctx context.Context, token *oauth2.Token, onRefresh TokenRefreshFunc) *http.Client {
	ctx = a.context(ctx)
	if token == nil {
		return a.credentials.Client(ctx)
	}

	ts := &refreshableTokenSource{
		base:      a.config.TokenSource(ctx, token),
		last:      token,
		onRefresh: onRefresh,
	}
	return oauth2.NewClient(ctx, ts)
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports when it hands out a new token.
type refreshableTokenSource struct {
	base      oauth2.TokenSource
	mu        sync.Mutex
	last      *oauth2.Token
	onRefresh TokenRefreshFunc
}

func (s *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := s.last == nil || s.last.AccessToken != token.AccessToken
	s.last = token
	cb := s.onRefresh
	s.mu.Unlock()

	if changed && cb != nil {
		cb(token)
	}
	return token, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthSpotify performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server on the redirect URI's address, opens the browser for user authorization, and
// saves the exchanged token to the config file.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	config, configPath, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	auth, err := services.NewSpotifyAuth(config.Credentials.Spotify, shared.NewHTTPClient(config.HTTP, nil))
	if err != nil {
		return fmt.Errorf("%w: set client_id and client_secret under [credentials.spotify]", err)
	}
	if r.endpoint != nil {
		auth.WithEndpoint(*r.endpoint)
	}

	token, err := r.doOAuth(ctx, callbackAddr(config), auth)
	if err != nil {
		return err
	}

	if err := config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: mixtape analyze <playlist-url>\n")

	return nil
}

// callbackAddr is the listen address for the redirect URI, falling back to the server address.
func callbackAddr(config *shared.Config) string {
	if u, err := url.Parse(config.Credentials.Spotify.RedirectURI); err == nil && u.Host != "" {
		if u.Port() == "" {
			return net.JoinHostPort(u.Hostname(), "80")
		}
		return u.Host
	}
	return config.Server.Addr()
}

// doOAuth serves the callback on addr until the first redirect arrives or the timeout elapses.
func (r *Runner) doOAuth(ctx context.Context, addr string, auth *services.SpotifyAuth) (*oauth2.Token, error) {
	state := shared.GenerateID()
	oauthHandler := server.NewOAuthHandler(auth.Exchange, state)

	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("callback server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := auth.AuthURL(state)
	r.logger.Info("waiting for spotify authorization", "callback", addr)
	r.writePlain("Opening browser for Spotify authorization...\n")
	if err := r.browser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL in your browser:\n\n%s\n\n", authURL)
	}

	select {
	case result := <-oauthHandler.Result():
		if err := result.Error(); err != nil {
			return nil, err
		}
		return result.Token, nil
	case <-time.After(r.authTimeout):
		return nil, fmt.Errorf("%w: no callback after %s", shared.ErrTimeout, r.authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

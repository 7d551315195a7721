package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv reads KEY=value pairs from the given .env files into the process environment.
//
// Missing files are ignored and variables already set in the environment are not overwritten.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides config values with environment variables when they are set.
func ApplyEnv(config *Config) {
	setString(&config.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	setString(&config.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	setString(&config.Credentials.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	setString(&config.Credentials.YouTube.ProxyURL, "YTMUSIC_PROXY_URL")
	setString(&config.Credentials.YouTube.APIKey, "YOUTUBE_API_KEY")
	setString(&config.Server.SecretKey, "SECRET_KEY")

	if v, ok := os.LookupEnv("DEBUG"); ok {
		if debug, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			config.Server.Debug = debug
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./playlistcake.db" {
			t.Errorf("expected database path ./playlistcake.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.API.BaseURL != "https://api.spotify.com/v1" {
			t.Errorf("unexpected api base url %s", config.API.BaseURL)
		}
		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if ttl, err := config.API.TTL(); err != nil || ttl != time.Hour {
			t.Errorf("expected cache ttl 1h, got %v (%v)", ttl, err)
		}
		if config.Credentials.Spotify.Token() != nil {
			t.Error("default config should carry no token")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}
		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}
		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[database]
path = "/custom/path.db"

[server]
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[log]
level = "debug"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Database.Path != "/custom/path.db" || config.Server.Port != 8080 {
			t.Errorf("unexpected config %+v", config)
		}
		if config.Server.Host != "127.0.0.1" {
			t.Errorf("expected missing values to keep defaults, got host %q", config.Server.Host)
		}
		if level, err := config.Log.ParseLevel(); err != nil || level != log.DebugLevel {
			t.Errorf("expected debug level, got %v (%v)", level, err)
		}
		if err := config.Credentials.Spotify.Validate(); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}
	})

	t.Run("LoadConfig Errors", func(t *testing.T) {
		dir := t.TempDir()
		if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}

		bad := filepath.Join(dir, "bad.toml")
		if err := os.WriteFile(bad, []byte("[server\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(bad); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Invalid Values", func(t *testing.T) {
		if _, err := (APIConfig{CacheTTL: "soon"}).TTL(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
		if _, err := (LogConfig{Level: "loud"}).ParseLevel(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
		if err := (SpotifyConfig{ClientID: "id"}).Validate(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("SaveConfig Round Trips Token", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
		config.Credentials.Spotify.SetToken(&oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry})
		config.Credentials.Spotify.SetToken(&oauth2.Token{AccessToken: "access2", Expiry: expiry})

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}
		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		tok := loaded.Credentials.Spotify.Token()
		if tok == nil || tok.AccessToken != "access2" || tok.RefreshToken != "refresh" || !tok.Expiry.Equal(expiry) {
			t.Errorf("unexpected token %+v", tok)
		}
	})
}

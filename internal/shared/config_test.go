package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Output.Dir != "Downloads" {
			t.Errorf("expected output dir Downloads, got %s", config.Output.Dir)
		}

		if config.Output.Quality != "320" {
			t.Errorf("expected quality 320, got %s", config.Output.Quality)
		}

		if config.Output.Format != "mp3" {
			t.Errorf("expected format mp3, got %s", config.Output.Format)
		}

		if config.Pacing.MinDelay != time.Second || config.Pacing.MaxDelay != 3*time.Second {
			t.Errorf("expected pacing 1s-3s, got %v-%v", config.Pacing.MinDelay, config.Pacing.MaxDelay)
		}

		if config.Resolver.OfficialSuffix != "official audio" {
			t.Errorf("expected official suffix, got %q", config.Resolver.OfficialSuffix)
		}

		if config.Cache.Enabled {
			t.Error("expected cache to be disabled by default")
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Cache.Path != defaultConfig.Cache.Path {
			t.Errorf("created config cache path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[output]
dir = "/music/inbox"
quality = "192"

[pacing]
min_delay = "2s"
max_delay = "4s"

[cache]
enabled = true
path = "/custom/cache.db"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Output.Dir != "/music/inbox" {
			t.Errorf("expected output dir /music/inbox, got %s", config.Output.Dir)
		}

		if config.Output.Format != "mp3" {
			t.Errorf("expected unset format to keep default mp3, got %s", config.Output.Format)
		}

		if config.Pacing.MaxDelay != 4*time.Second {
			t.Errorf("expected max delay 4s, got %v", config.Pacing.MaxDelay)
		}

		if !config.Cache.Enabled || config.Cache.Path != "/custom/cache.db" {
			t.Errorf("unexpected cache config: %+v", config.Cache)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("LoadConfig invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[output\ndir ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfigOrDefault missing file", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("expected defaults, got error %v", err)
		}
		if config.Output.Dir != "Downloads" {
			t.Errorf("expected default output dir, got %s", config.Output.Dir)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"OUTPUT_DIR":            "/from/legacy",
			"SONGDL_OUTPUT_DIR":     "/from/prefixed",
			"QUALITY":               "128",
			"SPOTIFY_CLIENT_ID":     "id",
			"SPOTIFY_CLIENT_SECRET": "secret",
		}
		config := DefaultConfig()
		config.ApplyEnv(func(k string) string { return env[k] })

		if config.Output.Dir != "/from/prefixed" {
			t.Errorf("expected prefixed variable to win, got %s", config.Output.Dir)
		}
		if config.Output.Quality != "128" {
			t.Errorf("expected quality 128, got %s", config.Output.Quality)
		}
		if config.Credentials.Spotify.ClientSecret != "secret" {
			t.Errorf("expected spotify secret from env, got %s", config.Credentials.Spotify.ClientSecret)
		}
	})

	t.Run("EnvSourceFile", func(t *testing.T) {
		env := map[string]string{"CSV_FILE": "liked.csv"}
		if got := EnvSourceFile(func(k string) string { return env[k] }); got != "liked.csv" {
			t.Errorf("expected liked.csv, got %q", got)
		}
		if got := EnvSourceFile(func(string) string { return "" }); got != "" {
			t.Errorf("expected empty source, got %q", got)
		}
	})

	t.Run("LoadEnvFile", func(t *testing.T) {
		dir := t.TempDir()
		if err := LoadEnvFile(filepath.Join(dir, ".env")); err != nil {
			t.Errorf("missing env file should be ignored, got %v", err)
		}

		path := filepath.Join(dir, ".env")
		if err := os.WriteFile(path, []byte("SONGDL_TEST_ENV_FILE=loaded\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("SONGDL_TEST_ENV_FILE") })

		if err := LoadEnvFile(path); err != nil {
			t.Fatalf("LoadEnvFile failed: %v", err)
		}
		if got := os.Getenv("SONGDL_TEST_ENV_FILE"); got != "loaded" {
			t.Errorf("expected variable from env file, got %q", got)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
			want   error
		}{
			{name: "bad quality", mutate: func(c *Config) { c.Output.Quality = "96" }, want: ErrInvalidQuality},
			{name: "best quality", mutate: func(c *Config) { c.Output.Quality = "best" }, want: nil},
			{name: "bad format", mutate: func(c *Config) { c.Output.Format = "wma" }, want: ErrInvalidConfig},
			{name: "empty dir", mutate: func(c *Config) { c.Output.Dir = " " }, want: ErrInvalidConfig},
			{name: "inverted pacing", mutate: func(c *Config) { c.Pacing.MaxDelay = 0 }, want: ErrInvalidConfig},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				err := config.Validate()
				if tt.want == nil {
					if err != nil {
						t.Errorf("expected no error, got %v", err)
					}
					return
				}
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}

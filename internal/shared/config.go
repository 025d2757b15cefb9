package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Qualities lists the accepted bitrate settings, in kbps, plus "best".
var Qualities = []string{"128", "192", "256", "320", "best"}

// Formats lists the audio containers the downloader may be asked for.
var Formats = []string{"mp3", "m4a", "opus", "flac", "wav"}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Output      OutputConfig      `toml:"output"`
	Resolver    ResolverConfig    `toml:"resolver"`
	Pacing      PacingConfig      `toml:"pacing"`
	YTDLP       YTDLPConfig       `toml:"ytdlp"`
	Cache       DatabaseConfig    `toml:"cache"`
	Credentials CredentialsConfig `toml:"credentials"`
	Log         LogConfig         `toml:"log"`
}

// OutputConfig controls where and how finished files are written.
type OutputConfig struct {
	Dir     string `toml:"dir"`
	Format  string `toml:"format"`
	Quality string `toml:"quality"`
}

// ResolverConfig tunes the tiered search.
type ResolverConfig struct {
	OfficialSuffix string `toml:"official_suffix"`
	DegradedRetry  bool   `toml:"degraded_retry"`
}

// PacingConfig bounds the randomized delay between network calls.
type PacingConfig struct {
	Enabled  bool          `toml:"enabled"`
	MinDelay time.Duration `toml:"min_delay"`
	MaxDelay time.Duration `toml:"max_delay"`
}

// YTDLPConfig configures the yt-dlp backend.
type YTDLPConfig struct {
	Executable        string        `toml:"executable"`
	Install           bool          `toml:"install"`
	Timeout           time.Duration `toml:"timeout"`
	SocketTimeout     float64       `toml:"socket_timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
}

// DatabaseConfig contains resolution cache connection settings.
type DatabaseConfig struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API client credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// LogConfig controls log verbosity and the TUI log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] when it does not.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads KEY=value pairs from an env file into the process environment.
//
// A missing file is not an error. Variables already set in the environment win.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config.
//
// SONGDL_-prefixed names take precedence over the bare OUTPUT_DIR / QUALITY names.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	lookup := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				return v
			}
		}
		return ""
	}

	if v := lookup("SONGDL_OUTPUT_DIR", "OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := lookup("SONGDL_QUALITY", "QUALITY"); v != "" {
		c.Output.Quality = v
	}
	if v := lookup("SONGDL_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := lookup("SONGDL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := lookup("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := lookup("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
}

// EnvSourceFile returns the default source path from SONGDL_CSV_FILE or CSV_FILE, if set.
func EnvSourceFile(getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, k := range []string{"SONGDL_CSV_FILE", "CSV_FILE"} {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// ValidQuality reports whether q is an accepted quality setting.
func ValidQuality(q string) bool {
	return slices.Contains(Qualities, strings.ToLower(strings.TrimSpace(q)))
}

// ValidFormat reports whether f is an accepted audio container.
func ValidFormat(f string) bool {
	return slices.Contains(Formats, strings.ToLower(strings.TrimSpace(f)))
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("%w: output.dir must not be empty", ErrInvalidConfig)
	}
	if !ValidQuality(c.Output.Quality) {
		return fmt.Errorf("%w: %q (choose one of %s)", ErrInvalidQuality, c.Output.Quality, strings.Join(Qualities, ", "))
	}
	if !ValidFormat(c.Output.Format) {
		return fmt.Errorf("%w: output.format %q (choose one of %s)", ErrInvalidConfig, c.Output.Format, strings.Join(Formats, ", "))
	}
	if c.Pacing.MinDelay < 0 || c.Pacing.MaxDelay < c.Pacing.MinDelay {
		return fmt.Errorf("%w: pacing delays must satisfy 0 <= min_delay <= max_delay", ErrInvalidConfig)
	}
	if c.YTDLP.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: ytdlp.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

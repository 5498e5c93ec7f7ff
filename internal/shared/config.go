package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Twitch   TwitchConfig   `toml:"twitch"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Refresh  RefreshConfig  `toml:"refresh"`
	Search   SearchConfig   `toml:"search"`
	Cache    CacheConfig    `toml:"cache"`
}

// TwitchConfig contains the OAuth client registration and Helix endpoints.
type TwitchConfig struct {
	ClientID          string   `toml:"client_id"`
	RedirectURI       string   `toml:"redirect_uri"`
	Scopes            []string `toml:"scopes"`
	APIURL            string   `toml:"api_url"`
	AuthURL           string   `toml:"auth_url"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// RefreshConfig controls the followed-channel auto-refresh loop.
type RefreshConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	BackoffSeconds  int `toml:"backoff_seconds"`
	OfflinePageSize int `toml:"offline_page_size"`
}

// SearchConfig controls channel search suggestions.
type SearchConfig struct {
	DebounceMS     int `toml:"debounce_ms"`
	MinQueryLength int `toml:"min_query_length"`
	Limit          int `toml:"limit"`
}

// CacheConfig configures the optional redis snapshot cache. An empty URL disables it.
type CacheConfig struct {
	RedisURL   string `toml:"redis_url"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// Interval returns the nominal refresh interval.
func (c RefreshConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Backoff returns the delay used after a failed refresh.
func (c RefreshConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

// Debounce returns the search debounce delay.
func (c SearchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// TTL returns the snapshot cache expiry.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate reports missing values that would make the app unusable.
func (c *Config) Validate() error {
	if c.Twitch.APIURL == "" || c.Twitch.AuthURL == "" {
		return fmt.Errorf("%w: twitch api_url and auth_url are required", ErrInvalidConfig)
	}
	if c.Refresh.IntervalSeconds <= 0 || c.Refresh.BackoffSeconds <= 0 {
		return fmt.Errorf("%w: refresh intervals must be positive", ErrInvalidConfig)
	}
	if c.Refresh.OfflinePageSize <= 0 {
		return fmt.Errorf("%w: offline_page_size must be positive", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("%w: server port must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
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
		return fmt.Errorf("config file already exists at %s: %w", path, os.ErrExist)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Package config loads application configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/areyoudear/stageside-sub001/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Taste     TasteConfig     `yaml:"taste"`
	Sources    SourcesConfig    `yaml:"sources"`
	Ticketing  TicketingConfig  `yaml:"ticketing"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Backup     BackupConfig     `yaml:"backup"`
	Logging    logging.Config   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// TasteConfig tunes the matching engine.
type TasteConfig struct {
	// AffinityPath points at an optional YAML genre affinity table. When
	// empty or missing, the built-in table is used.
	AffinityPath string `yaml:"affinity_path"`
	// GroupMatchFloor is the minimum individual score for a member to count
	// as matched in group scoring.
	GroupMatchFloor float64 `yaml:"group_match_floor"`
}

// SourcesConfig holds streaming service credentials.
type SourcesConfig struct {
	Spotify SpotifyConfig `yaml:"spotify"`
	LastFM  LastFMConfig  `yaml:"lastfm"`
	Deezer  DeezerConfig  `yaml:"deezer"`
}

// SpotifyConfig holds Spotify OAuth application credentials.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// LastFMConfig holds the Last.fm API key.
type LastFMConfig struct {
	APIKey string `yaml:"api_key"`
}

// DeezerConfig holds Deezer settings. The public API needs no key.
type DeezerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TicketingConfig holds the concert listings provider settings.
type TicketingConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// EncryptionConfig holds the key protecting stored service tokens. When
// empty, a key is generated and persisted next to the database.
type EncryptionConfig struct {
	Key string `yaml:"key"`
}

// BackupConfig holds database backup scheduling settings.
type BackupConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path"`
	IntervalHours  int    `yaml:"interval_hours"`
	RetentionCount int    `yaml:"retention_count"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			BasePath: "/",
		},
		Database: DatabaseConfig{
			Path: "/data/stageside.db",
		},
		Taste: TasteConfig{
			GroupMatchFloor: 0,
		},
		Ticketing: TicketingConfig{
			BaseURL: "https://api.ticketfeed.example.com",
		},
		Backup: BackupConfig{
			IntervalHours:  24,
			RetentionCount: 7,
		},
		Logging: logging.Default(),
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("STAGESIDE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("STAGESIDE_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("STAGESIDE_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("STAGESIDE_AFFINITY_PATH"); v != "" {
		c.Taste.AffinityPath = v
	}
	if v := os.Getenv("STAGESIDE_GROUP_MATCH_FLOOR"); v != "" {
		if floor, err := strconv.ParseFloat(v, 64); err == nil {
			c.Taste.GroupMatchFloor = floor
		}
	}
	if v := os.Getenv("STAGESIDE_SPOTIFY_CLIENT_ID"); v != "" {
		c.Sources.Spotify.ClientID = v
	}
	if v := os.Getenv("STAGESIDE_SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Sources.Spotify.ClientSecret = v
	}
	if v := os.Getenv("STAGESIDE_LASTFM_API_KEY"); v != "" {
		c.Sources.LastFM.APIKey = v
	}
	if v := os.Getenv("STAGESIDE_TICKETING_BASE_URL"); v != "" {
		c.Ticketing.BaseURL = v
	}
	if v := os.Getenv("STAGESIDE_TICKETING_API_KEY"); v != "" {
		c.Ticketing.APIKey = v
	}
	if v := os.Getenv("STAGESIDE_ENCRYPTION_KEY"); v != "" {
		c.Encryption.Key = v
	}
	if v := os.Getenv("STAGESIDE_BACKUP_ENABLED"); v != "" {
		c.Backup.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("STAGESIDE_BACKUP_PATH"); v != "" {
		c.Backup.Path = v
	}
	if v := os.Getenv("STAGESIDE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STAGESIDE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("STAGESIDE_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Taste.GroupMatchFloor < 0 {
		return fmt.Errorf("group match floor must not be negative: %v", c.Taste.GroupMatchFloor)
	}
	if c.Backup.Enabled && c.Backup.IntervalHours < 1 {
		return fmt.Errorf("backup interval must be at least 1 hour: %d", c.Backup.IntervalHours)
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}

// Package config loads the application configuration from a YAML file.
// Every field has a default, so an absent file yields a working local setup.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

// Storage drivers
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the top-level application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig controls the HTTP shell and the admin port
type ServerConfig struct {
	HTTPAddr  string `yaml:"http_addr"`
	AdminPort int    `yaml:"admin_port"`
	// BaseURL is the public address used in og:url
	BaseURL  string `yaml:"base_url"`
	SiteName string `yaml:"site_name"`
}

// DataConfig controls where records come from and how they are fetched
type DataConfig struct {
	SourceURL      string        `yaml:"source_url"`
	WikiURL        string        `yaml:"wiki_url"`
	WikiEnabled    bool          `yaml:"wiki_enabled"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	MaxAttempts    int           `yaml:"max_attempts"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
}

// StorageConfig selects the local persistence backend
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	RedisAddr string `yaml:"redis_addr"`
}

// SyncConfig controls background loading
type SyncConfig struct {
	EssentialTypes []codex.DataType `yaml:"essential_types"`
	Stagger        time.Duration    `yaml:"stagger"`
	CheckInterval  time.Duration    `yaml:"check_interval"`
	StaleAfter     time.Duration    `yaml:"stale_after"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file, fills in defaults and validates
// the result
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("config file %s not found", path)
		}
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, fills in defaults and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to parse config")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Server.AdminPort == 0 {
		c.Server.AdminPort = 50051
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Server.SiteName == "" {
		c.Server.SiteName = "Primal Fear Dex"
	}
	if c.Data.SourceURL == "" {
		c.Data.SourceURL = "http://localhost:8081/data"
	}
	if c.Data.WikiURL == "" {
		c.Data.WikiURL = "https://primalfear.wiki.gg"
	}
	if c.Data.CacheTTL <= 0 {
		c.Data.CacheTTL = 5 * time.Minute
	}
	if c.Data.MaxAttempts <= 0 {
		c.Data.MaxAttempts = 3
	}
	if c.Data.RequestTimeout <= 0 {
		c.Data.RequestTimeout = 10 * time.Second
	}
	if c.Data.RetryDelay <= 0 {
		c.Data.RetryDelay = time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = "localhost:6379"
	}
	if len(c.Sync.EssentialTypes) == 0 {
		c.Sync.EssentialTypes = []codex.DataType{codex.DataTypeCreatures, codex.DataTypeItems}
	}
	if c.Sync.Stagger <= 0 {
		c.Sync.Stagger = 2 * time.Second
	}
	if c.Sync.CheckInterval <= 0 {
		c.Sync.CheckInterval = time.Hour
	}
	if c.Sync.StaleAfter <= 0 {
		c.Sync.StaleAfter = 7 * 24 * time.Hour
	}
	if c.Log.Format == "" {
		c.Log.Format = LogFormatText
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration for values no component can run with
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("server.http_addr", c.Server.HTTPAddr, vb)
	errors.ValidateRange("server.admin_port", c.Server.AdminPort, 0, 65535, vb)
	errors.ValidateURL("server.base_url", c.Server.BaseURL, vb)
	errors.ValidateURL("data.source_url", c.Data.SourceURL, vb)
	if c.Data.WikiEnabled {
		errors.ValidateURL("data.wiki_url", c.Data.WikiURL, vb)
	}
	errors.ValidateRange("data.max_attempts", c.Data.MaxAttempts, 1, 10, vb)
	errors.ValidateEnum("storage.driver", c.Storage.Driver, []string{StorageMemory, StorageRedis}, vb)
	for _, t := range c.Sync.EssentialTypes {
		if !t.Valid() {
			vb.Fieldf("sync.essential_types", "unknown data type %q", t)
		}
	}
	errors.ValidateEnum("log.format", c.Log.Format, []string{LogFormatText, LogFormatJSON}, vb)
	errors.ValidateEnum("log.level", c.Log.Level, []string{"debug", "info", "warn", "error"}, vb)
	return vb.Build()
}

// BackgroundTypes returns the data types not loaded during bootstrap
func (c *Config) BackgroundTypes() []codex.DataType {
	essential := make(map[codex.DataType]bool, len(c.Sync.EssentialTypes))
	for _, t := range c.Sync.EssentialTypes {
		essential[t] = true
	}

	var out []codex.DataType
	for _, t := range codex.AllDataTypes() {
		if !essential[t] {
			out = append(out, t)
		}
	}
	return out
}

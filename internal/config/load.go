package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bot      BotConfig       `json:"bot" yaml:"bot"`
	Store    StoreConfig     `json:"store" yaml:"store"`
	Engine   EngineConfig    `json:"engine" yaml:"engine"`
	Network  NetworkConfig   `json:"network" yaml:"network"`
	Logging  LoggingConfig   `json:"logging" yaml:"logging"`
	Metrics  MetricsConfig   `json:"metrics" yaml:"metrics"`
	Notify   NotifyConfig    `json:"notify" yaml:"notify"`
	Defaults CommunityConfig `json:"defaults" yaml:"defaults"`
}

type BotConfig struct {
	Token    string `json:"token" yaml:"token"`
	ClientID string `json:"client_id" yaml:"client_id"`
}

type StoreConfig struct {
	// Driver is one of sqlite, redis or memory.
	Driver   string   `json:"driver" yaml:"driver"`
	Path     string   `json:"path" yaml:"path"`
	RedisURL string   `json:"redis_url" yaml:"redis_url"`
	CacheTTL Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CacheCap int      `json:"cache_size" yaml:"cache_size"`
}

type EngineConfig struct {
	DecayTick           Duration `json:"decay_tick" yaml:"decay_tick"`
	AuditDelay          Duration `json:"audit_delay" yaml:"audit_delay"`
	AuditMaxAge         Duration `json:"audit_max_age" yaml:"audit_max_age"`
	AutoUnlockAfter     Duration `json:"auto_unlock_after" yaml:"auto_unlock_after"`
	LockdownConcurrency int      `json:"lockdown_concurrency" yaml:"lockdown_concurrency"`
	IgnoreBotExecutors  bool     `json:"ignore_bot_executors" yaml:"ignore_bot_executors"`
}

type NetworkConfig struct {
	HTTPPoolSize      int      `json:"http_pool_size" yaml:"http_pool_size"`
	APIBaseURL        string   `json:"api_base_url" yaml:"api_base_url"`
	RequestsPerSecond float64  `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int      `json:"burst" yaml:"burst"`
	RetryAttempts     int      `json:"retry_attempts" yaml:"retry_attempts"`
	RetryBackoff      Duration `json:"retry_backoff" yaml:"retry_backoff"`
}

type LoggingConfig struct {
	Level        string `json:"level" yaml:"level"`
	Path         string `json:"path" yaml:"path"`
	ForensicPath string `json:"forensic_path" yaml:"forensic_path"`
	MaxSizeMB    int    `json:"max_size_mb" yaml:"max_size_mb"`
}

type MetricsConfig struct {
	Listen string `json:"listen" yaml:"listen"`
}

type NotifyConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
}

// Load reads a JSON or YAML config file over the defaults, then applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	// An invalid ladder is replaced, so the config stays usable.
	normErr := cfg.Defaults.Normalize()

	return cfg, normErr
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyEnv(cfg *Config) {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if clientID := os.Getenv("CLIENT_ID"); clientID != "" {
		cfg.Bot.ClientID = clientID
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Store.RedisURL = redisURL
		if cfg.Store.Driver == "" || cfg.Store.Driver == "sqlite" {
			cfg.Store.Driver = "redis"
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:   "sqlite",
			Path:     "threatguard.db",
			CacheTTL: Duration(5 * time.Second),
			CacheCap: 1024,
		},
		Engine: EngineConfig{
			DecayTick:           Duration(time.Second),
			AuditDelay:          Duration(750 * time.Millisecond),
			AuditMaxAge:         Duration(15 * time.Second),
			AutoUnlockAfter:     Duration(10 * time.Minute),
			LockdownConcurrency: 4,
		},
		Network: NetworkConfig{
			HTTPPoolSize:      8,
			APIBaseURL:        "https://discord.com/api/v10",
			RequestsPerSecond: 40,
			Burst:             10,
			RetryAttempts:     3,
			RetryBackoff:      Duration(250 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:        "info",
			Path:         "threatguard.log",
			ForensicPath: "threats.jsonl",
			MaxSizeMB:    50,
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
		},
		Defaults: *DefaultCommunityConfig(),
	}
}

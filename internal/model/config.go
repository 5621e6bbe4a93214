package model

import "time"

// Config is the complete bsdetector configuration
type Config struct {
	Analysis    AnalysisConfig            `yaml:"analysis" mapstructure:"analysis"`
	Providers   map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	HTTP        HTTPConfig                `yaml:"http" mapstructure:"http"`
	Fetch       FetchConfig               `yaml:"fetch" mapstructure:"fetch"`
	Storage     StorageConfig             `yaml:"storage" mapstructure:"storage"`
	Remote      RemoteConfig              `yaml:"remote" mapstructure:"remote"`
	Session     SessionConfig             `yaml:"session" mapstructure:"session"`
	Server      ServerConfig              `yaml:"server" mapstructure:"server"`
	Concurrency ConcurrencyConfig         `yaml:"concurrency" mapstructure:"concurrency"`
	Log         LogConfig                 `yaml:"log" mapstructure:"log"`
}

// AnalysisConfig controls how claims are analyzed
type AnalysisConfig struct {
	Mode     string `yaml:"mode" mapstructure:"mode"`           // voter or professional
	Model    string `yaml:"model" mapstructure:"model"`         // preferred model id (optional)
	ProxyURL string `yaml:"proxy_url" mapstructure:"proxy_url"` // analyze endpoint; empty = call providers directly
	MaxChars int    `yaml:"max_chars" mapstructure:"max_chars"` // content is truncated beyond this
}

// HTTPConfig holds outbound HTTP settings
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// FetchConfig controls article retrieval for analyze --url
type FetchConfig struct {
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes      int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
	RespectRobots bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// StorageConfig selects the local key-value backend
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // memory, file, sqlite
	Path    string `yaml:"path" mapstructure:"path"`
}

// RemoteConfig points at the shared PostgreSQL database
type RemoteConfig struct {
	DSN string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// SessionConfig identifies the signed-in user; empty means no session
type SessionConfig struct {
	UserID string `yaml:"user_id,omitempty" mapstructure:"user_id"`
}

// ServerConfig configures the analyze proxy server
type ServerConfig struct {
	Addr              string  `yaml:"addr" mapstructure:"addr"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers           int     `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // per provider
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Mode:     string(ModeVoter),
			MaxChars: 20000,
		},
		Providers: map[string]ProviderConfig{},
		HTTP: HTTPConfig{
			Timeout: 60 * time.Second,
		},
		Fetch: FetchConfig{
			UserAgent:     "bsdetector/0.1 (+https://github.com/ppiankov/bsdetector)",
			MaxBytes:      2_000_000,
			RespectRobots: true,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "", // resolved to ~/.bsdetector/store
		},
		Server: ServerConfig{
			Addr:              ":8787",
			RequestsPerSecond: 1,
			Burst:             5,
		},
		Concurrency: ConcurrencyConfig{
			Workers:           4,
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

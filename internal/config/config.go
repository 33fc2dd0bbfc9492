package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBindAddr       = "127.0.0.1:18790"
	DefaultTopN           = 10
	DefaultEntropyStep    = 100
	DefaultMaxUploadBytes = 5 * 1024 * 1024
)

// AnalysisConfig controls the text statistics engine and the session defaults.
type AnalysisConfig struct {
	TopN        int `yaml:"top_n"`
	EntropyStep int `yaml:"entropy_step"`

	// SimulatedDelayMS delays every run before computing. The browser demo this
	// tool replaces waited 1500ms; 0 disables the delay.
	SimulatedDelayMS int `yaml:"simulated_delay_ms"`

	// DefaultMethods are preselected in new sessions.
	DefaultMethods []string `yaml:"default_methods"`

	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// InputFile is loaded into the session on startup and reloaded on change.
	InputFile string `yaml:"input_file"`

	// Schedule is a 5-field cron expression. When set, the session is
	// re-analyzed each time it comes due.
	Schedule string `yaml:"schedule"`
}

// CORSConfig configures the gateway CORS middleware.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// RateLimitConfig configures per-client token buckets on the gateway.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	BurstSize         int  `yaml:"burst_size"`
}

// OTelConfig mirrors otel.Config so config stays free of SDK imports.
type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

type Config struct {
	HomeDir string `yaml:"-"`

	BindAddr string `yaml:"bind_addr"`
	LogLevel string `yaml:"log_level"`

	// AuthToken, when set, is required as a bearer token on /api and /ws.
	AuthToken string `yaml:"auth_token"`

	// AllowOrigins lists Origin patterns accepted for browser WebSocket
	// connections. Empty means same-origin only.
	AllowOrigins []string `yaml:"allow_origins"`

	Analysis  AnalysisConfig  `yaml:"analysis"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	OTel      OTelConfig      `yaml:"otel"`

	// Loaded reports whether config.yaml existed.
	Loaded bool `yaml:"-"`
}

// ConfigPath returns the path to config.yaml within the given home directory.
func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}

// Fingerprint returns a stable hash of the settings that change behaviour.
func (c Config) Fingerprint() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "bind=%s|log=%s|top=%d|step=%d|delay=%d|methods=%v|schedule=%s|origins=%v",
		c.BindAddr, c.LogLevel, c.Analysis.TopN, c.Analysis.EntropyStep,
		c.Analysis.SimulatedDelayMS, c.Analysis.DefaultMethods, c.Analysis.Schedule, c.AllowOrigins)
	return fmt.Sprintf("cfg-%x", h.Sum64())
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BindAddr: DefaultBindAddr,
		LogLevel: "info",
		Analysis: AnalysisConfig{
			TopN:           DefaultTopN,
			EntropyStep:    DefaultEntropyStep,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			BurstSize:         20,
		},
	}
}

func HomeDir() string {
	if override := os.Getenv("TEXTLENS_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".textlens")
}

// Load reads config.yaml from HomeDir, applies env overrides and fills in
// defaults. A missing file is not an error.
func Load() (Config, error) {
	return LoadFrom(HomeDir())
}

// LoadFrom is Load for an explicit home directory.
func LoadFrom(homeDir string) (Config, error) {
	cfg := Default()
	cfg.HomeDir = homeDir

	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		return cfg, fmt.Errorf("create textlens home: %w", err)
	}

	data, err := os.ReadFile(ConfigPath(cfg.HomeDir))
	switch {
	case err == nil:
		cfg.Loaded = true
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config.yaml: %w", err)
			}
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("read config.yaml: %w", err)
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, nil
}

// WriteDefault writes the built-in configuration to config.yaml unless one exists.
func WriteDefault(homeDir string) (string, error) {
	path := ConfigPath(homeDir)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return "", fmt.Errorf("create textlens home: %w", err)
	}
	cfg := Default()
	cfg.Analysis.DefaultMethods = []string{"frequency", "entropy"}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config.yaml: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("write config.yaml: %w", err)
	}
	return path, nil
}

func normalize(cfg *Config) {
	if strings.TrimSpace(cfg.BindAddr) == "" {
		cfg.BindAddr = DefaultBindAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Analysis.TopN <= 0 {
		cfg.Analysis.TopN = DefaultTopN
	}
	if cfg.Analysis.EntropyStep <= 0 {
		cfg.Analysis.EntropyStep = DefaultEntropyStep
	}
	if cfg.Analysis.SimulatedDelayMS < 0 {
		cfg.Analysis.SimulatedDelayMS = 0
	}
	if cfg.Analysis.MaxUploadBytes <= 0 {
		cfg.Analysis.MaxUploadBytes = DefaultMaxUploadBytes
	}
	cfg.Analysis.Schedule = strings.TrimSpace(cfg.Analysis.Schedule)
	methods := cfg.Analysis.DefaultMethods[:0:0]
	for _, m := range cfg.Analysis.DefaultMethods {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			methods = append(methods, m)
		}
	}
	cfg.Analysis.DefaultMethods = methods
	if cfg.Analysis.InputFile != "" && !filepath.IsAbs(cfg.Analysis.InputFile) {
		cfg.Analysis.InputFile = filepath.Join(cfg.HomeDir, cfg.Analysis.InputFile)
	}
}

func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv("TEXTLENS_BIND_ADDR"); raw != "" {
		cfg.BindAddr = raw
	}
	if raw := os.Getenv("TEXTLENS_LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("TEXTLENS_AUTH_TOKEN"); raw != "" {
		cfg.AuthToken = strings.TrimSpace(raw)
	}
	if raw := os.Getenv("TEXTLENS_DELAY_MS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			cfg.Analysis.SimulatedDelayMS = v
		}
	}
	if raw := os.Getenv("TEXTLENS_INPUT"); raw != "" {
		cfg.Analysis.InputFile = raw
	}
	if raw := os.Getenv("TEXTLENS_SCHEDULE"); raw != "" {
		cfg.Analysis.Schedule = raw
	}
	if raw := os.Getenv("TEXTLENS_METHODS"); raw != "" {
		cfg.Analysis.DefaultMethods = strings.Split(raw, ",")
	}
	if raw := os.Getenv("TEXTLENS_OTEL_EXPORTER"); raw != "" {
		cfg.OTel.Enabled = raw != "none"
		cfg.OTel.Exporter = raw
	}
}

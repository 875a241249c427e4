package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ForceFallbackEnv forces fallback-only relevance scoring when set to a true value.
const ForceFallbackEnv = "CAFEMATCH_FORCE_FALLBACK"

// Config holds the cafematch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Relevance RelevanceConfig `yaml:"relevance"`
	Fallback  FallbackConfig  `yaml:"fallback"`
	Search    SearchConfig    `yaml:"search"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds operator API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RelevanceConfig holds the remote relevance service settings.
type RelevanceConfig struct {
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"` // nil = 0.3
	MaxTokens   int      `yaml:"max_tokens"`  // 0 = provider default
	TimeoutSec  int      `yaml:"timeout_sec"` // 0 = no per-call timeout
}

// FallbackConfig holds the local heuristic policy.
type FallbackConfig struct {
	Force               bool  `yaml:"force"`
	OnMalformed         *bool `yaml:"on_malformed"` // default true
	OnUnavailable       bool  `yaml:"on_unavailable"`
	OnMissingCredential bool  `yaml:"on_missing_credential"`
	CandidateLimit      int   `yaml:"candidate_limit"`
}

// SearchConfig holds request sequencer settings.
type SearchConfig struct {
	DebounceMS     *int `yaml:"debounce_ms"` // default 800, 0 disables debouncing
	MaxSessions    int  `yaml:"max_sessions"`
	SessionIdleSec int  `yaml:"session_idle_sec"` // sessions unused this long are swept
}

// Debounce returns the debounce window. Unset means the 800ms default.
func (c SearchConfig) Debounce() time.Duration {
	if c.DebounceMS == nil {
		return 800 * time.Millisecond
	}
	return time.Duration(*c.DebounceMS) * time.Millisecond
}

// SamplingTemperature returns the configured temperature (default 0.3).
func (c RelevanceConfig) SamplingTemperature() float32 {
	if c.Temperature == nil {
		return 0.3
	}
	return *c.Temperature
}

// RecoverMalformed reports whether malformed responses fall back (default true).
func (c FallbackConfig) RecoverMalformed() bool {
	return c.OnMalformed == nil || *c.OnMalformed
}

// CatalogConfig holds the café catalog location.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig holds relevance cache settings. Empty Addrs disables the cache.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // redis (default)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expands ${VAR} references and applies
// defaults, env overrides and validation.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Relevance.BaseURL == "" {
		c.Relevance.BaseURL = "https://api.openai.com/v1"
	}
	if c.Relevance.Model == "" {
		c.Relevance.Model = "gpt-3.5-turbo"
	}
	if c.Relevance.Temperature == nil {
		v := float32(0.3)
		c.Relevance.Temperature = &v
	}
	if c.Fallback.OnMalformed == nil {
		v := true
		c.Fallback.OnMalformed = &v
	}
	if c.Fallback.CandidateLimit <= 0 {
		c.Fallback.CandidateLimit = 10
	}
	if c.Search.DebounceMS == nil {
		v := 800
		c.Search.DebounceMS = &v
	}
	if c.Search.MaxSessions <= 0 {
		c.Search.MaxSessions = 1000
	}
	if c.Search.SessionIdleSec <= 0 {
		c.Search.SessionIdleSec = 1800
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "data/cafes.json"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "redis"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// applyEnvOverrides lets the force-fallback flag be flipped without editing YAML.
func (c *Config) applyEnvOverrides() error {
	raw, ok := os.LookupEnv(ForceFallbackEnv)
	if !ok || raw == "" {
		return nil
	}
	force, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s must be a boolean, got %q", ForceFallbackEnv, raw)
	}
	c.Fallback.Force = force
	return nil
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if t := c.Relevance.SamplingTemperature(); t < 0 || t > 2 {
		return fmt.Errorf("relevance.temperature must be between 0 and 2, got %v", t)
	}
	if c.Relevance.TimeoutSec < 0 {
		return fmt.Errorf("relevance.timeout_sec must not be negative, got %d", c.Relevance.TimeoutSec)
	}
	if c.Search.DebounceMS != nil && *c.Search.DebounceMS < 0 {
		return fmt.Errorf("search.debounce_ms must not be negative, got %d", *c.Search.DebounceMS)
	}
	switch c.Cache.Driver {
	case "redis":
		// ok
	default:
		return fmt.Errorf("cache.driver must be \"redis\", got %q", c.Cache.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

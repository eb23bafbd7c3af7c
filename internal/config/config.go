// Package config loads daydream settings from a YAML file and DAYDREAM_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. DAYDREAM_STORE_BACKEND.
const EnvPrefix = "DAYDREAM"

// SearchPaths are tried in order when no config file is given.
var SearchPaths = []string{"daydream.yaml", filepath.Join(".daydream", "config.yaml")}

// Store backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Ideator providers. ProviderAuto picks openai when a key or proxy is set.
const (
	ProviderAuto    = "auto"
	ProviderOpenAI  = "openai"
	ProviderOffline = "offline"
)

type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	LLM    LLMConfig    `mapstructure:"llm" yaml:"llm"`
	UI     UIConfig     `mapstructure:"ui" yaml:"ui"`
	Proxy  ProxyConfig  `mapstructure:"proxy" yaml:"proxy"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	CORSOrigin  string `mapstructure:"cors_origin" yaml:"cors_origin"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`

	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	Prefix        string `mapstructure:"prefix" yaml:"prefix"`
	// TTL is a duration string; empty keeps records forever.
	TTL  string `mapstructure:"ttl" yaml:"ttl"`
	Lock bool   `mapstructure:"lock" yaml:"lock"`

	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// EncryptionKey is a base64 32-byte AES key; empty disables encryption.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	Metrics       bool   `mapstructure:"metrics" yaml:"metrics"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	ProxyURL    string  `mapstructure:"proxy_url" yaml:"proxy_url"`
	ProxyToken  string  `mapstructure:"proxy_token" yaml:"proxy_token"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Model       string  `mapstructure:"model" yaml:"model"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	Timeout     string  `mapstructure:"timeout" yaml:"timeout"`
}

type UIConfig struct {
	MinCycles       int      `mapstructure:"min_cycles" yaml:"min_cycles"`
	DefaultPrompts  []string `mapstructure:"default_prompts" yaml:"default_prompts"`
	LoadingMessages []string `mapstructure:"loading_messages" yaml:"loading_messages"`
	WakingMessages  []string `mapstructure:"waking_messages" yaml:"waking_messages"`
}

type ProxyConfig struct {
	Addr       string `mapstructure:"addr" yaml:"addr"`
	Token      string `mapstructure:"token" yaml:"token"`
	Upstream   string `mapstructure:"upstream" yaml:"upstream"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	RateLimit  int    `mapstructure:"rate_limit" yaml:"rate_limit"`
	Timeout    string `mapstructure:"timeout" yaml:"timeout"`
	CORSOrigin string `mapstructure:"cors_origin" yaml:"cors_origin"`
}

// Default returns the built-in settings.
func Default() *Config {
	policy := domain.DefaultPolicy()
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":2112",
			CORSOrigin:  "*",
		},
		Store: StoreConfig{
			Backend:    BackendFile,
			Path:       filepath.Join(".daydream", "sessions"),
			RedisAddr:  "localhost:6379",
			Prefix:     "daydream:session:",
			SQLitePath: filepath.Join(".daydream", "sessions.db"),
		},
		LLM: LLMConfig{
			Provider:    ProviderAuto,
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   200,
			Temperature: 0.3,
			Timeout:     "30s",
		},
		UI: UIConfig{
			MinCycles:       policy.MinCycles,
			DefaultPrompts:  policy.DefaultPrompts,
			LoadingMessages: policy.LoadingMessages,
			WakingMessages:  policy.WakingMessages,
		},
		Proxy: ProxyConfig{
			Addr:       ":10000",
			Upstream:   "https://api.openai.com/v1/chat/completions",
			RateLimit:  60,
			Timeout:    "10s",
			CORSOrigin: "*",
		},
	}
}

// Load reads path, or the first of SearchPaths that exists when path is
// empty, and applies environment overrides. A missing default file is not an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Variable names the original proxy and front-end read.
	_ = v.BindEnv("llm.api_key", "DAYDREAM_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("proxy.api_key", "DAYDREAM_PROXY_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("proxy.token", "DAYDREAM_PROXY_TOKEN", "PROXY_TOKEN")
	_ = v.BindEnv("proxy.rate_limit", "DAYDREAM_PROXY_RATE_LIMIT", "OPENAI_RATE_LIMIT")
	_ = v.BindEnv("proxy.cors_origin", "DAYDREAM_PROXY_CORS_ORIGIN", "CORS_ALLOW_ORIGIN")

	cfg := Default()
	setDefaults(v, cfg)
	// Lists are replaced, not merged; Policy falls back to the built-ins.
	cfg.UI.DefaultPrompts = nil
	cfg.UI.LoadingMessages = nil
	cfg.UI.WakingMessages = nil

	if path == "" {
		path = findConfig()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfig() string {
	for _, p := range SearchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.metrics_addr", cfg.Server.MetricsAddr)
	v.SetDefault("server.cors_origin", cfg.Server.CORSOrigin)

	v.SetDefault("store.backend", cfg.Store.Backend)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.redis_addr", cfg.Store.RedisAddr)
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.prefix", cfg.Store.Prefix)
	v.SetDefault("store.ttl", "")
	v.SetDefault("store.lock", false)
	v.SetDefault("store.sqlite_path", cfg.Store.SQLitePath)
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.metrics", false)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.proxy_url", "")
	v.SetDefault("llm.proxy_token", "")
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)

	v.SetDefault("ui.min_cycles", cfg.UI.MinCycles)

	v.SetDefault("proxy.addr", cfg.Proxy.Addr)
	v.SetDefault("proxy.upstream", cfg.Proxy.Upstream)
	v.SetDefault("proxy.timeout", cfg.Proxy.Timeout)
	v.SetDefault("proxy.rate_limit", cfg.Proxy.RateLimit)
	v.SetDefault("proxy.cors_origin", cfg.Proxy.CORSOrigin)
}

// Validate checks enumerations and duration strings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendFile, BackendMemory, BackendRedis, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	switch c.LLM.Provider {
	case ProviderAuto, ProviderOpenAI, ProviderOffline:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	for field, value := range map[string]string{
		"store.ttl":     c.Store.TTL,
		"llm.timeout":   c.LLM.Timeout,
		"proxy.timeout": c.Proxy.Timeout,
	} {
		if _, err := ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}
	if c.UI.MinCycles < 1 {
		errs = append(errs, fmt.Errorf("ui.min_cycles: must be at least 1, got %d", c.UI.MinCycles))
	}
	return errors.Join(errs...)
}

// ParseDuration parses a duration string; empty means zero.
func ParseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Policy builds the presentation policy from the ui section.
func (c *Config) Policy() domain.Policy {
	policy := domain.DefaultPolicy()
	policy.MinCycles = c.UI.MinCycles
	if len(c.UI.DefaultPrompts) > 0 {
		policy.DefaultPrompts = c.UI.DefaultPrompts
	}
	if len(c.UI.LoadingMessages) > 0 {
		policy.LoadingMessages = c.UI.LoadingMessages
	}
	if len(c.UI.WakingMessages) > 0 {
		policy.WakingMessages = c.UI.WakingMessages
	}
	return policy
}

// UseOpenAI reports whether the openai ideator should be used.
func (c *Config) UseOpenAI() bool {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		return true
	case ProviderOffline:
		return false
	}
	return c.LLM.APIKey != "" || c.LLM.ProxyURL != ""
}

// Write saves cfg as YAML. Existing files are kept unless force is set.
func Write(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o600)
}

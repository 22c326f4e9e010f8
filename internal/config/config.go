package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. CHARTLOOM_API_KEY.
const EnvPrefix = "CHARTLOOM"

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	OpenAIAPIKey    string  `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	WorkspacesDir   string  `mapstructure:"workspaces_dir" yaml:"workspaces_dir"`
	HistoryDB       string  `mapstructure:"history_db" yaml:"history_db"`

	// Models catalog overrides
	ModelsCatalogFile string `mapstructure:"models_catalog_file" yaml:"models_catalog_file"`
	ModelsMerge       bool   `mapstructure:"models_merge" yaml:"models_merge"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// Direct OpenAI-compatible endpoint
	OpenAIBaseURL string `mapstructure:"openai_base_url" yaml:"openai_base_url"`

	// HTTP API
	ServerAddr     string   `mapstructure:"server_addr" yaml:"server_addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.chartloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".chartloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.chartloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_provider", ai.ProviderOpenRouter)
	v.SetDefault("default_model", "")
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("models_merge", true)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 120)
	v.SetDefault("openai_base_url", "")
	v.SetDefault("server_addr", "127.0.0.1:8080")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	// keys without a default are only seen by AutomaticEnv once bound
	for _, k := range []string{"api_key", "openai_api_key", "workspaces_dir", "history_db", "models_catalog_file"} {
		_ = v.BindEnv(k)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.WorkspacesDir == "" || c.HistoryDB == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		if c.WorkspacesDir == "" {
			c.WorkspacesDir = filepath.Join(dir, "workspaces")
		}
		if c.HistoryDB == "" {
			c.HistoryDB = filepath.Join(dir, "history.db")
		}
	}
	c.DefaultProvider = strings.ToLower(strings.TrimSpace(c.DefaultProvider))
	return &c, nil
}

// Model returns the configured model, or the provider's default when unset.
func (c *Global) Model(provider string) string {
	if c.DefaultModel != "" && (provider == "" || provider == c.DefaultProvider) {
		return c.DefaultModel
	}
	return ai.DefaultModel(provider)
}

// RuntimeConfig builds the explicit backend configuration for provider.
// An empty provider means DefaultProvider.
func (c *Global) RuntimeConfig(provider string) ai.RuntimeConfig {
	if provider == "" {
		provider = c.DefaultProvider
	}
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
	}
	switch provider {
	case ai.ProviderOllama:
		rc.Host = c.OllamaHost
		if c.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(c.OllamaTimeoutSec) * time.Second
		}
	case ai.ProviderOpenAI:
		rc.APIKey = c.OpenAIAPIKey
		rc.BaseURL = c.OpenAIBaseURL
	default:
		rc.APIKey = c.APIKey
	}
	return rc
}

// HasCredentials reports whether provider can be used without further setup.
// Ollama needs no key.
func (c *Global) HasCredentials(provider string) bool {
	if provider == "" {
		provider = c.DefaultProvider
	}
	switch provider {
	case ai.ProviderOllama:
		return true
	case ai.ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	default:
		return c.APIKey != ""
	}
}

// SlogLevel maps LogLevel to a slog level; unknown values mean warn.
func (c *Global) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

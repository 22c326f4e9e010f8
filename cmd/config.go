package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/chartloom-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set ChartLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("api_key: %s\n", mask(cfg.APIKey))
		if cfg.OpenAIAPIKey != "" {
			fmt.Printf("openai_api_key: %s\n", mask(cfg.OpenAIAPIKey))
		}
		fmt.Printf("default_provider: %s\n", cfg.DefaultProvider)
		fmt.Printf("default_model: %s\n", cfg.Model(cfg.DefaultProvider))
		fmt.Printf("max_tokens: %d\n", cfg.MaxTokens)
		fmt.Printf("temperature: %.3f\n", cfg.Temperature)
		fmt.Printf("workspaces_dir: %s\n", cfg.WorkspacesDir)
		fmt.Printf("history_db: %s\n", cfg.HistoryDB)
		fmt.Printf("ollama_host: %s\n", cfg.OllamaHost)
		if cfg.OpenAIBaseURL != "" {
			fmt.Printf("openai_base_url: %s\n", cfg.OpenAIBaseURL)
		}
		fmt.Printf("http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Printf("retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Printf("server_addr: %s\n", cfg.ServerAddr)
		fmt.Printf("allowed_origins: %s\n", strings.Join(cfg.AllowedOrigins, ","))
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		fmt.Printf("log_format: %s\n", cfg.LogFormat)
		if cfg.ModelsCatalogFile != "" {
			fmt.Printf("models_catalog_file: %s (merge=%t)\n", cfg.ModelsCatalogFile, cfg.ModelsMerge)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "openai_api_key":
		c.OpenAIAPIKey = val
	case "default_model":
		c.DefaultModel = val
	case "default_provider":
		p := strings.ToLower(strings.TrimSpace(val))
		if p == "local" {
			p = ai.ProviderOllama
		}
		switch p {
		case ai.ProviderOpenRouter, ai.ProviderOllama, ai.ProviderOpenAI:
			c.DefaultProvider = p
		default:
			return fmt.Errorf("invalid default_provider: %s (use openrouter, ollama or openai)", val)
		}
	case "max_tokens":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for max_tokens: %v", val)
		}
		c.MaxTokens = i
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v", val)
		}
		c.Temperature = f
	case "workspaces_dir":
		c.WorkspacesDir = val
	case "history_db":
		c.HistoryDB = val
	case "ollama_host":
		c.OllamaHost = val
	case "openai_base_url":
		c.OpenAIBaseURL = val
	case "server_addr":
		c.ServerAddr = val
	case "allowed_origins":
		var origins []string
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	case "models_catalog_file":
		c.ModelsCatalogFile = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

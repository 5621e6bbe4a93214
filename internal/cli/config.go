package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/bsdetector/internal/model"
)

// providerEnvKeys maps the conventional provider key variables to providers
var providerEnvKeys = []struct {
	env      string
	provider model.ProviderID
}{
	{"XAI_API_KEY", model.ProviderXAI},
	{"OPENAI_API_KEY", model.ProviderOpenAI},
	{"ANTHROPIC_API_KEY", model.ProviderAnthropic},
	{"GEMINI_API_KEY", model.ProviderGoogle},
}

// setDefaults registers every scalar key so that env variables can override it
func setDefaults(v *viper.Viper) {
	d := model.DefaultConfig()

	v.SetDefault("analysis.mode", d.Analysis.Mode)
	v.SetDefault("analysis.model", d.Analysis.Model)
	v.SetDefault("analysis.proxy_url", d.Analysis.ProxyURL)
	v.SetDefault("analysis.max_chars", d.Analysis.MaxChars)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.http_proxy", d.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.max_bytes", d.Fetch.MaxBytes)
	v.SetDefault("fetch.respect_robots", d.Fetch.RespectRobots)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("remote.dsn", d.Remote.DSN)
	v.SetDefault("session.user_id", d.Session.UserID)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.requests_per_second", d.Server.RequestsPerSecond)
	v.SetDefault("server.burst", d.Server.Burst)
	v.SetDefault("concurrency.workers", d.Concurrency.Workers)
	v.SetDefault("concurrency.requests_per_second", d.Concurrency.RequestsPerSecond)
	v.SetDefault("concurrency.burst", d.Concurrency.Burst)
	v.SetDefault("log.level", d.Log.Level)
}

// loadConfig merges defaults, config file, env and flags into a Config
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]model.ProviderConfig{}
	}
	applyEnvKeys(cfg, os.Getenv)
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// applyEnvKeys fills provider keys from the conventional env variables.
// A provider missing from the config file is added enabled; a configured
// one keeps its enabled flag and only gains the key when it has none.
func applyEnvKeys(cfg *model.Config, getenv func(string) string) {
	for _, ek := range providerEnvKeys {
		key := strings.TrimSpace(getenv(ek.env))
		if key == "" {
			continue
		}

		name, existing, found := findProvider(cfg.Providers, ek.provider)
		if !found {
			cfg.Providers[string(ek.provider)] = model.ProviderConfig{
				Provider: ek.provider,
				APIKey:   key,
				Enabled:  true,
			}
			continue
		}
		if strings.TrimSpace(existing.APIKey) == "" {
			existing.APIKey = key
			cfg.Providers[name] = existing
		}
	}
}

// findProvider looks a provider up under any of its accepted names
func findProvider(providers map[string]model.ProviderConfig, id model.ProviderID) (string, model.ProviderConfig, bool) {
	for name, pc := range providers {
		if parsed, err := model.ParseProvider(name); err == nil && parsed == id {
			return name, pc, true
		}
	}
	return "", model.ProviderConfig{}, false
}

// redactedConfig returns a copy of cfg safe to print
func redactedConfig(cfg *model.Config) *model.Config {
	out := *cfg
	out.Providers = make(map[string]model.ProviderConfig, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		out.Providers[name] = pc.Redacted()
	}
	if out.Remote.DSN != "" {
		out.Remote.DSN = "(set)"
	}
	return &out
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage bsdetector configuration",
	Long: `Manage bsdetector configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (BSDETECTOR_*, and the provider key variables)
3. Config file (~/.bsdetector/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration from all sources. API keys are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults and environment)\n\n")
		}

		yamlData, err := yaml.Marshal(redactedConfig(cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, string(yamlData))
		fmt.Fprintln(out, "Configuration hierarchy (highest to lowest priority):")
		fmt.Fprintln(out, "  1. CLI flags")
		fmt.Fprintln(out, "  2. Environment variables (BSDETECTOR_*, XAI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY)")
		fmt.Fprintln(out, "  3. Config file (~/.bsdetector/config.yaml)")
		fmt.Fprintln(out, "  4. Defaults")

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.bsdetector/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := configDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}
		configPath := filepath.Join(dir, "config.yaml")

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(out, "\nTo view the configuration:\n")
		fmt.Fprintf(out, "  bsdetector config show\n")
		fmt.Fprintf(out, "\nTo customize, edit the file with your preferred editor:\n")
		fmt.Fprintf(out, "  $EDITOR %s\n", configPath)
		return nil
	},
}

// writeDefaultConfig creates a commented default config; it never overwrites
func writeDefaultConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'bsdetector config show' to view it, or delete it first to recreate", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# bsdetector configuration file\n")
	b.WriteString("#\n")
	b.WriteString("# Configuration hierarchy (highest to lowest priority):\n")
	b.WriteString("#   1. CLI flags\n")
	b.WriteString("#   2. Environment variables (BSDETECTOR_*)\n")
	b.WriteString("#   3. This config file\n")
	b.WriteString("#   4. Built-in defaults\n\n")
	b.Write(yamlData)
	b.WriteString("\n# Provider entries look like:\n")
	b.WriteString("#   providers:\n")
	b.WriteString("#     anthropic:\n")
	b.WriteString("#       model_id: claude-3-5-haiku-20241022\n")
	b.WriteString("#       enabled: true\n")
	b.WriteString("#\n")
	b.WriteString("# API keys (recommended to use environment variables instead):\n")
	b.WriteString("#   export XAI_API_KEY=xai-...\n")
	b.WriteString("#   export OPENAI_API_KEY=sk-...\n")
	b.WriteString("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	b.WriteString("#   export GEMINI_API_KEY=...\n")

	// the file may come to hold API keys
	if err := os.WriteFile(configPath, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

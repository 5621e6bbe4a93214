package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bsdetector/internal/model"
	"github.com/ppiankov/bsdetector/internal/settings"
)

var (
	setModel   string
	setAPIKey  string
	setBaseURL string
	setPersona string
	setEnabled bool
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Configure providers and pick the active model",
	Long: `Models manages per-provider settings (model, API key, base URL, persona,
enabled) and the selected model. Settings are stored locally and, with a
session user and a remote database, synced per user.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known models and provider status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		configs, err := a.settings.ProviderConfigs(cmd.Context())
		if err != nil {
			return err
		}
		selected, err := a.settings.SelectedModel(cmd.Context())
		if err != nil {
			return err
		}
		active, live := a.orchestrator.ActiveProvider(cmd.Context(), "")

		out := cmd.OutOrStdout()
		catalog := model.DefaultCatalog()
		for _, m := range catalog {
			marker := " "
			if m.ID == selected {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-10s %-28s %-18s %s\n", marker, m.Provider, m.ID, m.Name, providerStatus(configs, m.Provider))
		}
		for _, id := range model.Providers {
			cfg, ok := configs[id]
			if !ok || cfg.ModelID == "" {
				continue
			}
			if _, known := catalog.Lookup(cfg.ModelID); known {
				continue
			}
			marker := " "
			if cfg.ModelID == selected {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-10s %-28s %-18s %s\n", marker, id, cfg.ModelID, "(configured)", providerStatus(configs, id))
		}

		fmt.Fprintln(out)
		if live {
			fmt.Fprintf(out, "Active provider: %s\n", active)
		} else {
			fmt.Fprintln(out, "Active provider: none (analyses return demo results)")
		}
		return nil
	},
}

var modelsSetCmd = &cobra.Command{
	Use:   "set <provider>",
	Short: "Update one provider's settings",
	Long: `Set updates the settings of one provider. Only the flags given are changed.
Pass --api-key - to read the key from stdin and keep it out of shell history.

Example:
  bsdetector models set anthropic --model claude-3-5-haiku-20241022 --api-key -
  bsdetector models set custom --base-url http://localhost:8000/v1 --model llama3 --api-key local
  bsdetector models set xai --enabled=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := model.ParseProvider(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		configs, err := a.settings.ProviderConfigs(cmd.Context())
		if err != nil {
			return err
		}
		cfg, exists := configs[provider]
		cfg.Provider = provider
		if !exists {
			cfg.Enabled = true
		}

		flags := cmd.Flags()
		if flags.Changed("model") {
			cfg.ModelID = strings.TrimSpace(setModel)
		}
		if flags.Changed("api-key") {
			key := setAPIKey
			if key == "-" {
				if key, err = readSecret(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			cfg.APIKey = strings.TrimSpace(key)
		}
		if flags.Changed("base-url") {
			cfg.BaseURL = strings.TrimSpace(setBaseURL)
		}
		if flags.Changed("persona") {
			cfg.Persona = setPersona
		}
		if flags.Changed("enabled") {
			cfg.Enabled = setEnabled
		}

		if err := a.settings.Save(cmd.Context(), cfg); err != nil {
			var syncErr *settings.SyncError
			if !errors.As(err, &syncErr) {
				return err
			}
			fmt.Fprintf(os.Stderr, "⚠️  Saved locally only: %v\n", syncErr)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s\n", cfg)
		return nil
	},
}

var modelsSelectCmd = &cobra.Command{
	Use:   "select <model-id>",
	Short: "Select the model used by default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modelID := strings.TrimSpace(args[0])

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if _, known := model.DefaultCatalog().Lookup(modelID); !known {
			configs, err := a.settings.ProviderConfigs(cmd.Context())
			if err != nil {
				return err
			}
			if !configuredModel(configs, modelID) {
				return fmt.Errorf("unknown model: %s (see 'bsdetector models list')", modelID)
			}
		}

		if err := a.settings.Select(cmd.Context(), modelID); err != nil {
			var syncErr *settings.SyncError
			if !errors.As(err, &syncErr) {
				return err
			}
			fmt.Fprintf(os.Stderr, "⚠️  Selected locally only: %v\n", syncErr)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Selected %s\n", model.DefaultCatalog().DisplayName(modelID))
		if provider, live := a.orchestrator.ActiveProvider(cmd.Context(), modelID); !live {
			fmt.Fprintf(cmd.OutOrStdout(), "  note: no usable config for this model yet (run 'bsdetector models set %s')\n", providerHint(modelID))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "  provider: %s\n", provider)
		}
		return nil
	},
}

var modelsCheckCmd = &cobra.Command{
	Use:   "check [provider]",
	Short: "Verify provider credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var only model.ProviderID
		if len(args) == 1 {
			var err error
			if only, err = model.ParseProvider(args[0]); err != nil {
				return err
			}
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		configs, err := a.settings.ProviderConfigs(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		checked, failed := 0, 0
		for _, id := range model.Providers {
			if only != "" && id != only {
				continue
			}
			cfg, ok := configs[id]
			if !ok || !cfg.Usable() {
				if only != "" {
					return fmt.Errorf("%s has no usable config (enabled with an API key)", id)
				}
				continue
			}
			cfg.Provider = id

			checked++
			if err := a.client.Check(cmd.Context(), cfg); err != nil {
				failed++
				fmt.Fprintf(out, "✗ %-10s %v\n", id, err)
				continue
			}
			fmt.Fprintf(out, "✓ %-10s ok\n", id)
		}

		if checked == 0 {
			fmt.Fprintln(out, "No usable provider configs to check.")
			return nil
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d provider checks failed", failed, checked)
		}
		return nil
	},
}

func providerStatus(configs model.ProviderConfigs, id model.ProviderID) string {
	cfg, ok := configs[id]
	switch {
	case !ok:
		return "not configured"
	case cfg.Usable():
		return "ready"
	case !cfg.Enabled:
		return "disabled"
	default:
		return "no API key"
	}
}

func configuredModel(configs model.ProviderConfigs, modelID string) bool {
	for _, cfg := range configs {
		if cfg.ModelID == modelID {
			return true
		}
	}
	return false
}

func providerHint(modelID string) string {
	if info, ok := model.DefaultCatalog().Lookup(modelID); ok {
		return string(info.Provider)
	}
	return "<provider>"
}

// readSecret reads one line from r
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsSetCmd)
	modelsCmd.AddCommand(modelsSelectCmd)
	modelsCmd.AddCommand(modelsCheckCmd)

	modelsSetCmd.Flags().StringVar(&setModel, "model", "", "model id")
	modelsSetCmd.Flags().StringVar(&setAPIKey, "api-key", "", "API key (- reads from stdin)")
	modelsSetCmd.Flags().StringVar(&setBaseURL, "base-url", "", "API base URL override (required for custom)")
	modelsSetCmd.Flags().StringVar(&setPersona, "persona", "", "system prompt override")
	modelsSetCmd.Flags().BoolVar(&setEnabled, "enabled", true, "enable or disable the provider")
}

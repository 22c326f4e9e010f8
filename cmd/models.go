package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect or replace the model catalog used for defaults and pricing",
	Example: `  chartloom models show
  chartloom models recommend --provider ollama --tier cheap
  chartloom models sync --file ./models.json --merge
  chartloom models fetch --provider openai --output models.json`,
}

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ai.Catalog())
	},
}

var (
	syncPath  string
	syncMerge bool
)

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load model catalog/pricing from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		applyCatalog(m, syncMerge, "file")
		return nil
	},
}

var (
	fetchURL      string
	fetchOutput   string
	fetchMerge    bool
	fetchProvider string
)

var modelsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a catalog JSON from a URL, or apply a built-in provider preset",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			m    map[string]ai.ModelInfo
			from string
		)
		switch {
		case fetchURL != "":
			fetched, err := fetchCatalog(fetchURL)
			if err != nil {
				return err
			}
			m, from = fetched, fetchURL
		case fetchProvider != "":
			preset, ok := ai.PresetCatalog(fetchProvider)
			if !ok {
				return fmt.Errorf("no built-in preset for provider %q", fetchProvider)
			}
			m, from = preset, fmt.Sprintf("built-in '%s' preset", fetchProvider)
		default:
			return fmt.Errorf("--url is required (or specify --provider with a known preset)")
		}
		if fetchOutput != "" {
			if err := utils.WriteJSON(fetchOutput, m, 0o644); err != nil {
				return err
			}
			fmt.Printf("Saved catalog to %s (set models_catalog_file to keep it)\n", fetchOutput)
		}
		applyCatalog(m, fetchMerge, from)
		return nil
	},
}

var (
	recProvider string
	recTier     string
)

var modelsRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print the built-in model pick for a provider and tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := selectProvider(nil, recProvider)
		name, ok := ai.RecommendModel(provider, recTier)
		if !ok {
			return fmt.Errorf("no %s model for provider %s (tiers: %s, %s, %s)", recTier, provider, ai.TierCheap, ai.TierBalanced, ai.TierLarge)
		}
		fmt.Println(name)
		return nil
	},
}

func applyCatalog(m map[string]ai.ModelInfo, merge bool, from string) {
	if merge {
		ai.MergeCatalog(m)
		fmt.Printf("Merged %d model(s) from %s\n", len(m), from)
		return
	}
	ai.OverrideCatalog(m)
	fmt.Printf("Replaced catalog with %d model(s) from %s\n", len(m), from)
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsCmd.AddCommand(modelsFetchCmd)
	modelsCmd.AddCommand(modelsRecommendCmd)

	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
	modelsSyncCmd.Flags().BoolVar(&syncMerge, "merge", false, "merge into existing catalog instead of replacing")

	modelsFetchCmd.Flags().StringVar(&fetchURL, "url", "", "URL to JSON catalog file")
	modelsFetchCmd.Flags().StringVar(&fetchOutput, "output", "", "optional path to save the catalog JSON")
	modelsFetchCmd.Flags().BoolVar(&fetchMerge, "merge", false, "merge into existing catalog instead of replacing")
	modelsFetchCmd.Flags().StringVar(&fetchProvider, "provider", "", "built-in preset to apply when --url is not set")

	modelsRecommendCmd.Flags().StringVar(&recProvider, "provider", "", "model provider: openrouter|ollama|openai")
	modelsRecommendCmd.Flags().StringVar(&recTier, "tier", ai.TierBalanced, "cheap|balanced|high-context")
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

var (
	schemaWorkspace string
	schemaJSON      bool
	schemaMaxTokens int
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the compressed schema the planner sees",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(schemaWorkspace)
		if err != nil {
			return err
		}
		datasets, err := ws.Datasets()
		if err != nil {
			return err
		}
		schema := analysis.Compress(datasets)
		if schemaJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(schema)
		}
		text := analysis.RenderPromptContext(schema)
		tokens := utils.CountTokens(text)
		if schemaMaxTokens > 0 && tokens > schemaMaxTokens {
			text = utils.TruncateToTokenLimit(text, schemaMaxTokens) + "\n…"
		}
		fmt.Print(text)
		fmt.Printf("Tokens: ≈%d\n", tokens)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVarP(&schemaWorkspace, "workspace", "w", "", "workspace name")
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "print the schema as JSON")
	schemaCmd.Flags().IntVar(&schemaMaxTokens, "max-tokens", 0, "truncate the printed schema to about this many tokens")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/history"
)

var (
	histWorkspace string
	histLimit     int
	histFormat    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded analysis runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		runs, err := store.List(cmd.Context(), histWorkspace, histLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("(no runs)")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("- %s  %s  [%s] %q  charts=%d skipped=%d", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Workspace, r.Focus, r.Charts, r.Skipped)
			if r.Model != "" {
				fmt.Printf("  model=%s", r.Model)
			}
			if r.CostUSD > 0 {
				fmt.Printf("  ~$%.4f", r.CostUSD)
			}
			fmt.Println()
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a recorded run's result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if run.Result == nil {
			return fmt.Errorf("run %s has no stored result", run.ID)
		}
		return writeResult(run.Result, outputOptions{Format: histFormat})
	},
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	if cfg == nil || cfg.HistoryDB == "" {
		return nil, fmt.Errorf("history database not configured")
	}
	return history.Open(cmd.Context(), cfg.HistoryDB)
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().StringVarP(&histWorkspace, "workspace", "w", "", "only runs of this workspace")
	historyCmd.Flags().IntVarP(&histLimit, "limit", "n", 20, "maximum runs to list (0 = all)")
	historyShowCmd.Flags().StringVar(&histFormat, "format", "markdown", "output format: markdown|json")
}

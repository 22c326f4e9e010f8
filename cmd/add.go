package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

var (
	addWorkspace string
	addFileDesc  string
)

var addCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Add CSV/TSV/XLSX/XLS files to a workspace",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(addWorkspace)
		if err != nil {
			return err
		}
		session, err := ws.Session(nil, logger)
		if err != nil {
			return err
		}
		added := make([]*dataset.Dataset, 0, len(args))
		for _, path := range args {
			ds, err := ws.AddFile(path, addFileDesc)
			if err != nil {
				return fmt.Errorf("add %s: %w", path, err)
			}
			shape := ds.Shape()
			fmt.Printf("✓ File added: %s (%d rows × %d columns)\n", ds.Name, shape[0], shape[1])
			if shape[0] == 0 {
				fmt.Printf("⚠ %s has no data rows\n", ds.Name)
			}
			added = append(added, ds)
		}
		if err := session.AddDatasets(added...); err != nil {
			return err
		}
		ws.Capture(session)
		if err := ws.Save(); err != nil {
			return err
		}
		if res := session.Result(); res != nil && res.Auto {
			fmt.Printf("✓ automatic line charts ready (%d); run 'chartloom analyze' for a focused analysis\n", len(res.Charts))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addWorkspace, "workspace", "w", "", "workspace name")
	addCmd.Flags().StringVar(&addFileDesc, "desc", "", "file description")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeWorkspace string

var removeCmd = &cobra.Command{
	Use:   "remove <file-name|id>",
	Short: "Remove a file from a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(removeWorkspace)
		if err != nil {
			return err
		}
		// A file that no longer parses (e.g. deleted on disk) can still be
		// unregistered; the session step is skipped then.
		session, sessErr := ws.Session(nil, logger)
		if sessErr != nil {
			logger.Warn("workspace files could not be reloaded", "error", sessErr)
		}
		f, err := ws.RemoveFile(args[0])
		if err != nil {
			return err
		}
		if sessErr == nil {
			if _, err := session.RemoveDataset(f.Name); err != nil {
				return err
			}
			ws.Capture(session)
		}
		if err := ws.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ File removed: %s\n", f.Name)
		if len(ws.Files) == 0 {
			fmt.Println("Workspace is empty; analysis and chat history cleared")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVarP(&removeWorkspace, "workspace", "w", "", "workspace name")
}

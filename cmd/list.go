package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

var (
	listWorkspaces bool
	listFiles      bool
	listWsName     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces or files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listWorkspaces == listFiles {
			return fmt.Errorf("specify exactly one of --workspaces or --files")
		}
		if listWorkspaces {
			return listAllWorkspaces()
		}
		ws, err := loadWorkspace(listWsName)
		if err != nil {
			return err
		}
		files := ws.SortedFiles()
		if len(files) == 0 {
			fmt.Println("(no files)")
			return nil
		}
		for _, f := range files {
			line := fmt.Sprintf("- %s: %s (%d rows × %d columns)", f.ID, f.Name, f.Rows, f.Columns)
			if f.Description != "" {
				line += " [" + f.Description + "]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func listAllWorkspaces() error {
	root, err := defaultWorkspacesDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), utils.WorkspaceFileName)); err == nil {
			fmt.Printf("- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Println("(no workspaces)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listWorkspaces, "workspaces", false, "list workspaces")
	listCmd.Flags().BoolVar(&listFiles, "files", false, "list files in a workspace")
	listCmd.Flags().StringVarP(&listWsName, "workspace", "w", "", "workspace name for --files")
}

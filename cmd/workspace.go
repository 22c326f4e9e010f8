package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/workspace"
)

var (
	wsName  string
	wsClear bool
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage per-workspace settings",
}

var workspaceSetModelCmd = &cobra.Command{
	Use:   "set-model <model>",
	Short: "Set or clear a workspace's default model",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateWorkspaceConfig(args, "model", func(c *workspace.Config, v string) error {
			c.Model = v
			return nil
		})
	},
}

var workspaceSetProviderCmd = &cobra.Command{
	Use:   "set-provider <provider>",
	Short: "Set or clear a workspace's default provider",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateWorkspaceConfig(args, "provider", func(c *workspace.Config, v string) error {
			if v != "" && !slices.Contains(ai.Providers(), v) {
				return fmt.Errorf("unknown provider %q (available: %v)", v, ai.Providers())
			}
			c.Provider = v
			return nil
		})
	},
}

func updateWorkspaceConfig(args []string, what string, apply func(*workspace.Config, string) error) error {
	ws, err := loadWorkspace(wsName)
	if err != nil {
		return err
	}
	if ws.Config == nil {
		ws.Config = &workspace.Config{}
	}
	val := ""
	if !wsClear {
		if len(args) == 0 || args[0] == "" {
			return fmt.Errorf("%s is required unless --clear is set", what)
		}
		val = args[0]
	}
	if err := apply(ws.Config, val); err != nil {
		return err
	}
	if err := ws.Save(); err != nil {
		return err
	}
	if wsClear {
		fmt.Printf("✓ Cleared workspace %s for %s\n", what, ws.Name)
	} else {
		fmt.Printf("✓ Set workspace %s for %s: %s\n", what, ws.Name, val)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(workspaceCmd)
	workspaceCmd.AddCommand(workspaceSetModelCmd)
	workspaceCmd.AddCommand(workspaceSetProviderCmd)

	workspaceCmd.PersistentFlags().StringVarP(&wsName, "workspace", "w", "", "workspace name")
	workspaceCmd.PersistentFlags().BoolVar(&wsClear, "clear", false, "clear the override")
}

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	cfgpkg "github.com/KaramelBytes/chartloom-cli/internal/config"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
	"github.com/KaramelBytes/chartloom-cli/internal/workspace"
)

// resetFlags clears values and Changed state that persist between Execute
// calls on the shared command tree.
func resetFlags() {
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(fl *pflag.Flag) {
			_ = fl.Value.Set(fl.DefValue)
			fl.Changed = false
		})
	}
}

func execCmd(args ...string) error {
	resetFlags()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

// isolate points HOME at a temp dir and installs a config without keys.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	old := cfg
	cfg = &cfgpkg.Global{
		DefaultProvider: "openrouter",
		MaxTokens:       1024,
		Temperature:     0.2,
		WorkspacesDir:   filepath.Join(home, "workspaces"),
		HistoryDB:       filepath.Join(home, "history.db"),
	}
	t.Cleanup(func() { cfg = old })
	return home
}

func writeSales(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "sales.csv")
	body := "region,revenue\nnorth,10\nsouth,20\nnorth,30\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

func TestCLI_Init_Add_Schema_AnalyzeDryRun(t *testing.T) {
	home := isolate(t)
	csv := writeSales(t, home)

	runCmd(t, "init", "itest", "-d", "integration test")
	runCmd(t, "add", "-w", "itest", csv, "--desc", "first file")
	runCmd(t, "list", "--files", "-w", "itest")
	runCmd(t, "schema", "-w", "itest", "--json")
	runCmd(t, "analyze", "-w", "itest", "--focus", "revenue by region", "--dry-run", "-q")

	ws, err := workspace.Load(filepath.Join(home, "workspaces", "itest"))
	if err != nil {
		t.Fatalf("load workspace: %v", err)
	}
	if len(ws.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(ws.Files))
	}
	if ws.Result == nil || !ws.Result.Auto {
		t.Fatalf("expected automatic charts after add, got %+v", ws.Result)
	}

	runCmd(t, "remove", "-w", "itest", "sales.csv")
	ws, err = workspace.Load(filepath.Join(home, "workspaces", "itest"))
	if err != nil {
		t.Fatalf("reload workspace: %v", err)
	}
	if len(ws.Files) != 0 || ws.Result != nil {
		t.Fatalf("expected empty workspace after remove, got %d files, result %v", len(ws.Files), ws.Result)
	}
}

func TestCLI_AnalyzeWithoutKey(t *testing.T) {
	home := isolate(t)
	csv := writeSales(t, home)
	runCmd(t, "init", "nokey")
	runCmd(t, "add", "-w", "nokey", csv)

	err := execCmd("analyze", "-w", "nokey", "--focus", "anything", "-q")
	if !errors.Is(err, pipeline.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestCLI_BudgetLimitBlocksAnalyze(t *testing.T) {
	home := isolate(t)
	csv := writeSales(t, home)
	runCmd(t, "init", "budget")
	runCmd(t, "add", "-w", "budget", csv)

	err := execCmd("analyze", "-w", "budget", "--focus", "x", "--model", "openai/gpt-4o", "--dry-run", "--budget-limit", "0.0000001", "-q")
	if err == nil || !strings.Contains(err.Error(), "exceeds budget") {
		t.Fatalf("expected budget error, got %v", err)
	}
}

func TestCLI_WorkspaceOverrides(t *testing.T) {
	home := isolate(t)
	runCmd(t, "init", "ovr")
	runCmd(t, "workspace", "set-provider", "ollama", "-w", "ovr")
	runCmd(t, "workspace", "set-model", "llama3.1:8b-instruct", "-w", "ovr")

	ws, err := workspace.Load(filepath.Join(home, "workspaces", "ovr"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := selectProvider(ws, ""); got != "ollama" {
		t.Fatalf("provider: got %q", got)
	}
	if got := selectModel(ws, cfg, "", "ollama"); got != "llama3.1:8b-instruct" {
		t.Fatalf("model: got %q", got)
	}
	if err := execCmd("workspace", "set-provider", "bogus", "-w", "ovr"); err == nil {
		t.Fatalf("expected invalid provider error")
	}
}

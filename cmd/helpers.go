package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/chartloom-cli/internal/config"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
	"github.com/KaramelBytes/chartloom-cli/internal/workspace"
)

// maxPlannedCalls bounds the model calls of one run: plan, up to five
// insights, summary.
const maxPlannedCalls = 7

func defaultWorkspacesDir() (string, error) {
	dir := ""
	if cfg != nil {
		dir = cfg.WorkspacesDir
	}
	if dir == "" {
		base, err := cfgpkg.Dir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "workspaces")
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, strings.TrimLeft(strings.TrimPrefix(dir, "~"), `/\`))
	}
	dir = filepath.Clean(dir)
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// resolveWorkspaceDir maps a workspace name to its directory. An empty name
// searches upward from the working directory for a workspace.json.
func resolveWorkspaceDir(name string) (string, error) {
	if name == "" {
		dir, err := utils.FindWorkspaceRoot("")
		if err != nil {
			return "", errors.New("--workspace is required (or run inside a workspace directory)")
		}
		return dir, nil
	}
	root, err := defaultWorkspacesDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

func loadWorkspace(name string) (*workspace.Workspace, error) {
	dir, err := resolveWorkspaceDir(name)
	if err != nil {
		return nil, err
	}
	return workspace.Load(dir)
}

// selectProvider applies flag > workspace > config > openrouter.
func selectProvider(ws *workspace.Workspace, explicit string) string {
	p := strings.ToLower(strings.TrimSpace(explicit))
	if p == "" && ws != nil && ws.Config != nil {
		p = ws.Config.Provider
	}
	if p == "" && cfg != nil {
		p = cfg.DefaultProvider
	}
	switch p {
	case "", "openrouter":
		return ai.ProviderOpenRouter
	case "local":
		return ai.ProviderOllama
	}
	return p
}

// selectModel applies flag > workspace > config > provider default.
func selectModel(ws *workspace.Workspace, c *cfgpkg.Global, explicit, provider string) string {
	if explicit != "" {
		return explicit
	}
	if ws != nil && ws.Config != nil && ws.Config.Model != "" {
		return ws.Config.Model
	}
	if c != nil {
		return c.Model(provider)
	}
	return ai.DefaultModel(provider)
}

type oracleOptions struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
}

// buildOracle returns nil, nil when the provider has no credentials, which the
// pipeline reports as a missing API key.
func buildOracle(c *cfgpkg.Global, opts oracleOptions) (*ai.RuntimeOracle, error) {
	if c == nil {
		return nil, errors.New("configuration not loaded")
	}
	if !c.HasCredentials(opts.Provider) {
		return nil, nil
	}
	rt, err := ai.GetRuntime(opts.Provider, c.RuntimeConfig(opts.Provider))
	if err != nil {
		return nil, err
	}
	o := ai.NewRuntimeOracle(rt, opts.Model, opts.MaxTokens, opts.Temperature)
	o.Logger = logger
	return o, nil
}

// asOracle keeps a nil *RuntimeOracle from becoming a non-nil interface.
func asOracle(o *ai.RuntimeOracle) ai.Oracle {
	if o == nil {
		return nil
	}
	return o
}

// estimateMaxCost is a ceiling for one analysis run: every planned call is
// charged the schema prompt plus a full completion.
func estimateMaxCost(model string, datasets []*dataset.Dataset, maxTokens int) (float64, int, bool) {
	prompt := analysis.RenderPromptContext(analysis.Compress(datasets))
	tokens := utils.CountTokens(prompt)
	cost, ok := ai.EstimateCostUSD(model, tokens*maxPlannedCalls, maxTokens*maxPlannedCalls)
	return cost, tokens, ok
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("✗ Estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

type outputOptions struct {
	Format     string
	OutputPath string
	Quiet      bool
	Writer     io.Writer
}

func writeResult(res *pipeline.AnalysisResult, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	var body []byte
	switch strings.ToLower(opts.Format) {
	case "", "markdown", "md":
		body = []byte(renderMarkdown(res))
	case "json":
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		body = b
	default:
		return fmt.Errorf("unsupported --format: %s (use markdown|json)", opts.Format)
	}
	if opts.OutputPath == "" {
		fmt.Fprintln(w, string(body))
		return nil
	}
	if err := utils.SafeWriteFile(opts.OutputPath, body, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !opts.Quiet {
		fmt.Fprintf(w, "💾 Saved output to %s\n", opts.OutputPath)
	}
	return nil
}

// renderMarkdown formats a result for terminals and files. Series data is
// summarized by record count; use --format json for the full data.
func renderMarkdown(res *pipeline.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis: %s\n\n", res.Plan.Focus)
	if res.Auto {
		b.WriteString("_Automatic charts, no model was called._\n\n")
	}
	b.WriteString("## Executive Summary\n\n")
	b.WriteString(strings.TrimSpace(res.ExecutiveSummary))
	b.WriteString("\n\n")
	if len(res.Insights) > 0 {
		b.WriteString("## Key Points\n\n")
		for _, in := range res.Insights {
			fmt.Fprintf(&b, "- %s\n", in)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Charts\n\n")
	if len(res.Charts) == 0 {
		b.WriteString("(no charts)\n\n")
	}
	for i, c := range res.Charts {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, c.Spec.Title)
		fmt.Fprintf(&b, "- Type: %s\n", c.Spec.Type)
		fmt.Fprintf(&b, "- File: %s\n", c.Spec.SourceFile)
		if c.Spec.XColumn != "" {
			fmt.Fprintf(&b, "- X: %s\n", c.Spec.XColumn)
		}
		if c.Spec.YColumn != "" {
			fmt.Fprintf(&b, "- Y: %s\n", c.Spec.YColumn)
		}
		if c.Spec.ColorColumn != "" {
			fmt.Fprintf(&b, "- Color: %s\n", c.Spec.ColorColumn)
		}
		fmt.Fprintf(&b, "- Data points: %d\n\n", len(c.Data))
		if c.Insight != "" {
			b.WriteString(strings.TrimSpace(c.Insight))
			b.WriteString("\n\n")
		}
	}
	if len(res.Skipped) > 0 {
		b.WriteString("## Skipped\n\n")
		for _, s := range res.Skipped {
			fmt.Fprintf(&b, "- %s (file not loaded)\n", s)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

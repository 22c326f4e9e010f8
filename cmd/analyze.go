package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/history"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
)

var (
	anaWorkspace   string
	anaFocus       string
	anaProvider    string
	anaModel       string
	anaTier        string
	anaMaxTokens   int
	anaTemperature float64
	anaFormat      string
	anaOutputPath  string
	anaBudgetLimit float64
	anaTimeoutSec  int
	anaDryRun      bool
	anaQuiet       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Plan, build and summarize charts for a focus",
	Example: `  chartloom analyze -w sales --focus "revenue by region over time"
  chartloom analyze -w sales --focus "churn drivers" --provider ollama --model llama3.1:8b-instruct
  chartloom analyze -w sales --focus "margins" --format json --output result.json
  chartloom analyze -w sales --focus "margins" --dry-run --budget-limit 0.05`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(anaWorkspace)
		if err != nil {
			return err
		}
		provider := selectProvider(ws, anaProvider)
		model := selectModel(ws, cfg, anaModel, provider)
		if anaModel == "" && anaTier != "" {
			name, ok := ai.RecommendModel(provider, anaTier)
			if !ok {
				return fmt.Errorf("no %s model for provider %s", anaTier, provider)
			}
			model = name
		}
		maxTokens := anaMaxTokens
		if maxTokens <= 0 {
			maxTokens = ws.Config.MaxTokens
		}
		if maxTokens <= 0 && cfg != nil {
			maxTokens = cfg.MaxTokens
		}
		temperature := anaTemperature
		if !cmd.Flags().Changed("temperature") {
			switch {
			case ws.Config.Temperature > 0:
				temperature = ws.Config.Temperature
			case cfg != nil:
				temperature = cfg.Temperature
			}
		}

		session, err := ws.Session(nil, logger)
		if err != nil {
			return err
		}
		estCost, schemaTokens, priced := estimateMaxCost(model, session.Datasets(), maxTokens)
		if !anaQuiet {
			fmt.Printf("Provider: %s, model: %s, schema tokens≈%d\n", provider, model, schemaTokens)
			if priced {
				fmt.Printf("Estimated max cost: ~$%.4f\n", estCost)
			}
		}
		if err := enforceBudget(estCost, anaBudgetLimit); err != nil {
			return err
		}
		if anaDryRun {
			return nil
		}

		ro, err := buildOracle(cfg, oracleOptions{Provider: provider, Model: model, MaxTokens: maxTokens, Temperature: temperature})
		if err != nil {
			return err
		}
		oracle := asOracle(ro)
		session.Analyzer.Oracle = oracle
		session.Chat.Oracle = oracle

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(anaTimeoutSec)*time.Second)
		defer cancel()
		if !anaQuiet {
			fmt.Printf("⚙ Analyzing %d file(s) for: %s\n", len(session.Datasets()), anaFocus)
		}
		res, err := session.Analyze(ctx, anaFocus)
		if err != nil {
			return describeFailure(err)
		}
		ws.Capture(session)
		if err := ws.Save(); err != nil {
			return err
		}

		run := history.FromResult(ws.Name, res)
		run.Provider, run.Model = provider, model
		if ro != nil {
			usage, calls := ro.Usage()
			run.PromptTokens, run.CompletionTokens, run.OracleCalls = usage.PromptTokens, usage.CompletionTokens, calls
			if cost, ok := ai.EstimateCostUSD(model, usage.PromptTokens, usage.CompletionTokens); ok {
				run.CostUSD = cost
			}
			if !anaQuiet {
				fmt.Printf("Usage: %d call(s), prompt=%d completion=%d tokens", calls, usage.PromptTokens, usage.CompletionTokens)
				if run.CostUSD > 0 {
					fmt.Printf(", ~$%.4f", run.CostUSD)
				}
				fmt.Println()
			}
		}
		recordRun(ctx, run)

		for _, title := range res.Skipped {
			fmt.Fprintf(os.Stderr, "⚠ Skipped chart %q: its file is not in the workspace\n", title)
		}
		return writeResult(res, outputOptions{Format: anaFormat, OutputPath: anaOutputPath, Quiet: anaQuiet})
	},
}

// recordRun stores run in the history database; failures only warn.
func recordRun(ctx context.Context, run history.Run) {
	if cfg == nil || cfg.HistoryDB == "" {
		return
	}
	store, err := history.Open(ctx, cfg.HistoryDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: history not recorded: %v\n", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, run); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: history not recorded: %v\n", err)
	}
}

// describeFailure appends a remedy for missing keys and provider failures.
func describeFailure(err error) error {
	if errors.Is(err, pipeline.ErrNoAPIKey) {
		return fmt.Errorf("%w (set CHARTLOOM_API_KEY, or use --provider ollama)", err)
	}
	if hint := ai.Hint(err); hint != "" {
		return fmt.Errorf("%w (%s)", err, hint)
	}
	return err
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaWorkspace, "workspace", "w", "", "workspace name")
	analyzeCmd.Flags().StringVarP(&anaFocus, "focus", "f", "", "what the analysis should answer")
	analyzeCmd.Flags().StringVar(&anaProvider, "provider", "", "model provider: openrouter|ollama|openai")
	analyzeCmd.Flags().StringVar(&anaModel, "model", "", "model name (overrides workspace and config)")
	analyzeCmd.Flags().StringVar(&anaTier, "tier", "", "pick a built-in model by tier: cheap|balanced|high-context")
	analyzeCmd.Flags().IntVar(&anaMaxTokens, "max-tokens", 0, "completion token limit per call")
	analyzeCmd.Flags().Float64Var(&anaTemperature, "temperature", 0.7, "sampling temperature")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "markdown", "output format: markdown|json")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the result to this path")
	analyzeCmd.Flags().Float64Var(&anaBudgetLimit, "budget-limit", 0, "fail if estimated max cost (USD) exceeds this budget")
	analyzeCmd.Flags().IntVar(&anaTimeoutSec, "timeout-sec", 600, "overall timeout for the run")
	analyzeCmd.Flags().BoolVar(&anaDryRun, "dry-run", false, "estimate cost and exit without calling a model")
	analyzeCmd.Flags().BoolVarP(&anaQuiet, "quiet", "q", false, "print only the result")
}

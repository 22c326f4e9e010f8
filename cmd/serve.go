package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/history"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
	"github.com/KaramelBytes/chartloom-cli/internal/server"
	"github.com/KaramelBytes/chartloom-cli/internal/workspace"
)

var (
	serveWorkspace string
	serveAddr      string
	serveProvider  string
	serveModel     string
	serveNoHistory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve one analysis session over an HTTP JSON API",
	Long: `Serve starts an HTTP API for uploading files, running analyses and chatting.
With --workspace the session starts from that workspace and its result and
transcript are saved back on shutdown. Files uploaded over HTTP live only in
the running session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		var ws *workspace.Workspace
		if serveWorkspace != "" {
			w, err := loadWorkspace(serveWorkspace)
			if err != nil {
				return err
			}
			ws = w
		}
		provider := selectProvider(ws, serveProvider)
		model := selectModel(ws, cfg, serveModel, provider)
		ro, err := buildOracle(cfg, oracleOptions{Provider: provider, Model: model, MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature})
		if err != nil {
			return err
		}
		if ro == nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: no credentials for %s; analyze and chat will fail until configured\n", provider)
		}

		session := pipeline.NewSession(asOracle(ro), logger)
		label := "serve"
		if ws != nil {
			s, err := ws.Session(asOracle(ro), logger)
			if err != nil {
				return err
			}
			session, label = s, ws.Name
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var store *history.Store
		if !serveNoHistory && cfg.HistoryDB != "" {
			s, err := history.Open(ctx, cfg.HistoryDB)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: history disabled: %v\n", err)
			} else {
				store = s
				defer store.Close()
			}
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.ServerAddr
		}
		srv := server.New(server.Config{
			Session:        session,
			History:        store,
			Workspace:      label,
			UploadDir:      os.TempDir(),
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         logger,
			RunInfo:        runInfo(ro, provider, model),
		})
		fmt.Printf("Serving on http://%s (provider %s, model %s)\n", addr, provider, model)
		serveErr := srv.Serve(ctx, addr)

		if ws != nil {
			ws.Capture(session)
			if err := ws.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: workspace not saved: %v\n", err)
			}
		}
		if serveErr != nil && ctx.Err() == nil {
			return serveErr
		}
		return nil
	},
}

// runInfo reports usage as the delta since the previous recorded run; the
// oracle is shared by every request of the session.
func runInfo(ro *ai.RuntimeOracle, provider, model string) func(*history.Run) {
	var (
		mu        sync.Mutex
		last      ai.Usage
		lastCalls int
	)
	return func(run *history.Run) {
		run.Provider, run.Model = provider, model
		if ro == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		usage, calls := ro.Usage()
		run.PromptTokens = usage.PromptTokens - last.PromptTokens
		run.CompletionTokens = usage.CompletionTokens - last.CompletionTokens
		run.OracleCalls = calls - lastCalls
		last, lastCalls = usage, calls
		if cost, ok := ai.EstimateCostUSD(model, run.PromptTokens, run.CompletionTokens); ok {
			run.CostUSD = cost
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveWorkspace, "workspace", "w", "", "start from this workspace and save back on exit")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config server_addr)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "model provider: openrouter|ollama|openai")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "model name")
	serveCmd.Flags().BoolVar(&serveNoHistory, "no-history", false, "do not record runs in the history database")
}


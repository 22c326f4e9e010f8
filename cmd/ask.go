package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	askWorkspace  string
	askProvider   string
	askModel      string
	askMaxTokens  int
	askTimeoutSec int
	askShowLog    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a follow-up question about the last analysis",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace(askWorkspace)
		if err != nil {
			return err
		}
		session, err := ws.Session(nil, logger)
		if err != nil {
			return err
		}
		if askShowLog {
			for _, t := range session.Transcript() {
				fmt.Printf("[%s] %s\n\n", t.Role, t.Content)
			}
			if len(args) == 0 {
				return nil
			}
		}

		provider := selectProvider(ws, askProvider)
		model := selectModel(ws, cfg, askModel, provider)
		maxTokens := askMaxTokens
		if maxTokens <= 0 && cfg != nil {
			maxTokens = cfg.MaxTokens
		}
		temperature := 0.7
		if cfg != nil {
			temperature = cfg.Temperature
		}
		ro, err := buildOracle(cfg, oracleOptions{Provider: provider, Model: model, MaxTokens: maxTokens, Temperature: temperature})
		if err != nil {
			return err
		}
		session.Chat.Oracle = asOracle(ro)

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(askTimeoutSec)*time.Second)
		defer cancel()
		answer, err := session.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return describeFailure(err)
		}
		ws.Capture(session)
		if err := ws.Save(); err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askWorkspace, "workspace", "w", "", "workspace name")
	askCmd.Flags().StringVar(&askProvider, "provider", "", "model provider: openrouter|ollama|openai")
	askCmd.Flags().StringVar(&askModel, "model", "", "model name")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "completion token limit")
	askCmd.Flags().IntVar(&askTimeoutSec, "timeout-sec", 180, "timeout for the answer")
	askCmd.Flags().BoolVar(&askShowLog, "transcript", false, "print the chat transcript first")
}

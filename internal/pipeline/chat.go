package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

const chatSampleRows = 2

// Chat answers follow-up questions. Each call rebuilds the full grounding
// context from the result; earlier turns are not sent to the oracle.
type Chat struct {
	Oracle ai.Oracle
	Logger *slog.Logger
}

// Ask appends the question and the answer to history and returns both. An
// oracle failure becomes an "Error: ..." assistant turn and a nil error.
func (c *Chat) Ask(ctx context.Context, result *AnalysisResult, datasets []*dataset.Dataset, history []ChatTurn, question string) (string, []ChatTurn, error) {
	if c == nil || c.Oracle == nil {
		return "", history, ErrNoAPIKey
	}
	if result == nil {
		return "", history, ErrNoAnalysis
	}
	if strings.TrimSpace(question) == "" {
		return "", history, ErrEmptyQuestion
	}
	history = append(history, ChatTurn{Role: RoleUser, Content: question})
	answer, err := c.Oracle.GenerateText(ctx, chatPrompt(result, datasets, question))
	if err != nil {
		log := c.Logger
		if log == nil {
			log = discardLogger()
		}
		log.Warn("chat turn failed", "error", err)
		answer = "Error: " + err.Error()
	}
	history = append(history, ChatTurn{Role: RoleAssistant, Content: answer})
	return answer, history, nil
}

func chatPrompt(result *AnalysisResult, datasets []*dataset.Dataset, question string) string {
	files := make([]string, 0, len(datasets))
	samples := make([]string, 0, len(datasets))
	for _, ds := range datasets {
		shape := ds.Shape()
		files = append(files, fmt.Sprintf("File: %s, Rows: %d, Columns: %s", ds.Name, shape[0], strings.Join(ds.Columns, ", ")))
		sample, err := json.MarshalIndent(ds.Head(chatSampleRows), "", "  ")
		if err != nil {
			sample = []byte("[]")
		}
		samples = append(samples, fmt.Sprintf("%s sample:\n%s", ds.Name, sample))
	}
	charts := make([]string, len(result.Charts))
	for i, ch := range result.Charts {
		charts[i] = fmt.Sprintf("Chart: %s\nInsight: %s", ch.Spec.Title, ch.Insight)
	}

	var b strings.Builder
	b.WriteString("You are analyzing data. Here's the context from the analysis:\n\n")
	fmt.Fprintf(&b, "Focus: %s\n\n", result.Plan.Focus)
	fmt.Fprintf(&b, "Files:\n%s\n\n", strings.Join(files, "\n"))
	fmt.Fprintf(&b, "Sample Data:\n%s\n\n", strings.Join(samples, "\n\n"))
	fmt.Fprintf(&b, "Charts and Insights:\n%s\n\n", strings.Join(charts, "\n\n"))
	fmt.Fprintf(&b, "Executive Summary: %s\n\n", result.ExecutiveSummary)
	fmt.Fprintf(&b, "User question: %s\n\n", question)
	b.WriteString("Provide a concise, data-driven answer based on the analysis results.")
	return b.String()
}

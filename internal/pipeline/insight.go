package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

const insightSampleRecords = 3

// InsightGenerator writes the short narrative attached to each chart.
type InsightGenerator struct {
	Oracle ai.Oracle
}

// Describe returns the oracle's text verbatim. Axis statistics come from the
// whole source dataset, not the trimmed series.
func (g *InsightGenerator) Describe(ctx context.Context, spec analysis.ChartSpec, series analysis.Series, source *dataset.Dataset) (string, error) {
	return g.Oracle.GenerateText(ctx, insightPrompt(spec, series, source))
}

func insightPrompt(spec analysis.ChartSpec, series analysis.Series, source *dataset.Dataset) string {
	var rows []dataset.Row
	if source != nil {
		rows = source.Rows
	}
	var xStats, yStats string
	if spec.XColumn != "" {
		xStats = "X-column stats: " + mustJSON(analysis.ColumnStats(rows, spec.XColumn))
	}
	if spec.YColumn != "" {
		yStats = "Y-column stats: " + mustJSON(analysis.ColumnStats(rows, spec.YColumn))
	}
	var b strings.Builder
	b.WriteString("Generate a brief, data-driven insight (2-3 sentences) for this chart:\n\n")
	fmt.Fprintf(&b, "Title: %s\n", spec.Title)
	fmt.Fprintf(&b, "Type: %s\n", spec.Type)
	fmt.Fprintf(&b, "Description: %s\n", spec.Description)
	fmt.Fprintf(&b, "%s\n%s\n\n", xStats, yStats)
	fmt.Fprintf(&b, "Sample data: %s\n\n", mustJSON(series.Head(insightSampleRecords)))
	b.WriteString("Provide only the insight text, no additional formatting.")
	return b.String()
}

// mustJSON encodes values built from dataset cells, which are always
// encodable; a failure renders as null.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

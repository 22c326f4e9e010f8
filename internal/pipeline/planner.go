package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
)

// Planner asks the oracle for an analysis plan.
type Planner struct {
	Oracle ai.Oracle
	Logger *slog.Logger
}

// Plan requests 3–5 charts for focus over the schema. Columns and files named
// by the plan are not checked here; unknown files are skipped at build time.
func (p *Planner) Plan(ctx context.Context, schema analysis.Schema, focus string, fileNames []string) (*AnalysisPlan, error) {
	log := p.Logger
	if log == nil {
		log = discardLogger()
	}
	// Decoded generically: any JSON that parses is a plan, whatever its shape.
	var doc any
	if err := p.Oracle.GenerateJSON(ctx, planPrompt(schema, focus, fileNames), &doc); err != nil {
		return nil, &PlanningError{Err: err}
	}
	plan := planFromJSON(doc, log)
	plan.Focus = focus
	for i, c := range plan.Charts {
		c = c.Normalize()
		if !analysis.KnownChartType(c.Type) {
			log.Warn("planner returned unknown chart type; raw rows will be used", "type", c.Type, "title", c.Title)
		}
		plan.Charts[i] = c
	}
	log.Info("plan received", "charts", len(plan.Charts), "summary_points", len(plan.SummaryPoints))
	return &plan, nil
}

// planFromJSON reads a plan out of a generic JSON value. Chart entries that
// are not objects are dropped; fields that are not strings read as empty, so
// the chart falls back to raw rows or an empty series. Non-string summary
// points are kept in their JSON form.
func planFromJSON(doc any, log *slog.Logger) AnalysisPlan {
	plan := AnalysisPlan{Charts: []analysis.ChartSpec{}, SummaryPoints: []string{}}
	obj, ok := doc.(map[string]any)
	if !ok {
		log.Warn("plan is not a JSON object; no charts will be built", "type", fmt.Sprintf("%T", doc))
		return plan
	}
	charts, _ := obj["charts"].([]any)
	for i, entry := range charts {
		c, ok := entry.(map[string]any)
		if !ok {
			log.Warn("dropping malformed chart entry", "index", i)
			continue
		}
		plan.Charts = append(plan.Charts, analysis.ChartSpec{
			Type:        stringField(c, "type"),
			XColumn:     stringField(c, "x_col"),
			YColumn:     stringField(c, "y_col"),
			ColorColumn: stringField(c, "color_col"),
			SourceFile:  stringField(c, "file"),
			Title:       stringField(c, "title"),
			Description: stringField(c, "description"),
		})
	}
	points, _ := obj["summary_points"].([]any)
	for _, pt := range points {
		switch v := pt.(type) {
		case nil:
		case string:
			plan.SummaryPoints = append(plan.SummaryPoints, v)
		default:
			b, err := json.Marshal(v)
			if err == nil {
				plan.SummaryPoints = append(plan.SummaryPoints, string(b))
			}
		}
	}
	return plan
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func planPrompt(schema analysis.Schema, focus string, fileNames []string) string {
	var b strings.Builder
	b.WriteString("You are an expert data analyst. Based on the following schema and user focus, create an analysis plan.\n\n")
	b.WriteString(analysis.RenderPromptContext(schema))
	fmt.Fprintf(&b, "USER FOCUS: %s\n\n", focus)
	fmt.Fprintf(&b, "Available files: %s\n\n", strings.Join(fileNames, ", "))
	b.WriteString("Generate a JSON object with this exact structure:\n")
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"focus\": %q,\n", focus)
	b.WriteString(`  "charts": [
    {
      "type": "chart_type",
      "x_col": "column_name or null",
      "y_col": "column_name or null",
      "color_col": "column_name or null",
      "file": "filename",
      "title": "Chart title",
      "description": "What this chart shows"
    }
  ],
  "summary_points": ["insight 1", "insight 2"]
}
`)
	fmt.Fprintf(&b, "\nChart types to choose from: %s\n\n", strings.Join(analysis.ChartTypes, ", "))
	b.WriteString("Create 3-5 relevant charts that help answer the user's focus. Make sure columns actually exist in the data.")
	return b.String()
}

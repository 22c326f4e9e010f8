package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// Analyzer sequences planning, chart building, insights and the executive
// summary. Charts are processed one at a time in plan order.
type Analyzer struct {
	Oracle ai.Oracle
	Logger *slog.Logger
	// Now is used for CreatedAt; time.Now when nil.
	Now func() time.Time
}

// NewAnalyzer returns an analyzer over oracle. A nil oracle makes Run fail
// with ErrNoAPIKey.
func NewAnalyzer(oracle ai.Oracle, logger *slog.Logger) *Analyzer {
	return &Analyzer{Oracle: oracle, Logger: logger}
}

func (a *Analyzer) log() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return discardLogger()
}

// CheckPreconditions reports the first unmet precondition of Run.
func (a *Analyzer) CheckPreconditions(set *dataset.Set, focus string) error {
	switch {
	case a == nil || a.Oracle == nil:
		return ErrNoAPIKey
	case set == nil || set.Len() == 0:
		return ErrNoFilesUploaded
	case strings.TrimSpace(focus) == "":
		return ErrEmptyFocus
	}
	return nil
}

// Run performs one full analysis. Any oracle or planning failure aborts the
// run and no partial result is returned. Charts naming a file outside set
// are skipped.
func (a *Analyzer) Run(ctx context.Context, set *dataset.Set, focus string) (*AnalysisResult, error) {
	if err := a.CheckPreconditions(set, focus); err != nil {
		return nil, err
	}
	log := a.log()
	started := time.Now()

	schema := analysis.Compress(set.All())
	planner := &Planner{Oracle: a.Oracle, Logger: log}
	plan, err := planner.Plan(ctx, schema, focus, set.Names())
	if err != nil {
		return nil, err
	}

	insights := &InsightGenerator{Oracle: a.Oracle}
	charts := make([]BuiltChart, 0, len(plan.Charts))
	var skipped []string
	for i, spec := range plan.Charts {
		ds, ok := set.Lookup(spec.SourceFile)
		if !ok {
			log.Info("skipping chart for unknown file", "index", i, "file", spec.SourceFile, "title", spec.Title)
			skipped = append(skipped, spec.Title)
			continue
		}
		series, hints := analysis.Build(ds, spec)
		text, err := insights.Describe(ctx, spec, series, ds)
		if err != nil {
			return nil, fmt.Errorf("insight for chart %q: %w", spec.Title, err)
		}
		charts = append(charts, BuiltChart{Spec: spec, Data: series, Insight: text, Hints: hints})
		log.Debug("chart built", "index", i, "type", spec.Type, "records", len(series))
	}

	summary, err := a.Oracle.GenerateText(ctx, summaryPrompt(plan.Focus, charts))
	if err != nil {
		return nil, fmt.Errorf("executive summary: %w", err)
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	res := &AnalysisResult{
		ID:               uuid.NewString(),
		CreatedAt:        now().UTC(),
		Plan:             *plan,
		Charts:           charts,
		ExecutiveSummary: summary,
		Insights:         plan.SummaryPoints,
		Skipped:          skipped,
	}
	log.Info("analysis complete", "charts", len(charts), "skipped", len(skipped), "elapsed", time.Since(started).Round(time.Millisecond))
	return res, nil
}

func summaryPrompt(focus string, charts []BuiltChart) string {
	lines := make([]string, len(charts))
	for i, c := range charts {
		lines[i] = fmt.Sprintf("- %s: %s", c.Spec.Title, c.Insight)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Based on these analysis results, generate a 3-4 sentence executive summary addressing the focus: %q\n\n", focus)
	b.WriteString("Key Insights:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nProvide only the summary text, no additional formatting.")
	return b.String()
}

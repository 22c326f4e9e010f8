package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

const (
	autoSampleRows = 10
	autoLineRows   = 100
)

// AutoCharts builds one line chart per numeric column without calling a
// model. A column is numeric when any of the first 10 rows holds a value
// that reads as a number, including numeric text such as "12".
// It returns nil when no dataset has a numeric column.
func AutoCharts(datasets []*dataset.Dataset) *AnalysisResult {
	var charts []BuiltChart
	for _, ds := range datasets {
		if ds == nil {
			continue
		}
		numeric := numericColumns(ds)
		if len(numeric) == 0 {
			continue
		}
		series := indexedSeries(ds, numeric)
		for _, col := range numeric {
			spec := analysis.ChartSpec{
				Type:        analysis.ChartLine,
				XColumn:     "index",
				YColumn:     col,
				SourceFile:  ds.Name,
				Title:       col + " - Line Chart",
				Description: "Trend analysis of " + col + " from " + ds.Name,
			}
			charts = append(charts, BuiltChart{
				Spec:    spec,
				Data:    series,
				Insight: fmt.Sprintf("Time series visualization of %s showing %d data points.", col, len(series)),
				Hints: analysis.RenderHints{
					Title:    spec.Title,
					Type:     spec.Type,
					XAxisKey: "index",
					YAxisKey: col,
				},
			})
		}
	}
	if len(charts) == 0 {
		return nil
	}
	return &AnalysisResult{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Plan: AnalysisPlan{
			Focus:         "Auto-generated line charts for all numeric columns",
			Charts:        specsOf(charts),
			SummaryPoints: []string{"Automatic visualization of uploaded data"},
		},
		Charts:           charts,
		ExecutiveSummary: fmt.Sprintf("Generated %d line %s from your uploaded data files. These charts show the trends of all numeric columns.", len(charts), plural(len(charts), "chart")),
		Insights:         []string{"Automatic visualization created for all numeric columns"},
		Auto:             true,
	}
}

func numericColumns(ds *dataset.Dataset) []string {
	var out []string
	sample := ds.Head(autoSampleRows)
	for _, col := range ds.Columns {
		for _, r := range sample {
			if _, ok := dataset.ToNumber(r[col]); ok {
				out = append(out, col)
				break
			}
		}
	}
	return out
}

// indexedSeries returns the first 100 rows as records keyed by a 1-based
// index plus every numeric column. Cells that do not read as numbers are
// left out of their record.
func indexedSeries(ds *dataset.Dataset, numeric []string) analysis.Series {
	rows := ds.Head(autoLineRows)
	out := make(analysis.Series, len(rows))
	for i, r := range rows {
		rec := analysis.Record{"index": i + 1}
		for _, col := range numeric {
			if f, ok := dataset.ToNumber(r[col]); ok {
				rec[col] = f
			}
		}
		out[i] = rec
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func specsOf(charts []BuiltChart) []analysis.ChartSpec {
	out := make([]analysis.ChartSpec, len(charts))
	for i, c := range charts {
		out[i] = c.Spec
	}
	return out
}

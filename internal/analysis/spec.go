package analysis

import "strings"

// Chart types understood by Build.
const (
	ChartHistogram = "histogram"
	ChartBar       = "bar"
	ChartScatter   = "scatter"
	ChartViolin    = "violin"
	ChartBox       = "box"
	ChartLine      = "line"
	ChartHeatmap   = "heatmap"
)

// ChartTypes lists every chart type offered to the planner, in prompt order.
var ChartTypes = []string{ChartHistogram, ChartBar, ChartScatter, ChartViolin, ChartBox, ChartLine, ChartHeatmap}

// ChartSpec is one requested visualization. Field names follow the JSON the
// planner asks the model for.
type ChartSpec struct {
	Type        string `json:"type"`
	XColumn     string `json:"x_col,omitempty"`
	YColumn     string `json:"y_col,omitempty"`
	ColorColumn string `json:"color_col,omitempty"`
	SourceFile  string `json:"file"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// KnownChartType reports whether t is one of ChartTypes.
func KnownChartType(t string) bool {
	for _, k := range ChartTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Normalize trims the spec's fields and lower-cases its type.
func (s ChartSpec) Normalize() ChartSpec {
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	s.XColumn = strings.TrimSpace(s.XColumn)
	s.YColumn = strings.TrimSpace(s.YColumn)
	s.ColorColumn = strings.TrimSpace(s.ColorColumn)
	s.SourceFile = strings.TrimSpace(s.SourceFile)
	return s
}

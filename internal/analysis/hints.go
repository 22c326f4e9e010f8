package analysis

// RenderHints tells the presentation layer which series keys to plot.
type RenderHints struct {
	Title    string `json:"title"`
	Type     string `json:"type"`
	XAxisKey string `json:"xAxisKey,omitempty"`
	YAxisKey string `json:"yAxisKey,omitempty"`
}

// HintsFor returns the hints for a spec's chart type.
func HintsFor(spec ChartSpec) RenderHints {
	h := RenderHints{Title: spec.Title, Type: spec.Type}
	switch spec.Type {
	case ChartHistogram:
		h.XAxisKey, h.YAxisKey = "range", "count"
	case ChartBar:
		h.XAxisKey, h.YAxisKey = "category", "count"
	case ChartScatter, ChartLine:
		h.XAxisKey, h.YAxisKey = "x", "y"
	case ChartBox:
		h.XAxisKey, h.YAxisKey = "group", "median"
	}
	return h
}

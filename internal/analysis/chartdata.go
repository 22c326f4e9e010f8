package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// Limits applied while shaping chart data.
const (
	HistogramBins = 20
	BarTopN       = 15
	ScatterMax    = 500
	LineMax       = 100
	RawRowsMax    = 100
)

// Record is one data point of a chart series.
type Record map[string]any

// Series is the ordered data a chart renders.
type Series []Record

// Head returns up to n records, never nil.
func (s Series) Head(n int) Series {
	if n > len(s) {
		n = len(s)
	}
	if n <= 0 {
		return Series{}
	}
	return s[:n]
}

// Build shapes a dataset into the series the chart needs. It is pure and
// never fails: unknown types fall back to raw rows and missing columns yield
// an empty series.
func Build(ds *dataset.Dataset, spec ChartSpec) (Series, RenderHints) {
	spec = spec.Normalize()
	hints := HintsFor(spec)
	if ds == nil {
		return Series{}, hints
	}
	switch spec.Type {
	case ChartHistogram:
		return histogram(ds.Rows, spec.XColumn), hints
	case ChartBar:
		return bar(ds.Rows, spec.XColumn, spec.YColumn), hints
	case ChartScatter:
		return scatter(ds.Rows, spec.XColumn, spec.YColumn, spec.ColorColumn), hints
	case ChartLine:
		return line(ds.Rows, spec.XColumn, spec.YColumn), hints
	case ChartBox:
		return box(ds.Rows, spec.XColumn, spec.YColumn), hints
	default:
		return rawRows(ds.Rows, RawRowsMax), hints
	}
}

func histogram(rows []dataset.Row, x string) Series {
	if x == "" {
		return Series{}
	}
	var vals []float64
	for _, r := range rows {
		if f, ok := dataset.ToNumber(r[x]); ok {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return Series{}
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	width := (hi - lo) / HistogramBins
	if math.IsInf(width, 0) {
		// hi-lo overflowed; halve both ends first.
		width = (hi/2 - lo/2) / HistogramBins * 2
	}
	counts := make([]int, HistogramBins)
	for _, v := range vals {
		counts[binIndex(v, lo, hi, width)]++
	}
	out := make(Series, HistogramBins)
	for i := 0; i < HistogramBins; i++ {
		start := lo + float64(i)*width
		end := start + width
		out[i] = Record{
			"range": fmt.Sprintf("%s-%s", formatInt(jsRound(start)), formatInt(jsRound(end))),
			"count": counts[i],
		}
	}
	return out
}

// binIndex places v in [0, HistogramBins-1]. The maximum, a zero width and
// any non-finite quotient land in the last bin.
func binIndex(v, lo, hi, width float64) int {
	last := HistogramBins - 1
	if !(width > 0) {
		return last
	}
	q := (v - lo) / width
	if math.IsInf(v-lo, 0) {
		q = (v/2 - lo/2) / (hi/2 - lo/2) * HistogramBins
	}
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return last
	}
	i := int(math.Floor(q))
	switch {
	case i < 0:
		return 0
	case i > last:
		return last
	}
	return i
}

func bar(rows []dataset.Row, x, y string) Series {
	if x == "" {
		return Series{}
	}
	type group struct {
		key   string
		count float64
	}
	var groups []*group
	byKey := map[string]*group{}
	for _, r := range rows {
		key := dataset.Format(r[x])
		g := byKey[key]
		if g == nil {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		inc := 1.0
		if y != "" {
			if f, ok := dataset.ToNumber(r[y]); ok {
				inc = f
			}
		}
		g.count += inc
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].count > groups[j].count })
	if len(groups) > BarTopN {
		groups = groups[:BarTopN]
	}
	out := make(Series, len(groups))
	for i, g := range groups {
		out[i] = Record{"category": g.key, "count": g.count}
	}
	return out
}

func scatter(rows []dataset.Row, x, y, color string) Series {
	if x == "" || y == "" {
		return Series{}
	}
	out := Series{}
	for _, r := range rows {
		if len(out) >= ScatterMax {
			break
		}
		fx, okx := dataset.ToNumber(r[x])
		fy, oky := dataset.ToNumber(r[y])
		if !okx || !oky {
			continue
		}
		rec := Record{"x": fx, "y": fy}
		if color != "" {
			rec["color"] = r[color]
		}
		out = append(out, rec)
	}
	return out
}

func line(rows []dataset.Row, x, y string) Series {
	if x == "" || y == "" {
		return Series{}
	}
	out := Series{}
	for _, r := range rows {
		if len(out) >= LineMax {
			break
		}
		xv, yv := r[x], r[y]
		if xv == nil || yv == nil {
			continue
		}
		rec := Record{"x": xv, "y": nil}
		if f, ok := dataset.ToNumber(yv); ok {
			rec["y"] = f
		}
		out = append(out, rec)
	}
	return out
}

func box(rows []dataset.Row, x, y string) Series {
	if y == "" {
		return Series{}
	}
	var order []string
	groups := map[string][]float64{}
	for _, r := range rows {
		f, ok := dataset.ToNumber(r[y])
		if !ok {
			continue
		}
		key := "all"
		if x != "" {
			key = dataset.Format(r[x])
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], f)
	}
	out := make(Series, 0, len(order))
	for _, key := range order {
		out = append(out, boxSummary(key, groups[key]))
	}
	return out
}

// boxSummary computes a nearest-rank five-number summary.
func boxSummary(group string, vals []float64) Record {
	s := make([]float64, len(vals))
	copy(s, vals)
	sort.Float64s(s)
	n := float64(len(s))
	return Record{
		"group":  group,
		"min":    s[0],
		"q1":     s[int(math.Floor(n*0.25))],
		"median": s[int(math.Floor(n*0.5))],
		"q3":     s[int(math.Floor(n*0.75))],
		"max":    s[len(s)-1],
	}
}

func rawRows(rows []dataset.Row, n int) Series {
	if n > len(rows) {
		n = len(rows)
	}
	out := make(Series, n)
	for i := 0; i < n; i++ {
		rec := make(Record, len(rows[i]))
		for k, v := range rows[i] {
			rec[k] = v
		}
		out[i] = rec
	}
	return out
}

func formatInt(f float64) string {
	if f == 0 {
		f = 0 // normalize -0
	}
	return fmt.Sprintf("%.0f", f)
}

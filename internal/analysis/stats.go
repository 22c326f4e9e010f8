package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// Stats is a descriptive summary of one column. Numeric is false when the
// column has no numeric values, in which case only Unique and Count are set.
type Stats struct {
	Numeric bool
	Mean    float64
	Median  float64
	Min     float64
	Max     float64
	StdDev  float64
	Unique  int
	Count   int
}

// MarshalJSON emits the numeric shape or the {unique, count} shape.
func (s Stats) MarshalJSON() ([]byte, error) {
	if !s.Numeric {
		return json.Marshal(struct {
			Unique int `json:"unique"`
			Count  int `json:"count"`
		}{s.Unique, s.Count})
	}
	return json.Marshal(struct {
		Mean   float64 `json:"mean"`
		Median float64 `json:"median"`
		Min    float64 `json:"min"`
		Max    float64 `json:"max"`
		Count  int     `json:"count"`
		StdDev float64 `json:"stddev"`
	}{s.Mean, s.Median, s.Min, s.Max, s.Count, s.StdDev})
}

// ColumnStats summarizes a column over its non-null values. Count is the
// number of non-null values, numeric or not. Median is nearest-rank
// (sorted[n/2]) and the standard deviation is the population one.
func ColumnStats(rows []dataset.Row, column string) Stats {
	var values []any
	for _, r := range rows {
		if v := r[column]; v != nil {
			values = append(values, v)
		}
	}
	var nums []float64
	for _, v := range values {
		if f, ok := dataset.ToNumber(v); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		uniq := map[string]struct{}{}
		for _, v := range values {
			uniq[fmt.Sprintf("%T:%v", v, v)] = struct{}{}
		}
		return Stats{Unique: len(uniq), Count: len(values)}
	}
	sort.Float64s(nums)
	var sum float64
	for _, f := range nums {
		sum += f
	}
	n := float64(len(nums))
	mean := sum / n
	var sq float64
	for _, f := range nums {
		sq += (f - mean) * (f - mean)
	}
	return Stats{
		Numeric: true,
		Mean:    round2(mean),
		Median:  round2(nums[len(nums)/2]),
		Min:     nums[0],
		Max:     nums[len(nums)-1],
		StdDev:  round2(math.Sqrt(sq / n)),
		Count:   len(values),
	}
}

// round2 rounds half up to two decimals.
func round2(x float64) float64 {
	return jsRound(x*100) / 100
}

// jsRound rounds to the nearest integer with ties toward +Inf.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}

package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToNumber coerces a cell value to a finite float64.
// Numbers pass through, bools become 1/0, numeric strings are parsed and
// times become Unix milliseconds. Anything else, including NaN and ±Inf,
// reports false.
func ToNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case time.Time:
		return float64(x.UnixMilli()), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Format renders a cell value as a plain string. nil renders as "null".
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// TypeTag classifies a value by its Go type: number, boolean, date or string.
func TypeTag(v any) string {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return "number"
	case bool:
		return "boolean"
	case time.Time:
		return "date"
	default:
		return "string"
	}
}

package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// Options controls how raw cells become typed values.
type Options struct {
	// DynamicTyping converts numeric, boolean and date-like cells. When false
	// every non-empty cell stays a string.
	DynamicTyping bool
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Delimiter for CSV. If 0, chosen from the extension and the header line.
	Delimiter rune
}

// DefaultOptions returns dynamic typing with auto-detected separators.
func DefaultOptions() Options {
	return Options{DynamicTyping: true}
}

var numericShape = regexp.MustCompile(`^[+-]?[0-9][0-9.,\s\x{00A0}]*([eE][+-]?[0-9]+)?%?$|^[+-]?\.[0-9]+([eE][+-]?[0-9]+)?%?$`)

var thousandsOnly = regexp.MustCompile(`^[+-]?[0-9]{1,3}(,[0-9]{3})+$`)

// convertCell types one raw cell. Empty cells report ok=false so the caller
// leaves the key absent.
func convertCell(raw string, opt Options) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}
	if !opt.DynamicTyping {
		return s, true
	}
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	if x, ok := parseNumeric(s, opt); ok {
		return x, true
	}
	if t, ok := parseTimeMaybe(s); ok {
		return t, true
	}
	return s, true
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric accepts plain, percent-suffixed and locale-grouped numbers
// such as "12.5%", "1.234,5" or "1,234,567".
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), "\u00a0", " ")
	if !numericShape.MatchString(raw) {
		return 0, false
	}
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0 && thousandsOnly.MatchString(raw):
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
		raw = strings.ReplaceAll(raw, " ", "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// normalizeHeader trims names, fills blanks as column_N and suffixes
// duplicates so every column key is unique.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[name]++
		out[i] = name
	}
	return out
}

// buildDataset types every record against the header. Cells past the header
// width are dropped; short records leave trailing columns absent.
func buildDataset(name string, header []string, records [][]string, opt Options) (*dataset.Dataset, error) {
	cols := normalizeHeader(header)
	rows := make([]dataset.Row, 0, len(records))
	for _, rec := range records {
		row := dataset.Row{}
		for j, cell := range rec {
			if j >= len(cols) {
				break
			}
			if v, ok := convertCell(cell, opt); ok {
				row[cols[j]] = v
			}
		}
		rows = append(rows, row)
	}
	return dataset.New(name, cols, rows)
}

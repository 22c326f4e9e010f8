package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"golang.org/x/text/encoding/charmap"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

type xlsParser struct{}

func (xlsParser) CanParse(filename string) bool {
	return hasExt(filename, ".xls")
}

// Parse reads the first sheet of a legacy BIFF workbook.
func (xlsParser) Parse(path string, opt Options) (*dataset.Dataset, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("xls %s has no sheets", filepath.Base(path))
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("xls %s: first sheet unreadable", filepath.Base(path))
	}
	var grid [][]string
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := range cells {
			cells[c] = toUTF8(row.Col(c))
		}
		grid = append(grid, cells)
	}
	// Leading blank rows are not a header.
	for len(grid) > 0 && blankRecord(grid[0]) {
		grid = grid[1:]
	}
	if len(grid) == 0 {
		return dataset.New(filepath.Base(path), nil, nil)
	}
	return buildDataset(filepath.Base(path), grid[0], grid[1:], opt)
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func toUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	return decoded
}

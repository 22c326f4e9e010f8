package parser

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	return hasExt(filename, ".xlsx")
}

// Parse reads the first sheet. Cells are taken as raw values so number
// formats do not leak into typing.
func (xlsxParser) Parse(path string, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx %s has no sheets", filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return dataset.New(filepath.Base(path), nil, nil)
	}
	return buildDataset(filepath.Base(path), rows[0], rows[1:], opt)
}

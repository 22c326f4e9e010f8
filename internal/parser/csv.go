package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	return hasExt(filename, ".csv", ".tsv")
}

func (csvParser) Parse(path string, opt Options) (*dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return ParseCSV(filepath.Base(path), data, opt)
}

// ParseCSV parses delimited text already in memory. Input that is not valid
// UTF-8 is decoded as Windows-1252.
func ParseCSV(name string, data []byte, opt Options) (*dataset.Dataset, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		data = decoded
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name, data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	// Trimming a whitespace delimiter would merge empty cells; convertCell
	// trims values instead.
	r.TrimLeadingSpace = !unicode.IsSpace(delim)
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return dataset.New(name, nil, nil)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return buildDataset(name, header, records, opt)
}

// sniffDelimiter uses tab for .tsv files, otherwise whichever of ',', ';'
// and tab occurs most in the first line. Ties go to comma.
func sniffDelimiter(name string, data []byte) rune {
	if hasExt(name, ".tsv") {
		return '\t'
	}
	first := string(data)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	best, bestN := ',', strings.Count(first, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(first, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

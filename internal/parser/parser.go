package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// Parser turns a tabular file on disk into a dataset.
type Parser interface {
	CanParse(filename string) bool
	Parse(path string, opt Options) (*dataset.Dataset, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupportedFileType is matched by every *UnsupportedFileTypeError.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// UnsupportedFileTypeError reports a file whose extension no parser handles.
type UnsupportedFileTypeError struct {
	Name string
	Ext  string
}

func (e *UnsupportedFileTypeError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("unsupported file type: %s has no extension (expected .csv, .tsv, .xlsx or .xls)", e.Name)
	}
	return fmt.Sprintf("unsupported file type: %s (expected .csv, .tsv, .xlsx or .xls)", e.Ext)
}

func (e *UnsupportedFileTypeError) Is(target error) bool { return target == ErrUnsupportedFileType }

// Supported reports whether some registered parser accepts the filename.
func Supported(filename string) bool {
	return lookup(filename) != nil
}

// ParseFile parses path with DefaultOptions.
func ParseFile(path string) (*dataset.Dataset, error) {
	return ParseFileWith(path, DefaultOptions())
}

// ParseFileWith selects a parser by extension and returns the dataset named
// after the file's base name.
func ParseFileWith(path string, opt Options) (*dataset.Dataset, error) {
	p := lookup(path)
	if p == nil {
		return nil, &UnsupportedFileTypeError{Name: filepath.Base(path), Ext: strings.ToLower(filepath.Ext(path))}
	}
	return p.Parse(path, opt)
}

func lookup(filename string) Parser {
	for _, p := range registry {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
	Register(xlsParser{})
}

package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// sampleValues is how many non-null values per column feed type inference.
const sampleValues = 5

// ColumnType pairs a column with its inferred type tag, e.g. "number" or
// "number/string" when the sampled values are mixed.
type ColumnType struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FileSchema is the compressed description of one dataset.
type FileSchema struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	RowCount    int          `json:"rows"`
	Columns     []ColumnType `json:"columns"`
}

// ColumnTypes returns the column → type mapping.
func (f FileSchema) ColumnTypes() map[string]string {
	out := make(map[string]string, len(f.Columns))
	for _, c := range f.Columns {
		out[c.Name] = c.Type
	}
	return out
}

// Schema is the compact, prompt-ready summary of a set of datasets.
type Schema struct {
	Files []FileSchema `json:"files"`
}

// File returns the schema entry for the named dataset.
func (s Schema) File(name string) (FileSchema, bool) {
	for _, f := range s.Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileSchema{}, false
}

// Compress summarizes each dataset's columns by sampling the first few
// non-null values in row order and tagging them by value type.
func Compress(datasets []*dataset.Dataset) Schema {
	out := Schema{Files: make([]FileSchema, 0, len(datasets))}
	for _, ds := range datasets {
		if ds == nil {
			continue
		}
		shape := ds.Shape()
		fs := FileSchema{
			Name:        ds.Name,
			Description: fmt.Sprintf("Dataset with %d rows and %d columns", shape[0], shape[1]),
			RowCount:    shape[0],
			Columns:     make([]ColumnType, 0, len(ds.Columns)),
		}
		for _, col := range ds.Columns {
			fs.Columns = append(fs.Columns, ColumnType{Name: col, Type: inferColumnType(ds.Rows, col)})
		}
		out.Files = append(out.Files, fs)
	}
	return out
}

func inferColumnType(rows []dataset.Row, col string) string {
	var tags []string
	seen := map[string]bool{}
	n := 0
	for _, r := range rows {
		if n >= sampleValues {
			break
		}
		v, ok := r[col]
		if !ok || v == nil {
			continue
		}
		n++
		tag := dataset.TypeTag(v)
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return strings.Join(tags, "/")
}

// RenderPromptContext formats the schema as a human-readable block for the model.
func RenderPromptContext(s Schema) string {
	var b strings.Builder
	b.WriteString("DATA SCHEMA:\n\n")
	for _, f := range s.Files {
		names := make([]string, len(f.Columns))
		for i, c := range f.Columns {
			names[i] = c.Name
		}
		b.WriteString(fmt.Sprintf("File: %s\n", f.Name))
		b.WriteString(fmt.Sprintf("Description: %s\n", f.Description))
		b.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(names, ", ")))
		b.WriteString(fmt.Sprintf("Column Types: %s\n\n", orderedTypesJSON(f.Columns)))
	}
	return b.String()
}

// orderedTypesJSON pretty-prints the column types as a JSON object, keeping
// column order rather than sorting keys.
func orderedTypesJSON(cols []ColumnType) string {
	if len(cols) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{\n")
	for i, c := range cols {
		k, _ := json.Marshal(c.Name)
		v, _ := json.Marshal(c.Type)
		b.WriteString("  ")
		b.Write(k)
		b.WriteString(": ")
		b.Write(v)
		if i < len(cols)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/chartloom-cli/internal/parser"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestParseFileCSV_DynamicTyping(t *testing.T) {
	p := writeFile(t, "hop_harvest.csv", []byte(
		"date,plot,alpha_acids,moisture,organic\n"+
			"2024-08-10,A1,12.5%,74,true\n"+
			"2024-08-12,A1,11.8%,,FALSE\n"+
			",,,,\n"+
			"2024-08-15,B3,10.2%,68,true\n"))
	ds, err := parser.ParseFile(p)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ds.Name != "hop_harvest.csv" {
		t.Fatalf("name = %q", ds.Name)
	}
	if got := ds.Shape(); got != [2]int{3, 5} {
		t.Fatalf("shape = %v, want [3 5] (blank row dropped)", got)
	}
	r := ds.Rows[0]
	if r["alpha_acids"] != 12.5 || r["moisture"] != 74.0 || r["organic"] != true || r["plot"] != "A1" {
		t.Fatalf("unexpected typed row: %#v", r)
	}
	if d, ok := r["date"].(time.Time); !ok || d.Day() != 10 {
		t.Fatalf("expected date, got %#v", r["date"])
	}
	if _, present := ds.Rows[1]["moisture"]; present {
		t.Fatalf("empty cell should be absent: %#v", ds.Rows[1])
	}
	if ds.Rows[1]["organic"] != false {
		t.Fatalf("FALSE should type as bool: %#v", ds.Rows[1])
	}
}

func TestParseFileCSV_StaticTyping(t *testing.T) {
	p := writeFile(t, "s.csv", []byte("a,b\n1,true\n"))
	ds, err := parser.ParseFileWith(p, parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ds.Rows[0]["a"] != "1" || ds.Rows[0]["b"] != "true" {
		t.Fatalf("expected raw strings, got %#v", ds.Rows[0])
	}
}

func TestParseFileCSV_LocaleNumbers(t *testing.T) {
	p := writeFile(t, "eu.csv", []byte("amount;label\n\"1.234,5\";x\n\"1,234,567\";y\n0x1F;z\n"))
	ds, err := parser.ParseFile(p)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := ds.Rows[0]["amount"]; got != 1234.5 {
		t.Fatalf("decimal comma: got %#v", got)
	}
	if got := ds.Rows[1]["amount"]; got != 1234567.0 {
		t.Fatalf("thousands grouping: got %#v", got)
	}
	if got := ds.Rows[2]["amount"]; got != "0x1F" {
		t.Fatalf("hex must stay a string: got %#v", got)
	}
}

func TestParseFileTSVAndHeaders(t *testing.T) {
	p := writeFile(t, "t.tsv", []byte("\xef\xbb\xbfname\t\tname\nx\t1\t2\n"))
	ds, err := parser.ParseFile(p)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"name", "column_2", "name_2"}
	for i, c := range want {
		if ds.Columns[i] != c {
			t.Fatalf("columns = %v, want %v", ds.Columns, want)
		}
	}
}

func TestParseCSV_EmptyTabCellsKeepPosition(t *testing.T) {
	cases := []struct {
		name string
		file string
		body string
	}{
		{"tsv", "t.tsv", "a\tb\tc\n1\t\t3\n"},
		{"tab-sniffed csv", "t.csv", "a\tb\tc\n1\t\t3\n"},
		{"leading empty", "t.tsv", "a\tb\tc\n\t\t3\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ds, err := parser.ParseCSV(c.file, []byte(c.body), parser.DefaultOptions())
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			row := ds.Rows[0]
			if _, ok := row["b"]; ok {
				t.Fatalf("empty cell b should be absent: %v", row)
			}
			if got := row["c"]; got != 3.0 {
				t.Fatalf("c = %#v, want 3 (row %v)", got, row)
			}
		})
	}

	ds, err := parser.ParseCSV("s.csv", []byte("a, b\n x,  2\n"), parser.DefaultOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ds.Columns[1] != "b" || ds.Rows[0]["a"] != "x" || ds.Rows[0]["b"] != 2.0 {
		t.Fatalf("comma input should still trim: %v %v", ds.Columns, ds.Rows[0])
	}
}

func TestParseFileCSV_Windows1252(t *testing.T) {
	// "café" with é as 0xE9.
	p := writeFile(t, "w.csv", []byte("drink\ncaf\xe9\n"))
	ds, err := parser.ParseFile(p)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := ds.Rows[0]["drink"]; got != "café" {
		t.Fatalf("got %#v", got)
	}
}

func TestParseFileCSV_OnlyBlankRows(t *testing.T) {
	p := writeFile(t, "blank.csv", []byte("a,b\n,\n , \n"))
	ds, err := parser.ParseFile(p)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := ds.Shape(); got != [2]int{0, 0} {
		t.Fatalf("shape = %v", got)
	}
}

func TestParseFileXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"region", "revenue", "note"},
		{"north", 10.5, "ok"},
		{nil, nil, nil},
		{"south", 20, nil},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	p := filepath.Join(t.TempDir(), "sales.xlsx")
	if err := f.SaveAs(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	ds, err := parser.ParseFile(p)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := ds.Shape(); got != [2]int{2, 3} {
		t.Fatalf("shape = %v", got)
	}
	if ds.Rows[0]["revenue"] != 10.5 || ds.Rows[1]["revenue"] != 20.0 {
		t.Fatalf("unexpected rows: %#v", ds.Rows)
	}
	if _, ok := ds.Rows[1]["note"]; ok {
		t.Fatalf("empty cell should be absent")
	}
}

func TestParseFileUnsupported(t *testing.T) {
	p := writeFile(t, "notes.txt", []byte("hello"))
	_, err := parser.ParseFile(p)
	if !errors.Is(err, parser.ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
	var ue *parser.UnsupportedFileTypeError
	if !errors.As(err, &ue) || ue.Ext != ".txt" {
		t.Fatalf("expected *UnsupportedFileTypeError for .txt, got %#v", err)
	}
	if parser.Supported("x.docx") || !parser.Supported("X.XLS") {
		t.Fatalf("Supported misreports extensions")
	}
}

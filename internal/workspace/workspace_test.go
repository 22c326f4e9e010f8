package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
	"github.com/KaramelBytes/chartloom-cli/internal/workspace"
)

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tdir := t.TempDir()
	sales := writeCSV(t, tdir, "sales.csv", "region,revenue\nnorth,10\nsouth,20\n")

	ws := workspace.New("q3", "quarterly numbers", filepath.Join(tdir, "ws"))
	ds, err := ws.AddFile(sales, "raw export")
	if err != nil {
		t.Fatalf("add file: %v", err)
	}
	if ds.Shape() != [2]int{2, 2} {
		t.Fatalf("shape = %v", ds.Shape())
	}
	ws.Result = &pipeline.AnalysisResult{ID: "r1", ExecutiveSummary: "fine"}
	ws.Transcript = []pipeline.ChatTurn{{Role: pipeline.RoleUser, Content: "hi"}}
	if err := ws.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := workspace.Load(ws.RootDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "q3" || len(got.Files) != 1 {
		t.Fatalf("unexpected workspace: %+v", got)
	}
	if got.Result == nil || got.Result.ExecutiveSummary != "fine" {
		t.Fatalf("result not persisted: %+v", got.Result)
	}
	f := got.SortedFiles()[0]
	if f.Name != "sales.csv" || f.Rows != 2 || f.Columns != 2 || f.Description != "raw export" {
		t.Fatalf("unexpected file entry: %+v", f)
	}

	s, err := got.Session(nil, nil)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if len(s.Datasets()) != 1 || s.Result().ID != "r1" || len(s.Transcript()) != 1 {
		t.Fatalf("session not restored")
	}
}

func TestAddFileReplacesSameName(t *testing.T) {
	tdir := t.TempDir()
	p := writeCSV(t, tdir, "a.csv", "x\n1\n")
	ws := workspace.New("w", "", tdir)
	if _, err := ws.AddFile(p, ""); err != nil {
		t.Fatal(err)
	}
	writeCSV(t, tdir, "a.csv", "x\n1\n2\n3\n")
	if _, err := ws.AddFile(p, ""); err != nil {
		t.Fatal(err)
	}
	if len(ws.Files) != 1 {
		t.Fatalf("expected one entry, got %d", len(ws.Files))
	}
	if ws.SortedFiles()[0].Rows != 3 {
		t.Fatalf("entry not replaced")
	}
}

func TestAddFileUnsupported(t *testing.T) {
	tdir := t.TempDir()
	p := writeCSV(t, tdir, "notes.docx", "hello")
	ws := workspace.New("w", "", tdir)
	if _, err := ws.AddFile(p, ""); err == nil {
		t.Fatal("expected error for unsupported file")
	}
	if len(ws.Files) != 0 {
		t.Fatal("unsupported file was registered")
	}
}

func TestRemoveLastFileClearsResult(t *testing.T) {
	tdir := t.TempDir()
	p := writeCSV(t, tdir, "a.csv", "x\n1\n")
	ws := workspace.New("w", "", tdir)
	if _, err := ws.AddFile(p, ""); err != nil {
		t.Fatal(err)
	}
	ws.Result = &pipeline.AnalysisResult{ID: "r"}
	ws.Transcript = []pipeline.ChatTurn{{Role: pipeline.RoleUser, Content: "q"}}

	if _, err := ws.RemoveFile("missing.csv"); !errors.Is(err, workspace.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if _, err := ws.RemoveFile("a.csv"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ws.Result != nil || ws.Transcript != nil {
		t.Fatal("result and transcript should be cleared")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := workspace.Load(t.TempDir()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

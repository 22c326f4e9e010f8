package utils_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"short", "hi", 1},
		{"schema", strings.Repeat("a", 4000), 1000},
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got != c.want {
			t.Errorf("%s: got %d want %d", c.name, got, c.want)
		}
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := strings.Repeat("abcd ", 1000)
	trunc := utils.TruncateToTokenLimit(text, 300)
	if n := utils.CountTokens(trunc); n > 300 {
		t.Fatalf("tokens=%d exceeds limit", n)
	}
	if utils.TruncateToTokenLimit(text, 0) != "" {
		t.Fatalf("expected empty truncation for zero limit")
	}
}

func TestFindWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "data", "2024")
	if err := utils.EnsureDir(nested); err != nil {
		t.Fatal(err)
	}
	if err := utils.WriteJSON(filepath.Join(root, utils.WorkspaceFileName), map[string]string{"name": "w"}, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := utils.FindWorkspaceRoot(nested)
	if err != nil {
		t.Fatalf("find root: %v", err)
	}
	if got != root {
		t.Fatalf("root = %q, want %q", got, root)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}

	if _, err := utils.FindWorkspaceRoot(t.TempDir()); !errors.Is(err, utils.ErrWorkspaceNotFound) {
		t.Fatalf("expected ErrWorkspaceNotFound, got %v", err)
	}
}

func TestSafeWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := utils.SafeWriteFile(path, []byte("a: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := utils.SafeWriteFile(path, []byte("a: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "a: 2\n" {
		t.Fatalf("content = %q", b)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	if err := utils.SafeWriteFile(filepath.Join(t.TempDir(), "missing", "x"), nil, 0o644); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

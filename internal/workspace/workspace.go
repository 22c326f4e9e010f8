// Package workspace persists a working set of data files together with the
// last analysis result and its chat transcript.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/parser"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

// ErrFileNotFound is returned by RemoveFile for an unknown name or id.
var ErrFileNotFound = errors.New("file not found in workspace")

// Workspace is a ChartLoom workspace persisted as workspace.json.
type Workspace struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Files       map[string]*File         `json:"files"`
	Result      *pipeline.AnalysisResult `json:"result,omitempty"`
	Transcript  []pipeline.ChatTurn      `json:"transcript,omitempty"`
	Config      *Config                  `json:"config"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`

	rootDir string
}

// Config holds per-workspace overrides of the global model settings.
type Config struct {
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// New constructs an in-memory workspace. Call Save to persist.
func New(name, description, rootDir string) *Workspace {
	now := time.Now()
	return &Workspace{
		Name:        name,
		Description: description,
		Files:       make(map[string]*File),
		Config:      &Config{},
		CreatedAt:   now,
		UpdatedAt:   now,
		rootDir:     rootDir,
	}
}

// Load reads workspace.json from dir.
func Load(dir string) (*Workspace, error) {
	path := filepath.Join(dir, utils.WorkspaceFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	var w Workspace
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("parse workspace: %w", err)
	}
	if w.Files == nil {
		w.Files = make(map[string]*File)
	}
	if w.Config == nil {
		w.Config = &Config{}
	}
	w.rootDir = dir
	return &w, nil
}

// RootDir returns the on-disk workspace directory.
func (w *Workspace) RootDir() string { return w.rootDir }

// Save writes workspace.json atomically.
func (w *Workspace) Save() error {
	if w.rootDir == "" {
		return errors.New("workspace root directory not set")
	}
	if err := utils.EnsureDir(w.rootDir); err != nil {
		return err
	}
	w.UpdatedAt = time.Now()
	return utils.WriteJSON(filepath.Join(w.rootDir, utils.WorkspaceFileName), w, 0o644)
}

// AddFile parses path and registers it. A file with the same base name
// replaces the earlier entry. The parsed dataset is returned.
func (w *Workspace) AddFile(path, description string) (*dataset.Dataset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	ds, err := parser.ParseFile(abs)
	if err != nil {
		return nil, err
	}
	if existing := w.byName(ds.Name); existing != nil {
		delete(w.Files, existing.ID)
	}
	shape := ds.Shape()
	f := &File{
		ID:          uuid.NewString(),
		Path:        abs,
		Name:        ds.Name,
		Description: description,
		Rows:        shape[0],
		Columns:     shape[1],
		AddedAt:     time.Now(),
	}
	if w.Files == nil {
		w.Files = make(map[string]*File)
	}
	w.Files[f.ID] = f
	w.UpdatedAt = time.Now()
	return ds, nil
}

// RemoveFile unregisters a file by name or id. Removing the last file clears
// the stored result and transcript.
func (w *Workspace) RemoveFile(nameOrID string) (*File, error) {
	f, ok := w.Files[nameOrID]
	if !ok {
		f = w.byName(nameOrID)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, nameOrID)
	}
	delete(w.Files, f.ID)
	if len(w.Files) == 0 {
		w.Result = nil
		w.Transcript = nil
	}
	w.UpdatedAt = time.Now()
	return f, nil
}

// SortedFiles returns the files ordered by the time they were added.
func (w *Workspace) SortedFiles() []*File {
	out := make([]*File, 0, len(w.Files))
	for _, f := range w.Files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out
}

// Datasets re-parses every registered file in SortedFiles order.
func (w *Workspace) Datasets() ([]*dataset.Dataset, error) {
	files := w.SortedFiles()
	out := make([]*dataset.Dataset, 0, len(files))
	for _, f := range files {
		ds, err := parser.ParseFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f.Name, err)
		}
		out = append(out, ds)
	}
	return out, nil
}

// Session returns a pipeline session restored from the workspace's files,
// result and transcript.
func (w *Workspace) Session(oracle ai.Oracle, logger *slog.Logger) (*pipeline.Session, error) {
	ds, err := w.Datasets()
	if err != nil {
		return nil, err
	}
	s := pipeline.NewSession(oracle, logger)
	s.Restore(ds, w.Result, w.Transcript)
	return s, nil
}

// Capture copies the session's result and transcript into the workspace.
func (w *Workspace) Capture(s *pipeline.Session) {
	w.Result = s.Result()
	w.Transcript = s.Transcript()
	w.UpdatedAt = time.Now()
}

func (w *Workspace) byName(name string) *File {
	for _, f := range w.Files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Package pipeline runs the compress → plan → execute analysis over a set of
// datasets and answers follow-up questions about the result.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
)

// Precondition failures. They are reported before any model call.
var (
	ErrNoAPIKey        = errors.New("no model configured: set an API key or choose the ollama provider")
	ErrNoFilesUploaded = errors.New("please add at least one data file")
	ErrEmptyFocus      = errors.New("please enter an analysis focus")
	ErrNoAnalysis      = errors.New("no analysis result yet: run an analysis first")
	ErrEmptyQuestion   = errors.New("question cannot be empty")
	ErrBusy            = errors.New("another action is in progress")
)

// PlanningError wraps any failure to obtain a usable plan.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string { return fmt.Sprintf("planning failed: %v", e.Err) }
func (e *PlanningError) Unwrap() error { return e.Err }

// AnalysisPlan is the model's proposal for one run.
type AnalysisPlan struct {
	Focus         string               `json:"focus"`
	Charts        []analysis.ChartSpec `json:"charts"`
	SummaryPoints []string             `json:"summary_points"`
}

// BuiltChart is a chart spec with its series and insight.
type BuiltChart struct {
	Spec    analysis.ChartSpec   `json:"plan"`
	Data    analysis.Series      `json:"data"`
	Insight string               `json:"insight"`
	Hints   analysis.RenderHints `json:"plotConfig"`
}

// AnalysisResult is the root artifact of a run. It is replaced wholesale,
// never merged.
type AnalysisResult struct {
	ID               string       `json:"id"`
	CreatedAt        time.Time    `json:"created_at"`
	Plan             AnalysisPlan `json:"plan"`
	Charts           []BuiltChart `json:"charts"`
	ExecutiveSummary string       `json:"executive_summary"`
	Insights         []string     `json:"insights"`
	// Skipped lists the titles of planned charts whose file was not loaded.
	Skipped []string `json:"skipped,omitempty"`
	// Auto is set for results produced without a model.
	Auto bool `json:"auto,omitempty"`
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one message of the follow-up transcript.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

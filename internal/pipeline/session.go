package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// Session holds the working set, the current result and the chat transcript
// for one user. Only one mutating action runs at a time; a second caller gets
// ErrBusy instead of waiting.
type Session struct {
	Analyzer *Analyzer
	Chat     *Chat
	Logger   *slog.Logger

	action sync.Mutex // held for the whole of a mutating action
	mu     sync.RWMutex
	set    *dataset.Set
	result *AnalysisResult
	turns  []ChatTurn
}

// NewSession returns an empty session whose analyzer and chat share oracle.
func NewSession(oracle ai.Oracle, logger *slog.Logger) *Session {
	if logger == nil {
		logger = discardLogger()
	}
	return &Session{
		Analyzer: &Analyzer{Oracle: oracle, Logger: logger},
		Chat:     &Chat{Oracle: oracle, Logger: logger},
		Logger:   logger,
		set:      dataset.NewSet(),
	}
}

func (s *Session) begin() error {
	if !s.action.TryLock() {
		return ErrBusy
	}
	return nil
}

// AddDatasets adds or replaces datasets and regenerates the automatic charts.
func (s *Session) AddDatasets(ds ...*dataset.Dataset) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.action.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range ds {
		s.set.Add(d)
	}
	if auto := AutoCharts(s.set.All()); auto != nil {
		s.result = auto
	}
	return nil
}

// RemoveDataset drops a dataset. When the set becomes empty the result and
// the transcript are cleared; otherwise the automatic charts are rebuilt.
func (s *Session) RemoveDataset(name string) (bool, error) {
	if err := s.begin(); err != nil {
		return false, err
	}
	defer s.action.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set.Remove(name) {
		return false, nil
	}
	if s.set.Len() == 0 {
		s.result = nil
		s.turns = nil
		return true, nil
	}
	if auto := AutoCharts(s.set.All()); auto != nil {
		s.result = auto
	}
	return true, nil
}

// Analyze runs the pipeline over a snapshot of the working set. On success the
// result is replaced and the transcript reset; on failure both are kept.
func (s *Session) Analyze(ctx context.Context, focus string) (*AnalysisResult, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.action.Unlock()

	s.mu.RLock()
	snapshot := dataset.NewSet(s.set.All()...)
	s.mu.RUnlock()

	res, err := s.Analyzer.Run(ctx, snapshot, focus)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.result = res
	s.turns = nil
	s.mu.Unlock()
	return res, nil
}

// Ask answers question against the current result and records the exchange.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	if err := s.begin(); err != nil {
		return "", err
	}
	defer s.action.Unlock()

	s.mu.RLock()
	result := s.result
	datasets := s.set.All()
	history := append([]ChatTurn(nil), s.turns...)
	s.mu.RUnlock()

	answer, turns, err := s.Chat.Ask(ctx, result, datasets, history, question)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.turns = turns
	s.mu.Unlock()
	return answer, nil
}

// Result returns the current result, or nil.
func (s *Session) Result() *AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Transcript returns a copy of the chat turns.
func (s *Session) Transcript() []ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ChatTurn(nil), s.turns...)
}

// Datasets returns the working set in insertion order.
func (s *Session) Datasets() []*dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.All()
}

// Restore replaces the session state wholesale, typically from a saved
// workspace. Automatic charts are not regenerated.
func (s *Session) Restore(ds []*dataset.Dataset, result *AnalysisResult, turns []ChatTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = dataset.NewSet(ds...)
	s.result = result
	s.turns = append([]ChatTurn(nil), turns...)
}

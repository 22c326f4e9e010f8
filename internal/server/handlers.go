package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
	"github.com/KaramelBytes/chartloom-cli/internal/history"
	"github.com/KaramelBytes/chartloom-cli/internal/parser"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
)

type datasetInfo struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps pipeline errors to HTTP statuses. Anything not a known
// precondition is an upstream failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, parser.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, pipeline.ErrNoAPIKey),
		errors.Is(err, pipeline.ErrNoFilesUploaded),
		errors.Is(err, pipeline.ErrEmptyFocus),
		errors.Is(err, pipeline.ErrNoAnalysis),
		errors.Is(err, pipeline.ErrEmptyQuestion):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listDatasets(w http.ResponseWriter, _ *http.Request) {
	all := s.session.Datasets()
	out := make([]datasetInfo, 0, len(all))
	for _, ds := range all {
		out = append(out, datasetInfo{Name: ds.Name, Rows: ds.Shape()[0], Columns: ds.Columns})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) uploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid or too large upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !parser.Supported(name) {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file type: "+filepath.Ext(name))
		return
	}
	dir, err := os.MkdirTemp(s.uploadDir, "upload-*")
	if err != nil {
		s.logger.Error("create upload dir", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	dst.Close()

	ds, err := parser.ParseFile(path)
	if err != nil {
		if errors.Is(err, parser.ErrUnsupportedFileType) {
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "failed to parse file: "+err.Error())
		return
	}
	if err := s.session.AddDatasets(ds); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.logger.Info("dataset uploaded", "name", ds.Name, "rows", ds.Shape()[0], "columns", ds.Shape()[1])
	writeJSON(w, http.StatusCreated, datasetInfo{Name: ds.Name, Rows: ds.Shape()[0], Columns: ds.Columns})
}

func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	removed, err := s.session.RemoveDataset(name)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "dataset not found: "+name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) schema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, analysis.Compress(s.session.Datasets()))
}

type analyzeRequest struct {
	Focus string `json:"focus"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := s.session.Analyze(r.Context(), req.Focus)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadGateway {
			s.logger.Error("analysis failed", "error", err)
			writeError(w, status, "Analysis failed: "+err.Error())
			return
		}
		writeError(w, status, err.Error())
		return
	}
	s.record(r, res)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) record(r *http.Request, res *pipeline.AnalysisResult) {
	if s.history == nil {
		return
	}
	run := history.FromResult(s.workspace, res)
	if s.runInfo != nil {
		s.runInfo(&run)
	}
	if err := s.history.Record(r.Context(), run); err != nil {
		s.logger.Warn("record run", "error", err)
	}
}

func (s *Server) result(w http.ResponseWriter, _ *http.Request) {
	res := s.session.Result()
	if res == nil {
		writeError(w, http.StatusNotFound, pipeline.ErrNoAnalysis.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer     string              `json:"answer"`
	Transcript []pipeline.ChatTurn `json:"transcript"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	answer, err := s.session.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Answer: answer, Transcript: s.session.Transcript()})
}

func (s *Server) transcript(w http.ResponseWriter, _ *http.Request) {
	turns := s.session.Transcript()
	if turns == nil {
		turns = []pipeline.ChatTurn{}
	}
	writeJSON(w, http.StatusOK, turns)
}

type historyEntry struct {
	ID        string `json:"id"`
	Focus     string `json:"focus"`
	Model     string `json:"model,omitempty"`
	Charts    int    `json:"charts"`
	Skipped   int    `json:"skipped"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []historyEntry{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.history.List(r.Context(), s.workspace, limit)
	if err != nil {
		s.logger.Error("list history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	out := make([]historyEntry, 0, len(runs))
	for _, run := range runs {
		out = append(out, historyEntry{
			ID:        run.ID,
			Focus:     run.Focus,
			Model:     run.Model,
			Charts:    run.Charts,
			Skipped:   run.Skipped,
			CreatedAt: run.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

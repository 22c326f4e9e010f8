package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/history"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
)

type stubOracle struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (o *stubOracle) pop() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return "", o.err
	}
	if len(o.replies) == 0 {
		return "", errors.New("out of replies")
	}
	r := o.replies[0]
	o.replies = o.replies[1:]
	return r, nil
}

func (o *stubOracle) GenerateText(context.Context, string) (string, error) { return o.pop() }

func (o *stubOracle) GenerateJSON(_ context.Context, _ string, out any) error {
	text, err := o.pop()
	if err != nil {
		return err
	}
	return ai.DecodeJSON(text, out)
}

func newTestServer(t *testing.T, oracle ai.Oracle, store *history.Store) *httptest.Server {
	t.Helper()
	srv := New(Config{
		Session:   pipeline.NewSession(oracle, nil),
		History:   store,
		Workspace: "test",
		UploadDir: t.TempDir(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, ts *httptest.Server, name, body string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	resp, err := http.Post(ts.URL+"/api/datasets", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postJSON(t *testing.T, ts *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

const salesCSV = "region,revenue\nnorth,10\nsouth,20\nnorth,30\n"

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &stubOracle{}, nil)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestRequestIDEchoesClientValue(t *testing.T) {
	ts := newTestServer(t, &stubOracle{}, nil)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/datasets", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "trace-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "trace-42", resp.Header.Get("X-Request-Id"))

	again, err := http.Get(ts.URL + "/api/datasets")
	require.NoError(t, err)
	defer again.Body.Close()
	assert.NotEmpty(t, again.Header.Get("X-Request-Id"))
	assert.NotEqual(t, "trace-42", again.Header.Get("X-Request-Id"))
}

func TestUploadListAndAutoCharts(t *testing.T) {
	ts := newTestServer(t, &stubOracle{}, nil)

	resp := upload(t, ts, "sales.csv", salesCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	info := decode[datasetInfo](t, resp)
	assert.Equal(t, "sales.csv", info.Name)
	assert.Equal(t, 3, info.Rows)

	list, err := http.Get(ts.URL + "/api/datasets")
	require.NoError(t, err)
	defer list.Body.Close()
	assert.Len(t, decode[[]datasetInfo](t, list), 1)

	res, err := http.Get(ts.URL + "/api/result")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, decode[pipeline.AnalysisResult](t, res).Auto)
}

func TestUploadUnsupportedType(t *testing.T) {
	ts := newTestServer(t, &stubOracle{}, nil)
	resp := upload(t, ts, "notes.pdf", "%PDF")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestAnalyzePreconditions(t *testing.T) {
	ts := newTestServer(t, &stubOracle{}, nil)
	resp := postJSON(t, ts, "/api/analyze", `{"focus":"revenue"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[errorBody](t, resp).Error, "add at least one data file")

	upload(t, ts, "sales.csv", salesCSV)
	resp = postJSON(t, ts, "/api/analyze", `{"focus":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts, "/api/analyze", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeNoOracle(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	upload(t, ts, "sales.csv", salesCSV)
	resp := postJSON(t, ts, "/api/analyze", `{"focus":"revenue"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeAndChat(t *testing.T) {
	oracle := &stubOracle{replies: []string{
		`{"charts":[{"type":"bar","x_col":"region","y_col":"revenue","file":"sales.csv","title":"By region"}],"summary_points":["north"]}`,
		"North leads.",
		"Revenue concentrates in the north.",
		"North, by 20.",
	}}
	store, err := history.Open(context.Background(), filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ts := newTestServer(t, oracle, store)
	upload(t, ts, "sales.csv", salesCSV)

	resp := postJSON(t, ts, "/api/analyze", `{"focus":"revenue by region"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[pipeline.AnalysisResult](t, resp)
	require.Len(t, res.Charts, 1)
	assert.Equal(t, "Revenue concentrates in the north.", res.ExecutiveSummary)

	resp = postJSON(t, ts, "/api/chat", `{"question":"Who leads?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chat := decode[chatResponse](t, resp)
	assert.Equal(t, "North, by 20.", chat.Answer)
	assert.Len(t, chat.Transcript, 2)

	hist, err := http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	defer hist.Body.Close()
	entries := decode[[]historyEntry](t, hist)
	require.Len(t, entries, 1)
	assert.Equal(t, res.ID, entries[0].ID)
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	ts := newTestServer(t, &stubOracle{err: errors.New("provider exploded")}, nil)
	upload(t, ts, "sales.csv", salesCSV)
	resp := postJSON(t, ts, "/api/analyze", `{"focus":"revenue"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, decode[errorBody](t, resp).Error, "Analysis failed")
}

func TestChatWithoutResult(t *testing.T) {
	ts := newTestServer(t, &stubOracle{}, nil)
	resp := postJSON(t, ts, "/api/chat", `{"question":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteDataset(t *testing.T) {
	ts := newTestServer(t, &stubOracle{}, nil)
	upload(t, ts, "sales.csv", salesCSV)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/datasets/sales.csv", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	res, err := http.Get(ts.URL + "/api/result")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(pipeline.ErrBusy))
	assert.Equal(t, http.StatusBadRequest, statusFor(pipeline.ErrEmptyQuestion))
	assert.Equal(t, http.StatusBadGateway, statusFor(&pipeline.PlanningError{Err: errors.New("x")}))
}

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	s := &ipv4Server{URL: "http://" + ln.Addr().String(), srv: srv}
	t.Cleanup(s.Close)
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

// statusSequence answers /chat/completions with statuses[i] on the i-th call,
// repeating the last one.
func statusSequence(t *testing.T, statuses []int, headers []http.Header, bodyOK any) (*ipv4Server, *int32) {
	t.Helper()
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&calls, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		if i < len(headers) {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		w.WriteHeader(statuses[i])
		if statuses[i] >= 200 && statuses[i] < 300 {
			_ = json.NewEncoder(w).Encode(bodyOK)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "try later"}})
	}))
	return srv, &calls
}

var okBody = GenerateResponse{
	Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}},
	Usage:   Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
}

func hiRequest() GenerateRequest {
	return GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1}
}

func TestGenerateRetriesOn429(t *testing.T) {
	srv, calls := statusSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"0"}}, {}}, okBody)

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, hiRequest())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Content() != "ok" || resp.Usage.TotalTokens != 12 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestRetryAfterHonored(t *testing.T) {
	srv, _ := statusSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"1"}}, {}}, okBody)

	c := NewClientWithBaseURL("test", 5*time.Second, 3, 0, 0, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	if _, err := c.Generate(ctx, hiRequest()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("expected at least ~1s delay due to Retry-After, got %v", elapsed)
	}
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	srv, _ := statusSequence(t, []int{503}, []http.Header{{"Retry-After": {"5"}}}, okBody)

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 0, 0, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Generate(ctx, hiRequest())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("retry sleep ignored cancellation")
	}
}

func TestErrorIncludesRequestID(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad req", "code": "bad_request"}})
	}))

	c := NewClientWithBaseURL("test", 2*time.Second, 1, 10*time.Millisecond, 50*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), hiRequest())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
	var bad *BadRequestError
	if !errors.As(err, &bad) {
		t.Fatalf("expected *BadRequestError, got %T", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "bad_request" {
		t.Fatalf("expected wrapped *APIError with code, got %v", err)
	}
}

func TestAuthErrorNotRetried(t *testing.T) {
	srv, calls := statusSequence(t, []int{401}, nil, okBody)
	c := NewClientWithBaseURL("test", 2*time.Second, 3, time.Millisecond, time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), hiRequest())
	var auth *AuthError
	if !errors.As(err, &auth) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected a single call, got %d", got)
	}
}

func TestGenerateRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", 0, 0, 0, 0).Generate(context.Background(), hiRequest()); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewClient("k", 0, 0, 0, 0).Generate(context.Background(), GenerateRequest{}); err == nil {
		t.Fatalf("expected empty model error")
	}
}

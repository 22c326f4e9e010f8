package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"
)

// Oracle is the text-in/text-out model contract the analysis pipeline
// depends on. GenerateJSON decodes the first JSON value in the reply into out.
type Oracle interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string, out any) error
}

// jsonInstruction is appended to every JSON prompt.
const jsonInstruction = "\n\nIMPORTANT: Return only valid JSON, no markdown formatting or code blocks. Start directly with { or ["

// ErrJSONExtraction means the reply contained no {...} or [...] span.
var ErrJSONExtraction = errors.New("could not extract JSON from response")

// JSONParseError carries the candidate text that failed to decode.
type JSONParseError struct {
	Raw string
	Err error
}

func (e *JSONParseError) Error() string { return fmt.Sprintf("invalid JSON in response: %v", e.Err) }
func (e *JSONParseError) Unwrap() error { return e.Err }

// OracleError wraps a backend failure with the operation that hit it.
type OracleError struct {
	Op  string
	Err error
}

func (e *OracleError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *OracleError) Unwrap() error { return e.Err }

// jsonSpan is greedy: it runs from the first brace or bracket to the last.
var jsonSpan = regexp.MustCompile(`\{[\s\S]*\}|\[[\s\S]*\]`)

// ExtractJSON returns the first greedy JSON-looking span of text.
func ExtractJSON(text string) (string, error) {
	m := jsonSpan.FindString(text)
	if m == "" {
		return "", ErrJSONExtraction
	}
	return m, nil
}

// DecodeJSON extracts and decodes the JSON value embedded in text.
func DecodeJSON(text string, out any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &JSONParseError{Raw: raw, Err: err}
	}
	return nil
}

// RuntimeOracle adapts a Runtime into an Oracle: one user message per call
// with a fixed model, token budget and temperature. It is safe for
// concurrent use and keeps a running total of token usage.
type RuntimeOracle struct {
	Runtime     Runtime
	Model       string
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger

	mu    sync.Mutex
	usage Usage
	calls int
}

// NewRuntimeOracle returns an oracle over rt.
func NewRuntimeOracle(rt Runtime, model string, maxTokens int, temperature float64) *RuntimeOracle {
	return &RuntimeOracle{Runtime: rt, Model: model, MaxTokens: maxTokens, Temperature: temperature}
}

func (o *RuntimeOracle) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// GenerateText sends prompt and returns the reply verbatim.
func (o *RuntimeOracle) GenerateText(ctx context.Context, prompt string) (string, error) {
	text, err := o.generate(ctx, prompt)
	if err != nil {
		return "", &OracleError{Op: "generate text", Err: err}
	}
	return text, nil
}

// GenerateJSON asks for JSON only and decodes the extracted value into out.
func (o *RuntimeOracle) GenerateJSON(ctx context.Context, prompt string, out any) error {
	text, err := o.generate(ctx, prompt+jsonInstruction)
	if err != nil {
		return &OracleError{Op: "generate json", Err: err}
	}
	if err := DecodeJSON(text, out); err != nil {
		o.logger().Debug("json reply rejected", "error", err, "raw", text)
		return err
	}
	return nil
}

func (o *RuntimeOracle) generate(ctx context.Context, prompt string) (string, error) {
	if o.Runtime == nil {
		return "", errors.New("no runtime configured")
	}
	resp, err := o.Runtime.Generate(ctx, GenerateRequest{
		Model:       o.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	})
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	o.usage.Add(resp.Usage)
	o.calls++
	o.mu.Unlock()
	o.logger().Debug("oracle call", "model", o.Model, "request_id", resp.RequestID,
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return resp.Content(), nil
}

// Usage returns the accumulated token usage and the number of calls made.
func (o *RuntimeOracle) Usage() (Usage, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.usage, o.calls
}

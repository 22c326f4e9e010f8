package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRuntime struct {
	replies []string
	err     error
	prompts []string
	reqs    []GenerateRequest
}

func (s *scriptedRuntime) Generate(_ context.Context, req GenerateRequest) (*GenerateResponse, error) {
	s.reqs = append(s.reqs, req)
	s.prompts = append(s.prompts, req.Messages[0].Content)
	if s.err != nil {
		return nil, s.err
	}
	reply := ""
	if len(s.replies) > 0 {
		reply, s.replies = s.replies[0], s.replies[1:]
	}
	return &GenerateResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: reply}}},
		Usage:   Usage{PromptTokens: 5, CompletionTokens: 1},
	}, nil
}

func TestExtractJSON(t *testing.T) {
	got, err := ExtractJSON("Sure! ```json\n{\"a\":1}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)

	got, err = ExtractJSON("list: [1, 2] done")
	require.NoError(t, err)
	assert.Equal(t, "[1, 2]", got)

	// Greedy: first opening brace through last closing brace.
	got, err = ExtractJSON(`a {"x":1} b {"y":2} c`)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1} b {"y":2}`, got)

	_, err = ExtractJSON("no structured data here")
	assert.ErrorIs(t, err, ErrJSONExtraction)
}

func TestDecodeJSONParseError(t *testing.T) {
	var v map[string]any
	err := DecodeJSON("{not json}", &v)
	var pe *JSONParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "{not json}", pe.Raw)
}

func TestRuntimeOracleGenerateJSON(t *testing.T) {
	rt := &scriptedRuntime{replies: []string{"Here you go:\n```json\n{\"focus\":\"x\",\"charts\":[]}\n```"}}
	o := NewRuntimeOracle(rt, "m", 256, 0.3)
	var out struct {
		Focus  string `json:"focus"`
		Charts []any  `json:"charts"`
	}
	require.NoError(t, o.GenerateJSON(context.Background(), "plan please", &out))
	assert.Equal(t, "x", out.Focus)
	assert.True(t, strings.HasPrefix(rt.prompts[0], "plan please"))
	assert.Equal(t, "plan please\n\nIMPORTANT: Return only valid JSON, no markdown formatting or code blocks. Start directly with { or [", rt.prompts[0])
	assert.Equal(t, "m", rt.reqs[0].Model)
	assert.Equal(t, 256, rt.reqs[0].MaxTokens)
	assert.Equal(t, 0.3, rt.reqs[0].Temperature)
	assert.Equal(t, "user", rt.reqs[0].Messages[0].Role)
}

func TestRuntimeOracleGenerateTextVerbatimAndUsage(t *testing.T) {
	rt := &scriptedRuntime{replies: []string{"  two sentences.  ", "again"}}
	o := NewRuntimeOracle(rt, "m", 0, 0)
	text, err := o.GenerateText(context.Background(), "describe")
	require.NoError(t, err)
	assert.Equal(t, "  two sentences.  ", text)
	_, err = o.GenerateText(context.Background(), "describe")
	require.NoError(t, err)
	u, calls := o.Usage()
	assert.Equal(t, 2, calls)
	assert.Equal(t, Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12}, u)
}

func TestRuntimeOracleWrapsBackendErrors(t *testing.T) {
	cause := &AuthError{APIError: &APIError{StatusCode: 401, Message: "bad key"}}
	o := NewRuntimeOracle(&scriptedRuntime{err: cause}, "m", 0, 0)

	_, err := o.GenerateText(context.Background(), "x")
	var oe *OracleError
	require.ErrorAs(t, err, &oe)
	var auth *AuthError
	assert.ErrorAs(t, err, &auth)

	err = o.GenerateJSON(context.Background(), "x", &struct{}{})
	assert.True(t, errors.As(err, &auth))
}

func TestRuntimeOracleJSONFailures(t *testing.T) {
	o := NewRuntimeOracle(&scriptedRuntime{replies: []string{"I cannot help with that."}}, "m", 0, 0)
	err := o.GenerateJSON(context.Background(), "x", &struct{}{})
	assert.ErrorIs(t, err, ErrJSONExtraction)
}

func TestHintFollowsWrappedErrors(t *testing.T) {
	api := &APIError{StatusCode: 401, Message: "bad key"}
	wrapped := &OracleError{Op: "generate", Err: &AuthError{APIError: api}}
	assert.Contains(t, Hint(wrapped), "API key")
	assert.Contains(t, Hint(&UnreachableError{Host: "http://127.0.0.1:11434"}), "127.0.0.1:11434")
	assert.Empty(t, Hint(errors.New("plain")))
}

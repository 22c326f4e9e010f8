package ai

import (
	"errors"
	"fmt"
	"time"
)

// Typed provider failures. Each wraps the decoded *APIError so callers can
// reach status and request id with errors.As.
type (
	// AuthError is a 401/403.
	AuthError struct{ *APIError }
	// RateLimitError is a 429; RetryAfter is zero when the provider sent none.
	RateLimitError struct {
		*APIError
		RetryAfter time.Duration
	}
	// ModelNotFoundError means the configured model does not exist upstream.
	ModelNotFoundError struct{ *APIError }
	// BadRequestError is any other 4xx.
	BadRequestError struct{ *APIError }
	// QuotaExceededError is a billing or credit failure.
	QuotaExceededError struct{ *APIError }
	// ServerError is a 5xx that survived retries.
	ServerError struct{ *APIError }
)

func (e *AuthError) Error() string          { return "authentication failed: " + e.APIError.Error() }
func (e *ModelNotFoundError) Error() string { return "model not found: " + e.APIError.Error() }
func (e *BadRequestError) Error() string    { return "bad request: " + e.APIError.Error() }
func (e *QuotaExceededError) Error() string { return "quota exceeded: " + e.APIError.Error() }
func (e *ServerError) Error() string        { return "provider error: " + e.APIError.Error() }

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}

func (e *AuthError) Unwrap() error          { return e.APIError }
func (e *RateLimitError) Unwrap() error     { return e.APIError }
func (e *ModelNotFoundError) Unwrap() error { return e.APIError }
func (e *BadRequestError) Unwrap() error    { return e.APIError }
func (e *QuotaExceededError) Unwrap() error { return e.APIError }
func (e *ServerError) Unwrap() error        { return e.APIError }

// UnreachableError means no HTTP response was received at all, typically a
// local Ollama that is not running.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Hint returns a one-line remedy for a provider failure, or "".
func Hint(err error) string {
	var (
		auth  *AuthError
		nf    *ModelNotFoundError
		quota *QuotaExceededError
		rl    *RateLimitError
		unr   *UnreachableError
	)
	switch {
	case errors.As(err, &auth):
		return "check the API key (chartloom config set api_key ...)"
	case errors.As(err, &nf):
		return "pick another model (chartloom models show) or pass --model"
	case errors.As(err, &quota):
		return "add credits with the provider or switch to --provider ollama"
	case errors.As(err, &rl):
		return "retry later or raise --retry-max"
	case errors.As(err, &unr):
		if unr.Host != "" {
			return "is the model server running at " + unr.Host + "?"
		}
		return "check network connectivity"
	}
	return ""
}

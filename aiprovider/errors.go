package aiprovider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Category classifies a provider error into the closed taxonomy that drives
// retry and failover decisions. The set is deliberately closed: callers
// switch on it, so new categories are a breaking change.
type Category string

const (
	// CategoryNetwork covers transport failures, upstream 5xx responses and
	// timeouts. Retryable.
	CategoryNetwork Category = "NETWORK_ERROR"

	// CategoryAuth covers invalid or expired credentials. Fatal.
	CategoryAuth Category = "AUTH_ERROR"

	// CategoryConfig covers malformed requests and bad provider
	// configuration. Fatal.
	CategoryConfig Category = "CONFIG_ERROR"

	// CategoryRateLimit covers upstream throttling. Retryable with backoff.
	CategoryRateLimit Category = "RATE_LIMIT"

	// CategoryModelUnavailable covers missing or unsupported models and
	// unadvertised capabilities. Fatal.
	CategoryModelUnavailable Category = "MODEL_UNAVAILABLE"
)

// Error is the classified provider error. It carries a human-readable
// message and a machine-readable category, and wraps the underlying cause.
type Error struct {
	Category Category
	Message  string
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("aiprovider: %s [%s]: %s", e.Provider, e.Category, e.Message)
	}
	return fmt.Sprintf("aiprovider: [%s]: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error category permits a retry with backoff.
func (e *Error) Retryable() bool {
	return e.Category == CategoryNetwork || e.Category == CategoryRateLimit
}

// NewError builds a classified error without an underlying cause.
func NewError(provider string, category Category, message string) *Error {
	return &Error{Category: category, Message: message, Provider: provider}
}

// AsError extracts a classified *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

// IsRetryable reports whether an error chain contains a retryable
// classified error. Unclassified errors are not retried.
func IsRetryable(err error) bool {
	if perr, ok := AsError(err); ok {
		return perr.Retryable()
	}
	return false
}

// Classify maps an arbitrary error from a provider call into the closed
// taxonomy. Already-classified errors pass through unchanged.
//
// Mapping rules:
//   - context deadline / net timeouts -> NETWORK_ERROR (retryable)
//   - OpenAI-compatible API errors by status:
//     401/403 -> AUTH_ERROR, 429 -> RATE_LIMIT, 404 -> MODEL_UNAVAILABLE,
//     400/422 -> CONFIG_ERROR, 5xx -> NETWORK_ERROR
//   - transport-level request errors -> NETWORK_ERROR
//   - anything else -> NETWORK_ERROR (unknown upstream failure)
func Classify(provider string, err error) *Error {
	if err == nil {
		return nil
	}

	if perr, ok := AsError(err); ok {
		return perr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Category: CategoryNetwork,
			Message:  "provider call timed out",
			Provider: provider,
			Err:      err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{
			Category: CategoryNetwork,
			Message:  "network timeout",
			Provider: provider,
			Err:      err,
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(provider, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode > 0 {
			return classifyStatus(provider, reqErr.HTTPStatusCode, reqErr.Error(), err)
		}
		return &Error{
			Category: CategoryNetwork,
			Message:  "request failed before reaching the provider",
			Provider: provider,
			Err:      err,
		}
	}

	return &Error{
		Category: CategoryNetwork,
		Message:  "unclassified provider failure",
		Provider: provider,
		Err:      err,
	}
}

// classifyStatus maps an HTTP status code to an error category.
func classifyStatus(provider string, status int, message string, cause error) *Error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(status)
	}

	var category Category
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		category = CategoryAuth
	case status == http.StatusTooManyRequests:
		category = CategoryRateLimit
	case status == http.StatusNotFound:
		category = CategoryModelUnavailable
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		category = CategoryConfig
	case status >= 500:
		category = CategoryNetwork
	default:
		category = CategoryNetwork
	}

	return &Error{
		Category: category,
		Message:  fmt.Sprintf("provider returned HTTP %d: %s", status, message),
		Provider: provider,
		Err:      cause,
	}
}

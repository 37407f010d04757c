package aiprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestClassifyStatusCodes(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantCategory  Category
		wantRetryable bool
	}{
		{"unauthorized", 401, CategoryAuth, false},
		{"forbidden", 403, CategoryAuth, false},
		{"rate limited", 429, CategoryRateLimit, true},
		{"model not found", 404, CategoryModelUnavailable, false},
		{"bad request", 400, CategoryConfig, false},
		{"unprocessable", 422, CategoryConfig, false},
		{"server error", 500, CategoryNetwork, true},
		{"bad gateway", 502, CategoryNetwork, true},
		{"unexpected status", 418, CategoryNetwork, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := &openai.APIError{HTTPStatusCode: tt.status, Message: "boom"}
			got := Classify("openai", apiErr)

			if got.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.Retryable() != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", got.Retryable(), tt.wantRetryable)
			}
			if got.Provider != "openai" {
				t.Errorf("provider = %q, want openai", got.Provider)
			}
			if !errors.Is(got, apiErr) {
				t.Error("classified error should wrap the original cause")
			}
		})
	}
}

func TestClassifyDeadlineExceeded(t *testing.T) {
	got := Classify("openai", context.DeadlineExceeded)
	if got.Category != CategoryNetwork {
		t.Errorf("category = %q, want %q", got.Category, CategoryNetwork)
	}
	if !got.Retryable() {
		t.Error("deadline exceeded should be retryable")
	}
}

func TestClassifyPassThrough(t *testing.T) {
	original := NewError("offline", CategoryAuth, "bad key")
	got := Classify("openai", fmt.Errorf("wrapped: %w", original))
	if got != original {
		t.Error("already-classified errors should pass through unchanged")
	}
}

func TestClassifyUnknownErrorDefaultsToNetwork(t *testing.T) {
	got := Classify("openai", errors.New("mystery failure"))
	if got.Category != CategoryNetwork {
		t.Errorf("category = %q, want %q", got.Category, CategoryNetwork)
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify("openai", nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", NewError("p", CategoryNetwork, "x"), true},
		{"rate limit", NewError("p", CategoryRateLimit, "x"), true},
		{"auth error", NewError("p", CategoryAuth, "x"), false},
		{"config error", NewError("p", CategoryConfig, "x"), false},
		{"model unavailable", NewError("p", CategoryModelUnavailable, "x"), false},
		{"unclassified", errors.New("plain"), false},
		{"wrapped retryable", fmt.Errorf("outer: %w", NewError("p", CategoryNetwork, "x")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorStringIncludesProviderAndCategory(t *testing.T) {
	err := NewError("openai", CategoryAuth, "invalid key")
	msg := err.Error()
	for _, want := range []string{"openai", "AUTH_ERROR", "invalid key"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error string %q missing %q", msg, want)
		}
	}
}

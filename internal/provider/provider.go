// Package provider contains the upstream LLM adapters. Each adapter
// translates a single prompt into one provider's wire format and extracts
// a plain-text reply from that provider's response shape.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/avelikov/echogate/internal/domain"
)

// noResponsePlaceholder is returned when a provider answers successfully
// but carries no extractable text.
const noResponsePlaceholder = "No response received"

// httpTimeout bounds every upstream call so a hung provider cannot hang
// the gateway.
const httpTimeout = 30 * time.Second

// Adapter is the interface all upstream providers implement.
type Adapter interface {
	// Complete sends one prompt and returns the reply text. modelID is
	// an optional model override; only the Hugging Face adapter requires it.
	Complete(ctx context.Context, prompt, modelID string) (string, error)

	// Name returns the provider name (e.g., "gemini").
	Name() string
}

// ProviderError is returned when an upstream provider fails.
type ProviderError struct {
	Provider string
	Kind     domain.ErrorKind
	Code     int // HTTP status from the provider, 0 if not applicable
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// missingKeyError reports an absent API key for the selected provider.
// Keys are checked per request so a misconfigured provider only fails the
// requests that select it.
func missingKeyError(provider, envVar string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     domain.KindConfigurationError,
		Message:  fmt.Sprintf("%s is not configured", envVar),
	}
}

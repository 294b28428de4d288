package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/avelikov/echogate/internal/domain"
)

const mistralBaseURL = "https://api.mistral.ai"

// Mistral is a direct HTTP adapter for the Mistral chat-completions API.
type Mistral struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewMistral creates a Mistral adapter with the given key and default model.
func NewMistral(apiKey, model string) *Mistral {
	return &Mistral{
		apiKey:  apiKey,
		model:   model,
		baseURL: mistralBaseURL,
		client:  newHTTPClient(),
	}
}

// Name returns the provider name.
func (m *Mistral) Name() string { return domain.ProviderMistral }

// Complete sends a one-message chat completion. Like the Gemini adapter, a
// response with no choices yields the fixed placeholder rather than an error.
func (m *Mistral) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	if m.apiKey == "" {
		return "", missingKeyError(domain.ProviderMistral, "MISTRAL_API_KEY")
	}

	model := m.model
	if modelID != "" {
		model = modelID
	}

	body := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", m.baseURL+"/v1/chat/completions", strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{
			Provider: domain.ProviderMistral,
			Kind:     domain.KindUpstreamError,
			Message:  fmt.Sprintf("request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Provider: domain.ProviderMistral,
			Kind:     domain.KindUpstreamError,
			Code:     resp.StatusCode,
			Message:  string(respBody),
		}
	}

	var result mistralResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &ProviderError{
			Provider: domain.ProviderMistral,
			Kind:     domain.KindResponseFormatError,
			Message:  fmt.Sprintf("failed to parse response: %v", err),
		}
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return noResponsePlaceholder, nil
	}
	return result.Choices[0].Message.Content, nil
}

// API response structures

type mistralResponse struct {
	Choices []mistralChoice `json:"choices"`
}

type mistralChoice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/avelikov/echogate/internal/domain"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini is a direct HTTP adapter for the Google Gemini API. The API key
// travels as a query parameter, per Google's convention.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGemini creates a Gemini adapter with the given key and default model.
func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  newHTTPClient(),
	}
}

// Name returns the provider name.
func (g *Gemini) Name() string { return domain.ProviderGemini }

// Complete sends a single-turn generateContent request. A response with no
// candidates is not an error; it yields the fixed placeholder text.
func (g *Gemini) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	if g.apiKey == "" {
		return "", missingKeyError(domain.ProviderGemini, "GEMINI_API_KEY")
	}

	model := g.model
	if modelID != "" {
		model = modelID
	}

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(model), url.QueryEscape(g.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{
			Provider: domain.ProviderGemini,
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
			Provider: domain.ProviderGemini,
			Kind:     domain.KindUpstreamError,
			Code:     resp.StatusCode,
			Message:  string(respBody),
		}
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &ProviderError{
			Provider: domain.ProviderGemini,
			Kind:     domain.KindResponseFormatError,
			Message:  fmt.Sprintf("failed to parse response: %v", err),
		}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 ||
		result.Candidates[0].Content.Parts[0].Text == "" {
		return noResponsePlaceholder, nil
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// API response structures

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content struct {
		Parts []geminiPart `json:"parts"`
		Role  string       `json:"role"`
	} `json:"content"`
	FinishReason string `json:"finishReason"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avelikov/echogate/internal/domain"
)

const (
	hfBaseURL       = "https://api-inference.huggingface.co"
	hfFallbackModel = "distilbert/distilgpt2"
)

// HuggingFace is an adapter for the HF serverless inference API. Transient
// upstream failures (429, 500, 503) are retried with exponential backoff;
// everything else maps to a terminal error kind.
type HuggingFace struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	retry   RetryPolicy
	sleep   func(context.Context, time.Duration) error
}

// NewHuggingFace creates a HuggingFace adapter with the default retry policy.
func NewHuggingFace(apiKey, model string) *HuggingFace {
	return &HuggingFace{
		apiKey:  apiKey,
		model:   model,
		baseURL: hfBaseURL,
		client:  newHTTPClient(),
		retry:   DefaultRetryPolicy,
		sleep:   sleepContext,
	}
}

// Name returns the provider name.
func (h *HuggingFace) Name() string { return domain.ProviderHuggingFace }

// Complete runs input validation, then POSTs to the inference endpoint,
// retrying transient failures up to the policy's attempt limit.
func (h *HuggingFace) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	if h.apiKey == "" {
		return "", missingKeyError(domain.ProviderHuggingFace, "HF_API_KEY")
	}

	model := h.model
	if modelID != "" {
		model = modelID
	}
	model = strings.TrimSpace(model)
	prompt = strings.TrimSpace(prompt)

	if err := validateHFInput(model, prompt); err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]any{"inputs": prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s", h.baseURL, model)

	var lastErr error
	for attempt := 1; attempt <= h.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := h.sleep(ctx, h.retry.Delay(attempt-1)); err != nil {
				return "", err
			}
		}

		text, retryable, err := h.doRequest(ctx, endpoint, model, payload)
		if err == nil {
			text = stripPromptEcho(text, prompt)
			if text == "" {
				return noResponsePlaceholder, nil
			}
			return text, nil
		}
		if !retryable {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// doRequest performs a single inference call. The second return value reports
// whether the failure may be retried.
func (h *HuggingFace) doRequest(ctx context.Context, endpoint, model string, payload []byte) (string, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", true, &ProviderError{
			Provider: domain.ProviderHuggingFace,
			Kind:     domain.KindUpstreamError,
			Message:  fmt.Sprintf("request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		perr := classifyHFStatus(resp.StatusCode, model, string(body))
		return "", retryableStatus(resp.StatusCode), perr
	}

	text, err := parseHFResponse(body)
	if err != nil {
		return "", false, err
	}
	return text, false, nil
}

// validateHFInput rejects requests that would fail upstream anyway: empty
// model or prompt, and model identifiers that are not exactly "org/name".
func validateHFInput(model, prompt string) error {
	if model == "" {
		return &ProviderError{
			Provider: domain.ProviderHuggingFace,
			Kind:     domain.KindValidationError,
			Message:  "model must not be empty",
		}
	}
	if prompt == "" {
		return &ProviderError{
			Provider: domain.ProviderHuggingFace,
			Kind:     domain.KindValidationError,
			Message:  "prompt must not be empty",
		}
	}
	if strings.Contains(model, "/") {
		parts := strings.Split(model, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return &ProviderError{
				Provider: domain.ProviderHuggingFace,
				Kind:     domain.KindValidationError,
				Message:  fmt.Sprintf("invalid model identifier %q: expected org/name", model),
			}
		}
	}
	return nil
}

// classifyHFStatus maps an inference API status code to a terminal or
// retryable provider error.
func classifyHFStatus(code int, model, body string) *ProviderError {
	perr := &ProviderError{Provider: domain.ProviderHuggingFace, Code: code}
	switch code {
	case http.StatusBadRequest:
		perr.Kind = domain.KindBadRequest
		perr.Message = "bad request: " + body
	case http.StatusUnauthorized:
		perr.Kind = domain.KindAuthFailed
		perr.Message = "invalid API key"
	case http.StatusForbidden:
		perr.Kind = domain.KindAccessDenied
		perr.Message = fmt.Sprintf("access denied for model %q", model)
	case http.StatusNotFound:
		perr.Kind = domain.KindModelNotFound
		perr.Message = fmt.Sprintf("model %q not found, try %q", model, hfFallbackModel)
	case http.StatusGone:
		perr.Kind = domain.KindEndpointDeprecated
		perr.Message = fmt.Sprintf("endpoint for model %q is no longer available", model)
	case http.StatusTooManyRequests:
		perr.Kind = domain.KindRateLimited
		perr.Message = "rate limited by inference API"
	case http.StatusServiceUnavailable:
		perr.Kind = domain.KindModelLoading
		perr.Message = fmt.Sprintf("model %q is loading", model)
	case http.StatusInternalServerError:
		perr.Kind = domain.KindServerError
		perr.Message = "inference API internal error"
	default:
		perr.Kind = domain.KindUpstreamError
		perr.Message = body
	}
	return perr
}

// parseHFResponse accepts the three shapes the inference API is known to
// return: an array of generations, a single generation object, and an object
// keyed by index.
func parseHFResponse(body []byte) (string, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var arr []hfGeneration
		if err := json.Unmarshal(body, &arr); err == nil && len(arr) > 0 && arr[0].GeneratedText != "" {
			return arr[0].GeneratedText, nil
		}
		return "", formatError(body)
	}

	var obj hfGeneration
	if err := json.Unmarshal(body, &obj); err == nil && obj.GeneratedText != "" {
		return obj.GeneratedText, nil
	}

	var indexed map[string]hfGeneration
	if err := json.Unmarshal(body, &indexed); err == nil {
		if gen, ok := indexed["0"]; ok && gen.GeneratedText != "" {
			return gen.GeneratedText, nil
		}
	}

	return "", formatError(body)
}

func formatError(body []byte) *ProviderError {
	return &ProviderError{
		Provider: domain.ProviderHuggingFace,
		Kind:     domain.KindResponseFormatError,
		Message:  fmt.Sprintf("unrecognized response shape: %s", truncate(string(body), 200)),
	}
}

// stripPromptEcho removes the echoed prompt prefix that text-generation
// models commonly return, then trims surrounding whitespace. Stripping a
// pure echo can leave nothing; the caller substitutes the placeholder.
func stripPromptEcho(text, prompt string) string {
	if prompt != "" && strings.HasPrefix(text, prompt) {
		text = strings.TrimPrefix(text, prompt)
	}
	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

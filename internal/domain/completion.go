// Package domain defines the core types shared across the completion
// gateway: identities, usage records, completion requests/results, and the
// error taxonomy surfaced to callers.
package domain

import "time"

// Provider names accepted by the gateway.
const (
	ProviderGemini      = "gemini"
	ProviderMistral     = "mistral"
	ProviderHuggingFace = "huggingface"
)

// DefaultPromptCap is the number of prompts an identity may send.
const DefaultPromptCap = 5

// Identity is an opaque caller reference, either a session token or a
// validated account email. Empty means unauthenticated.
type Identity string

// None is the absence of an identity.
const None Identity = ""

// IsNone reports whether the identity is absent.
func (id Identity) IsNone() bool { return id == None }

// UsageRecord tracks prompt consumption for one identity.
// Invariant: 0 <= PromptCount <= Cap as observed by any reader.
type UsageRecord struct {
	Identity    Identity  `json:"identity"`
	PromptCount int       `json:"promptCount"`
	Cap         int       `json:"cap"`
	CreatedAt   time.Time `json:"createdAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// Remaining returns how many prompts the identity may still send.
func (r UsageRecord) Remaining() int {
	if n := r.Cap - r.PromptCount; n > 0 {
		return n
	}
	return 0
}

// CompletionRequest is one prompt submitted to the gateway.
type CompletionRequest struct {
	Identity   Identity `json:"-"`
	PromptText string   `json:"promptText"`
	Provider   string   `json:"provider"`
	ModelID    string   `json:"modelId,omitempty"` // required for huggingface only
}

// CompletionResult is the outcome of a gateway call: either Text on
// success, or Err carrying a typed Failure.
type CompletionResult struct {
	Text string   `json:"text,omitempty"`
	Err  *Failure `json:"error,omitempty"`
}

// OK reports whether the result is a success.
func (r CompletionResult) OK() bool { return r.Err == nil }

// Success builds a successful result.
func Success(text string) CompletionResult {
	return CompletionResult{Text: text}
}

// Failed builds a failure result.
func Failed(kind ErrorKind, message string) CompletionResult {
	return CompletionResult{Err: &Failure{Kind: kind, Message: message}}
}

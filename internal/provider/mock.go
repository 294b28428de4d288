package provider

import "context"

// MockAdapter is a test double for Adapter.
type MockAdapter struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, prompt, modelID string) (string, error)
}

func (m *MockAdapter) Name() string { return m.ProviderName }

func (m *MockAdapter) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, modelID)
	}
	return "mock response", nil
}

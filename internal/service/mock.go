package service

import "context"

// MockLLM is a test double for LLM. It also backs the built-in "mock"
// provider so agents can run without network access.
type MockLLM struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Name returns the provider name.
func (m *MockLLM) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

// Complete returns a canned response unless CompleteFunc is set.
func (m *MockLLM) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response", Model: "mock-model"}, nil
}

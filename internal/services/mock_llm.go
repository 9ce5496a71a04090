package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/narrative-engine/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing.
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	GenerateFunc  func(ctx context.Context, messages []chat.ChatMessage, tools []chat.Tool) (*chat.GenerateResult, error)
	MetaFunc      func(ctx context.Context, messages []chat.ChatMessage) (string, error)

	// Track calls for testing
	InitModelCalls []string
	GenerateCalls  []GenerateCall
	MetaCalls      []MetaCall

	mu sync.Mutex // protects all fields above
}

type GenerateCall struct {
	Messages []chat.ChatMessage
	Tools    []chat.Tool
}

type MetaCall struct {
	Messages []chat.ChatMessage
}

// NewMockLLMAPI creates a new mock LLM service.
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		InitModelCalls: make([]string, 0),
		GenerateCalls:  make([]GenerateCall, 0),
		MetaCalls:      make([]MetaCall, 0),
	}
}

// InitModel mocks model initialization.
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)

	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// Generate mocks content generation.
func (m *MockLLMAPI) Generate(ctx context.Context, messages []chat.ChatMessage, tools []chat.Tool) (*chat.GenerateResult, error) {
	m.mu.Lock()
	fn := m.GenerateFunc
	m.GenerateCalls = append(m.GenerateCalls, GenerateCall{Messages: messages, Tools: tools})
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages, tools)
	}
	return &chat.GenerateResult{
		Text:       "Mock narration.",
		StopReason: chat.StopReasonEndTurn,
	}, nil
}

// Meta mocks background model calls.
func (m *MockLLMAPI) Meta(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	m.mu.Lock()
	fn := m.MetaFunc
	m.MetaCalls = append(m.MetaCalls, MetaCall{Messages: messages})
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	return `{"odds": "Accept", "success_message": "It works.", "failure_message": "It fails."}`, nil
}

// SetGenerateError sets up the mock to return an error on Generate.
func (m *MockLLMAPI) SetGenerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, messages []chat.ChatMessage, tools []chat.Tool) (*chat.GenerateResult, error) {
		return nil, err
	}
}

// SetMetaError sets up the mock to return an error on Meta.
func (m *MockLLMAPI) SetMetaError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MetaFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return "", err
	}
}

// QueueGenerateResults sets up the mock to return the given results in order,
// then fall back to the default.
func (m *MockLLMAPI) QueueGenerateResults(results ...*chat.GenerateResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := 0
	m.GenerateFunc = func(ctx context.Context, messages []chat.ChatMessage, tools []chat.Tool) (*chat.GenerateResult, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if i < len(results) {
			r := results[i]
			i++
			return r, nil
		}
		return &chat.GenerateResult{Text: "Mock narration.", StopReason: chat.StopReasonEndTurn}, nil
	}
}

// Reset clears all call tracking.
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.GenerateCalls = make([]GenerateCall, 0)
	m.MetaCalls = make([]MetaCall, 0)
}

// GetGenerateCalls returns a copy of the generate call log.
func (m *MockLLMAPI) GetGenerateCalls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]GenerateCall, len(m.GenerateCalls))
	copy(calls, m.GenerateCalls)
	return calls
}

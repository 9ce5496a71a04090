package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/pkg/scenario"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing.
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*state.Session
	scenarios map[string]*scenario.Scenario
	locks     map[uuid.UUID]string
	pingError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions:  make(map[uuid.UUID]*state.Session),
		scenarios: make(map[string]*scenario.Scenario),
		locks:     make(map[uuid.UUID]string),
	}
}

// SetPingError configures the mock to fail on ping with the given error.
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on SaveSession.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping.
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close.
func (m *MockStorage) Close() error {
	return nil
}

// SaveSession mocks saving a session.
func (m *MockStorage) SaveSession(ctx context.Context, id uuid.UUID, s *state.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.sessions[id] = s
	return nil
}

// LoadSession mocks loading a session.
func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	return s, nil
}

// DeleteSession mocks deleting a session.
func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// AcquireTurnLock mocks claiming the per-session turn lock.
func (m *MockStorage) AcquireTurnLock(ctx context.Context, id uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[id]; held {
		return "", nil
	}
	token := uuid.New().String()
	m.locks[id] = token
	return token, nil
}

// ReleaseTurnLock mocks releasing the turn lock.
func (m *MockStorage) ReleaseTurnLock(ctx context.Context, id uuid.UUID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] == token {
		delete(m.locks, id)
	}
	return nil
}

// ListScenarios mocks listing scenarios.
func (m *MockStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string)
	for filename, s := range m.scenarios {
		result[s.Name] = filename
	}
	return result, nil
}

// GetScenario mocks getting a scenario by filename.
func (m *MockStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.scenarios[filename]
	if !exists {
		return nil, errors.New("scenario not found")
	}
	return s, nil
}

// AddScenario adds a scenario to the mock storage (for testing).
func (m *MockStorage) AddScenario(filename string, s *scenario.Scenario) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.FileName = filename
	m.scenarios[filename] = s
}

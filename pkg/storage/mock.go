package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/gatekeeper/pkg/level"
	"github.com/jwebster45206/gatekeeper/pkg/session"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	progress  map[uuid.UUID]*session.Progress
	levels    map[string]level.Level
	pingError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		progress: make(map[uuid.UUID]*session.Progress),
		levels:   make(map[string]level.Level),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on SaveProgress with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveProgress stores a copy of p
func (m *MockStorage) SaveProgress(ctx context.Context, id uuid.UUID, p *session.Progress) error {
	if p == nil {
		return errors.New("progress cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *p
	m.progress[id] = &cp
	return nil
}

// LoadProgress mocks loading progress
func (m *MockStorage) LoadProgress(ctx context.Context, id uuid.UUID) (*session.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, exists := m.progress[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	cp := *p
	return &cp, nil
}

// DeleteProgress mocks deleting progress
func (m *MockStorage) DeleteProgress(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.progress, id)
	return nil
}

// ListLevels returns the added level file names in sorted order
func (m *MockStorage) ListLevels(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.levels))
	for filename := range m.levels {
		names = append(names, filename)
	}
	sort.Strings(names)
	return names, nil
}

// LoadLevels returns the added levels ordered by file name
func (m *MockStorage) LoadLevels(ctx context.Context) ([]level.Level, error) {
	names, _ := m.ListLevels(ctx)

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]level.Level, 0, len(names))
	for _, name := range names {
		out = append(out, m.levels[name].Clone())
	}
	return out, nil
}

// AddLevel adds a level to the mock storage (for testing)
func (m *MockStorage) AddLevel(filename string, l level.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[filename] = l
}

package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/aretw0/daydream/pkg/ports"
)

// MockStore is an in-memory implementation of StateStore for testing purposes.
type MockStore struct {
	data map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string][]byte)}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, record []byte) error {
	m.data[sessionID] = append([]byte(nil), record...)
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	record, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return record, nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestStateStore_Contract(t *testing.T) {
	// The mock doubles as the reference the adapters are measured against.
	ports.RunStateStoreContract(t, NewMockStore())
}

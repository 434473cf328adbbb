package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory SecretStore used in tests and as a stand-in
// when no native secret manager is present. Availability and per-operation
// failures are injectable.
type MemoryStore struct {
	mu        sync.Mutex
	secrets   map[string]map[string]string
	available bool

	// Injectable failures for exercising degraded paths.
	StoreErr error
	GetErr   error
}

var _ SecretStore = (*MemoryStore)(nil)

// NewMemoryStore creates an available, empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		secrets:   make(map[string]map[string]string),
		available: true,
	}
}

// SetAvailable toggles the simulated availability of the store.
func (m *MemoryStore) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

func (m *MemoryStore) IsAvailable(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *MemoryStore) Store(ctx context.Context, service, account, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return ErrUnavailable
	}
	if m.StoreErr != nil {
		return m.StoreErr
	}
	if m.secrets[service] == nil {
		m.secrets[service] = make(map[string]string)
	}
	m.secrets[service][account] = secret
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, service, account string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return "", ErrUnavailable
	}
	if m.GetErr != nil {
		return "", m.GetErr
	}
	secret, ok := m.secrets[service][account]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

func (m *MemoryStore) Delete(ctx context.Context, service, account string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return false, ErrUnavailable
	}
	if _, ok := m.secrets[service][account]; !ok {
		return false, nil
	}
	delete(m.secrets[service], account)
	return true, nil
}

func (m *MemoryStore) FindAll(ctx context.Context, service string) ([]AccountSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return nil, nil
	}
	accounts := make([]string, 0, len(m.secrets[service]))
	for account := range m.secrets[service] {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	results := make([]AccountSecret, 0, len(accounts))
	for _, account := range accounts {
		results = append(results, AccountSecret{Account: account, Secret: m.secrets[service][account]})
	}
	return results, nil
}

// Len reports the number of secrets stored under service.
func (m *MemoryStore) Len(service string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.secrets[service])
}

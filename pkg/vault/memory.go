package vault

import "sync"

// Memory is an in-memory Vault for tests.
type Memory struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func NewMemory() *Memory {
	return &Memory{secrets: map[string]string{}}
}

func (m *Memory) Set(key, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[key] = secret
	return nil
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	secret, ok := m.secrets[key]
	return secret, ok, nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, key)
	return nil
}

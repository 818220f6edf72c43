package auth

import "sync"

// MockStore is an in-memory Store for tests, with error injection.
type MockStore struct {
	creds *Credentials
	mu    sync.RWMutex

	SaveError   error
	LoadError   error
	DeleteError error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) Save(creds *Credentials) error {
	if m.SaveError != nil {
		return m.SaveError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if creds == nil || creds.SessionID == "" {
		return ErrInvalidCredentials
	}
	copy := *creds
	m.creds = &copy
	return nil
}

func (m *MockStore) Load() (*Credentials, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.creds == nil {
		return nil, ErrCredentialsNotFound
	}
	copy := *m.creds
	return &copy, nil
}

func (m *MockStore) Delete() error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds == nil {
		return ErrCredentialsNotFound
	}
	m.creds = nil
	return nil
}

func (m *MockStore) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds != nil
}

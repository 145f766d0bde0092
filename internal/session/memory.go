package session

import "sync"

// MemoryStore keeps the session token in memory for the lifetime of the
// process. It stands in for the platform keychain adapter.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

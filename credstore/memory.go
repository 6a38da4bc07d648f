package credstore

import (
	"context"
	"sync"

	"github.com/campusgate/portalauth/session"
)

var _ session.Store = (*MemoryStore)(nil)

// MemoryStore keeps the token pair in process memory. Used by tests and
// ephemeral sessions that should not outlive the process.
type MemoryStore struct {
	lock         sync.RWMutex
	accessToken  string
	refreshToken string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(ctx context.Context, accessToken, refreshToken string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	return nil
}

func (s *MemoryStore) Load(ctx context.Context) (string, string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.accessToken, s.refreshToken, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	return nil
}

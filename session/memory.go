package session

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry 进程内会话表，测试和单机调试用
type MemoryRegistry struct {
	mu   sync.Mutex
	sess map[string]AppSession
}

var _ Registry = (*MemoryRegistry)(nil)

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sess: map[string]AppSession{}}
}

func (m *MemoryRegistry) Create(_ context.Context, id, userID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess[id] = AppSession{UserID: userID, IssuedAt: time.Now().Unix(), ExpiresAt: expiresAt.Unix()}
	return nil
}

func (m *MemoryRegistry) Get(_ context.Context, id string) (*AppSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, ok := m.sess[id]
	if !ok || time.Now().Unix() > as.ExpiresAt {
		return nil, ErrSessionNotFound
	}
	return &as, nil
}

func (m *MemoryRegistry) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, id)
	return nil
}

func (m *MemoryRegistry) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, as := range m.sess {
		if as.UserID == userID {
			delete(m.sess, id)
		}
	}
	return nil
}

func (m *MemoryRegistry) CountForUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().Unix()
	var n int64
	for _, as := range m.sess {
		if as.UserID == userID && as.ExpiresAt >= now {
			n++
		}
	}
	return n, nil
}

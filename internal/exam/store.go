package exam

import (
	"context"
	"sync"

	"github.com/rccm-study/examcore/internal/bank"
)

// Store persists sessions between requests. Each session is owned by a single
// user's request context; stores only need to be safe for concurrent use
// across different sessions.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

type memoryStore struct {
	mu        sync.RWMutex
	repo      *bank.Repository
	snapshots map[string][]byte
}

// NewMemoryStore keeps serialized sessions in process memory. Snapshots are
// stored in wire form so Get exercises the same validation path as any other
// persistence backend.
func NewMemoryStore(repo *bank.Repository) Store {
	return &memoryStore{repo: repo, snapshots: map[string][]byte{}}
}

func (m *memoryStore) Put(_ context.Context, s *Session) error {
	data, err := s.Serialize()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.ID] = data
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	data, ok := m.snapshots[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return Deserialize(data, m.repo)
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, id)
	return nil
}

package session

import (
	"context"
	"sync"
	"time"

	"marketplace-backend/internal/domains/imports/model"

	"github.com/rs/zerolog/log"
)

// MemoryStore keeps sessions in process memory. A restart loses in-flight
// imports, which is acceptable for a 15-minute workflow; multi-process
// deployments should use the Redis store instead.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.ImportSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*model.ImportSession)}
}

func (m *MemoryStore) Create(_ context.Context, s *model.ImportSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*model.ImportSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	if s.IsExpired() {
		delete(m.sessions, id)
		return nil, model.ErrSessionExpired
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) BeginCommit(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return model.ErrSessionNotFound
	}
	if s.IsExpired() {
		delete(m.sessions, id)
		return model.ErrSessionExpired
	}
	if s.Status != model.SessionStatusPending {
		return model.ErrSessionCommitting
	}

	s.Status = model.SessionStatusCommitting
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.IsExpired() {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper evicts expired sessions on a fixed interval until ctx is
// cancelled, so memory doesn't grow unbounded between reads.
func (m *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.Sweep(ctx); removed > 0 {
					log.Info().
						Int("removed", removed).
						Msg("Swept expired import sessions")
				}
			}
		}
	}()
}

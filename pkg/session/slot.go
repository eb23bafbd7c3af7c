package session

import (
	"context"

	"github.com/aretw0/daydream/pkg/domain"
)

// Slot is the Session State Store for a single key: the named slot the
// persisted record lives in. It satisfies the persistence port of the
// transition controller.
type Slot struct {
	manager *Manager
	key     string
}

// Key returns the session key the slot is bound to.
func (s *Slot) Key() string {
	return s.key
}

// Load reads and repairs the record; see Manager.Load.
func (s *Slot) Load(ctx context.Context) *domain.SessionState {
	return s.manager.load(ctx, s.key)
}

// Save persists state, logging and swallowing failures.
func (s *Slot) Save(ctx context.Context, state *domain.SessionState) {
	s.manager.save(ctx, s.key, state)
}

// Reset clears the record and returns the default state.
func (s *Slot) Reset(ctx context.Context) *domain.SessionState {
	s.manager.clear(ctx, s.key)
	return domain.NewState()
}

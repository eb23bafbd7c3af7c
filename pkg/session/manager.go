package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/daydream/internal/logging"
	"github.com/aretw0/daydream/pkg/domain"
	"github.com/aretw0/daydream/pkg/ports"
)

// DefaultKey is the slot used when a front-end keeps a single session,
// matching the key the browser front-end stores its session under.
const DefaultKey = "daydreamSession"

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
// It covers the default 30s collaborator timeout plus LockMargin twice.
const DefaultLockTTL = 40 * time.Second

// LockMargin is the time a transaction under a distributed lock keeps for
// its save: the transaction's context ends LockMargin before the lock expires.
const LockMargin = 5 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL for distributed locks. Values not
// above twice LockMargin are ignored.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 2*LockMargin {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers hooks; the Manager fires OnStateRepaired.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Slot returns the store view bound to one session key. Slot methods do not
// lock; run them inside WithLock or TryWithLock when callers are concurrent.
func (m *Manager) Slot(sessionID string) *Slot {
	return &Slot{manager: m, key: sessionID}
}

// Load returns a valid state for the session. It never fails: a missing
// record yields the default state, an unreadable or malformed record is
// logged, cleared and replaced by the default, and odd fields are repaired.
// Load does not wait for a pending transaction; while one is in flight it
// reads the last saved record and leaves damaged records in place.
func (m *Manager) Load(ctx context.Context, sessionID string) *domain.SessionState {
	var state *domain.SessionState
	_ = m.TryWithLock(ctx, sessionID, func(ctx context.Context) error {
		state = m.load(ctx, sessionID)
		return nil
	})
	if state == nil {
		state = m.read(ctx, sessionID)
	}
	return state
}

// Save persists the session state. Write failures are logged and swallowed.
func (m *Manager) Save(ctx context.Context, sessionID string, state *domain.SessionState) {
	if err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.save(ctx, sessionID, state)
		return nil
	}); err != nil {
		m.logger.Error("Failed to lock session for save", "session_id", sessionID, "err", err)
	}
}

// Reset clears the stored record and returns the default state.
func (m *Manager) Reset(ctx context.Context, sessionID string) *domain.SessionState {
	if err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.clear(ctx, sessionID)
		return nil
	}); err != nil {
		m.logger.Error("Failed to lock session for reset", "session_id", sessionID, "err", err)
	}
	return domain.NewState()
}

// Exists reports whether a record is stored for the session.
func (m *Manager) Exists(ctx context.Context, sessionID string) (bool, error) {
	_, err := m.store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the session record, reporting backend failures.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session,
// waiting for any pending transaction to finish first.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	return m.withDistributedLock(ctx, sessionID, false, fn)
}

// TryWithLock is WithLock for interactive callers: when a transaction is
// already in flight for the session, here or on another replica, it returns
// domain.ErrSessionBusy immediately instead of queueing.
func (m *Manager) TryWithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	if !entry.mu.TryLock() {
		m.release(sessionID)
		return domain.ErrSessionBusy
	}
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	return m.withDistributedLock(ctx, sessionID, true, fn)
}

// withDistributedLock runs fn under the distributed lock, if one is
// configured. fn's context ends LockMargin before the lock can expire.
func (m *Manager) withDistributedLock(ctx context.Context, sessionID string, try bool, fn func(context.Context) error) error {
	if m.locker == nil {
		return fn(ctx)
	}

	var unlock ports.UnlockFunc
	var err error
	if try {
		unlock, err = m.locker.TryLock(ctx, sessionID, m.lockTTL)
		if errors.Is(err, ports.ErrLockHeld) {
			return domain.ErrSessionBusy
		}
	} else {
		unlock, err = m.locker.Lock(ctx, sessionID, m.lockTTL)
	}
	if err != nil {
		return fmt.Errorf("failed to acquire distributed lock: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
				"session_id", sessionID,
				"err", err,
			)
		}
	}()

	lockCtx, cancel := context.WithTimeout(ctx, m.lockTTL-LockMargin)
	defer cancel()
	return fn(lockCtx)
}

func (m *Manager) load(ctx context.Context, sessionID string) *domain.SessionState {
	state, damaged := m.decode(ctx, sessionID)
	if damaged {
		m.clear(ctx, sessionID)
	}
	return state
}

// read is load without clearing damaged records.
func (m *Manager) read(ctx context.Context, sessionID string) *domain.SessionState {
	state, _ := m.decode(ctx, sessionID)
	return state
}

// decode fetches and repairs the record. damaged reports that the record
// could not be used and should be cleared.
func (m *Manager) decode(ctx context.Context, sessionID string) (state *domain.SessionState, damaged bool) {
	record, err := m.store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewState(), false
	}
	if err != nil {
		m.logger.Error("Failed to load session, starting over", "session_id", sessionID, "err", err)
		return domain.NewState(), true
	}

	state, report, err := domain.Decode(record)
	if err != nil {
		m.logger.Error("Failed to decode session, starting over", "session_id", sessionID, "err", err)
	}
	if report.Repaired() {
		m.logger.Warn("Session record repaired on load",
			"session_id", sessionID,
			"repairs", report.Repairs,
			"reset", report.Reset,
		)
		if m.hooks.OnStateRepaired != nil {
			m.hooks.OnStateRepaired(ctx, &domain.RepairEvent{
				EventBase: domain.EventBase{
					Timestamp: time.Now(),
					Type:      domain.EventStateRepaired,
					SessionID: sessionID,
				},
				Repairs: report.Repairs,
				Reset:   report.Reset,
			})
		}
	}
	return state, report.Reset
}

func (m *Manager) save(ctx context.Context, sessionID string, state *domain.SessionState) {
	record, err := domain.Encode(state)
	if err != nil {
		m.logger.Error("Failed to encode session", "session_id", sessionID, "err", err)
		return
	}
	if err := m.store.Save(ctx, sessionID, record); err != nil {
		m.logger.Error("Failed to save session", "session_id", sessionID, "err", err)
	}
}

func (m *Manager) clear(ctx context.Context, sessionID string) {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		m.logger.Error("Failed to clear session", "session_id", sessionID, "err", err)
	}
}

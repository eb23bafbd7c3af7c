package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/daydream/pkg/adapters/memory"
	"github.com/aretw0/daydream/pkg/domain"
	"github.com/aretw0/daydream/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FlakyStore fails every operation with the configured errors.
type FlakyStore struct {
	*memory.Store
	SaveErr   error
	LoadErr   error
	DeleteErr error
	deletes   int
}

func (s *FlakyStore) Save(ctx context.Context, id string, record []byte) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	return s.Store.Save(ctx, id, record)
}

func (s *FlakyStore) Load(ctx context.Context, id string) ([]byte, error) {
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return s.Store.Load(ctx, id)
}

func (s *FlakyStore) Delete(ctx context.Context, id string) error {
	s.deletes++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	return s.Store.Delete(ctx, id)
}

func activeState() *domain.SessionState {
	return &domain.SessionState{
		Steps: []domain.Step{
			{Prompt: "I want to invent...", Options: []string{"a", "b", "c", "d", "e"}},
		},
		CurrentStepIndex: 0,
	}
}

func TestManager_LoadMissingIsDefault(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())

	state := mgr.Load(context.Background(), "nobody")
	assert.True(t, state.IsDefault())
}

func TestManager_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(memory.NewStore())

	mgr.Save(ctx, "s1", activeState())

	loaded := mgr.Load(ctx, "s1")
	assert.Equal(t, activeState(), loaded)
}

func TestManager_MalformedRecordIsClearedOnLoad(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, "s1", []byte(`{"steps":[],"currentStepIndex":0,"isComplete":true}`)))

	var repaired *domain.RepairEvent
	mgr := session.NewManager(store, session.WithLifecycleHooks(domain.LifecycleHooks{
		OnStateRepaired: func(_ context.Context, e *domain.RepairEvent) { repaired = e },
	}))

	state := mgr.Load(ctx, "s1")
	assert.True(t, state.IsDefault())

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "persisted storage must be cleared")

	require.NotNil(t, repaired)
	assert.True(t, repaired.Reset)
	assert.Equal(t, "s1", repaired.SessionID)
}

func TestManager_InvalidJSONFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, "s1", []byte(`{"steps":[`)))

	mgr := session.NewManager(store)
	assert.True(t, mgr.Load(ctx, "s1").IsDefault())

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_BackendFailuresNeverEscape(t *testing.T) {
	ctx := context.Background()
	store := &FlakyStore{
		Store:     memory.NewStore(),
		SaveErr:   errors.New("disk full"),
		LoadErr:   errors.New("connection refused"),
		DeleteErr: errors.New("read-only"),
	}
	mgr := session.NewManager(store)

	assert.NotPanics(t, func() { mgr.Save(ctx, "s1", activeState()) })
	assert.True(t, mgr.Load(ctx, "s1").IsDefault())
	assert.True(t, mgr.Reset(ctx, "s1").IsDefault())
	assert.Error(t, mgr.Delete(ctx, "s1"), "Delete reports backend failures to admin callers")
}

func TestManager_Reset(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mgr := session.NewManager(store)

	mgr.Save(ctx, "s1", activeState())
	state := mgr.Reset(ctx, "s1")
	assert.True(t, state.IsDefault())

	exists, err := mgr.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManager_TryWithLockRejectsConcurrentTransactions(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(memory.NewStore())

	started := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- mgr.TryWithLock(ctx, "s1", func(context.Context) error {
			close(started)
			<-finish
			return nil
		})
	}()

	<-started
	err := mgr.TryWithLock(ctx, "s1", func(context.Context) error {
		t.Error("second transaction must not run while the first is pending")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	// Other sessions are unaffected.
	assert.NoError(t, mgr.TryWithLock(ctx, "s2", func(context.Context) error { return nil }))

	close(finish)
	require.NoError(t, <-done)

	assert.NoError(t, mgr.TryWithLock(ctx, "s1", func(context.Context) error { return nil }))
}

func TestManager_WithLockSerializes(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(memory.NewStore())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		overlap bool
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.WithLock(ctx, "race-test", func(context.Context) error {
				mu.Lock()
				active++
				if active > 1 {
					overlap = true
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.False(t, overlap, "transactions on the same session must not overlap")
}

func TestSlot_BoundToKey(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(memory.NewStore())
	slot := mgr.Slot(session.DefaultKey)

	assert.Equal(t, "daydreamSession", slot.Key())
	slot.Save(ctx, activeState())
	assert.Equal(t, activeState(), mgr.Load(ctx, session.DefaultKey))

	assert.True(t, slot.Reset(ctx).IsDefault())
	assert.True(t, slot.Load(ctx).IsDefault())
}

func TestManager_LoadWhileBusyKeepsDamagedRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mgr := session.NewManager(store)
	require.NoError(t, store.Save(ctx, "s1", []byte("not json")))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- mgr.TryWithLock(ctx, "s1", func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	assert.True(t, mgr.Load(ctx, "s1").IsDefault())
	exists, err := mgr.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, exists, "a busy session is read, not repaired")

	close(release)
	require.NoError(t, <-done)

	assert.True(t, mgr.Load(ctx, "s1").IsDefault())
	exists, err = mgr.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists, "the damaged record is cleared once the session is free")
}

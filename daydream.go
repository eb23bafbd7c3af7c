package daydream

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/daydream/internal/runtime"
	"github.com/aretw0/daydream/pkg/adapters/memory"
	"github.com/aretw0/daydream/pkg/domain"
	"github.com/aretw0/daydream/pkg/ports"
	"github.com/aretw0/daydream/pkg/session"
)

// Controller drives one session through its screens.
type Controller = runtime.Controller

// RenderFunc receives the view after every controller transaction.
type RenderFunc = runtime.RenderFunc

// Engine is the high-level entry point for the Daydream library.
// It binds a session store, an ideation collaborator and a presentation
// policy, and hands out per-session controllers.
type Engine struct {
	store   ports.StateStore
	locker  ports.DistributedLocker
	ideator ports.Ideator
	policy  domain.Policy
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	timeout time.Duration
	render  RenderFunc

	manager *session.Manager
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the session record backend (default: in-memory).
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker coordinates sessions across processes sharing a store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithIdeator sets the expand/complete collaborator (default: offline in-memory ideator).
func WithIdeator(ideator ports.Ideator) Option {
	return func(e *Engine) {
		e.ideator = ideator
	}
}

// WithPolicy sets the presentation policy.
func WithPolicy(policy domain.Policy) Option {
	return func(e *Engine) {
		e.policy = policy
	}
}

// WithMinCycles overrides the number of steps before completion is offered.
func WithMinCycles(n int) Option {
	return func(e *Engine) {
		e.policy.MinCycles = n
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTimeout bounds each collaborator call made without a caller deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithRenderer registers a render callback shared by all controllers.
func WithRenderer(fn RenderFunc) Option {
	return func(e *Engine) {
		e.render = fn
	}
}

// New initializes a Daydream Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{
		policy:  domain.DefaultPolicy(),
		timeout: runtime.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.ideator == nil {
		eng.ideator = memory.NewIdeator()
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	managerOpts := []session.Option{
		session.WithLogger(eng.logger),
		session.WithLifecycleHooks(eng.hooks),
	}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
		if eng.timeout > 0 {
			managerOpts = append(managerOpts, session.WithLockTTL(eng.timeout+2*session.LockMargin))
		}
	}
	eng.manager = session.NewManager(eng.store, managerOpts...)

	return eng
}

// Open loads the session and returns a controller bound to it.
// The caller must be the session's only writer, as in a single-user terminal.
// Concurrent front-ends should use Do instead.
func (e *Engine) Open(ctx context.Context, sessionID string) *Controller {
	state := e.manager.Load(ctx, sessionID)
	return e.controller(e.manager.Slot(sessionID), state)
}

// Do runs fn with a controller for the session while holding the session
// lock. It returns domain.ErrSessionBusy without waiting when another
// transaction for the same session is in flight.
func (e *Engine) Do(ctx context.Context, sessionID string, fn func(ctx context.Context, c *Controller) error) error {
	return e.manager.TryWithLock(ctx, sessionID, func(ctx context.Context) error {
		slot := e.manager.Slot(sessionID)
		return fn(ctx, e.controller(slot, slot.Load(ctx)))
	})
}

// View projects the stored session without modifying it.
func (e *Engine) View(ctx context.Context, sessionID string) domain.ViewModel {
	return domain.Project(e.manager.Load(ctx, sessionID), e.policy, nil)
}

// Manager returns the session manager backing the engine.
func (e *Engine) Manager() *session.Manager {
	return e.manager
}

// Ideator returns the expand/complete collaborator.
func (e *Engine) Ideator() ports.Ideator {
	return e.ideator
}

// Policy returns the presentation policy.
func (e *Engine) Policy() domain.Policy {
	return e.policy
}

func (e *Engine) controller(slot *session.Slot, state *domain.SessionState) *Controller {
	return runtime.NewController(state, e.ideator, slot,
		runtime.WithSessionID(slot.Key()),
		runtime.WithRenderer(e.render),
		runtime.WithPolicy(e.policy),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
		runtime.WithTimeout(e.timeout),
	)
}

// UserMessage turns an operation error into the text shown to the user.
func UserMessage(err error) string {
	return runtime.UserMessage(err)
}

// TransitionError reports a collaborator failure; the session is unchanged.
type TransitionError = runtime.TransitionError

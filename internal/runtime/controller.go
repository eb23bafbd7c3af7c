package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/daydream/internal/logging"
	"github.com/aretw0/daydream/pkg/domain"
	"github.com/aretw0/daydream/pkg/ports"
)

// DefaultTimeout bounds a single expand or complete call when the caller's
// context carries no deadline.
const DefaultTimeout = 30 * time.Second

// Persister is the Session State Store as seen by the controller.
// Save must not fail the caller; Reset clears storage and returns the default state.
type Persister interface {
	Save(ctx context.Context, state *domain.SessionState)
	Reset(ctx context.Context) *domain.SessionState
}

// RenderFunc receives the render request that follows every transaction.
type RenderFunc func(ctx context.Context, sessionID string, view domain.ViewModel)

// Controller is the transition controller for one session. It owns the
// session state; every mutation goes through one of its operations.
//
// A Controller is not safe for concurrent use. Callers serialize operations,
// for example with session.Manager.TryWithLock or by disabling triggers while
// a call is pending.
type Controller struct {
	sessionID string
	state     *domain.SessionState

	ideator ports.Ideator
	persist Persister
	render  RenderFunc
	policy  domain.Policy
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithSessionID labels events, logs and render requests.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.sessionID = id
	}
}

// WithRenderer registers the render request callback.
func WithRenderer(fn RenderFunc) Option {
	return func(c *Controller) {
		c.render = fn
	}
}

// WithPolicy sets the presentation policy used for projections.
func WithPolicy(policy domain.Policy) Option {
	return func(c *Controller) {
		c.policy = policy
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout overrides DefaultTimeout. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// NewController creates a controller over state, which it takes ownership of.
// A nil state starts at the initial screen.
func NewController(state *domain.SessionState, ideator ports.Ideator, persist Persister, opts ...Option) *Controller {
	if state == nil {
		state = domain.NewState()
	}
	c := &Controller{
		state:   state,
		ideator: ideator,
		persist: persist,
		policy:  domain.DefaultPolicy(),
		logger:  logging.NewNop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("session_id", c.sessionID)
	return c
}

// State returns a copy of the current session state.
func (c *Controller) State() *domain.SessionState {
	return c.state.Clone()
}

// View projects the current state without a failure message.
func (c *Controller) View() domain.ViewModel {
	return domain.Project(c.state, c.policy, nil)
}

// Policy returns the presentation policy in effect.
func (c *Controller) Policy() domain.Policy {
	return c.policy
}

// SessionID returns the session label.
func (c *Controller) SessionID() string {
	return c.sessionID
}

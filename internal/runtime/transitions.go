package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/samber/lo"
)

// TransitionError reports a collaborator failure. The session is unchanged.
type TransitionError struct {
	Op  domain.Operation
	Err error
}

func (e *TransitionError) Error() string {
	switch e.Op {
	case domain.OpComplete:
		return fmt.Sprintf("failed to complete your dream: %v", e.Err)
	default:
		return fmt.Sprintf("failed to get next steps: %v", e.Err)
	}
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// UserMessage turns an operation error into the text shown to the user.
func UserMessage(err error) string {
	var terr *TransitionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &terr) && terr.Op == domain.OpComplete:
		return fmt.Sprintf("Failed to complete your dream: %v. Please try again.", terr.Err)
	case errors.As(err, &terr):
		return fmt.Sprintf("Failed to get next steps: %v. Please try again.", terr.Err)
	case errors.Is(err, domain.ErrInternal):
		return "An internal error occurred. Please try resetting."
	}
	return err.Error()
}

// ErrEmptySummary is returned when the complete collaborator answers with blank text.
var ErrEmptySummary = errors.New("summary is empty")

// SelectOrSubmitPrompt commits text as the next step: the options for it are
// fetched from the expand collaborator, any forward path beyond the cursor is
// discarded and the cursor moves onto the new step.
func (c *Controller) SelectOrSubmitPrompt(ctx context.Context, text string) error {
	return c.transact(ctx, domain.OpSelectPrompt, func() error {
		return c.selectPrompt(ctx, text, false)
	})
}

// AppendCustomOption remembers a user-typed follow-up as one of the current
// step's options. Exact duplicates are ignored.
func (c *Controller) AppendCustomOption(ctx context.Context, text string) error {
	return c.transact(ctx, domain.OpAppendOption, func() error {
		return c.appendOption(ctx, text)
	})
}

// SubmitCustomFollowup selects text and also remembers it among the options
// of the step it was typed on (when a step is active). Both changes are
// committed together once the expand collaborator succeeds; on failure the
// session is unchanged.
func (c *Controller) SubmitCustomFollowup(ctx context.Context, text string) error {
	return c.transact(ctx, domain.OpSelectPrompt, func() error {
		return c.selectPrompt(ctx, text, true)
	})
}

// GoBack moves the cursor one step back. At the initial screen it is a no-op.
func (c *Controller) GoBack(ctx context.Context) error {
	return c.transact(ctx, domain.OpGoBack, func() error {
		if c.state.CurrentStepIndex < 0 {
			return nil
		}
		next := c.state.Clone()
		next.CurrentStepIndex--
		next.ClearCompletion()
		c.commit(ctx, next)
		return nil
	})
}

// Complete asks the complete collaborator for a summary of the path through
// the cursor and shows it on the final screen.
func (c *Controller) Complete(ctx context.Context) error {
	return c.transact(ctx, domain.OpComplete, func() error {
		if c.state.CurrentStepIndex < 0 {
			return domain.ErrNoActiveStep
		}

		summary, err := c.complete(ctx, c.state.CompleteHistory())
		if err != nil {
			return &TransitionError{Op: domain.OpComplete, Err: err}
		}
		summary = strings.TrimSpace(summary)
		if summary == "" {
			return &TransitionError{Op: domain.OpComplete, Err: ErrEmptySummary}
		}

		next := c.state.Clone()
		next.IsComplete = true
		next.FinalSummary = &summary
		c.commit(ctx, next)
		return nil
	})
}

// GoBackFromFinal leaves the final screen for the step it was reached from.
func (c *Controller) GoBackFromFinal(ctx context.Context) error {
	return c.transact(ctx, domain.OpGoBackFromFinal, func() error {
		if !c.state.IsComplete {
			return domain.ErrNotComplete
		}
		next := c.state.Clone()
		next.ClearCompletion()
		c.commit(ctx, next)
		return nil
	})
}

// Reset discards the session and returns to the initial screen.
func (c *Controller) Reset(ctx context.Context) error {
	from := c.state.Screen()
	c.state = c.persist.Reset(ctx)
	c.emitTransition(ctx, domain.OpReset, from, nil)
	c.requestRender(ctx, nil)
	return nil
}

// transact runs one operation: consistency check, body, exactly one
// transition event and exactly one render request.
func (c *Controller) transact(ctx context.Context, op domain.Operation, body func() error) error {
	from := c.state.Screen()

	err := c.ensureConsistent(ctx)
	if err == nil {
		err = body()
	}

	if err != nil {
		c.logger.Warn("Transition failed", "op", op, "err", err)
	}
	c.emitTransition(ctx, op, from, err)
	c.requestRender(ctx, err)
	return err
}

// ensureConsistent resets the session when the cursor points at a missing
// step or another invariant is broken.
func (c *Controller) ensureConsistent(ctx context.Context) error {
	verr := c.state.Validate()
	if verr == nil {
		return nil
	}
	c.logger.Error("Inconsistent session state, resetting", "err", verr)
	c.state = c.persist.Reset(ctx)
	return fmt.Errorf("%w: %v", domain.ErrInternal, verr)
}

// selectPrompt advances onto text. With remember set, text is also appended
// to the current step's options in the same commit.
func (c *Controller) selectPrompt(ctx context.Context, text string, remember bool) error {
	text, err := domain.SanitizePrompt(text)
	if err != nil {
		return err
	}

	options, err := c.expand(ctx, c.state.ExpandHistory(text))
	if err != nil {
		return &TransitionError{Op: domain.OpSelectPrompt, Err: err}
	}

	next := c.state.Clone()
	if current := next.CurrentStep(); remember && current != nil && !lo.Contains(current.Options, text) {
		current.Options = append(current.Options, text)
	}
	next.CurrentStepIndex++
	next.Steps = append(next.Steps[:next.CurrentStepIndex], domain.Step{
		Prompt:  text,
		Options: domain.NormalizeOptions(options),
	})
	next.ClearCompletion()
	c.commit(ctx, next)
	return nil
}

func (c *Controller) appendOption(ctx context.Context, text string) error {
	step := c.state.CurrentStep()
	if step == nil {
		return domain.ErrNoActiveStep
	}
	text, err := domain.SanitizePrompt(text)
	if err != nil {
		return err
	}
	if lo.Contains(step.Options, text) {
		return nil
	}

	next := c.state.Clone()
	current := &next.Steps[next.CurrentStepIndex]
	current.Options = append(current.Options, text)
	c.commit(ctx, next)
	return nil
}

// commit replaces the state and persists it.
func (c *Controller) commit(ctx context.Context, next *domain.SessionState) {
	c.state = next
	c.persist.Save(ctx, c.state)
}

func (c *Controller) expand(ctx context.Context, history []string) ([]string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	start := time.Now()
	c.emitCollaboratorCall(ctx, domain.OpSelectPrompt, history)
	options, err := c.ideator.Expand(ctx, history)
	c.emitCollaboratorReturn(ctx, domain.OpSelectPrompt, history, time.Since(start), err)
	return options, err
}

func (c *Controller) complete(ctx context.Context, history []string) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	start := time.Now()
	c.emitCollaboratorCall(ctx, domain.OpComplete, history)
	summary, err := c.ideator.Complete(ctx, history)
	c.emitCollaboratorReturn(ctx, domain.OpComplete, history, time.Since(start), err)
	return summary, err
}

// callContext applies the collaborator timeout unless the caller already set a deadline.
func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Controller) requestRender(ctx context.Context, failure error) {
	if c.render == nil {
		return
	}
	view := domain.Project(c.state, c.policy, failure)
	view.Error = UserMessage(failure)
	c.render(ctx, c.sessionID, view)
}

func (c *Controller) emitTransition(ctx context.Context, op domain.Operation, from domain.Screen, err error) {
	if c.hooks.OnTransition == nil {
		return
	}
	c.hooks.OnTransition(ctx, &domain.TransitionEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventTransition,
			SessionID: c.sessionID,
		},
		Op:        op,
		From:      from,
		To:        c.state.Screen(),
		StepIndex: c.state.CurrentStepIndex,
		Err:       err,
	})
}

func (c *Controller) emitCollaboratorCall(ctx context.Context, op domain.Operation, history []string) {
	c.logger.Debug("Calling collaborator", "op", op, "history_len", len(history))
	if c.hooks.OnCollaboratorCall == nil {
		return
	}
	c.hooks.OnCollaboratorCall(ctx, &domain.CollaboratorEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventCollaboratorCall,
			SessionID: c.sessionID,
		},
		Op:      op,
		History: history,
	})
}

func (c *Controller) emitCollaboratorReturn(ctx context.Context, op domain.Operation, history []string, d time.Duration, err error) {
	c.logger.Debug("Collaborator returned", "op", op, "duration", d, "err", err)
	if c.hooks.OnCollaboratorReturn == nil {
		return
	}
	c.hooks.OnCollaboratorReturn(ctx, &domain.CollaboratorEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventCollaboratorReturn,
			SessionID: c.sessionID,
		},
		Op:       op,
		History:  history,
		Duration: d,
		IsError:  err != nil,
	})
}

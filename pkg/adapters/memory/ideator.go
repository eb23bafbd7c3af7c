package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/daydream/pkg/domain"
)

// Ideator is an in-process ports.Ideator. Queued results are returned first,
// in order; once the queues are empty it answers deterministically from the
// history, which makes it usable for offline play and demos.
// Safe for concurrent use.
type Ideator struct {
	mu        sync.Mutex
	expands   []expandResult
	completes []completeResult

	expandCalls   [][]string
	completeCalls [][]string
}

type expandResult struct {
	options []string
	err     error
}

type completeResult struct {
	summary string
	err     error
}

// NewIdeator creates an Ideator with empty queues.
func NewIdeator() *Ideator {
	return &Ideator{}
}

// QueueExpand schedules the result of the next unanswered Expand call.
func (i *Ideator) QueueExpand(options []string, err error) *Ideator {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.expands = append(i.expands, expandResult{options: options, err: err})
	return i
}

// QueueComplete schedules the result of the next unanswered Complete call.
func (i *Ideator) QueueComplete(summary string, err error) *Ideator {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.completes = append(i.completes, completeResult{summary: summary, err: err})
	return i
}

// ExpandCalls returns the histories Expand was called with.
func (i *Ideator) ExpandCalls() [][]string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([][]string(nil), i.expandCalls...)
}

// CompleteCalls returns the histories Complete was called with.
func (i *Ideator) CompleteCalls() [][]string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([][]string(nil), i.completeCalls...)
}

// Expand implements ports.Ideator.
func (i *Ideator) Expand(ctx context.Context, history []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.Lock()
	i.expandCalls = append(i.expandCalls, append([]string(nil), history...))
	if len(i.expands) > 0 {
		next := i.expands[0]
		i.expands = i.expands[1:]
		i.mu.Unlock()
		if next.err != nil {
			return nil, next.err
		}
		return domain.NormalizeOptions(next.options), nil
	}
	i.mu.Unlock()

	last := lastPrompt(history)
	options := make([]string, 0, domain.OptionCount)
	for n := 1; n <= domain.OptionCount; n++ {
		options = append(options, fmt.Sprintf("%s (path %d)", last, n))
	}
	return options, nil
}

// Complete implements ports.Ideator.
func (i *Ideator) Complete(ctx context.Context, history []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	i.mu.Lock()
	i.completeCalls = append(i.completeCalls, append([]string(nil), history...))
	if len(i.completes) > 0 {
		next := i.completes[0]
		i.completes = i.completes[1:]
		i.mu.Unlock()
		return next.summary, next.err
	}
	i.mu.Unlock()

	return "A daydream that wandered through " + strings.Join(domain.CleanHistory(history), domain.BreadcrumbSeparator) + ".", nil
}

func lastPrompt(history []string) string {
	if len(history) == 0 {
		return "a new thought"
	}
	last := strings.TrimSpace(domain.CleanPrompt(history[len(history)-1]))
	if last == "" {
		return "a new thought"
	}
	return last
}

package domain

import (
	"fmt"
	"strings"
)

// Screen identifies which of the three machine states a session is in.
type Screen string

const (
	ScreenInitial Screen = "initial" // No step taken yet
	ScreenActive  Screen = "active"  // Showing the step at the cursor
	ScreenFinal   Screen = "final"   // Showing the synthesized summary
)

// Step is one committed ideation turn.
type Step struct {
	// Prompt is the text the user picked or typed.
	Prompt string `json:"prompt" mapstructure:"prompt"`

	// Options holds the continuations offered after Prompt.
	// It is only ever appended to after creation.
	Options []string `json:"options" mapstructure:"options"`
}

// SessionState is the whole session and the single source of truth for what
// screen should be shown. JSON keys match the persisted record shape.
type SessionState struct {
	Steps []Step `json:"steps"`

	// CurrentStepIndex is the cursor into Steps; -1 means no step taken yet.
	CurrentStepIndex int `json:"currentStepIndex"`

	IsComplete bool `json:"isComplete"`

	// FinalSummary must be non-empty whenever IsComplete is true.
	FinalSummary *string `json:"finalSummary"`
}

// NewState returns the default (initial screen) state.
func NewState() *SessionState {
	return &SessionState{
		Steps:            []Step{},
		CurrentStepIndex: -1,
	}
}

// Clone returns a deep copy so callers can build the next state without
// touching the current one.
func (s *SessionState) Clone() *SessionState {
	out := &SessionState{
		Steps:            make([]Step, len(s.Steps)),
		CurrentStepIndex: s.CurrentStepIndex,
		IsComplete:       s.IsComplete,
	}
	for i, step := range s.Steps {
		out.Steps[i] = Step{
			Prompt:  step.Prompt,
			Options: append([]string(nil), step.Options...),
		}
	}
	if s.FinalSummary != nil {
		summary := *s.FinalSummary
		out.FinalSummary = &summary
	}
	return out
}

// Screen reports the machine state keyed by (CurrentStepIndex, IsComplete).
func (s *SessionState) Screen() Screen {
	if s.IsComplete {
		return ScreenFinal
	}
	if s.CurrentStepIndex < 0 {
		return ScreenInitial
	}
	return ScreenActive
}

// IsDefault reports whether s is indistinguishable from NewState().
func (s *SessionState) IsDefault() bool {
	return len(s.Steps) == 0 && s.CurrentStepIndex == -1 && !s.IsComplete && s.FinalSummary == nil
}

// CurrentStep returns the step at the cursor, or nil at the initial screen
// or when the cursor points at a missing step.
func (s *SessionState) CurrentStep() *Step {
	if s.CurrentStepIndex < 0 || s.CurrentStepIndex >= len(s.Steps) {
		return nil
	}
	return &s.Steps[s.CurrentStepIndex]
}

// Summary returns the final summary text or "" when absent.
func (s *SessionState) Summary() string {
	if s.FinalSummary == nil {
		return ""
	}
	return *s.FinalSummary
}

// CycleCount is the number of committed steps up to and including the cursor.
func (s *SessionState) CycleCount() int {
	return s.CurrentStepIndex + 1
}

// Prompts returns the prompts from step 0 through the cursor (inclusive).
func (s *SessionState) Prompts() []string {
	if s.CurrentStepIndex < 0 {
		return []string{}
	}
	end := min(s.CurrentStepIndex+1, len(s.Steps))
	prompts := make([]string, 0, end)
	for _, step := range s.Steps[:end] {
		prompts = append(prompts, step.Prompt)
	}
	return prompts
}

// ClearCompletion drops the completion flag and the summary.
func (s *SessionState) ClearCompletion() {
	s.IsComplete = false
	s.FinalSummary = nil
}

// Validate checks the invariants every reachable state must satisfy.
func (s *SessionState) Validate() error {
	if s.CurrentStepIndex < -1 || s.CurrentStepIndex >= len(s.Steps) {
		return fmt.Errorf("cursor %d out of range for %d steps", s.CurrentStepIndex, len(s.Steps))
	}
	if s.IsComplete && strings.TrimSpace(s.Summary()) == "" {
		return fmt.Errorf("session marked complete without a summary")
	}
	if s.IsComplete && s.CurrentStepIndex < 0 {
		return fmt.Errorf("session marked complete before the first step")
	}
	for i, step := range s.Steps {
		for j, opt := range step.Options {
			if opt == "" || opt != strings.TrimSpace(opt) {
				return fmt.Errorf("step %d option %d is not a trimmed non-empty string", i, j)
			}
		}
	}
	return nil
}

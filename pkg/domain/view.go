package domain

import "strings"

// DefaultMinCycles is the number of committed steps before completion is offered.
const DefaultMinCycles = 3

// ShareSignature is appended to the summary when it is shared.
const ShareSignature = "- Created with Daydream"

// BreadcrumbSeparator joins the prompts that led to the current step.
const BreadcrumbSeparator = " → "

// Policy carries presentation settings the projection depends on.
type Policy struct {
	// MinCycles gates the complete action. Values below 1 are treated as 1.
	MinCycles int

	// DefaultPrompts are offered on the initial screen.
	DefaultPrompts []string

	// LoadingMessages and WakingMessages are shown while the expand and
	// complete collaborators are working.
	LoadingMessages []string
	WakingMessages  []string
}

// DefaultPolicy returns the stock presentation policy.
func DefaultPolicy() Policy {
	return Policy{
		MinCycles:       DefaultMinCycles,
		DefaultPrompts:  append([]string(nil), DefaultPrompts...),
		LoadingMessages: append([]string(nil), LoadingMessages...),
		WakingMessages:  append([]string(nil), WakingMessages...),
	}
}

// CanComplete reports whether the complete action should be offered for s.
func (p Policy) CanComplete(s *SessionState) bool {
	if s.Screen() != ScreenActive {
		return false
	}
	return s.CycleCount() >= max(1, p.MinCycles)
}

// ViewModel is the presentation-agnostic projection of a SessionState.
type ViewModel struct {
	Screen         Screen   `json:"screen"`
	StepIndex      int      `json:"step_index"`
	CycleCount     int      `json:"cycle_count"`
	Prompt         string   `json:"prompt,omitempty"`
	Options        []string `json:"options,omitempty"`
	Breadcrumbs    []string `json:"breadcrumbs,omitempty"`
	CanGoBack      bool     `json:"can_go_back"`
	CanComplete    bool     `json:"can_complete"`
	Summary        string   `json:"summary,omitempty"`
	ShareText      string   `json:"share_text,omitempty"`
	DefaultPrompts []string `json:"default_prompts,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// BreadcrumbTrail renders the breadcrumbs the way the web front-end shows them,
// with a trailing separator when there is at least one.
func (v ViewModel) BreadcrumbTrail() string {
	if len(v.Breadcrumbs) == 0 {
		return ""
	}
	return strings.Join(v.Breadcrumbs, BreadcrumbSeparator) + BreadcrumbSeparator
}

// Project computes what should be displayed for s. failure, when non-nil, is
// surfaced as the view's error message.
func Project(s *SessionState, policy Policy, failure error) ViewModel {
	view := ViewModel{
		Screen:     s.Screen(),
		StepIndex:  s.CurrentStepIndex,
		CycleCount: max(0, s.CycleCount()),
	}
	if failure != nil {
		view.Error = failure.Error()
	}

	switch view.Screen {
	case ScreenFinal:
		view.Summary = s.Summary()
		view.ShareText = view.Summary + "\n" + ShareSignature
	case ScreenInitial:
		view.DefaultPrompts = policy.DefaultPrompts
	case ScreenActive:
		if step := s.CurrentStep(); step != nil {
			view.Prompt = step.Prompt
			view.Options = append([]string(nil), step.Options...)
		}
		prompts := s.Prompts()
		view.Breadcrumbs = prompts[:min(len(prompts), s.CurrentStepIndex)]
		view.CanGoBack = true
		view.CanComplete = policy.CanComplete(s)
	}
	return view
}

// DefaultPrompts are the starting thoughts offered on the initial screen.
var DefaultPrompts = []string{
	"I want to invent...",
	"Write me a story about...",
	"I'm thinking of a world where...",
	"What if technology could...",
	"Explore the concept of...",
	"Design a solution for...",
	"Imagine a future where...",
	"Create a character who...",
	"In an alternate reality...",
	"Transform everyday life by...",
	"Revolutionize the way we...",
	"Build a community around...",
	"Reinvent the concept of...",
	"Challenge the assumption that...",
}

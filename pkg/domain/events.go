package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition         EventType = "transition"
	EventCollaboratorCall   EventType = "collaborator_call"
	EventCollaboratorReturn EventType = "collaborator_return"
	EventStateRepaired      EventType = "state_repaired"
)

// Operation names a controller transaction.
type Operation string

const (
	OpSelectPrompt    Operation = "select_prompt"
	OpAppendOption    Operation = "append_option"
	OpGoBack          Operation = "go_back"
	OpComplete        Operation = "complete"
	OpGoBackFromFinal Operation = "go_back_from_final"
	OpReset           Operation = "reset"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TransitionEvent is emitted once per controller transaction, success or failure.
type TransitionEvent struct {
	EventBase
	Op        Operation `json:"op"`
	From      Screen    `json:"from"`
	To        Screen    `json:"to"`
	StepIndex int       `json:"step_index"`
	Err       error     `json:"-"`
}

// CollaboratorEvent represents an expand or complete call.
type CollaboratorEvent struct {
	EventBase
	Op       Operation     `json:"op"`
	History  []string      `json:"history,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// RepairEvent is emitted when a loaded record had to be coerced.
type RepairEvent struct {
	EventBase
	Repairs []string `json:"repairs"`
	Reset   bool     `json:"reset"`
}

// LifecycleHooks defines callbacks for observability. Any hook may be nil.
type LifecycleHooks struct {
	OnTransition         func(context.Context, *TransitionEvent)
	OnCollaboratorCall   func(context.Context, *CollaboratorEvent)
	OnCollaboratorReturn func(context.Context, *CollaboratorEvent)
	OnStateRepaired      func(context.Context, *RepairEvent)
}

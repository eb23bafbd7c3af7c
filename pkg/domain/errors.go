package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionBusy is returned when a transaction is already in flight for a session.
var ErrSessionBusy = errors.New("session has a pending transaction")

// ErrEmptyPrompt is returned when a prompt or option text is empty after trimming.
var ErrEmptyPrompt = errors.New("prompt text cannot be empty")

// ErrNoActiveStep is returned when an operation requires an active step but the
// session is still at the initial screen.
var ErrNoActiveStep = errors.New("no active step")

// ErrNotComplete is returned when leaving the final screen of a session that has no summary.
var ErrNotComplete = errors.New("session is not complete")

// ErrCompleteNotOffered is returned by callers that gate completion on the minimum cycle count.
var ErrCompleteNotOffered = errors.New("not enough steps to complete the dream yet")

// ErrInternal reports that the session was found inconsistent and has been reset.
var ErrInternal = errors.New("an internal error occurred, the session was reset")

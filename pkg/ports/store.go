package ports

import "context"

// StateStore defines the interface for persisting session records.
// Records are opaque bytes; encoding and recovery live in the domain codec so
// that every backend degrades the same way on malformed data.
type StateStore interface {
	// Save persists the record for a given session key.
	Save(ctx context.Context, sessionID string, record []byte) error

	// Load retrieves the record for a given session key.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) ([]byte, error)

	// Delete removes the record for a given session key.
	// Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the keys of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

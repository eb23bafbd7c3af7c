package ports

import "context"

// Ideator is the language-model collaborator the transition controller consumes.
// Both operations take the prompt path so far, oldest first.
type Ideator interface {
	// Expand returns continuation options for the path. Implementations are
	// contracted to return exactly five non-empty entries, padding short
	// results with the "..." placeholder and truncating long ones.
	Expand(ctx context.Context, history []string) ([]string, error)

	// Complete returns a single non-empty summary of the path.
	Complete(ctx context.Context, history []string) (string, error)
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/aretw0/daydream"
	"github.com/aretw0/daydream/internal/presentation/graph"
	"github.com/aretw0/daydream/pkg/domain"
	"github.com/olekukonko/tablewriter"
)

// ListSessions prints a table of stored sessions.
func ListSessions(ctx context.Context, engine *daydream.Engine, w io.Writer) error {
	ids, err := engine.Manager().List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Session", "Screen", "Steps", "Current Prompt"})
	for _, id := range ids {
		view := engine.View(ctx, id)
		if err := table.Append([]string{id, string(view.Screen), strconv.Itoa(view.CycleCount), view.Prompt}); err != nil {
			return err
		}
	}
	return table.Render()
}

// SessionDump is the output of InspectSession.
type SessionDump struct {
	ID    string               `json:"id"`
	State *domain.SessionState `json:"state"`
	View  domain.ViewModel     `json:"view"`
}

// InspectSession prints the repaired state and its view as JSON.
func InspectSession(ctx context.Context, engine *daydream.Engine, id string, w io.Writer) error {
	exists, err := engine.Manager().Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", id, err)
	}
	if !exists {
		return fmt.Errorf("session '%s': %w", id, domain.ErrSessionNotFound)
	}

	state := engine.Manager().Load(ctx, id)
	data, err := json.MarshalIndent(SessionDump{
		ID:    id,
		State: state,
		View:  domain.Project(state, engine.Policy(), nil),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling state: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// GraphSession prints the session path as a Mermaid flowchart.
func GraphSession(ctx context.Context, engine *daydream.Engine, id string, w io.Writer) error {
	exists, err := engine.Manager().Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", id, err)
	}
	if !exists {
		return fmt.Errorf("session '%s': %w", id, domain.ErrSessionNotFound)
	}
	_, err = fmt.Fprint(w, graph.GenerateMermaid(engine.Manager().Load(ctx, id)))
	return err
}

// RemoveSessions deletes each session, reporting every failure.
func RemoveSessions(ctx context.Context, engine *daydream.Engine, ids []string, w io.Writer) error {
	failed := 0
	for _, id := range ids {
		if err := engine.Manager().Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("failed to remove %d session(s)", failed)
	}
	return nil
}

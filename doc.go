/*
Package daydream is a guided ideation engine. A user starts from a seed
prompt, an ideation collaborator (usually a language model) proposes five
short continuations, and the user keeps choosing or writing follow-ups until
they ask for a summary of the path they took.

# Concept

A session is an ordered list of steps and a cursor into it. Each step holds
the prompt the user committed and the options offered in response. Moving
the cursor back and then choosing something new discards the abandoned
forward path. The session is persisted after every successful transition, so
a reload resumes exactly where the user left off, and a damaged record is
repaired or discarded instead of failing the load.

The engine follows a hexagonal layout: storage (ports.StateStore) and
ideation (ports.Ideator) are ports, and the terminal, HTTP and MCP front-ends
are adapters around the same Controller.

# Usage

	eng := daydream.New(
		daydream.WithIdeator(openai.New(openai.Config{APIKey: key})),
		daydream.WithStore(file.New("./sessions")),
	)

	ctx := context.Background()
	ctrl := eng.Open(ctx, session.DefaultKey)
	if err := ctrl.SelectOrSubmitPrompt(ctx, "I want to invent..."); err != nil {
		log.Println(err)
	}
	fmt.Println(ctrl.View().Options)

Front-ends serving many clients should wrap each request in Engine.Do, which
holds the session lock and rejects overlapping requests with
domain.ErrSessionBusy.
*/
package daydream

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/daydream"
	"github.com/aretw0/daydream/pkg/adapters/memory"
	"github.com/aretw0/daydream/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(opts ...daydream.Option) (*Server, *memory.Ideator) {
	ideator := memory.NewIdeator()
	eng := daydream.New(append([]daydream.Option{daydream.WithIdeator(ideator)}, opts...)...)
	eng.Manager().Save(context.Background(), "s1", domain.NewState())
	return NewServer(eng, nil), ideator
}

func TestTools_Journey(t *testing.T) {
	ctx := context.Background()
	s, ideator := newTestServer(daydream.WithMinCycles(1))
	ideator.QueueComplete("A short dream.", nil)
	req := mcp.CallToolRequest{}

	created, err := s.handleCreateSession(ctx, req, struct{}{})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, domain.ScreenInitial, created.View.Screen)

	res, err := s.handleGetView(ctx, req, SessionArgs{SessionID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ScreenInitial, res.View.Screen)

	res, err = s.handleSelectPrompt(ctx, req, SessionArgs{SessionID: created.ID, Text: "What if..."})
	require.NoError(t, err)
	assert.Equal(t, domain.ScreenActive, res.View.Screen)
	assert.Empty(t, res.View.Error)

	res, err = s.handleAppendOption(ctx, req, SessionArgs{SessionID: created.ID, Text: "owls kept time"})
	require.NoError(t, err)
	assert.Contains(t, res.View.Options, "owls kept time")

	res, err = s.handleSelectPrompt(ctx, req, SessionArgs{SessionID: created.ID, Text: "owls kept time"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.View.StepIndex)

	res, err = s.handleComplete(ctx, req, SessionArgs{SessionID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ScreenFinal, res.View.Screen)
	assert.Equal(t, "A short dream.", res.View.Summary)

	res, err = s.handleGoBackFromFinal(ctx, req, SessionArgs{SessionID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ScreenActive, res.View.Screen)

	res, err = s.handleGoBack(ctx, req, SessionArgs{SessionID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.View.StepIndex)

	res, err = s.handleReset(ctx, req, SessionArgs{SessionID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ScreenInitial, res.View.Screen)

	_, err = s.handleGetView(ctx, req, SessionArgs{SessionID: created.ID})
	assert.NoError(t, err, "reset keeps the session id usable")
}

func TestTools_FailureIsReportedInView(t *testing.T) {
	ctx := context.Background()
	s, ideator := newTestServer()
	ideator.QueueExpand(nil, errors.New("network error"))

	res, err := s.handleSelectPrompt(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1", Text: "What if..."})
	require.NoError(t, err)
	assert.Equal(t, domain.ScreenInitial, res.View.Screen)
	assert.Equal(t, "Failed to get next steps: network error. Please try again.", res.View.Error)
}

func TestTools_CompleteNotOffered(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer()

	_, err := s.handleSelectPrompt(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1", Text: "What if..."})
	require.NoError(t, err)

	res, err := s.handleComplete(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ScreenActive, res.View.Screen)
	assert.NotEmpty(t, res.View.Error)
}

func TestTools_RequireSession(t *testing.T) {
	s, _ := newTestServer()
	ctx := context.Background()
	_, err := s.handleGoBack(ctx, mcp.CallToolRequest{}, SessionArgs{})
	assert.ErrorIs(t, err, errMissingSession)

	_, err = s.handleGetView(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "never-created"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = s.handleSelectPrompt(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "never-created", Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = sessionURIPrefix + "never-created"
	_, err = s.readSession(ctx, req)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	ids, err := s.engine.Manager().List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, "never-created")
}

func TestReadSession(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer()
	_, err := s.handleSelectPrompt(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1", Text: "What if..."})
	require.NoError(t, err)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = sessionURIPrefix + "s1"
	contents, err := s.readSession(ctx, req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	var got SessionView
	require.NoError(t, json.Unmarshal([]byte(text.Text), &got))
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, "What if...", got.View.Prompt)

	req.Params.URI = "daydream://other"
	_, err = s.readSession(ctx, req)
	assert.Error(t, err)
}

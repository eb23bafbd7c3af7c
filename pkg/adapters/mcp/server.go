package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/daydream"
	"github.com/aretw0/daydream/pkg/domain"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

const sessionURIPrefix = "daydream://sessions/"

// SessionView is the structured result of every session tool.
// A failed operation still returns the view, with Error describing the failure.
type SessionView struct {
	ID   string           `json:"id" jsonschema_description:"The session id"`
	View domain.ViewModel `json:"view" jsonschema_description:"What the session shows now"`
}

// SessionArgs are the arguments shared by the session tools.
type SessionArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text,omitempty"`
	Custom    bool   `json:"custom,omitempty"`
}

// Server exposes a daydream.Engine as an MCP server.
type Server struct {
	engine    *daydream.Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine *daydream.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("daydream-mcp", strings.TrimSpace(daydream.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func sessionParam() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Start a new daydream and return its session id. Other tools only accept ids created here."),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleCreateSession))

	s.mcpServer.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Show what the session currently displays."),
		sessionParam(),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGetView))

	s.mcpServer.AddTool(mcp.NewTool("select_prompt",
		mcp.WithDescription("Pick one of the offered options, or type a new thought, and move one step forward."),
		sessionParam(),
		mcp.WithString("text", mcp.Required(), mcp.Description("The option or thought to follow")),
		mcp.WithBoolean("custom", mcp.Description("Also remember text as an option of the current step")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleSelectPrompt))

	s.mcpServer.AddTool(mcp.NewTool("append_option",
		mcp.WithDescription("Add a custom option to the current step without moving."),
		sessionParam(),
		mcp.WithString("text", mcp.Required(), mcp.Description("Option text")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleAppendOption))

	s.mcpServer.AddTool(mcp.NewTool("go_back",
		mcp.WithDescription("Move back one step. Later steps are kept until a new choice replaces them."),
		sessionParam(),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGoBack))

	s.mcpServer.AddTool(mcp.NewTool("complete",
		mcp.WithDescription("Wake up: summarize the path so far into a final daydream."),
		sessionParam(),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleComplete))

	s.mcpServer.AddTool(mcp.NewTool("go_back_from_final",
		mcp.WithDescription("Leave the summary and return to the step it was made from."),
		sessionParam(),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGoBackFromFinal))

	s.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Discard the session and start over."),
		sessionParam(),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List stored session ids."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.engine.Manager().List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleCreateSession(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (SessionView, error) {
	id := uuid.NewString()
	s.engine.Manager().Save(ctx, id, domain.NewState())
	s.logger.Info("MCP: Session created", "session_id", id)
	return SessionView{ID: id, View: s.engine.View(ctx, id)}, nil
}

func (s *Server) handleGetView(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (SessionView, error) {
	if err := s.requireSession(ctx, args.SessionID); err != nil {
		return SessionView{}, err
	}
	return SessionView{ID: args.SessionID, View: s.engine.View(ctx, args.SessionID)}, nil
}

func (s *Server) handleSelectPrompt(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (SessionView, error) {
	return s.transact(ctx, args, func(ctx context.Context, c *daydream.Controller) error {
		if args.Custom {
			return c.SubmitCustomFollowup(ctx, args.Text)
		}
		return c.SelectOrSubmitPrompt(ctx, args.Text)
	})
}

func (s *Server) handleAppendOption(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (SessionView, error) {
	return s.transact(ctx, args, func(ctx context.Context, c *daydream.Controller) error {
		return c.AppendCustomOption(ctx, args.Text)
	})
}

func (s *Server) handleGoBack(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (SessionView, error) {
	return s.transact(ctx, args, func(ctx context.Context, c *daydream.Controller) error {
		return c.GoBack(ctx)
	})
}

func (s *Server) handleComplete(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (SessionView, error) {
	return s.transact(ctx, args, func(ctx context.Context, c *daydream.Controller) error {
		if !c.View().CanComplete {
			return domain.ErrCompleteNotOffered
		}
		return c.Complete(ctx)
	})
}

func (s *Server) handleGoBackFromFinal(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (SessionView, error) {
	return s.transact(ctx, args, func(ctx context.Context, c *daydream.Controller) error {
		return c.GoBackFromFinal(ctx)
	})
}

func (s *Server) handleReset(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (SessionView, error) {
	return s.transact(ctx, args, func(ctx context.Context, c *daydream.Controller) error {
		if err := c.Reset(ctx); err != nil {
			return err
		}
		s.engine.Manager().Slot(args.SessionID).Save(ctx, c.State())
		return nil
	})
}

var errMissingSession = errors.New("session_id is required")

// requireSession fails unless a record is stored for id.
func (s *Server) requireSession(ctx context.Context, id string) error {
	if id == "" {
		return errMissingSession
	}
	exists, err := s.engine.Manager().Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("session '%s': %w", id, err)
	}
	if !exists {
		return fmt.Errorf("session '%s': %w", id, domain.ErrSessionNotFound)
	}
	return nil
}

// transact runs op under the session lock. Operation failures are reported
// in the returned view; only a busy or unknown session is a tool error.
func (s *Server) transact(ctx context.Context, args SessionArgs, op func(context.Context, *daydream.Controller) error) (SessionView, error) {
	if err := s.requireSession(ctx, args.SessionID); err != nil {
		return SessionView{}, err
	}

	var view domain.ViewModel
	err := s.engine.Do(ctx, args.SessionID, func(ctx context.Context, c *daydream.Controller) error {
		opErr := op(ctx, c)
		view = c.View()
		view.Error = daydream.UserMessage(opErr)
		return opErr
	})
	if errors.Is(err, domain.ErrSessionBusy) {
		return SessionView{}, err
	}
	if err != nil {
		s.logger.Warn("MCP: Operation failed", "session_id", args.SessionID, "err", err)
	}
	return SessionView{ID: args.SessionID, View: view}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("daydream://config", "Client configuration",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		policy := s.engine.Policy()
		jsonBytes, _ := json.Marshal(map[string]any{
			"min_cycles":       max(1, policy.MinCycles),
			"default_prompts":  policy.DefaultPrompts,
			"loading_messages": policy.LoadingMessages,
			"waking_messages":  policy.WakingMessages,
		})
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(sessionURIPrefix+"{id}", "Session view",
		mcp.WithTemplateMIMEType("application/json"),
	), s.readSession)
}

func (s *Server) readSession(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(request.Params.URI, sessionURIPrefix)
	if id == "" || id == request.Params.URI {
		return nil, fmt.Errorf("invalid session uri %q", request.Params.URI)
	}
	if err := s.requireSession(ctx, id); err != nil {
		return nil, err
	}
	jsonBytes, err := json.Marshal(SessionView{ID: id, View: s.engine.View(ctx, id)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/daydream"
	"github.com/aretw0/daydream/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionView is the response of every session operation.
type SessionView struct {
	ID   string           `json:"id"`
	View domain.ViewModel `json:"view"`
}

// Failure is returned with non-2xx statuses.
type Failure struct {
	Error string            `json:"error"`
	ID    string            `json:"id,omitempty"`
	View  *domain.ViewModel `json:"view,omitempty"`
}

// PromptRequest is the body of POST /sessions/{id}/prompt.
type PromptRequest struct {
	Text   string `json:"text"`
	Custom bool   `json:"custom,omitempty"`
}

// TextRequest is the body of POST /sessions/{id}/options.
type TextRequest struct {
	Text string `json:"text"`
}

// HistoryRequest is the body of the stateless ideation endpoints.
type HistoryRequest struct {
	History []string `json:"history"`
}

// IdeationResponse is the {status, ...} envelope of the stateless ideation endpoints.
type IdeationResponse struct {
	Status  string   `json:"status"`
	Options []string `json:"options,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Message string   `json:"message,omitempty"`
}

// ClientConfig is returned by GET /config.
type ClientConfig struct {
	MinCycles       int      `json:"min_cycles"`
	DefaultPrompts  []string `json:"default_prompts"`
	LoadingMessages []string `json:"loading_messages"`
	WakingMessages  []string `json:"waking_messages"`
}

// Server implements ServerInterface over a daydream.Engine.
type Server struct {
	Engine  *daydream.Engine
	Streams *StreamManager
	Logger  *slog.Logger
}

var _ ServerInterface = (*Server)(nil)

// Option configures the handler built by NewHandler.
type Option func(*handlerConfig)

type handlerConfig struct {
	streams        *StreamManager
	logger         *slog.Logger
	allowedOrigins []string
}

// WithStreams shares a StreamManager, typically the one passed to
// daydream.WithRenderer, so that transitions reach SSE subscribers.
func WithStreams(sm *StreamManager) Option {
	return func(c *handlerConfig) {
		c.streams = sm
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *handlerConfig) {
		c.logger = logger
	}
}

// WithAllowedOrigins restricts CORS. The default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(c *handlerConfig) {
		c.allowedOrigins = origins
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine *daydream.Engine, opts ...Option) (http.Handler, error) {
	cfg := &handlerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.streams == nil {
		cfg.streams = NewStreamManager(cfg.logger)
	}

	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}

	server := &Server{Engine: engine, Streams: cfg.streams, Logger: cfg.logger}
	r := chi.NewRouter()
	r.Use(cors(cfg.allowedOrigins))

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})

	return HandlerFromMux(server, r, doc), nil
}

func cors(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := "*"
			if len(allowed) > 0 {
				origin = ""
				for _, o := range allowed {
					if o == r.Header.Get("Origin") {
						origin = o
						break
					}
				}
			}
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "daydream-http",
		"version":     strings.TrimSpace(daydream.Version),
		"api_version": apiVersion,
	})
}

// GetConfig handles the GET /config request.
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	policy := s.Engine.Policy()
	writeJSON(w, http.StatusOK, ClientConfig{
		MinCycles:       max(1, policy.MinCycles),
		DefaultPrompts:  policy.DefaultPrompts,
		LoadingMessages: policy.LoadingMessages,
		WakingMessages:  policy.WakingMessages,
	})
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Manager().List(r.Context())
	if err != nil {
		s.Logger.Error("ListSessions failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, Failure{Error: "failed to list sessions"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// CreateSession handles the POST /sessions request.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	s.Engine.Manager().Save(r.Context(), id, domain.NewState())
	s.Logger.Info("Session Created", "session_id", id)
	writeJSON(w, http.StatusCreated, SessionView{ID: id, View: s.Engine.View(r.Context(), id)})
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request, id string) {
	if !s.requireSession(w, r, id) {
		return
	}
	writeJSON(w, http.StatusOK, SessionView{ID: id, View: s.Engine.View(r.Context(), id)})
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.Engine.Manager().Delete(r.Context(), id); err != nil {
		s.Logger.Error("DeleteSession failed", "session_id", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, Failure{Error: "failed to delete session", ID: id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectPrompt handles the POST /sessions/{id}/prompt request.
func (s *Server) SelectPrompt(w http.ResponseWriter, r *http.Request, id string) {
	var body PromptRequest
	if !decodeBody(w, r, &body) {
		return
	}
	s.transact(w, r, id, func(ctx context.Context, c *daydream.Controller) error {
		if body.Custom {
			return c.SubmitCustomFollowup(ctx, body.Text)
		}
		return c.SelectOrSubmitPrompt(ctx, body.Text)
	})
}

// AppendOption handles the POST /sessions/{id}/options request.
func (s *Server) AppendOption(w http.ResponseWriter, r *http.Request, id string) {
	var body TextRequest
	if !decodeBody(w, r, &body) {
		return
	}
	s.transact(w, r, id, func(ctx context.Context, c *daydream.Controller) error {
		return c.AppendCustomOption(ctx, body.Text)
	})
}

// GoBack handles the POST /sessions/{id}/back request.
func (s *Server) GoBack(w http.ResponseWriter, r *http.Request, id string) {
	s.transact(w, r, id, func(ctx context.Context, c *daydream.Controller) error {
		return c.GoBack(ctx)
	})
}

// CompleteSession handles the POST /sessions/{id}/complete request.
// Completion is only accepted once the view offers it.
func (s *Server) CompleteSession(w http.ResponseWriter, r *http.Request, id string) {
	s.transact(w, r, id, func(ctx context.Context, c *daydream.Controller) error {
		if !c.View().CanComplete {
			return domain.ErrCompleteNotOffered
		}
		return c.Complete(ctx)
	})
}

// GoBackFromFinal handles the POST /sessions/{id}/final/back request.
func (s *Server) GoBackFromFinal(w http.ResponseWriter, r *http.Request, id string) {
	s.transact(w, r, id, func(ctx context.Context, c *daydream.Controller) error {
		return c.GoBackFromFinal(ctx)
	})
}

// ResetSession handles the POST /sessions/{id}/reset request.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request, id string) {
	s.transact(w, r, id, func(ctx context.Context, c *daydream.Controller) error {
		if err := c.Reset(ctx); err != nil {
			return err
		}
		// Keep the id addressable after the record is cleared.
		s.Engine.Manager().Slot(id).Save(ctx, c.State())
		return nil
	})
}

// requireSession writes a 404 and returns false when no record is stored
// for id. Sessions are only created by POST /sessions.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request, id string) bool {
	exists, err := s.Engine.Manager().Exists(r.Context(), id)
	if err == nil && exists {
		return true
	}
	if err == nil {
		err = fmt.Errorf("session '%s': %w", id, domain.ErrSessionNotFound)
	} else {
		s.Logger.Error("Session lookup failed", "session_id", id, "err", err)
	}
	writeJSON(w, statusFor(err), Failure{Error: err.Error(), ID: id})
	return false
}

// transact runs op under the session lock and writes the resulting view.
func (s *Server) transact(w http.ResponseWriter, r *http.Request, id string, op func(context.Context, *daydream.Controller) error) {
	if !s.requireSession(w, r, id) {
		return
	}
	var view domain.ViewModel
	err := s.Engine.Do(r.Context(), id, func(ctx context.Context, c *daydream.Controller) error {
		opErr := op(ctx, c)
		view = c.View()
		view.Error = daydream.UserMessage(opErr)
		return opErr
	})
	if err == nil {
		writeJSON(w, http.StatusOK, SessionView{ID: id, View: view})
		return
	}

	status := statusFor(err)
	if errors.Is(err, domain.ErrSessionBusy) {
		writeJSON(w, status, Failure{Error: err.Error(), ID: id})
		return
	}
	if status >= http.StatusInternalServerError {
		s.Logger.Error("Transition failed", "session_id", id, "err", err)
	}
	writeJSON(w, status, Failure{Error: view.Error, ID: id, View: &view})
}

func statusFor(err error) int {
	var terr *daydream.TransitionError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionBusy),
		errors.Is(err, domain.ErrNoActiveStep),
		errors.Is(err, domain.ErrNotComplete),
		errors.Is(err, domain.ErrCompleteNotOffered):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptyPrompt),
		errors.Is(err, domain.ErrInputTooLarge),
		errors.Is(err, domain.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.As(err, &terr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// SubscribeEvents handles the GET /sessions/{id}/events request (SSE).
// Each transition of the session is delivered as one JSON view.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, Failure{Error: "streaming not supported"})
		return
	}
	if !s.requireSession(w, r, id) {
		return
	}

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.Logger.Info("SSE: Subscribed to session", "session_id", id)

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: view\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// Expand handles the POST /api/expand request.
func (s *Server) Expand(w http.ResponseWriter, r *http.Request) {
	history, ok := s.decodeHistory(w, r, "Prompt history cannot be empty.")
	if !ok {
		return
	}
	options, err := s.Engine.Ideator().Expand(r.Context(), history)
	if err != nil {
		s.Logger.Error("LLM expansion failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, IdeationResponse{Status: "error", Message: fmt.Sprintf("Failed to get response from AI: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, IdeationResponse{Status: "success", Options: domain.NormalizeOptions(options)})
}

// Complete handles the POST /api/complete request.
func (s *Server) Complete(w http.ResponseWriter, r *http.Request) {
	history, ok := s.decodeHistory(w, r, "Prompt history cannot be empty for completion.")
	if !ok {
		return
	}
	summary, err := s.Engine.Ideator().Complete(r.Context(), history)
	if err != nil {
		s.Logger.Error("LLM completion failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, IdeationResponse{Status: "error", Message: fmt.Sprintf("Failed to get response from AI: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, IdeationResponse{Status: "success", Summary: strings.TrimSpace(summary)})
}

func (s *Server) decodeHistory(w http.ResponseWriter, r *http.Request, emptyMessage string) ([]string, bool) {
	var body HistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, IdeationResponse{Status: "error", Message: "Invalid JSON format in request body."})
		return nil, false
	}
	if len(body.History) == 0 {
		writeJSON(w, http.StatusBadRequest, IdeationResponse{Status: "error", Message: emptyMessage})
		return nil, false
	}
	return body.History, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, Failure{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}

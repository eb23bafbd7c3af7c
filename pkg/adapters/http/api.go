package http

import (
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var rawSpec []byte

var (
	swaggerOnce sync.Once
	swagger     *openapi3.T
	swaggerErr  error
)

// GetSwagger returns the parsed and validated API description. The result is
// shared and must not be modified.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(rawSpec)
		if err == nil {
			err = doc.Validate(loader.Context)
		}
		if err != nil {
			swaggerErr = fmt.Errorf("invalid openapi spec: %w", err)
			return
		}
		swagger = doc
	})
	return swagger, swaggerErr
}

// ServerInterface lists the operations of openapi.yaml.
type ServerInterface interface {
	GetHealth(w http.ResponseWriter, r *http.Request)
	GetInfo(w http.ResponseWriter, r *http.Request)
	GetConfig(w http.ResponseWriter, r *http.Request)
	ListSessions(w http.ResponseWriter, r *http.Request)
	CreateSession(w http.ResponseWriter, r *http.Request)
	GetSession(w http.ResponseWriter, r *http.Request, id string)
	DeleteSession(w http.ResponseWriter, r *http.Request, id string)
	SelectPrompt(w http.ResponseWriter, r *http.Request, id string)
	AppendOption(w http.ResponseWriter, r *http.Request, id string)
	GoBack(w http.ResponseWriter, r *http.Request, id string)
	CompleteSession(w http.ResponseWriter, r *http.Request, id string)
	GoBackFromFinal(w http.ResponseWriter, r *http.Request, id string)
	ResetSession(w http.ResponseWriter, r *http.Request, id string)
	SubscribeEvents(w http.ResponseWriter, r *http.Request, id string)
	Expand(w http.ResponseWriter, r *http.Request)
	Complete(w http.ResponseWriter, r *http.Request)
}

// HandlerFromMux mounts si on r. Session routes are validated against the
// OpenAPI document before they reach si.
func HandlerFromMux(si ServerInterface, r chi.Router, doc *openapi3.T) http.Handler {
	v := r.With(validateRequest(doc))

	r.Get("/health", si.GetHealth)
	r.Get("/info", si.GetInfo)
	r.Get("/config", si.GetConfig)
	r.Post("/api/expand", si.Expand)
	r.Post("/api/complete", si.Complete)

	v.Get("/sessions", si.ListSessions)
	v.Post("/sessions", si.CreateSession)
	v.Get("/sessions/{id}", withSessionID(si.GetSession))
	v.Delete("/sessions/{id}", withSessionID(si.DeleteSession))
	v.Post("/sessions/{id}/prompt", withSessionID(si.SelectPrompt))
	v.Post("/sessions/{id}/options", withSessionID(si.AppendOption))
	v.Post("/sessions/{id}/back", withSessionID(si.GoBack))
	v.Post("/sessions/{id}/complete", withSessionID(si.CompleteSession))
	v.Post("/sessions/{id}/final/back", withSessionID(si.GoBackFromFinal))
	v.Post("/sessions/{id}/reset", withSessionID(si.ResetSession))
	v.Get("/sessions/{id}/events", withSessionID(si.SubscribeEvents))

	return r
}

func withSessionID(fn func(w http.ResponseWriter, r *http.Request, id string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id string
		err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Failure{Error: fmt.Sprintf("Invalid format for parameter id: %s", err)})
			return
		}
		fn(w, r, id)
	}
}

// validateRequest checks the matched route against its OpenAPI operation.
// It runs as an inline middleware, after chi has resolved the route pattern.
func validateRequest(doc *openapi3.T) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rctx := chi.RouteContext(r.Context())
			if doc == nil || rctx == nil {
				next.ServeHTTP(w, r)
				return
			}

			pattern := rctx.RoutePattern()
			item := doc.Paths.Find(pattern)
			if item == nil || item.GetOperation(r.Method) == nil {
				next.ServeHTTP(w, r)
				return
			}

			params := make(map[string]string, len(rctx.URLParams.Keys))
			for i, key := range rctx.URLParams.Keys {
				params[key] = rctx.URLParams.Values[i]
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: params,
				Route: &routers.Route{
					Spec:      doc,
					Path:      pattern,
					PathItem:  item,
					Method:    r.Method,
					Operation: item.GetOperation(r.Method),
				},
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				writeJSON(w, http.StatusBadRequest, Failure{Error: err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

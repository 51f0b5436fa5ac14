package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/behavior"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/cache"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/lifecycle"
)

// Router is the composition root for the request pipeline: it resolves
// the behavior for the incoming path, builds the event model, drives a
// per-request lifecycle engine and serializes the resulting response.
type Router struct {
	registry   *behavior.Registry
	cache      cache.Store
	fetcher    lifecycle.Fetcher
	keyHeaders []string
	logger     *slog.Logger
}

// NewRouter creates the pipeline router. The router owns the registry
// and cache for the process lifetime; each request's engine borrows
// them.
func NewRouter(registry *behavior.Registry, store cache.Store, fetcher lifecycle.Fetcher, keyHeaders []string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry:   registry,
		cache:      store,
		fetcher:    fetcher,
		keyHeaders: keyHeaders,
		logger:     logger,
	}
}

// ServeHTTP runs one request through the pipeline.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ev, err := rt.buildEvent(r)
	if err != nil {
		AddError(r.Context(), err)
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	b := rt.registry.Resolve(ev.Path)
	if b == nil {
		writeErrorJSON(w, http.StatusServiceUnavailable, "registry_not_ready", "behavior registry has not been built")
		return
	}
	AddLogField(r.Context(), "behavior", b.Pattern)

	engine := lifecycle.NewEngine(b, rt.cache, rt.fetcher, rt.keyHeaders, rt.logger)
	resp, err := engine.Run(r.Context(), ev)
	if err != nil {
		AddError(r.Context(), err)
		rt.writePipelineError(w, err)
		return
	}

	rt.writeResponse(w, resp, engine.CacheHit())
}

// buildEvent converts the wire request into the canonical event model.
// The body is fully read here; the pipeline never streams.
func (rt *Router) buildEvent(r *http.Request) (*event.Request, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	clientIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		clientIP = host
	}

	return &event.Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		Query:    r.URL.RawQuery,
		Headers:  r.Header.Clone(),
		Cookies:  r.Cookies(),
		Body:     body,
		ClientIP: clientIP,
	}, nil
}

func (rt *Router) writeResponse(w http.ResponseWriter, resp *event.Response, cacheHit bool) {
	h := w.Header()
	for name, values := range resp.Headers {
		for _, v := range values {
			h.Add(name, v)
		}
	}
	if cacheHit {
		h.Set("X-Edge-Cache", "Hit")
	} else {
		h.Set("X-Edge-Cache", "Miss")
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		w.Write(resp.Body) //nolint:errcheck // client went away
	}
}

// writePipelineError maps a lifecycle failure to its HTTP status and a
// structured JSON body.
func (rt *Router) writePipelineError(w http.ResponseWriter, err error) {
	if pe, ok := event.AsPipelineError(err); ok {
		writeErrorJSON(w, pe.HTTPStatusCode(), string(pe.Code), pe.Message)
		return
	}
	writeErrorJSON(w, http.StatusInternalServerError, "internal_error", err.Error())
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeErrorJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Code: code, Message: message}) //nolint:errcheck
}

// Package lifecycle implements the four-stage pipeline state machine
// that drives one request from viewer-request through viewer-response,
// consulting the response cache and origin client at the fetch point.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/behavior"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/cache"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/handler"
)

// State is a position in the pipeline state machine.
type State string

const (
	StateViewerRequest  State = "VIEWER_REQUEST"
	StateOriginRequest  State = "ORIGIN_REQUEST"
	StateFetchOrigin    State = "FETCH_ORIGIN"
	StateOriginResponse State = "ORIGIN_RESPONSE"
	StateViewerResponse State = "VIEWER_RESPONSE"
	StateDone           State = "DONE"
)

// Fetcher forwards a request to a backing origin.
type Fetcher interface {
	Fetch(ctx context.Context, req *event.Request, baseURL string) (*event.Response, error)
}

// Engine drives a single request through the pipeline. One engine is
// created per request; it borrows the behavior, cache and fetcher and
// owns its own copy of the event model. Engines are not reusable.
type Engine struct {
	behavior   *behavior.Behavior
	cache      cache.Store
	fetcher    Fetcher
	keyHeaders []string
	logger     *slog.Logger

	state    State
	request  *event.Request
	response *event.Response
	cacheHit bool
}

// NewEngine creates an engine for one request against the resolved
// behavior.
func NewEngine(b *behavior.Behavior, store cache.Store, fetcher Fetcher, keyHeaders []string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		behavior:   b,
		cache:      store,
		fetcher:    fetcher,
		keyHeaders: keyHeaders,
		logger:     logger,
		state:      StateViewerRequest,
	}
}

// Run executes the pipeline to completion. It terminates exactly once,
// either with the final response artifact or with a tagged pipeline
// error; it never runs later stages after a failure.
func (e *Engine) Run(ctx context.Context, req *event.Request) (*event.Response, error) {
	e.request = req

	for e.state != StateDone {
		if err := e.step(ctx); err != nil {
			e.state = StateDone
			return nil, err
		}
	}

	if e.response == nil {
		return nil, event.ErrIncompleteLifecycle()
	}
	return e.response, nil
}

// CacheHit reports whether the fetch stage was satisfied from the
// cache. Only meaningful after Run returns.
func (e *Engine) CacheHit() bool { return e.cacheHit }

func (e *Engine) step(ctx context.Context) error {
	switch e.state {
	case StateViewerRequest:
		return e.runRequestStage(ctx, event.StageViewerRequest, StateOriginRequest)
	case StateOriginRequest:
		return e.runRequestStage(ctx, event.StageOriginRequest, StateFetchOrigin)
	case StateFetchOrigin:
		return e.fetchOrigin(ctx)
	case StateOriginResponse:
		return e.runResponseStage(ctx, event.StageOriginResponse, StateViewerResponse)
	case StateViewerResponse:
		return e.runResponseStage(ctx, event.StageViewerResponse, StateDone)
	default:
		return event.NewPipelineError(event.CodeIncompleteLifecycle, fmt.Sprintf("engine reached unknown state %q", e.state))
	}
}

// runRequestStage handles viewer-request and origin-request. A handler
// returning a response short-circuits: the pipeline jumps straight to
// DONE, skipping the origin and both response-phase stages.
func (e *Engine) runRequestStage(ctx context.Context, stage event.Stage, next State) error {
	h, ok := e.behavior.Handler(stage)
	if !ok {
		e.state = next
		return nil
	}

	out, err := e.invoke(ctx, h, &handler.Invocation{Stage: stage, Request: e.request})
	if err != nil {
		return e.handlerError(stage, err)
	}

	switch {
	case out.Response != nil && out.Request == nil:
		e.response = out.Response
		e.state = StateDone
	case out.Request != nil && out.Response == nil:
		e.request = out.Request
		e.state = next
	default:
		return event.ErrInvalidHandlerResult(stage, fmt.Sprintf("handler %s must return either a request or a response", h.Name()))
	}
	return nil
}

// fetchOrigin is the non-handler stage: cache lookup, then an origin
// fetch on a miss. Cache read errors are not fatal; a corrupt or
// missing entry is a miss and the pipeline proceeds to a live fetch.
func (e *Engine) fetchOrigin(ctx context.Context) error {
	fingerprint := cache.Fingerprint(e.request, e.keyHeaders)

	entry, err := e.cache.Lookup(ctx, fingerprint)
	if err != nil {
		e.logger.Warn("cache lookup failed, treating as miss",
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()),
		)
	}
	if entry != nil {
		e.response = entry.Response
		e.cacheHit = true
		e.state = StateOriginResponse
		return nil
	}

	if e.behavior.Origin == nil {
		return event.ErrNoOriginConfigured(e.behavior.Pattern)
	}

	resp, err := e.fetcher.Fetch(ctx, e.request, e.behavior.Origin.BaseURL)
	if err != nil {
		if _, ok := event.AsPipelineError(err); ok {
			return err
		}
		return event.ErrOriginUnavailable(err)
	}

	if err := e.cache.Store(ctx, fingerprint, resp); err != nil {
		e.logger.Warn("cache store failed",
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()),
		)
	}

	e.response = resp
	e.state = StateOriginResponse
	return nil
}

// runResponseStage handles origin-response and viewer-response. The
// handler receives the (request, response) pair and must return a
// response; reverting to a request at this point is a contract
// violation.
func (e *Engine) runResponseStage(ctx context.Context, stage event.Stage, next State) error {
	h, ok := e.behavior.Handler(stage)
	if !ok {
		e.state = next
		return nil
	}

	out, err := e.invoke(ctx, h, &handler.Invocation{Stage: stage, Request: e.request, Response: e.response})
	if err != nil {
		return e.handlerError(stage, err)
	}

	if out.Request != nil || out.Response == nil {
		return event.ErrInvalidHandlerResult(stage, fmt.Sprintf("handler %s must return a response during the response phase", h.Name()))
	}

	e.response = out.Response
	e.state = next
	return nil
}

// invoke awaits a handler at the stage's single suspension point,
// converting a panic inside the handler into an ordinary error.
func (e *Engine) invoke(ctx context.Context, h handler.Handler, in *handler.Invocation) (out *handler.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", h.Name(), r)
		}
	}()
	out, err = h.Invoke(ctx, in)
	if err == nil && out == nil {
		err = handler.ErrInvalidResult
	}
	return out, err
}

func (e *Engine) handlerError(stage event.Stage, err error) error {
	if errors.Is(err, handler.ErrInvalidResult) {
		return event.ErrInvalidHandlerResult(stage, err.Error())
	}
	return event.ErrHandlerExecution(stage, err)
}

// Package handler defines the stage handler contract and the two ways
// handlers are produced: built-in handlers registered by type name, and
// JavaScript handlers compiled from script files.
package handler

import (
	"context"
	"errors"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
)

// ErrInvalidResult is returned (possibly wrapped) by a handler whose
// result does not fit its stage contract. The lifecycle engine maps it
// to an invalid_handler_result failure rather than an execution error.
var ErrInvalidResult = errors.New("handler returned an unrecognized result shape")

// Invocation carries the current pipeline state into a stage handler.
type Invocation struct {
	// Stage is the pipeline point the handler runs at.
	Stage event.Stage

	// Request is the current request event, always present.
	Request *event.Request

	// Response is the current response artifact. Only present during
	// the response phase.
	Response *event.Response
}

// Outcome is a handler's result. Exactly one field is set: Request to
// pass a (possibly modified) request onward, or Response to replace the
// current response — which, during the request phase, short-circuits
// the pipeline.
type Outcome struct {
	Request  *event.Request
	Response *event.Response
}

// Handler processes a single pipeline stage invocation.
type Handler interface {
	// Name returns an identifier used in logs and error messages.
	Name() string

	// Invoke executes the handler. Handlers may perform their own I/O;
	// the engine awaits the call at a single suspension point per stage.
	Invoke(ctx context.Context, in *Invocation) (*Outcome, error)
}

// Func adapts a function to the Handler interface.
type Func struct {
	HandlerName string
	Fn          func(ctx context.Context, in *Invocation) (*Outcome, error)
}

// Name returns the handler's identifier.
func (f Func) Name() string { return f.HandlerName }

// Invoke calls the wrapped function.
func (f Func) Invoke(ctx context.Context, in *Invocation) (*Outcome, error) {
	return f.Fn(ctx, in)
}

package event

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode categorizes a pipeline failure.
type ErrorCode string

const (
	// CodeInvalidPattern indicates a behavior pattern failed to compile.
	// It is a startup-time fatal condition, never a request failure.
	CodeInvalidPattern ErrorCode = "invalid_pattern"

	// CodeInvalidHandlerResult indicates a stage handler returned a
	// shape its stage contract does not allow.
	CodeInvalidHandlerResult ErrorCode = "invalid_handler_result"

	// CodeHandlerExecution indicates a stage handler itself failed.
	CodeHandlerExecution ErrorCode = "handler_execution_error"

	// CodeNoOriginConfigured indicates the fetch stage was reached by a
	// behavior without an origin target.
	CodeNoOriginConfigured ErrorCode = "no_origin_configured"

	// CodeOriginUnavailable indicates the origin fetch failed.
	CodeOriginUnavailable ErrorCode = "origin_unavailable"

	// CodeIncompleteLifecycle indicates the pipeline reached its
	// terminal state without any response artifact.
	CodeIncompleteLifecycle ErrorCode = "incomplete_lifecycle"
)

// PipelineError is the tagged error handed from the lifecycle engine to
// the router. The router maps it to an HTTP status and a JSON body.
type PipelineError struct {
	// Code is the failure category.
	Code ErrorCode

	// Stage is the stage the failure occurred in, if any.
	Stage Stage

	// Message is the human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = fmt.Sprintf("%s (stage %s)", msg, e.Stage)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// HTTPStatusCode returns the HTTP status the router writes for this
// failure. Origin and fetch failures map to the 502 class; handler and
// contract failures map to 500.
func (e *PipelineError) HTTPStatusCode() int {
	switch e.Code {
	case CodeNoOriginConfigured, CodeOriginUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewPipelineError creates a pipeline error with the given code.
func NewPipelineError(code ErrorCode, message string) *PipelineError {
	return &PipelineError{Code: code, Message: message}
}

// WithStage tags the error with the stage it occurred in.
func (e *PipelineError) WithStage(stage Stage) *PipelineError {
	e.Stage = stage
	return e
}

// WithCause attaches an underlying error.
func (e *PipelineError) WithCause(cause error) *PipelineError {
	e.Cause = cause
	return e
}

// AsPipelineError extracts a *PipelineError from an error chain.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	ok := errors.As(err, &pe)
	return pe, ok
}

// ErrInvalidPattern creates an invalid pattern error.
func ErrInvalidPattern(pattern string, cause error) *PipelineError {
	return NewPipelineError(CodeInvalidPattern, fmt.Sprintf("pattern %q is not valid", pattern)).WithCause(cause)
}

// ErrInvalidHandlerResult creates a handler contract violation error.
func ErrInvalidHandlerResult(stage Stage, message string) *PipelineError {
	return NewPipelineError(CodeInvalidHandlerResult, message).WithStage(stage)
}

// ErrHandlerExecution creates a handler execution failure error.
func ErrHandlerExecution(stage Stage, cause error) *PipelineError {
	return NewPipelineError(CodeHandlerExecution, "handler failed").WithStage(stage).WithCause(cause)
}

// ErrNoOriginConfigured creates a missing-origin error.
func ErrNoOriginConfigured(pattern string) *PipelineError {
	return NewPipelineError(CodeNoOriginConfigured, fmt.Sprintf("behavior %q has no origin configured", pattern))
}

// ErrOriginUnavailable creates an origin fetch failure error.
func ErrOriginUnavailable(cause error) *PipelineError {
	return NewPipelineError(CodeOriginUnavailable, "origin fetch failed").WithCause(cause)
}

// ErrIncompleteLifecycle creates an incomplete lifecycle error.
func ErrIncompleteLifecycle() *PipelineError {
	return NewPipelineError(CodeIncompleteLifecycle, "pipeline finished without producing a response")
}

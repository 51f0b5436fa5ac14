package event

import "fmt"

// Stage identifies one of the four ordered pipeline points.
type Stage string

const (
	// StageViewerRequest runs first, before any origin decision.
	StageViewerRequest Stage = "viewer-request"

	// StageOriginRequest runs immediately before the origin fetch.
	StageOriginRequest Stage = "origin-request"

	// StageOriginResponse runs on the response produced by the origin
	// fetch (or the cache).
	StageOriginResponse Stage = "origin-response"

	// StageViewerResponse runs last, before the response is written to
	// the client.
	StageViewerResponse Stage = "viewer-response"
)

// Stages lists the four stages in pipeline order.
func Stages() []Stage {
	return []Stage{StageViewerRequest, StageOriginRequest, StageOriginResponse, StageViewerResponse}
}

// ParseStage converts a configuration string into a Stage.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageViewerRequest, StageOriginRequest, StageOriginResponse, StageViewerResponse:
		return Stage(s), nil
	default:
		return "", fmt.Errorf("unknown pipeline stage %q", s)
	}
}

// RequestPhase reports whether the stage runs before the origin fetch.
// Request-phase handlers receive a request and may short-circuit with a
// response; response-phase handlers must return a response.
func (s Stage) RequestPhase() bool {
	return s == StageViewerRequest || s == StageOriginRequest
}

// Package event provides the canonical request/response model passed
// through every pipeline stage, along with the stage enum and the
// canonical error types surfaced by the lifecycle engine.
package event

import (
	"net/http"
)

// Request is the canonical representation of an inbound request. Each
// pipeline stage receives the latest version and may return a modified
// clone; a stage never mutates the copy owned by an earlier stage.
type Request struct {
	// Method is the HTTP method, upper-cased.
	Method string `json:"method"`

	// Path is the URL path component, always beginning with "/".
	Path string `json:"path"`

	// Query is the raw query string without the leading "?".
	Query string `json:"query"`

	// Headers holds the request headers. Multi-valued, with
	// case-insensitive keys via http.Header canonicalization.
	Headers http.Header `json:"headers"`

	// Cookies are the parsed request cookies.
	Cookies []*http.Cookie `json:"cookies,omitempty"`

	// Body is the raw request body, already fully read.
	Body []byte `json:"body,omitempty"`

	// ClientIP is the remote address of the client.
	ClientIP string `json:"client_ip"`
}

// Clone returns a deep copy of the request. Stage handlers operate on
// clones so that a failed or short-circuited stage never leaves a
// partially mutated event behind.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Headers = cloneHeader(r.Headers)
	if r.Cookies != nil {
		out.Cookies = make([]*http.Cookie, len(r.Cookies))
		for i, c := range r.Cookies {
			cc := *c
			out.Cookies[i] = &cc
		}
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return &out
}

// Response is the artifact produced either by a short-circuiting
// handler or by an origin fetch, mutable by later stages.
type Response struct {
	// Status is the HTTP status code.
	Status int `json:"status"`

	// StatusDescription is the reason phrase, e.g. "OK".
	StatusDescription string `json:"status_description,omitempty"`

	// Headers holds the response headers, multi-valued.
	Headers http.Header `json:"headers"`

	// Body is the raw response body.
	Body []byte `json:"body,omitempty"`
}

// Clone returns a deep copy of the response.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Headers = cloneHeader(r.Headers)
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return &out
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}

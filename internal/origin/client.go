// Package origin provides the client that forwards a request to a
// behavior's backing origin.
package origin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
)

// DefaultTimeout bounds a single origin fetch. The lifecycle engine
// enforces no timeout of its own; this is the only clock on a request.
const DefaultTimeout = 30 * time.Second

// Client fetches origin responses over HTTP. Fetches are single-shot:
// no retries, and redirects from the origin are surfaced as-is to the
// response-phase stages rather than followed.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates an origin client. A zero timeout uses DefaultTimeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// Fetch forwards the request's method, path, query, headers and body to
// baseURL+path and converts the result into a response artifact. Any
// connection failure, timeout or non-parseable response is returned as
// an origin_unavailable pipeline error.
func (c *Client) Fetch(ctx context.Context, req *event.Request, baseURL string) (*event.Response, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, event.ErrOriginUnavailable(fmt.Errorf("parse origin url %q: %w", baseURL, err))
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + req.Path
	u.RawQuery = req.Query

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, event.ErrOriginUnavailable(err)
	}
	httpReq.Header = req.Headers.Clone()

	started := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, event.ErrOriginUnavailable(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, event.ErrOriginUnavailable(fmt.Errorf("read origin response: %w", err))
	}

	c.logger.Debug("origin fetched",
		slog.String("url", u.String()),
		slog.Int("status", httpResp.StatusCode),
		slog.Duration("duration", time.Since(started)),
	)

	return &event.Response{
		Status:            httpResp.StatusCode,
		StatusDescription: reasonPhrase(httpResp),
		Headers:           httpResp.Header.Clone(),
		Body:              respBody,
	}, nil
}

func reasonPhrase(resp *http.Response) string {
	// resp.Status is "200 OK"; keep only the phrase.
	if phrase, ok := strings.CutPrefix(resp.Status, fmt.Sprintf("%d ", resp.StatusCode)); ok {
		return phrase
	}
	return http.StatusText(resp.StatusCode)
}

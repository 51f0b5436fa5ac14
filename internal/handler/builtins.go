package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mitchellh/mapstructure"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
)

func init() {
	RegisterFactory(Factory{
		Type:        "static-response",
		Description: "Short-circuits with a fixed response",
		Create:      newStaticResponse,
	})
	RegisterFactory(Factory{
		Type:        "inject-headers",
		Description: "Adds fixed headers to the request or response",
		Create:      newInjectHeaders,
	})
	RegisterFactory(Factory{
		Type:        "redirect",
		Description: "Short-circuits with a redirect response",
		Create:      newRedirect,
	})
}

func decodeOptions(options map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("decode handler options: %w", err)
	}
	return nil
}

type staticResponseOptions struct {
	Status            int               `mapstructure:"status"`
	StatusDescription string            `mapstructure:"status_description"`
	Body              string            `mapstructure:"body"`
	Headers           map[string]string `mapstructure:"headers"`
}

func newStaticResponse(options map[string]any) (Handler, error) {
	var opts staticResponseOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	if opts.Status == 0 {
		opts.Status = http.StatusOK
	}
	if opts.StatusDescription == "" {
		opts.StatusDescription = http.StatusText(opts.Status)
	}

	return Func{
		HandlerName: "static-response",
		Fn: func(ctx context.Context, in *Invocation) (*Outcome, error) {
			resp := &event.Response{
				Status:            opts.Status,
				StatusDescription: opts.StatusDescription,
				Headers:           http.Header{},
				Body:              []byte(opts.Body),
			}
			for k, v := range opts.Headers {
				resp.Headers.Set(k, v)
			}
			return &Outcome{Response: resp}, nil
		},
	}, nil
}

type injectHeadersOptions struct {
	Headers map[string]string `mapstructure:"headers"`
}

func newInjectHeaders(options map[string]any) (Handler, error) {
	var opts injectHeadersOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	if len(opts.Headers) == 0 {
		return nil, fmt.Errorf("inject-headers requires a non-empty headers option")
	}

	return Func{
		HandlerName: "inject-headers",
		Fn: func(ctx context.Context, in *Invocation) (*Outcome, error) {
			if in.Stage.RequestPhase() {
				req := in.Request.Clone()
				for k, v := range opts.Headers {
					req.Headers.Set(k, v)
				}
				return &Outcome{Request: req}, nil
			}
			resp := in.Response.Clone()
			for k, v := range opts.Headers {
				resp.Headers.Set(k, v)
			}
			return &Outcome{Response: resp}, nil
		},
	}, nil
}

type redirectOptions struct {
	Location string `mapstructure:"location"`
	Status   int    `mapstructure:"status"`
}

func newRedirect(options map[string]any) (Handler, error) {
	var opts redirectOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	if opts.Location == "" {
		return nil, fmt.Errorf("redirect requires a location option")
	}
	if opts.Status == 0 {
		opts.Status = http.StatusFound
	}

	return Func{
		HandlerName: "redirect",
		Fn: func(ctx context.Context, in *Invocation) (*Outcome, error) {
			resp := &event.Response{
				Status:            opts.Status,
				StatusDescription: http.StatusText(opts.Status),
				Headers:           http.Header{},
			}
			resp.Headers.Set("Location", opts.Location)
			return &Outcome{Response: resp}, nil
		},
	}, nil
}

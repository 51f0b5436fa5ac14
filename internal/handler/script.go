package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
)

// ScriptHandler runs a JavaScript stage handler with goja. The script
// is compiled once at registration time; syntax errors surface before
// the registry becomes ready, alongside invalid patterns. Runtimes are
// pooled so concurrent requests never share a VM.
//
// Scripts see the CloudFront Lambda@Edge event document and may either
// return their result directly (including from an async function) or
// use the node-style callback:
//
//	exports.handler = (event, context, callback) => {
//	    const request = event.Records[0].cf.request;
//	    request.headers['x-edge'] = [{key: 'X-Edge', value: 'on'}];
//	    callback(null, request);
//	};
type ScriptHandler struct {
	name    string
	export  string
	program *goja.Program
	pool    sync.Pool
}

// scriptVM pairs a runtime with the resolved handler function so the
// export lookup happens once per VM, not once per request.
type scriptVM struct {
	vm *goja.Runtime
	fn goja.Callable
}

// NewScriptHandler compiles the script at the given path. The export
// name defaults to "handler".
func NewScriptHandler(file, export string) (*ScriptHandler, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read handler script: %w", err)
	}
	return NewScriptHandlerFromSource(file, string(src), export)
}

// NewScriptHandlerFromSource compiles a script handler from an in-memory
// source string.
func NewScriptHandlerFromSource(name, source, export string) (*ScriptHandler, error) {
	program, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, fmt.Errorf("compile handler script %s: %w", name, err)
	}
	if export == "" {
		export = "handler"
	}

	h := &ScriptHandler{name: name, export: export, program: program}
	h.pool = sync.Pool{New: func() any {
		v, err := h.newVM()
		if err != nil {
			return nil
		}
		return v
	}}

	// Instantiate one VM eagerly so runtime errors in the script body
	// and a missing export fail at registration time.
	v, err := h.newVM()
	if err != nil {
		return nil, err
	}
	h.pool.Put(v)

	return h, nil
}

// Name returns the script path.
func (h *ScriptHandler) Name() string { return h.name }

func (h *ScriptHandler) newVM() (*scriptVM, error) {
	vm := goja.New()

	exports := vm.NewObject()
	module := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}
	if err := vm.Set("exports", exports); err != nil {
		return nil, err
	}
	if err := vm.Set("module", module); err != nil {
		return nil, err
	}
	if err := vm.Set("console", consoleShim(h.name)); err != nil {
		return nil, err
	}

	if _, err := vm.RunProgram(h.program); err != nil {
		return nil, fmt.Errorf("evaluate handler script %s: %w", h.name, err)
	}

	fn, err := h.resolveExport(vm, module)
	if err != nil {
		return nil, err
	}
	return &scriptVM{vm: vm, fn: fn}, nil
}

func (h *ScriptHandler) resolveExport(vm *goja.Runtime, module *goja.Object) (goja.Callable, error) {
	candidates := []goja.Value{}
	if exp := module.Get("exports"); exp != nil {
		if obj, ok := exp.(*goja.Object); ok {
			candidates = append(candidates, obj.Get(h.export))
		}
	}
	candidates = append(candidates, vm.GlobalObject().Get(h.export))

	for _, v := range candidates {
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}
		if fn, ok := goja.AssertFunction(v); ok {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("handler script %s does not export a function named %q", h.name, h.export)
}

// Invoke builds the CloudFront event document, calls the script and
// maps the result back onto the pipeline's event model.
func (h *ScriptHandler) Invoke(ctx context.Context, in *Invocation) (*Outcome, error) {
	pooled := h.pool.Get()
	v, ok := pooled.(*scriptVM)
	if !ok || v == nil {
		var err error
		v, err = h.newVM()
		if err != nil {
			return nil, err
		}
	}
	defer h.pool.Put(v)

	doc := h.eventDocument(in)
	lambdaCtx := map[string]any{
		"functionName": h.name,
	}

	var cbResult goja.Value
	var cbErr error
	cbCalled := false
	callback := func(call goja.FunctionCall) goja.Value {
		cbCalled = true
		if e := call.Argument(0); !goja.IsUndefined(e) && !goja.IsNull(e) {
			cbErr = fmt.Errorf("handler callback error: %s", e.String())
		}
		cbResult = call.Argument(1)
		return goja.Undefined()
	}

	ret, err := v.fn(goja.Undefined(), v.vm.ToValue(doc), v.vm.ToValue(lambdaCtx), v.vm.ToValue(callback))
	if err != nil {
		return nil, fmt.Errorf("run handler script %s: %w", h.name, err)
	}

	if p, isPromise := ret.Export().(*goja.Promise); isPromise {
		switch p.State() {
		case goja.PromiseStateFulfilled:
			ret = p.Result()
		case goja.PromiseStateRejected:
			return nil, fmt.Errorf("handler script %s rejected: %s", h.name, p.Result().String())
		default:
			return nil, fmt.Errorf("handler script %s returned a promise that never settled", h.name)
		}
	}

	var result any
	switch {
	case ret != nil && !goja.IsUndefined(ret) && !goja.IsNull(ret):
		result = ret.Export()
	case cbCalled:
		if cbErr != nil {
			return nil, cbErr
		}
		if cbResult != nil && !goja.IsUndefined(cbResult) && !goja.IsNull(cbResult) {
			result = cbResult.Export()
		}
	}

	return h.mapResult(in, result)
}

// eventDocument builds the Lambda@Edge-shaped event the script receives.
func (h *ScriptHandler) eventDocument(in *Invocation) map[string]any {
	cf := map[string]any{
		"config": map[string]any{
			"eventType": string(in.Stage),
		},
		"request": cfRequest(in.Request),
	}
	if in.Response != nil {
		cf["response"] = cfResponse(in.Response)
	}
	return map[string]any{
		"Records": []any{
			map[string]any{"cf": cf},
		},
	}
}

func (h *ScriptHandler) mapResult(in *Invocation, result any) (*Outcome, error) {
	doc, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: script %s", ErrInvalidResult, h.name)
	}

	if _, hasStatus := doc["status"]; hasStatus {
		resp, err := responseFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: script %s: %v", ErrInvalidResult, h.name, err)
		}
		return &Outcome{Response: resp}, nil
	}

	if _, hasURI := doc["uri"]; hasURI {
		if !in.Stage.RequestPhase() {
			return nil, fmt.Errorf("%w: script %s returned a request during the response phase", ErrInvalidResult, h.name)
		}
		return &Outcome{Request: requestFromDocument(in.Request, doc)}, nil
	}

	return nil, fmt.Errorf("%w: script %s", ErrInvalidResult, h.name)
}

func cfRequest(req *event.Request) map[string]any {
	return map[string]any{
		"clientIp":    req.ClientIP,
		"method":      req.Method,
		"uri":         req.Path,
		"querystring": req.Query,
		"headers":     cfHeaders(req.Headers),
		"body": map[string]any{
			"data":     string(req.Body),
			"encoding": "text",
		},
	}
}

func cfResponse(resp *event.Response) map[string]any {
	return map[string]any{
		"status":            strconv.Itoa(resp.Status),
		"statusDescription": resp.StatusDescription,
		"headers":           cfHeaders(resp.Headers),
		"body":              string(resp.Body),
	}
}

// cfHeaders converts to the Lambda@Edge header shape: lower-cased name
// mapped to a list of {key, value} pairs.
func cfHeaders(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for name, values := range h {
		entries := make([]any, 0, len(values))
		for _, v := range values {
			entries = append(entries, map[string]any{"key": name, "value": v})
		}
		out[strings.ToLower(name)] = entries
	}
	return out
}

func headersFromDocument(v any) http.Header {
	out := http.Header{}
	doc, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for name, raw := range doc {
		entries, ok := raw.([]any)
		if !ok {
			continue
		}
		for _, e := range entries {
			pair, ok := e.(map[string]any)
			if !ok {
				continue
			}
			key := name
			if k, ok := pair["key"].(string); ok && k != "" {
				key = k
			}
			if value, ok := pair["value"].(string); ok {
				out.Add(key, value)
			}
		}
	}
	return out
}

// requestFromDocument overlays the script's request document onto a
// clone of the current request, preserving fields the document format
// does not carry (parsed cookies, client IP).
func requestFromDocument(base *event.Request, doc map[string]any) *event.Request {
	req := base.Clone()
	if m, ok := doc["method"].(string); ok && m != "" {
		req.Method = strings.ToUpper(m)
	}
	if u, ok := doc["uri"].(string); ok && u != "" {
		req.Path = u
	}
	if q, ok := doc["querystring"].(string); ok {
		req.Query = q
	}
	if h, ok := doc["headers"]; ok {
		req.Headers = headersFromDocument(h)
	}
	if b, ok := doc["body"].(map[string]any); ok {
		req.Body = bodyFromDocument(b["data"], b["encoding"])
	}
	return req
}

func responseFromDocument(doc map[string]any) (*event.Response, error) {
	status, err := statusFromDocument(doc["status"])
	if err != nil {
		return nil, err
	}
	resp := &event.Response{
		Status:  status,
		Headers: http.Header{},
	}
	if d, ok := doc["statusDescription"].(string); ok {
		resp.StatusDescription = d
	}
	if resp.StatusDescription == "" {
		resp.StatusDescription = http.StatusText(status)
	}
	if h, ok := doc["headers"]; ok {
		resp.Headers = headersFromDocument(h)
	}
	resp.Body = bodyFromDocument(doc["body"], doc["bodyEncoding"])
	return resp, nil
}

// statusFromDocument accepts the string form Lambda@Edge uses as well
// as plain numbers, which handler authors reach for in practice.
func statusFromDocument(v any) (int, error) {
	switch s := v.(type) {
	case string:
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("status %q is not numeric", s)
		}
		return n, nil
	case int64:
		return int(s), nil
	case float64:
		return int(s), nil
	default:
		return 0, fmt.Errorf("status has unsupported type %T", v)
	}
}

func bodyFromDocument(data, encoding any) []byte {
	s, ok := data.(string)
	if !ok {
		return nil
	}
	if enc, ok := encoding.(string); ok && enc == "base64" {
		if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
			return decoded
		}
	}
	return []byte(s)
}

// consoleShim routes script console output to the process logger so
// handler authors get their debug lines in the structured log stream.
func consoleShim(script string) map[string]any {
	log := func(level slog.Level) func(args ...any) {
		return func(args ...any) {
			slog.Default().Log(context.Background(), level, fmt.Sprint(args...), slog.String("script", script))
		}
	}
	return map[string]any{
		"log":   log(slog.LevelInfo),
		"info":  log(slog.LevelInfo),
		"warn":  log(slog.LevelWarn),
		"error": log(slog.LevelError),
	}
}

package behavior

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/handler"
)

// CatchAllPattern is the pattern of the fallback behavior. A registry
// always contains exactly one catch-all after construction; an empty
// one is synthesized if the configuration registered none.
const CatchAllPattern = "*"

// OriginTarget is the backing origin a behavior proxies to.
type OriginTarget struct {
	BaseURL string
}

// Registration is one (pattern, stage, handler) tuple supplied by the
// configuration layer. Registrations for the same pattern accumulate
// into a single behavior.
type Registration struct {
	Pattern string
	Stage   event.Stage
	Handler handler.Handler
}

// Behavior is a path pattern plus its stage handlers and optional
// origin target. Behaviors are immutable once the registry snapshot
// containing them is published.
type Behavior struct {
	Pattern string
	Origin  *OriginTarget

	matcher *Matcher
	stages  map[event.Stage]handler.Handler
}

// Handler returns the handler registered for a stage, if any.
func (b *Behavior) Handler(stage event.Stage) (handler.Handler, bool) {
	h, ok := b.stages[stage]
	return h, ok
}

// Matches reports whether the behavior's pattern matches the path.
func (b *Behavior) Matches(path string) bool {
	return b.matcher.Matches(path)
}

// snapshot is one immutable generation of the registry. Rebuilds
// publish a fresh snapshot; in-flight requests keep resolving against
// the one they started with.
type snapshot struct {
	ordered  []*Behavior
	catchAll *Behavior
}

// Registry resolves incoming paths to behaviors. It is read-only
// during request handling and replaced wholesale by Rebuild.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	current *snapshot
}

// NewRegistry creates an empty registry. Resolve must not be called
// before the first successful Rebuild.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Rebuild constructs a new registry generation from the supplied
// registrations and origin map and swaps it in atomically. A failure
// leaves the previous generation untouched, so a bad reload never takes
// a running simulator down.
func (r *Registry) Rebuild(regs []Registration, origins map[string]string) error {
	byPattern := make(map[string]*Behavior)
	var order []string

	get := func(pattern string) (*Behavior, error) {
		if b, ok := byPattern[pattern]; ok {
			return b, nil
		}
		m, err := Compile(pattern)
		if err != nil {
			return nil, event.ErrInvalidPattern(pattern, err)
		}
		b := &Behavior{
			Pattern: pattern,
			matcher: m,
			stages:  make(map[event.Stage]handler.Handler),
		}
		byPattern[pattern] = b
		order = append(order, pattern)
		return b, nil
	}

	for _, reg := range regs {
		b, err := get(reg.Pattern)
		if err != nil {
			return err
		}
		if prev, ok := b.stages[reg.Stage]; ok {
			r.logger.Warn("handler replaces earlier registration",
				slog.String("pattern", reg.Pattern),
				slog.String("stage", string(reg.Stage)),
				slog.String("replaced", prev.Name()),
				slog.String("handler", reg.Handler.Name()),
			)
		}
		b.stages[reg.Stage] = reg.Handler
	}

	// Origin-only patterns get a handler-less behavior of their own.
	// Sorted so rebuilds are deterministic regardless of map order.
	originPatterns := make([]string, 0, len(origins))
	for pattern := range origins {
		originPatterns = append(originPatterns, pattern)
	}
	sort.Strings(originPatterns)
	for _, pattern := range originPatterns {
		b, err := get(pattern)
		if err != nil {
			return err
		}
		b.Origin = &OriginTarget{BaseURL: origins[pattern]}
	}

	next := &snapshot{}
	for _, pattern := range order {
		b := byPattern[pattern]
		if pattern == CatchAllPattern {
			next.catchAll = b
			continue
		}
		next.ordered = append(next.ordered, b)
	}
	if next.catchAll == nil {
		m, err := Compile(CatchAllPattern)
		if err != nil {
			return fmt.Errorf("compile catch-all pattern: %w", err)
		}
		next.catchAll = &Behavior{
			Pattern: CatchAllPattern,
			matcher: m,
			stages:  make(map[event.Stage]handler.Handler),
		}
	}

	r.mu.Lock()
	r.current = next
	r.mu.Unlock()

	r.logger.Info("behavior registry rebuilt",
		slog.Int("behaviors", len(next.ordered)+1),
	)
	return nil
}

// Resolve returns the first behavior, in registration order, whose
// pattern matches the path, falling back to the catch-all. It never
// returns nil after a successful Rebuild.
func (r *Registry) Resolve(path string) *Behavior {
	r.mu.RLock()
	snap := r.current
	r.mu.RUnlock()

	if snap == nil {
		return nil
	}
	for _, b := range snap.ordered {
		if b.Matches(path) {
			return b
		}
	}
	return snap.catchAll
}

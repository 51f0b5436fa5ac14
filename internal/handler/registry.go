package handler

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory defines how to create a built-in handler of a specific type.
// Each built-in registers a factory that knows how to create instances
// from the options map in the behavior configuration.
type Factory struct {
	// Type is the handler type identifier used in configuration
	// (e.g., "static-response", "inject-headers").
	Type string

	// Description provides a human-readable description of the handler.
	Description string

	// Create instantiates a handler from its configuration options.
	Create func(options map[string]any) (Handler, error)
}

var (
	factoryMu  sync.RWMutex
	factoryMap = make(map[string]Factory)
)

// RegisterFactory registers a built-in handler factory. It should be
// called from init() in the package defining the handler. Panics if a
// factory with the same type is already registered.
func RegisterFactory(f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if f.Type == "" {
		panic("handler factory type cannot be empty")
	}
	if f.Create == nil {
		panic(fmt.Sprintf("handler factory %q must have a Create function", f.Type))
	}
	if _, exists := factoryMap[f.Type]; exists {
		panic(fmt.Sprintf("handler factory %q already registered", f.Type))
	}

	factoryMap[f.Type] = f
}

// GetFactory returns the factory for a handler type, if registered.
func GetFactory(handlerType string) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factoryMap[handlerType]
	return f, ok
}

// ListTypes returns all registered handler type names, sorted.
func ListTypes() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	types := make([]string, 0, len(factoryMap))
	for t := range factoryMap {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Resolve turns a configured handler reference into a Handler. A
// reference naming a JavaScript file ("handlers/auth.js", optionally
// with "#exportName") compiles a script handler; anything else is
// looked up in the built-in factory registry. Resolution failures are
// registration-time errors, surfaced before the registry becomes ready.
func Resolve(ref string, options map[string]any) (Handler, error) {
	if ref == "" {
		return nil, fmt.Errorf("handler reference cannot be empty")
	}

	if file, export, ok := splitScriptRef(ref); ok {
		return NewScriptHandler(file, export)
	}

	f, ok := GetFactory(ref)
	if !ok {
		return nil, fmt.Errorf("unknown handler %q (registered types: %v)", ref, ListTypes())
	}
	return f.Create(options)
}

// splitScriptRef recognizes "path/to/file.js" and "path/to/file.js#fn"
// references.
func splitScriptRef(ref string) (file, export string, ok bool) {
	file, export = ref, ""
	if i := strings.LastIndex(ref, "#"); i >= 0 {
		file, export = ref[:i], ref[i+1:]
	}
	if !strings.HasSuffix(file, ".js") {
		return "", "", false
	}
	return file, export, true
}

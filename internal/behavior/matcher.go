// Package behavior provides path-pattern matching and the registry
// mapping incoming paths to behaviors.
package behavior

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Matcher is a compiled path pattern. Patterns use glob syntax where
// "*" matches any run of path characters, and are anchored: they must
// match the whole path, never a prefix.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

var (
	matcherMu    sync.RWMutex
	matcherCache = make(map[string]*Matcher)
)

// Compile compiles a glob pattern into a matcher. Compilation is
// side-effect-free and cached per distinct pattern string, so repeated
// registry rebuilds do not recompile unchanged patterns.
func Compile(pattern string) (*Matcher, error) {
	matcherMu.RLock()
	m, ok := matcherCache[pattern]
	matcherMu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := compile(pattern)
	if err != nil {
		return nil, err
	}

	matcherMu.Lock()
	matcherCache[pattern] = m
	matcherMu.Unlock()
	return m, nil
}

func compile(pattern string) (*Matcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}
	if i := strings.IndexAny(pattern, "?["); i >= 0 {
		return nil, fmt.Errorf("unsupported glob metacharacter %q (only * is supported)", pattern[i])
	}

	var sb strings.Builder
	sb.WriteString("^")
	for i, part := range strings.Split(pattern, "*") {
		if i > 0 {
			sb.WriteString(".*")
		}
		sb.WriteString(regexp.QuoteMeta(part))
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &Matcher{pattern: pattern, re: re}, nil
}

// Pattern returns the original pattern string.
func (m *Matcher) Pattern() string { return m.pattern }

// Matches reports whether the path is matched by the pattern.
func (m *Matcher) Matches(path string) bool {
	return m.re.MatchString(path)
}

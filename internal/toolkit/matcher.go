package toolkit

import (
	"strings"
	"sync"
)

// Matcher decides whether a window class belongs to the tracked
// application. Matching is case-insensitive and safe for concurrent use.
type Matcher struct {
	mu      sync.RWMutex
	classes map[string]bool
}

// NewMatcher creates a matcher for the given window classes.
func NewMatcher(classes []string) *Matcher {
	m := &Matcher{classes: make(map[string]bool)}
	m.Update(classes)
	return m
}

// Match reports whether class names a tracked application.
func (m *Matcher) Match(class string) bool {
	if class == "" {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.classes[class] {
		return true
	}
	return m.classes[strings.ToLower(class)]
}

// Update replaces the tracked class set.
func (m *Matcher) Update(classes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.classes = make(map[string]bool, len(classes)*2)
	for _, class := range classes {
		if class == "" {
			continue
		}
		m.classes[class] = true
		m.classes[strings.ToLower(class)] = true
	}
}

// Package correlate resolves sync requests against the window manager's
// layout tree: it finds each identity's window by its title marker, replays
// stored placements, and learns which window carries which identity.
package correlate

import (
	"sync"
	"sync/atomic"
)

// Tracker is the state shared between the correlator and the event
// watcher: the learned window table, and the inhibit gate that keeps the
// moves we issue ourselves from echoing back as notifications.
type Tracker struct {
	inhibit atomic.Int32

	mu      sync.Mutex
	windows map[uint32]string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{windows: make(map[uint32]string)}
}

// Inhibit raises the gate and returns the function that lowers it again.
func (t *Tracker) Inhibit() func() {
	t.inhibit.Add(1)
	return func() { t.inhibit.Add(-1) }
}

// Inhibited reports whether a correlation pass is in progress.
func (t *Tracker) Inhibited() bool {
	return t.inhibit.Load() > 0
}

// Learn records that the given window carries an identity.
func (t *Tracker) Learn(window uint32, identity string) {
	if window == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows[window] = identity
}

// Identity returns the identity learned for a window.
func (t *Tracker) Identity(window uint32) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	identity, ok := t.windows[window]
	return identity, ok
}

// Len returns the number of windows in the learned table.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}

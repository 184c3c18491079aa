package toolkit

// Window is one window of the tracked application as the windowing system
// sees it. Handle is only valid while the window exists.
type Window struct {
	Handle uint32
	Class  string
	Title  string
}

// EventKind classifies window lifecycle events.
type EventKind int

const (
	WindowCreated EventKind = iota
	WindowClosed
)

// Event reports a tracked window appearing or disappearing.
type Event struct {
	Kind   EventKind
	Window Window
}

// Toolkit is the windowing-system surface the agent needs: enumerate the
// tracked application's windows, rewrite their titles, and watch for
// windows coming and going.
type Toolkit interface {
	// Windows lists the tracked application's windows.
	Windows() ([]Window, error)
	// Title reads a window's current title.
	Title(handle uint32) (string, error)
	// SetTitlePreface rewrites a window's title to preface + base title,
	// replacing any preface already present. An empty preface clears it.
	SetTitlePreface(handle uint32, preface string) error
	// Events delivers window created/closed events. The channel closes
	// when the toolkit shuts down.
	Events() <-chan Event
	// Close disconnects from the windowing system.
	Close()
}

package toolkit

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
	"go.uber.org/zap"

	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/protocol"
)

// X11 talks to the X server through xgbutil. Window lifecycle events come
// from PropertyNotify on the root window's _NET_CLIENT_LIST, diffed
// against the previously seen list.
type X11 struct {
	xu             *xgbutil.XUtil
	root           xproto.Window
	clientListAtom xproto.Atom
	matcher        *Matcher
	log            *logging.Logger

	events chan Event

	mu    sync.Mutex
	known map[uint32]Window
}

var _ Toolkit = (*X11)(nil)

// NewX11 connects to the X server and starts watching for tracked windows
// appearing and disappearing.
func NewX11(matcher *Matcher, log *logging.Logger) (*X11, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	atom, err := xprop.Atm(xu, "_NET_CLIENT_LIST")
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("failed to intern _NET_CLIENT_LIST: %w", err)
	}

	t := &X11{
		xu:             xu,
		root:           xu.RootWin(),
		clientListAtom: atom,
		matcher:        matcher,
		log:            log,
		events:         make(chan Event, 16),
		known:          make(map[uint32]Window),
	}

	if err := xwindow.New(xu, t.root).Listen(xproto.EventMaskPropertyChange); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("failed to listen on root window: %w", err)
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		if ev.Atom == t.clientListAtom {
			t.refreshClientList(true)
		}
	}).Connect(xu, t.root)

	// Prime the known set so windows open at startup do not replay as
	// created events.
	t.refreshClientList(false)

	go func() {
		xevent.Main(xu)
		close(t.events)
	}()

	return t, nil
}

// Windows lists the tracked application's windows with their current titles.
func (t *X11) Windows() ([]Window, error) {
	clients, err := ewmh.ClientListGet(t.xu)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}

	var windows []Window
	for _, id := range clients {
		w, ok := t.describe(id)
		if !ok {
			continue
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// Title reads a window's current title.
func (t *X11) Title(handle uint32) (string, error) {
	return t.title(xproto.Window(handle))
}

// SetTitlePreface rewrites the window title to preface + base title,
// dropping any placement marker already present.
func (t *X11) SetTitlePreface(handle uint32, preface string) error {
	win := xproto.Window(handle)

	title, err := t.title(win)
	if err != nil {
		return fmt.Errorf("failed to read title of window %d: %w", handle, err)
	}

	next := preface + protocol.StripMarker(title)
	if next == title {
		return nil
	}

	if err := ewmh.WmNameSet(t.xu, win, next); err != nil {
		return fmt.Errorf("failed to set title of window %d: %w", handle, err)
	}
	return nil
}

// Events delivers window created/closed events.
func (t *X11) Events() <-chan Event {
	return t.events
}

// Close stops the event loop and disconnects from the X server.
func (t *X11) Close() {
	xevent.Quit(t.xu)
	t.xu.Conn().Close()
}

func (t *X11) title(win xproto.Window) (string, error) {
	name, err := ewmh.WmNameGet(t.xu, win)
	if err != nil || name == "" {
		name, err = icccm.WmNameGet(t.xu, win)
		if err != nil {
			return "", fmt.Errorf("failed to get window name: %w", err)
		}
	}
	return name, nil
}

// describe resolves a window id into a tracked Window. Windows of other
// applications, and windows destroyed mid-lookup, report ok false.
func (t *X11) describe(id xproto.Window) (Window, bool) {
	class, err := icccm.WmClassGet(t.xu, id)
	if err != nil || class == nil {
		return Window{}, false
	}
	if !t.matcher.Match(class.Class) && !t.matcher.Match(class.Instance) {
		return Window{}, false
	}

	title, err := t.title(id)
	if err != nil {
		title = ""
	}

	return Window{Handle: uint32(id), Class: class.Class, Title: title}, true
}

// refreshClientList re-reads _NET_CLIENT_LIST and, when emit is set,
// turns the difference against the previous list into lifecycle events.
func (t *X11) refreshClientList(emit bool) {
	clients, err := ewmh.ClientListGet(t.xu)
	if err != nil {
		t.log.Warn("failed to refresh client list", zap.Error(err))
		return
	}

	current := make(map[uint32]Window, len(clients))
	for _, id := range clients {
		if w, ok := t.describe(id); ok {
			current[w.Handle] = w
		}
	}

	t.mu.Lock()
	previous := t.known
	t.known = current
	t.mu.Unlock()

	if !emit {
		return
	}

	created, closed := diffWindows(previous, current)
	for _, w := range created {
		t.log.Debug("tracked window created",
			zap.Uint32("handle", w.Handle),
			zap.String("class", w.Class))
		t.events <- Event{Kind: WindowCreated, Window: w}
	}
	for _, w := range closed {
		t.log.Debug("tracked window closed", zap.Uint32("handle", w.Handle))
		t.events <- Event{Kind: WindowClosed, Window: w}
	}
}

// diffWindows splits two client-list snapshots into windows that appeared
// and windows that went away.
func diffWindows(previous, current map[uint32]Window) (created, closed []Window) {
	for handle, w := range current {
		if _, ok := previous[handle]; !ok {
			created = append(created, w)
		}
	}
	for handle, w := range previous {
		if _, ok := current[handle]; !ok {
			closed = append(closed, w)
		}
	}
	return created, closed
}

// Package watcher maintains the window manager connection and turns its
// events into notifications for the agent. It reconnects on its own; the
// rest of the host only ever sees the current session, or nil.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wsanchor/wsanchor/internal/correlate"
	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/protocol"
	"github.com/wsanchor/wsanchor/internal/toolkit"
	"github.com/wsanchor/wsanchor/internal/wm"
)

// State describes the manager connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Subscribed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Conn is a live manager connection. wm.Client implements it; tests
// substitute their own.
type Conn interface {
	RunCommand(cmd string) ([]wm.CommandResult, error)
	Tree() (*wm.Node, error)
	Subscribe(events ...string) error
	Workspaces() ([]wm.Workspace, error)
	Events() <-chan wm.Event
	Err() error
	Close() error
}

var _ Conn = (*wm.Client)(nil)

// Dialer opens a manager connection.
type Dialer func() (Conn, error)

// DefaultDialer dials the manager socket, discovering it when path is empty.
func DefaultDialer(path string, log *logging.Logger) Dialer {
	return func() (Conn, error) {
		client, err := wm.Dial(path, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Note is a notification ready for the agent; either a
// *protocol.MoveNotification or a *protocol.RenameNotification.
type Note interface{}

// Watcher runs the connection state machine: dial, subscribe, consume
// events until the connection dies, reconnect. User-initiated window moves
// and workspace renames come out of Notes.
type Watcher struct {
	dial    Dialer
	tracker *correlate.Tracker
	matcher *toolkit.Matcher
	retry   time.Duration
	log     *logging.Logger

	state atomic.Int32
	notes chan Note

	mu         sync.Mutex
	session    Conn
	workspaces map[int64]string
}

// New creates a watcher. retry is the pause between failed connection
// attempts; reconnects after a lost connection start immediately.
func New(dial Dialer, tracker *correlate.Tracker, matcher *toolkit.Matcher, retry time.Duration, log *logging.Logger) *Watcher {
	return &Watcher{
		dial:       dial,
		tracker:    tracker,
		matcher:    matcher,
		retry:      retry,
		log:        log,
		notes:      make(chan Note, 64),
		workspaces: make(map[int64]string),
	}
}

// State returns the connection state.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

func (w *Watcher) setState(s State) {
	w.state.Store(int32(s))
}

// Session returns the subscribed connection, or nil while disconnected.
func (w *Watcher) Session() Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

func (w *Watcher) setSession(c Conn) {
	w.mu.Lock()
	w.session = c
	w.mu.Unlock()
}

// Notes delivers notifications. The channel closes when Run returns.
func (w *Watcher) Notes() <-chan Note {
	return w.notes
}

// Run drives the state machine until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.notes)
	defer w.setState(Disconnected)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.setState(Connecting)
		conn, err := w.dial()
		if err != nil {
			w.setState(Disconnected)
			w.log.Warn("failed to connect to window manager", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.retry):
			}
			continue
		}

		if err := w.prepare(conn); err != nil {
			conn.Close()
			w.setState(Disconnected)
			w.log.Warn("failed to prepare window manager session", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.retry):
			}
			continue
		}

		w.setSession(conn)
		w.setState(Subscribed)
		w.log.Info("subscribed to window manager events")

		w.consume(ctx, conn)

		w.setSession(nil)
		w.setState(Disconnected)
		conn.Close()

		if ctx.Err() == nil {
			w.log.Warn("window manager connection lost, reconnecting",
				zap.Error(conn.Err()))
		}
	}
}

// prepare subscribes to events and rebuilds the workspace id to name map,
// which rename detection depends on.
func (w *Watcher) prepare(conn Conn) error {
	if err := conn.Subscribe("window", "workspace"); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	workspaces, err := conn.Workspaces()
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	names := make(map[int64]string, len(workspaces))
	for _, ws := range workspaces {
		names[ws.ID] = ws.Name
	}

	w.mu.Lock()
	w.workspaces = names
	w.mu.Unlock()
	return nil
}

func (w *Watcher) consume(ctx context.Context, conn Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.Events():
			if !ok {
				return
			}
			w.handle(conn, ev)
		}
	}
}

func (w *Watcher) handle(conn Conn, ev wm.Event) {
	switch ev := ev.(type) {
	case *wm.WindowEvent:
		if ev.Change == "move" {
			w.handleWindowMove(conn, ev)
		}
	case *wm.WorkspaceEvent:
		if ev.Change == "rename" {
			w.handleWorkspaceRename(ev)
		}
	}
}

// handleWindowMove turns a user-initiated move of a tracked window into a
// window::move notification.
func (w *Watcher) handleWindowMove(conn Conn, ev *wm.WindowEvent) {
	if w.tracker.Inhibited() {
		w.log.Debug("ignoring move issued by correlation",
			zap.Int64("container", ev.Container.ID))
		return
	}
	if !w.tracked(&ev.Container) {
		return
	}

	identity := w.identify(&ev.Container)
	if identity == "" {
		w.log.Debug("move of window with no known identity",
			zap.Uint32("window", ev.Container.Window))
		return
	}

	// The event does not say where the window landed; ask the tree.
	tree, err := conn.Tree()
	if err != nil {
		w.log.Error("failed to read tree after move", zap.Error(err))
		return
	}
	ws := tree.WorkspaceOf(ev.Container.ID)
	if ws == nil {
		w.log.Debug("moved window not under any workspace",
			zap.Int64("container", ev.Container.ID))
		return
	}

	w.log.Info("window moved",
		zap.String("identity", identity),
		zap.String("workspace", ws.Name))
	w.send(protocol.NewMoveNotification(identity, ws.Name))
}

// tracked reports whether the container belongs to the tracked application.
func (w *Watcher) tracked(n *wm.Node) bool {
	if n.WindowProperties == nil {
		return false
	}
	return w.matcher.Match(n.WindowProperties.Class) ||
		w.matcher.Match(n.WindowProperties.Instance)
}

// identify resolves a container to an identity, preferring the learned
// table and falling back to a marker still in the title.
func (w *Watcher) identify(n *wm.Node) string {
	if identity, ok := w.tracker.Identity(n.Window); ok {
		return identity
	}
	if identity, ok := protocol.ExtractMarker(n.Name); ok {
		w.tracker.Learn(n.Window, identity)
		return identity
	}
	return ""
}

// handleWorkspaceRename propagates a rename when the workspace's old name
// is known. A rename of a workspace first seen now only seeds the map.
func (w *Watcher) handleWorkspaceRename(ev *wm.WorkspaceEvent) {
	if ev.Current == nil {
		return
	}

	w.mu.Lock()
	old, known := w.workspaces[ev.Current.ID]
	w.workspaces[ev.Current.ID] = ev.Current.Name
	w.mu.Unlock()

	if !known {
		w.log.Debug("rename of workspace with no recorded name",
			zap.String("name", ev.Current.Name))
		return
	}

	w.log.Info("workspace renamed",
		zap.String("from", old),
		zap.String("to", ev.Current.Name))
	w.send(protocol.NewRenameNotification(old, ev.Current.Name))
}

func (w *Watcher) send(note Note) {
	select {
	case w.notes <- note:
	default:
		w.log.Warn("dropping notification, consumer too slow")
	}
}

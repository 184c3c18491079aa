package wm

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/wsanchor/wsanchor/internal/logging"
)

// Event is a decoded subscription event: *WindowEvent or *WorkspaceEvent.
type Event interface{}

// Client is a connection to the manager's IPC socket. One goroutine reads
// every inbound frame and routes replies and events separately, so
// request/response calls and the subscription stream share the connection
// without interleaving hazards. Requests themselves are serialized: one
// outstanding call at a time.
type Client struct {
	conn net.Conn
	log  *logging.Logger

	writeMu sync.Mutex
	replies chan reply
	events  chan Event

	closeOnce sync.Once
	closed    chan struct{}
	errMu     sync.Mutex
	err       error
}

type reply struct {
	typ     uint32
	payload []byte
}

// Dial connects to the IPC socket at path. An empty path runs discovery.
func Dial(path string, log *logging.Logger) (*Client, error) {
	if path == "" {
		var err error
		path, err = Discover()
		if err != nil {
			return nil, err
		}
	}

	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to manager socket %s: %w", path, err)
	}
	return NewClient(conn, log), nil
}

// NewClient wraps an established connection. Dial is the usual entry point;
// this exists so tests can drive a client over an in-memory pipe.
func NewClient(conn net.Conn, log *logging.Logger) *Client {
	c := &Client{
		conn:    conn,
		log:     log,
		replies: make(chan reply, 1),
		events:  make(chan Event, 256),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Events returns the subscription event stream. The channel closes when the
// connection dies; Err then reports why.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err returns the error that tore the connection down, if any.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close shuts the connection down. Pending and future calls fail.
func (c *Client) Close() error {
	c.fail(fmt.Errorf("client closed"))
	return nil
}

func (c *Client) fail(err error) {
	c.closeOnce.Do(func() {
		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()
		close(c.closed)
		_ = c.conn.Close()
	})
}

// readLoop is the sole reader of the connection. It routes reply frames to
// the pending round trip and event frames to the events channel.
func (c *Client) readLoop() {
	defer close(c.events)
	for {
		typ, payload, err := readMessage(c.conn)
		if err != nil {
			c.fail(fmt.Errorf("manager connection lost: %w", err))
			return
		}

		if !isEvent(typ) {
			select {
			case c.replies <- reply{typ: typ, payload: payload}:
			case <-c.closed:
				return
			}
			continue
		}

		ev := decodeEvent(eventType(typ), payload)
		if ev == nil {
			continue
		}
		select {
		case c.events <- ev:
		default:
			// A stalled consumer must not wedge reply routing.
			c.log.Warn("dropping manager event, consumer too slow")
		}
	}
}

func decodeEvent(typ uint32, payload []byte) Event {
	switch typ {
	case EventTypeWindow:
		var ev WindowEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil
		}
		return &ev
	case EventTypeWorkspace:
		var ev WorkspaceEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil
		}
		return &ev
	default:
		return nil
	}
}

// roundTrip sends one request and waits for its reply.
func (c *Client) roundTrip(typ uint32, payload []byte) ([]byte, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return nil, c.Err()
	default:
	}

	if err := writeMessage(c.conn, typ, payload); err != nil {
		c.fail(err)
		return nil, err
	}

	select {
	case rep := <-c.replies:
		if rep.typ != typ {
			err := fmt.Errorf("reply type %d does not match request type %d", rep.typ, typ)
			c.fail(err)
			return nil, err
		}
		return rep.payload, nil
	case <-c.closed:
		return nil, c.Err()
	}
}

// RunCommand executes an i3 command string and returns the per-command
// results. The error covers transport failures only; callers inspect the
// results for command-level failures.
func (c *Client) RunCommand(cmd string) ([]CommandResult, error) {
	c.log.Debug("running manager command", zap.String("command", cmd))
	payload, err := c.roundTrip(TypeRunCommand, []byte(cmd))
	if err != nil {
		return nil, err
	}

	var results []CommandResult
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, fmt.Errorf("failed to decode command reply: %w", err)
	}
	return results, nil
}

// Workspaces fetches the manager's workspace list.
func (c *Client) Workspaces() ([]Workspace, error) {
	payload, err := c.roundTrip(TypeGetWorkspaces, nil)
	if err != nil {
		return nil, err
	}

	var workspaces []Workspace
	if err := json.Unmarshal(payload, &workspaces); err != nil {
		return nil, fmt.Errorf("failed to decode workspaces reply: %w", err)
	}
	return workspaces, nil
}

// Tree fetches the full layout tree.
func (c *Client) Tree() (*Node, error) {
	payload, err := c.roundTrip(TypeGetTree, nil)
	if err != nil {
		return nil, err
	}

	var root Node
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, fmt.Errorf("failed to decode tree reply: %w", err)
	}
	return &root, nil
}

// Subscribe registers for the named event classes on this connection.
func (c *Client) Subscribe(events ...string) error {
	payload, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to encode subscribe payload: %w", err)
	}

	rep, err := c.roundTrip(TypeSubscribe, payload)
	if err != nil {
		return err
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(rep, &result); err != nil {
		return fmt.Errorf("failed to decode subscribe reply: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("manager rejected subscription to %v", events)
	}
	return nil
}

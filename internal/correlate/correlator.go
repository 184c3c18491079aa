package correlate

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/protocol"
	"github.com/wsanchor/wsanchor/internal/wm"
)

// Session is the slice of the manager connection a correlation pass needs.
type Session interface {
	RunCommand(cmd string) ([]wm.CommandResult, error)
	Tree() (*wm.Node, error)
}

var _ Session = (*wm.Client)(nil)

// Correlator turns sync requests into placements. One pass reads the tree
// once, matches each requested identity to the window whose title carries
// its marker, and moves windows that have a stored workspace.
type Correlator struct {
	tracker *Tracker
	settle  time.Duration
	log     *logging.Logger
}

// New creates a correlator. settle is how long to wait before reading the
// tree, giving the agent's title rewrites time to land.
func New(tracker *Tracker, settle time.Duration, log *logging.Logger) *Correlator {
	return &Correlator{tracker: tracker, settle: settle, log: log}
}

// Correlate resolves a sync request against the live tree and produces the
// response. Identities whose marker cannot be found anywhere are dropped
// from the response; the agent clears their markers regardless.
func (c *Correlator) Correlate(sess Session, req *protocol.SyncRequest) *protocol.SyncResponse {
	resp := &protocol.SyncResponse{Windows: make(map[string]string, len(req.Windows))}
	if len(req.Windows) == 0 {
		return resp
	}

	// Hold the gate across the whole pass so the moves issued below do
	// not echo back as window::move notifications.
	release := c.tracker.Inhibit()
	defer release()

	if c.settle > 0 {
		time.Sleep(c.settle)
	}

	tree, err := sess.Tree()
	if err != nil {
		c.log.Error("failed to read layout tree", zap.Error(err))
		return resp
	}

	marked := c.scanMarkers(tree)
	for identity, desired := range req.Windows {
		node, ok := marked[identity]
		if !ok {
			c.log.Warn("no window carries identity", zap.String("identity", identity))
			continue
		}
		c.tracker.Learn(node.Window, identity)

		if desired == nil {
			c.reportCurrent(tree, node, identity, resp)
			continue
		}

		if err := c.move(sess, node, *desired); err != nil {
			c.log.Error("failed to restore window placement",
				zap.String("identity", identity),
				zap.String("workspace", *desired),
				zap.Error(err))
			c.reportCurrent(tree, node, identity, resp)
			continue
		}

		c.log.Info("restored window placement",
			zap.String("identity", identity),
			zap.String("workspace", *desired))
		resp.Windows[identity] = *desired
	}

	return resp
}

// reportCurrent answers with the workspace the window sits on right now.
func (c *Correlator) reportCurrent(tree, node *wm.Node, identity string, resp *protocol.SyncResponse) {
	ws := tree.WorkspaceOf(node.ID)
	if ws == nil {
		c.log.Warn("window not under any workspace", zap.String("identity", identity))
		return
	}
	c.log.Debug("reporting current placement",
		zap.String("identity", identity),
		zap.String("workspace", ws.Name))
	resp.Windows[identity] = ws.Name
}

// move sends the window to a workspace. The move is issued even when the
// window may already be there; the manager treats that as a no-op.
func (c *Correlator) move(sess Session, node *wm.Node, workspace string) error {
	cmd := fmt.Sprintf("[con_id=%d] move --no-auto-back-and-forth container to workspace %s",
		node.ID, wm.Quote(workspace))

	results, err := sess.RunCommand(cmd)
	if err != nil {
		return err
	}
	for _, res := range results {
		if !res.Success {
			return fmt.Errorf("command rejected: %s", res.Error)
		}
	}
	return nil
}

// scanMarkers walks the tree and indexes every window whose title starts
// with an identity marker. The first window found keeps the identity.
func (c *Correlator) scanMarkers(tree *wm.Node) map[string]*wm.Node {
	marked := make(map[string]*wm.Node)
	tree.Walk(func(n *wm.Node) bool {
		if n.Window == 0 {
			return true
		}
		identity, ok := protocol.ExtractMarker(n.Name)
		if !ok {
			return true
		}
		if _, dup := marked[identity]; dup {
			c.log.Warn("identity found more than once", zap.String("identity", identity))
			return true
		}
		marked[identity] = n
		return true
	})
	return marked
}

package wm

// Node is one container in the manager's layout tree. Only the fields the
// correlation logic needs are decoded.
type Node struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Type             string            `json:"type"`
	Window           uint32            `json:"window"`
	WindowProperties *WindowProperties `json:"window_properties"`
	Nodes            []*Node           `json:"nodes"`
	FloatingNodes    []*Node           `json:"floating_nodes"`
}

// WindowProperties carries the X11 class hints of a window container.
type WindowProperties struct {
	Class    string `json:"class"`
	Instance string `json:"instance"`
}

// Workspace is one entry of a GET_WORKSPACES reply.
type Workspace struct {
	ID      int64  `json:"id"`
	Num     int64  `json:"num"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Focused bool   `json:"focused"`
	Output  string `json:"output"`
}

// CommandResult is one entry of a RUN_COMMAND reply.
type CommandResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// WindowEvent is a subscription event about a window container.
type WindowEvent struct {
	Change    string `json:"change"`
	Container Node   `json:"container"`
}

// WorkspaceEvent is a subscription event about a workspace.
type WorkspaceEvent struct {
	Change  string `json:"change"`
	Current *Node  `json:"current"`
	Old     *Node  `json:"old"`
}

// Walk visits n and every descendant depth-first, tiled children before
// floating ones. The visit function returns false to stop early; Walk
// reports whether the traversal ran to completion.
func (n *Node) Walk(visit func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for _, child := range n.Nodes {
		if !child.Walk(visit) {
			return false
		}
	}
	for _, child := range n.FloatingNodes {
		if !child.Walk(visit) {
			return false
		}
	}
	return true
}

// FindByWindow returns the container holding the given X11 window id.
func (n *Node) FindByWindow(window uint32) *Node {
	if window == 0 {
		return nil
	}
	var found *Node
	n.Walk(func(c *Node) bool {
		if c.Window == window {
			found = c
			return false
		}
		return true
	})
	return found
}

// Workspaces returns every workspace container in the tree, internal ones
// (scratchpad) included.
func (n *Node) Workspaces() []*Node {
	var workspaces []*Node
	n.Walk(func(c *Node) bool {
		if c.Type == "workspace" {
			workspaces = append(workspaces, c)
		}
		return true
	})
	return workspaces
}

// contains reports whether the subtree rooted at n holds a node with id.
func (n *Node) contains(id int64) bool {
	found := false
	n.Walk(func(c *Node) bool {
		if c.ID == id {
			found = true
			return false
		}
		return true
	})
	return found
}

// WorkspaceOf returns the workspace container that holds the node with the
// given id, or nil when the node is not in the tree.
func (n *Node) WorkspaceOf(id int64) *Node {
	for _, ws := range n.Workspaces() {
		if ws.contains(id) {
			return ws
		}
	}
	return nil
}

// Package identity assigns durable identities to toolkit windows and keeps
// the window store in step with what the placement host reports.
package identity

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/protocol"
	"github.com/wsanchor/wsanchor/internal/store"
	"github.com/wsanchor/wsanchor/internal/toolkit"
)

// syncBatch remembers which windows went into a sync request, so their
// markers can be cleared once the response for that request arrives.
type syncBatch map[string]uint32

// Registry owns the identity side of the protocol: it mints identities for
// new windows, prepares sync requests, and applies whatever the host sends
// back. Sync responses arrive in request order, so in-flight requests form
// a queue.
type Registry struct {
	store *store.Repository
	tk    toolkit.Toolkit
	log   *logging.Logger

	mu       sync.Mutex
	inflight []syncBatch
}

// NewRegistry creates a registry over the given store and toolkit.
func NewRegistry(repo *store.Repository, tk toolkit.Toolkit, log *logging.Logger) *Registry {
	return &Registry{store: repo, tk: tk, log: log}
}

// ensure returns the record for a window, minting a fresh identity when the
// window has never been seen.
func (r *Registry) ensure(w toolkit.Window) (*store.WindowRecord, error) {
	rec, err := r.store.FindByHandle(w.Handle)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	rec = &store.WindowRecord{Handle: w.Handle, Identity: uuid.NewString()}
	if err := r.store.Create(rec); err != nil {
		return nil, err
	}

	r.log.Info("assigned identity to window",
		zap.Uint32("handle", w.Handle),
		zap.String("identity", rec.Identity))
	return rec, nil
}

// PrepareSync builds a sync request for the given windows and writes each
// one's identity marker into its title so the host can find it. The caller
// must either send the request or call DrainInFlight.
func (r *Registry) PrepareSync(windows []toolkit.Window) (*protocol.SyncRequest, error) {
	req := &protocol.SyncRequest{Windows: make(map[string]*string, len(windows))}
	batch := make(syncBatch, len(windows))

	var errs *multierror.Error
	for _, w := range windows {
		rec, err := r.ensure(w)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("window %d: %w", w.Handle, err))
			continue
		}
		req.Windows[rec.Identity] = rec.Workspace
		batch[rec.Identity] = w.Handle
	}

	for identity, handle := range batch {
		if err := r.tk.SetTitlePreface(handle, protocol.Marker(identity)); err != nil {
			// The host falls back to its own window table, so a window
			// that cannot be marked may still be placed.
			r.log.Warn("failed to mark window",
				zap.Uint32("handle", handle), zap.Error(err))
		}
	}

	r.mu.Lock()
	r.inflight = append(r.inflight, batch)
	r.mu.Unlock()

	return req, errs.ErrorOrNil()
}

// ApplySyncResponse records the placements the host reports and clears the
// markers of every window in the oldest in-flight request, including
// windows the host dropped from its response. Applying a response twice
// leaves the store unchanged.
func (r *Registry) ApplySyncResponse(resp *protocol.SyncResponse) error {
	r.mu.Lock()
	var batch syncBatch
	if len(r.inflight) > 0 {
		batch = r.inflight[0]
		r.inflight = r.inflight[1:]
	}
	r.mu.Unlock()

	var errs *multierror.Error
	for identity, workspace := range resp.Windows {
		if err := r.store.SaveWorkspace(identity, workspace); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		r.log.Debug("recorded placement",
			zap.String("identity", identity),
			zap.String("workspace", workspace))
	}

	if batch == nil {
		r.log.Warn("sync response with no request in flight",
			zap.Int("windows", len(resp.Windows)))
		r.clearByIdentity(resp)
		return errs.ErrorOrNil()
	}

	for identity, handle := range batch {
		if _, ok := resp.Windows[identity]; !ok {
			r.log.Debug("host omitted window from sync response",
				zap.String("identity", identity))
		}
		r.clearMarker(handle)
	}

	return errs.ErrorOrNil()
}

// clearByIdentity clears markers by looking handles up in the store. Used
// when a response arrives without a matching in-flight request, which
// happens when the agent restarts mid-sync.
func (r *Registry) clearByIdentity(resp *protocol.SyncResponse) {
	for identity := range resp.Windows {
		rec, err := r.store.FindByIdentity(identity)
		if err != nil {
			continue
		}
		r.clearMarker(rec.Handle)
	}
}

func (r *Registry) clearMarker(handle uint32) {
	if err := r.tk.SetTitlePreface(handle, ""); err != nil {
		// Closed windows fail here; nothing left to clear.
		r.log.Debug("failed to clear marker",
			zap.Uint32("handle", handle), zap.Error(err))
	}
}

// DrainInFlight clears the markers of every unanswered sync request. The
// caller invokes it when the host dies, since those responses will never
// arrive.
func (r *Registry) DrainInFlight() {
	r.mu.Lock()
	pending := r.inflight
	r.inflight = nil
	r.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	for _, batch := range pending {
		for _, handle := range batch {
			r.clearMarker(handle)
		}
	}
	r.log.Warn("cleared markers for unanswered sync requests",
		zap.Int("requests", len(pending)))
}

// InFlight returns the number of sync requests awaiting a response.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// ApplyMove records placements from a window::move notification. Identities
// without a record are skipped; the store only tracks windows this agent
// has seen.
func (r *Registry) ApplyMove(n *protocol.MoveNotification) error {
	var errs *multierror.Error
	for identity, workspace := range n.Moved {
		if err := r.store.SaveWorkspace(identity, workspace); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		r.log.Info("window moved",
			zap.String("identity", identity),
			zap.String("workspace", workspace))
	}
	return errs.ErrorOrNil()
}

// ApplyRename rewrites stored placements after a workspace::rename
// notification, so windows later reopen on the workspace's new name.
func (r *Registry) ApplyRename(n *protocol.RenameNotification) error {
	var errs *multierror.Error
	for old, name := range n.Renamed {
		touched, err := r.store.RenameWorkspace(old, name)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		r.log.Info("workspace renamed",
			zap.String("from", old),
			zap.String("to", name),
			zap.Int64("windows", touched))
	}
	return errs.ErrorOrNil()
}

// WindowStatus is one row of the agent's view of tracked windows, joining
// store records with live toolkit windows.
type WindowStatus struct {
	Handle    uint32 `json:"handle"`
	Identity  string `json:"identity,omitempty"`
	Workspace string `json:"workspace,omitempty"`
	Title     string `json:"title,omitempty"`
	Live      bool   `json:"live"`
}

// Snapshot joins the window store with the live window list. Store rows
// whose windows are gone report Live false; live windows not yet synced
// report an empty identity.
func (r *Registry) Snapshot() ([]WindowStatus, error) {
	recs, err := r.store.List()
	if err != nil {
		return nil, err
	}

	live := make(map[uint32]toolkit.Window)
	windows, err := r.tk.Windows()
	if err != nil {
		return nil, err
	}
	for _, w := range windows {
		live[w.Handle] = w
	}

	statuses := make([]WindowStatus, 0, len(recs))
	seen := make(map[uint32]bool, len(recs))
	for _, rec := range recs {
		st := WindowStatus{Handle: rec.Handle, Identity: rec.Identity}
		if rec.Workspace != nil {
			st.Workspace = *rec.Workspace
		}
		if w, ok := live[rec.Handle]; ok {
			st.Live = true
			st.Title = protocol.StripMarker(w.Title)
		}
		seen[rec.Handle] = true
		statuses = append(statuses, st)
	}

	var unsynced []WindowStatus
	for handle, w := range live {
		if !seen[handle] {
			unsynced = append(unsynced, WindowStatus{
				Handle: handle,
				Title:  protocol.StripMarker(w.Title),
				Live:   true,
			})
		}
	}
	sort.Slice(unsynced, func(i, j int) bool { return unsynced[i].Handle < unsynced[j].Handle })

	return append(statuses, unsynced...), nil
}

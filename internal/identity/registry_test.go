package identity

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/protocol"
	"github.com/wsanchor/wsanchor/internal/store"
	"github.com/wsanchor/wsanchor/internal/toolkit"
)

// fakeToolkit keeps window titles in memory and applies prefaces the way
// the X11 toolkit does.
type fakeToolkit struct {
	mu     sync.Mutex
	titles map[uint32]string
	events chan toolkit.Event
}

func newFakeToolkit() *fakeToolkit {
	return &fakeToolkit{
		titles: make(map[uint32]string),
		events: make(chan toolkit.Event, 16),
	}
}

func (f *fakeToolkit) add(handle uint32, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles[handle] = title
}

func (f *fakeToolkit) title(t *testing.T, handle uint32) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	title, ok := f.titles[handle]
	if !ok {
		t.Fatalf("window %d does not exist", handle)
	}
	return title
}

func (f *fakeToolkit) Windows() ([]toolkit.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	windows := make([]toolkit.Window, 0, len(f.titles))
	for handle, title := range f.titles {
		windows = append(windows, toolkit.Window{Handle: handle, Class: "firefox", Title: title})
	}
	return windows, nil
}

func (f *fakeToolkit) Title(handle uint32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	title, ok := f.titles[handle]
	if !ok {
		return "", fmt.Errorf("no such window: %d", handle)
	}
	return title, nil
}

func (f *fakeToolkit) SetTitlePreface(handle uint32, preface string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	title, ok := f.titles[handle]
	if !ok {
		return fmt.Errorf("no such window: %d", handle)
	}
	f.titles[handle] = preface + protocol.StripMarker(title)
	return nil
}

func (f *fakeToolkit) Events() <-chan toolkit.Event { return f.events }

func (f *fakeToolkit) Close() {}

func newTestRegistry(t *testing.T) (*Registry, *store.Repository, *fakeToolkit) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "windows.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	repo := store.NewRepository(db)
	tk := newFakeToolkit()
	return NewRegistry(repo, tk, logging.NewNop()), repo, tk
}

func TestPrepareSyncMintsIdentities(t *testing.T) {
	reg, repo, tk := newTestRegistry(t)
	tk.add(100, "Mozilla Firefox")
	tk.add(101, "Issue tracker - Mozilla Firefox")

	req, err := reg.PrepareSync([]toolkit.Window{
		{Handle: 100, Title: "Mozilla Firefox"},
		{Handle: 101, Title: "Issue tracker - Mozilla Firefox"},
	})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	if len(req.Windows) != 2 {
		t.Fatalf("expected 2 request entries, got %d", len(req.Windows))
	}
	for identity, placement := range req.Windows {
		if _, err := uuid.Parse(identity); err != nil {
			t.Errorf("expected canonical UUID identity, got %q", identity)
		}
		if placement != nil {
			t.Errorf("expected null placement for fresh window, got %q", *placement)
		}
	}

	rec, err := repo.FindByHandle(100)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	wantTitle := protocol.Marker(rec.Identity) + "Mozilla Firefox"
	if got := tk.title(t, 100); got != wantTitle {
		t.Errorf("expected marked title %q, got %q", wantTitle, got)
	}

	if reg.InFlight() != 1 {
		t.Errorf("expected 1 request in flight, got %d", reg.InFlight())
	}
}

func TestPrepareSyncReusesStoredPlacement(t *testing.T) {
	reg, repo, tk := newTestRegistry(t)
	tk.add(100, "Mozilla Firefox")

	if err := repo.Create(&store.WindowRecord{Handle: 100, Identity: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.SaveWorkspace("6ba7b810-9dad-11d1-80b4-00c04fd430c8", "2 dev"); err != nil {
		t.Fatalf("save workspace: %v", err)
	}

	req, err := reg.PrepareSync([]toolkit.Window{{Handle: 100, Title: "Mozilla Firefox"}})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	placement := req.Windows["6ba7b810-9dad-11d1-80b4-00c04fd430c8"]
	if placement == nil || *placement != "2 dev" {
		t.Fatalf("expected stored placement %q, got %v", "2 dev", placement)
	}
}

func TestApplySyncResponseClearsMarkersAndRecords(t *testing.T) {
	reg, repo, tk := newTestRegistry(t)
	tk.add(100, "Mozilla Firefox")
	tk.add(101, "Issue tracker")

	if _, err := reg.PrepareSync([]toolkit.Window{
		{Handle: 100, Title: "Mozilla Firefox"},
		{Handle: 101, Title: "Issue tracker"},
	}); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	placed, err := repo.FindByHandle(100)
	if err != nil {
		t.Fatalf("find: %v", err)
	}

	// The host answers for one window and drops the other.
	resp := &protocol.SyncResponse{Windows: map[string]string{placed.Identity: "3 chat"}}
	if err := reg.ApplySyncResponse(resp); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got := tk.title(t, 100); got != "Mozilla Firefox" {
		t.Errorf("expected marker cleared, got title %q", got)
	}
	if got := tk.title(t, 101); got != "Issue tracker" {
		t.Errorf("expected marker cleared on omitted window, got title %q", got)
	}

	rec, err := repo.FindByIdentity(placed.Identity)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.Workspace == nil || *rec.Workspace != "3 chat" {
		t.Fatalf("expected workspace %q, got %v", "3 chat", rec.Workspace)
	}

	if reg.InFlight() != 0 {
		t.Errorf("expected no requests in flight, got %d", reg.InFlight())
	}
}

func TestApplySyncResponseIdempotent(t *testing.T) {
	reg, repo, tk := newTestRegistry(t)
	tk.add(100, "Mozilla Firefox")

	if _, err := reg.PrepareSync([]toolkit.Window{{Handle: 100, Title: "Mozilla Firefox"}}); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	rec, err := repo.FindByHandle(100)
	if err != nil {
		t.Fatalf("find: %v", err)
	}

	resp := &protocol.SyncResponse{Windows: map[string]string{rec.Identity: "1"}}
	if err := reg.ApplySyncResponse(resp); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := reg.ApplySyncResponse(resp); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	if got := tk.title(t, 100); got != "Mozilla Firefox" {
		t.Errorf("expected title unchanged after reapply, got %q", got)
	}
	again, err := repo.FindByIdentity(rec.Identity)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if again.Workspace == nil || *again.Workspace != "1" {
		t.Fatalf("expected workspace %q, got %v", "1", again.Workspace)
	}
}

func TestApplySyncResponseWithoutRequest(t *testing.T) {
	reg, repo, tk := newTestRegistry(t)

	identity := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	tk.add(100, protocol.Marker(identity)+"Mozilla Firefox")
	if err := repo.Create(&store.WindowRecord{Handle: 100, Identity: identity}); err != nil {
		t.Fatalf("create: %v", err)
	}

	resp := &protocol.SyncResponse{Windows: map[string]string{identity: "2 dev"}}
	if err := reg.ApplySyncResponse(resp); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got := tk.title(t, 100); got != "Mozilla Firefox" {
		t.Errorf("expected marker cleared via store lookup, got %q", got)
	}
	rec, err := repo.FindByIdentity(identity)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.Workspace == nil || *rec.Workspace != "2 dev" {
		t.Fatalf("expected workspace %q, got %v", "2 dev", rec.Workspace)
	}
}

func TestDrainInFlight(t *testing.T) {
	reg, _, tk := newTestRegistry(t)
	tk.add(100, "Mozilla Firefox")
	tk.add(101, "Issue tracker")

	if _, err := reg.PrepareSync([]toolkit.Window{{Handle: 100, Title: "Mozilla Firefox"}}); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := reg.PrepareSync([]toolkit.Window{{Handle: 101, Title: "Issue tracker"}}); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	reg.DrainInFlight()

	if got := tk.title(t, 100); got != "Mozilla Firefox" {
		t.Errorf("expected marker cleared, got %q", got)
	}
	if got := tk.title(t, 101); got != "Issue tracker" {
		t.Errorf("expected marker cleared, got %q", got)
	}
	if reg.InFlight() != 0 {
		t.Errorf("expected no requests in flight, got %d", reg.InFlight())
	}
}

func TestApplyMove(t *testing.T) {
	reg, repo, _ := newTestRegistry(t)

	identity := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	if err := repo.Create(&store.WindowRecord{Handle: 100, Identity: identity}); err != nil {
		t.Fatalf("create: %v", err)
	}

	n := protocol.NewMoveNotification(identity, "4 mail")
	if err := reg.ApplyMove(n); err != nil {
		t.Fatalf("apply move: %v", err)
	}

	rec, err := repo.FindByIdentity(identity)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.Workspace == nil || *rec.Workspace != "4 mail" {
		t.Fatalf("expected workspace %q, got %v", "4 mail", rec.Workspace)
	}

	// Moves for identities the agent never minted change nothing.
	if err := reg.ApplyMove(protocol.NewMoveNotification("6ba7b819-9dad-11d1-80b4-00c04fd430c8", "9")); err != nil {
		t.Fatalf("apply move for unknown identity: %v", err)
	}
}

func TestApplyRename(t *testing.T) {
	reg, repo, _ := newTestRegistry(t)

	ids := []string{
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"6ba7b811-9dad-11d1-80b4-00c04fd430c8",
	}
	for i, id := range ids {
		if err := repo.Create(&store.WindowRecord{Handle: uint32(100 + i), Identity: id}); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := repo.SaveWorkspace(id, "2 dev"); err != nil {
			t.Fatalf("save workspace: %v", err)
		}
	}

	if err := reg.ApplyRename(protocol.NewRenameNotification("2 dev", "2 code")); err != nil {
		t.Fatalf("apply rename: %v", err)
	}

	for _, id := range ids {
		rec, err := repo.FindByIdentity(id)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if rec.Workspace == nil || *rec.Workspace != "2 code" {
			t.Fatalf("expected workspace %q, got %v", "2 code", rec.Workspace)
		}
	}
}

func TestSnapshot(t *testing.T) {
	reg, repo, tk := newTestRegistry(t)

	live := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	orphan := "6ba7b811-9dad-11d1-80b4-00c04fd430c8"
	if err := repo.Create(&store.WindowRecord{Handle: 100, Identity: live}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.SaveWorkspace(live, "2 dev"); err != nil {
		t.Fatalf("save workspace: %v", err)
	}
	if err := repo.Create(&store.WindowRecord{Handle: 200, Identity: orphan}); err != nil {
		t.Fatalf("create: %v", err)
	}

	tk.add(100, protocol.Marker(live)+"Mozilla Firefox")
	tk.add(300, "Fresh window")

	statuses, err := reg.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(statuses))
	}

	byHandle := make(map[uint32]WindowStatus, len(statuses))
	for _, st := range statuses {
		byHandle[st.Handle] = st
	}

	if st := byHandle[100]; !st.Live || st.Workspace != "2 dev" || st.Title != "Mozilla Firefox" {
		t.Errorf("unexpected live row: %+v", st)
	}
	if st := byHandle[200]; st.Live || st.Identity != orphan {
		t.Errorf("unexpected orphan row: %+v", st)
	}
	if st := byHandle[300]; !st.Live || st.Identity != "" || st.Title != "Fresh window" {
		t.Errorf("unexpected unsynced row: %+v", st)
	}
}

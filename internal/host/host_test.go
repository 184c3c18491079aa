package host

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/wsanchor/wsanchor/internal/correlate"
	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/nativemsg"
	"github.com/wsanchor/wsanchor/internal/protocol"
	"github.com/wsanchor/wsanchor/internal/watcher"
	"github.com/wsanchor/wsanchor/internal/wm"
)

const idDocs = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

type fakeConn struct{ tree *wm.Node }

func (c *fakeConn) RunCommand(string) ([]wm.CommandResult, error) {
	return []wm.CommandResult{{Success: true}}, nil
}

func (c *fakeConn) Tree() (*wm.Node, error) { return c.tree, nil }

func (c *fakeConn) Subscribe(...string) error { return nil }

func (c *fakeConn) Workspaces() ([]wm.Workspace, error) { return nil, nil }

func (c *fakeConn) Events() <-chan wm.Event { return nil }

func (c *fakeConn) Err() error { return nil }

func (c *fakeConn) Close() error { return nil }

type fakePlacer struct {
	sess  watcher.Conn
	notes chan watcher.Note
}

func newFakePlacer(sess watcher.Conn) *fakePlacer {
	return &fakePlacer{sess: sess, notes: make(chan watcher.Note, 4)}
}

func (p *fakePlacer) Run(ctx context.Context) error {
	<-ctx.Done()
	close(p.notes)
	return ctx.Err()
}

func (p *fakePlacer) Session() watcher.Conn { return p.sess }

func (p *fakePlacer) Notes() <-chan watcher.Note { return p.notes }

// markedTree places a window carrying idDocs' marker on workspace "2 dev".
func markedTree() *wm.Node {
	return &wm.Node{
		ID: 1, Type: "root",
		Nodes: []*wm.Node{
			{ID: 2, Name: "eDP-1", Type: "output", Nodes: []*wm.Node{
				{ID: 10, Name: "2 dev", Type: "workspace", Nodes: []*wm.Node{
					{ID: 11, Name: protocol.Marker(idDocs) + "Docs - Mozilla Firefox",
						Type: "con", Window: 100,
						WindowProperties: &wm.WindowProperties{Class: "firefox"}},
				}},
			}},
		},
	}
}

func startHost(t *testing.T, placer *fakePlacer) (*nativemsg.Writer, *nativemsg.Reader, *io.PipeWriter, chan error) {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	corr := correlate.New(correlate.NewTracker(), 0, logging.NewNop())
	h := New(placer, corr, inR, outW, logging.NewNop())

	errc := make(chan error, 1)
	go func() { errc <- h.Run(context.Background()) }()

	t.Cleanup(func() {
		inW.Close()
		select {
		case <-errc:
		case <-time.After(2 * time.Second):
			t.Error("host did not stop")
		}
		outR.Close()
	})

	return nativemsg.NewWriter(inW), nativemsg.NewReader(outR), inW, errc
}

func TestHostAnswersSyncWhenManagerUnavailable(t *testing.T) {
	in, out, _, _ := startHost(t, newFakePlacer(nil))

	if err := in.Write(&protocol.SyncRequest{Windows: map[string]*string{idDocs: nil}}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var resp protocol.SyncResponse
	if err := out.Read(&resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if len(resp.Windows) != 0 {
		t.Fatalf("expected empty response without a manager, got %v", resp.Windows)
	}
}

func TestHostCorrelatesSync(t *testing.T) {
	in, out, _, _ := startHost(t, newFakePlacer(&fakeConn{tree: markedTree()}))

	if err := in.Write(&protocol.SyncRequest{Windows: map[string]*string{idDocs: nil}}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var resp protocol.SyncResponse
	if err := out.Read(&resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if got := resp.Windows[idDocs]; got != "2 dev" {
		t.Fatalf("expected placement %q, got %v", "2 dev", resp.Windows)
	}
}

func TestHostIgnoresUnknownMessages(t *testing.T) {
	in, out, _, _ := startHost(t, newFakePlacer(nil))

	if err := in.Write(map[string]int{"bogus": 1}); err != nil {
		t.Fatalf("write bogus message: %v", err)
	}
	if err := in.Write(&protocol.SyncRequest{Windows: map[string]*string{}}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	// The first frame out answers the sync request; the bogus message
	// produced nothing.
	var resp protocol.SyncResponse
	if err := out.Read(&resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.Windows == nil || len(resp.Windows) != 0 {
		t.Fatalf("expected empty sync response, got %v", resp.Windows)
	}
}

func TestHostForwardsNotifications(t *testing.T) {
	placer := newFakePlacer(nil)
	_, out, _, _ := startHost(t, placer)

	placer.notes <- protocol.NewMoveNotification(idDocs, "3 chat")

	var env protocol.Envelope
	if err := out.Read(&env); err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if env.Kind() != protocol.KindMove {
		t.Fatalf("expected a window::move frame, got %+v", env)
	}
	if got := env.Move[idDocs]; got != "3 chat" {
		t.Fatalf("expected placement %q, got %v", "3 chat", env.Move)
	}
}

func TestHostShutsDownOnClosedStdin(t *testing.T) {
	_, _, inW, errc := startHost(t, newFakePlacer(nil))

	inW.Close()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("host did not shut down")
	}
	errc <- nil // keep the cleanup drain happy
}

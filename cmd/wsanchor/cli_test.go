package main

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/wsanchor/wsanchor/internal/control"
	"github.com/wsanchor/wsanchor/internal/identity"
	"github.com/wsanchor/wsanchor/internal/logging"
)

type fakeAgent struct {
	syncs int
}

func (f *fakeAgent) Status() (*control.StatusData, error) {
	return &control.StatusData{
		AgentRunning:   true,
		TrackedClasses: []string{"firefox"},
		LiveWindows:    1,
		StoredWindows:  2,
	}, nil
}

func (f *fakeAgent) Windows() ([]identity.WindowStatus, error) {
	return []identity.WindowStatus{
		{Handle: 100, Identity: "8e6a3d1c-4b82-4a56-9c0d-3f2f6f3d8a11", Workspace: "2 dev", Title: "Mail - Inbox", Live: true},
		{Identity: "1d0f2a9b-7c3e-4f10-8b6a-5e4d3c2b1a00", Workspace: "3 chat", Live: false},
	}, nil
}

func (f *fakeAgent) TriggerSync() error {
	f.syncs++
	return nil
}

// startAgentSocket serves a fake agent on a control socket in a private
// runtime dir.
func startAgentSocket(t *testing.T) *fakeAgent {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	agent := &fakeAgent{}
	srv, err := control.NewServer(agent, logging.NewNop())
	if err != nil {
		t.Fatalf("failed to create control server: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start control server: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return agent
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to open pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read captured output: %v", err)
	}
	return string(data)
}

func TestStatusCommandPrintsAgentState(t *testing.T) {
	startAgentSocket(t)

	out := captureStdout(t, func() {
		if err := runStatus(nil, nil); err != nil {
			t.Fatalf("expected status to succeed, got %v", err)
		}
	})

	if !strings.Contains(out, "agent_running:   true") {
		t.Fatalf("expected agent_running line, got %q", out)
	}
	if !strings.Contains(out, "tracked_classes: firefox") {
		t.Fatalf("expected tracked_classes line, got %q", out)
	}
}

func TestStatusCommandAgentDown(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	if err := runStatus(nil, nil); err == nil {
		t.Fatalf("expected an error with no agent running")
	}
}

func TestWindowsCommandTable(t *testing.T) {
	startAgentSocket(t)

	out := captureStdout(t, func() {
		if err := runWindows(nil, nil); err != nil {
			t.Fatalf("expected windows to succeed, got %v", err)
		}
	})

	if !strings.Contains(out, "2 dev") || !strings.Contains(out, "3 chat") {
		t.Fatalf("expected both windows listed, got %q", out)
	}
}

func TestWindowsCommandLiveFilter(t *testing.T) {
	startAgentSocket(t)

	windowsLive = true
	defer func() { windowsLive = false }()

	out := captureStdout(t, func() {
		if err := runWindows(nil, nil); err != nil {
			t.Fatalf("expected windows to succeed, got %v", err)
		}
	})

	if !strings.Contains(out, "2 dev") {
		t.Fatalf("expected the live window listed, got %q", out)
	}
	if strings.Contains(out, "3 chat") {
		t.Fatalf("expected the closed window hidden, got %q", out)
	}
}

func TestWindowsCommandJSON(t *testing.T) {
	startAgentSocket(t)

	windowsJSON = true
	defer func() { windowsJSON = false }()

	out := captureStdout(t, func() {
		if err := runWindows(nil, nil); err != nil {
			t.Fatalf("expected windows to succeed, got %v", err)
		}
	})

	if !strings.Contains(out, `"workspace": "2 dev"`) {
		t.Fatalf("expected JSON output, got %q", out)
	}
}

func TestSyncCommandReachesAgent(t *testing.T) {
	agent := startAgentSocket(t)

	captureStdout(t, func() {
		if err := runSync(nil, nil); err != nil {
			t.Fatalf("expected sync to succeed, got %v", err)
		}
	})

	if agent.syncs != 1 {
		t.Fatalf("expected 1 sync, got %d", agent.syncs)
	}
}

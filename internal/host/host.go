// Package host implements the placement host: it speaks length-prefixed
// JSON with the agent on stdin/stdout and correlates sync requests against
// the window manager. Log output goes to a file; stdout belongs to the
// protocol.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/wsanchor/wsanchor/internal/correlate"
	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/nativemsg"
	"github.com/wsanchor/wsanchor/internal/protocol"
	"github.com/wsanchor/wsanchor/internal/watcher"
)

// Placer is the slice of the watcher the dispatch loop uses.
type Placer interface {
	Run(ctx context.Context) error
	Session() watcher.Conn
	Notes() <-chan watcher.Note
}

var _ Placer = (*watcher.Watcher)(nil)

// Host owns the dispatch loop. It is the only writer on out, so responses
// and notifications never interleave mid-frame.
type Host struct {
	watcher Placer
	corr    *correlate.Correlator
	in      *nativemsg.Reader
	out     *nativemsg.Writer
	log     *logging.Logger
}

// New wires a host over the given streams.
func New(w Placer, corr *correlate.Correlator, in io.Reader, out io.Writer, log *logging.Logger) *Host {
	return &Host{
		watcher: w,
		corr:    corr,
		in:      nativemsg.NewReader(in),
		out:     nativemsg.NewWriter(out),
		log:     log,
	}
}

// Run dispatches until the agent closes stdin or ctx is cancelled. Closed
// stdin is the normal shutdown signal and returns nil.
func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		_ = h.watcher.Run(ctx)
	}()
	defer func() {
		cancel()
		<-watcherDone
	}()

	requests := make(chan *protocol.Envelope)
	readErr := make(chan error, 1)
	go h.readRequests(ctx, requests, readErr)

	notes := h.watcher.Notes()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				h.log.Info("agent closed stdin, shutting down")
				return nil
			}
			return fmt.Errorf("failed to read request: %w", err)

		case env := <-requests:
			if err := h.handleMessage(env); err != nil {
				return err
			}

		case note, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			if err := h.sendNote(note); err != nil {
				return err
			}
		}
	}
}

func (h *Host) readRequests(ctx context.Context, requests chan<- *protocol.Envelope, readErr chan<- error) {
	for {
		var env protocol.Envelope
		if err := h.in.Read(&env); err != nil {
			readErr <- err
			return
		}
		select {
		case requests <- &env:
		case <-ctx.Done():
			return
		}
	}
}

// handleMessage answers a sync request, or drops anything else. Every sync
// request gets exactly one response, in arrival order; the agent counts on
// that to pair responses with requests.
func (h *Host) handleMessage(env *protocol.Envelope) error {
	if env.Kind() != protocol.KindSync {
		h.log.Warn("ignoring unexpected message from agent")
		return nil
	}
	req := &protocol.SyncRequest{Windows: env.Windows}
	h.log.Debug("sync request received", zap.Int("windows", len(req.Windows)))

	var resp *protocol.SyncResponse
	if sess := h.watcher.Session(); sess != nil {
		resp = h.corr.Correlate(sess, req)
	} else {
		h.log.Warn("window manager unavailable, answering sync with nothing",
			zap.Int("windows", len(req.Windows)))
		resp = &protocol.SyncResponse{Windows: map[string]string{}}
	}

	if err := h.out.Write(resp); err != nil {
		return fmt.Errorf("failed to write sync response: %w", err)
	}
	h.log.Debug("sync response sent", zap.Int("windows", len(resp.Windows)))
	return nil
}

func (h *Host) sendNote(note watcher.Note) error {
	if err := h.out.Write(note); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

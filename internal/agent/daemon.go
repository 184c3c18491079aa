// Package agent implements the long-running agent: it owns the window
// store, watches the tracked application's windows, and keeps a placement
// host subprocess alive to talk to the window manager.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wsanchor/wsanchor/internal/config"
	"github.com/wsanchor/wsanchor/internal/control"
	"github.com/wsanchor/wsanchor/internal/identity"
	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/protocol"
	"github.com/wsanchor/wsanchor/internal/runtimepath"
	"github.com/wsanchor/wsanchor/internal/store"
	"github.com/wsanchor/wsanchor/internal/toolkit"
)

// Daemon ties the agent together: store, toolkit, registry, host
// supervision, and the control socket.
type Daemon struct {
	cfg       *config.Config
	log       *logging.Logger
	db        *store.DB
	repo      *store.Repository
	tk        toolkit.Toolkit
	registry  *identity.Registry
	storePath string
	started   time.Time

	syncRequests chan struct{}
	hostUp       atomic.Bool
	restarts     atomic.Int32
}

// New assembles a daemon against the real store and X server.
func New(cfg *config.Config, log *logging.Logger) (*Daemon, error) {
	storePath := cfg.Store.Path
	if storePath == "" {
		var err error
		storePath, err = store.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve store path: %w", err)
		}
	}

	db, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, err
	}

	tk, err := toolkit.NewX11(toolkit.NewMatcher(cfg.App.Classes), log)
	if err != nil {
		db.Close()
		return nil, err
	}

	d := newDaemon(cfg, store.NewRepository(db), tk, log)
	d.db = db
	d.storePath = storePath
	return d, nil
}

// newDaemon wires a daemon from parts. Tests inject their own.
func newDaemon(cfg *config.Config, repo *store.Repository, tk toolkit.Toolkit, log *logging.Logger) *Daemon {
	return &Daemon{
		cfg:          cfg,
		log:          log,
		repo:         repo,
		tk:           tk,
		registry:     identity.NewRegistry(repo, tk, log),
		started:      time.Now(),
		syncRequests: make(chan struct{}, 1),
	}
}

// Close releases the toolkit connection and the store.
func (d *Daemon) Close() error {
	d.tk.Close()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Run starts the control server and supervises the placement host until
// ctx is cancelled. A host that dies is restarted after the configured
// delay; its unanswered syncs are drained so no marker sticks.
func (d *Daemon) Run(ctx context.Context) error {
	removePidfile, err := writePidfile()
	if err != nil {
		d.log.Warn("failed to write pidfile", zap.Error(err))
	} else {
		defer removePidfile()
	}

	srv, err := control.NewServer(d, d.log)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	d.log.Info("agent started",
		zap.Strings("classes", d.cfg.App.Classes),
		zap.String("store", d.storePath))

	for {
		if ctx.Err() != nil {
			return nil
		}

		link, err := d.spawnHost()
		if err != nil {
			d.log.Error("failed to start placement host", zap.Error(err))
		} else {
			d.hostUp.Store(true)
			d.log.Info("placement host started", zap.Int("pid", link.pid))

			d.runSession(ctx, link)

			d.hostUp.Store(false)
			link.stop()
		}

		if ctx.Err() != nil {
			return nil
		}

		d.restarts.Add(1)
		delay := d.cfg.Host.RespawnDelay.Std()
		d.log.Warn("placement host stopped, restarting", zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// runSession drives one host lifetime: a full sync up front, then window
// events, sync triggers and host frames until either side goes away. On
// the way out every unanswered sync is drained.
func (d *Daemon) runSession(ctx context.Context, link *hostLink) {
	defer d.registry.DrainInFlight()

	frames := make(chan *protocol.Envelope)
	readErr := make(chan error, 1)
	go func() {
		for {
			var env protocol.Envelope
			if err := link.reader.Read(&env); err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- &env:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := d.fullSync(link); err != nil {
		d.log.Error("startup sync failed", zap.Error(err))
		return
	}

	var tick <-chan time.Time
	if interval := d.cfg.Agent.SyncInterval.Std(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	events := d.tk.Events()
	for {
		select {
		case <-ctx.Done():
			return

		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				d.log.Warn("placement host closed its stdout")
			} else {
				d.log.Error("failed to read from placement host", zap.Error(err))
			}
			return

		case env := <-frames:
			d.dispatch(env)

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := d.handleWindowEvent(link, ev); err != nil {
				d.log.Error("failed to sync window", zap.Error(err))
				return
			}

		case <-d.syncRequests:
			if err := d.fullSync(link); err != nil {
				d.log.Error("requested sync failed", zap.Error(err))
				return
			}

		case <-tick:
			if err := d.fullSync(link); err != nil {
				d.log.Error("periodic sync failed", zap.Error(err))
				return
			}
		}
	}
}

// dispatch routes one frame from the host.
func (d *Daemon) dispatch(env *protocol.Envelope) {
	switch env.Kind() {
	case protocol.KindSync:
		resp := &protocol.SyncResponse{Windows: make(map[string]string, len(env.Windows))}
		for identity, workspace := range env.Windows {
			if workspace != nil {
				resp.Windows[identity] = *workspace
			}
		}
		if err := d.registry.ApplySyncResponse(resp); err != nil {
			d.log.Warn("failed to apply sync response", zap.Error(err))
		}

	case protocol.KindMove:
		if err := d.registry.ApplyMove(&protocol.MoveNotification{Moved: env.Move}); err != nil {
			d.log.Warn("failed to apply move notification", zap.Error(err))
		}

	case protocol.KindRename:
		if err := d.registry.ApplyRename(&protocol.RenameNotification{Renamed: env.Rename}); err != nil {
			d.log.Warn("failed to apply rename notification", zap.Error(err))
		}

	default:
		d.log.Warn("ignoring unexpected message from host")
	}
}

func (d *Daemon) handleWindowEvent(link *hostLink, ev toolkit.Event) error {
	switch ev.Kind {
	case toolkit.WindowCreated:
		d.log.Info("tracked window created",
			zap.Uint32("handle", ev.Window.Handle),
			zap.String("class", ev.Window.Class))
		return d.syncWindows(link, []toolkit.Window{ev.Window})

	case toolkit.WindowClosed:
		// The store keeps the row; the identity would be reused if the
		// toolkit ever handed the same handle back.
		d.log.Info("tracked window closed", zap.Uint32("handle", ev.Window.Handle))
	}
	return nil
}

// fullSync syncs every tracked window currently on screen.
func (d *Daemon) fullSync(link *hostLink) error {
	windows, err := d.tk.Windows()
	if err != nil {
		// The toolkit connection failing is not the host's fault; keep
		// the session and try again on the next trigger.
		d.log.Error("failed to list windows", zap.Error(err))
		return nil
	}
	return d.syncWindows(link, windows)
}

func (d *Daemon) syncWindows(link *hostLink, windows []toolkit.Window) error {
	req, err := d.registry.PrepareSync(windows)
	if err != nil {
		d.log.Warn("some windows could not be prepared for sync", zap.Error(err))
	}

	if err := link.writer.Write(req); err != nil {
		return fmt.Errorf("failed to send sync request: %w", err)
	}
	d.log.Debug("sync request sent", zap.Int("windows", len(req.Windows)))
	return nil
}

// Status implements control.Agent.
func (d *Daemon) Status() (*control.StatusData, error) {
	live, err := d.tk.Windows()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}
	recs, err := d.repo.List()
	if err != nil {
		return nil, err
	}

	return &control.StatusData{
		AgentRunning:   true,
		UptimeSeconds:  int64(time.Since(d.started).Seconds()),
		HostRunning:    d.hostUp.Load(),
		HostRestarts:   int(d.restarts.Load()),
		TrackedClasses: d.cfg.App.Classes,
		LiveWindows:    len(live),
		StoredWindows:  len(recs),
		SyncsInFlight:  d.registry.InFlight(),
		StorePath:      d.storePath,
	}, nil
}

// Windows implements control.Agent.
func (d *Daemon) Windows() ([]identity.WindowStatus, error) {
	return d.registry.Snapshot()
}

// TriggerSync implements control.Agent. The sync runs on the daemon's
// loop; a trigger while one is already queued collapses into it.
func (d *Daemon) TriggerSync() error {
	select {
	case d.syncRequests <- struct{}{}:
	default:
	}
	return nil
}

var _ control.Agent = (*Daemon)(nil)

func writePidfile() (func(), error) {
	path, err := runtimepath.PidfilePath()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		return nil, fmt.Errorf("failed to write pidfile: %w", err)
	}
	return func() { os.Remove(path) }, nil
}

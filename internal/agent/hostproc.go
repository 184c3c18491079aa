package agent

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/wsanchor/wsanchor/internal/nativemsg"
)

// hostLink is the framed channel to a running placement host.
type hostLink struct {
	pid    int
	writer *nativemsg.Writer
	reader *nativemsg.Reader
	stop   func()
}

// spawnHost starts the placement host subprocess and wires its stdin and
// stdout. With no command configured the agent re-executes itself with the
// host subcommand.
func (d *Daemon) spawnHost() (*hostLink, error) {
	command := d.cfg.Host.Command
	if len(command) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}
		command = []string{exe, "host"}
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open host stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open host stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start host: %w", err)
	}

	return &hostLink{
		pid:    cmd.Process.Pid,
		writer: nativemsg.NewWriter(stdin),
		reader: nativemsg.NewReader(stdout),
		stop: func() {
			// Closing stdin asks the host to shut down; kill it if it
			// does not take the hint.
			stdin.Close()
			done := make(chan struct{})
			go func() {
				cmd.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(3 * time.Second):
				cmd.Process.Kill()
				<-done
			}
		},
	}, nil
}

package wm

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Discover locates the manager's IPC socket: $I3SOCK, then $SWAYSOCK, then
// asking the i3 or sway binary for its socket path.
func Discover() (string, error) {
	if path := os.Getenv("I3SOCK"); path != "" {
		return path, nil
	}
	if path := os.Getenv("SWAYSOCK"); path != "" {
		return path, nil
	}

	for _, prog := range []string{"i3", "sway"} {
		out, err := exec.Command(prog, "--get-socketpath").Output()
		if err != nil {
			continue
		}
		if path := strings.TrimSpace(string(out)); path != "" {
			return path, nil
		}
	}

	return "", fmt.Errorf("could not discover manager socket; set I3SOCK or SWAYSOCK")
}

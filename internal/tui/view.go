package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/wsanchor/wsanchor/internal/control"
	"github.com/wsanchor/wsanchor/internal/identity"
)

var (
	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)

	liveDotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	deadDotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	goneRowStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("241"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)
)

// renderStatusBar renders the top bar with the agent's health.
func renderStatusBar(status *control.StatusData, err error, width int) string {
	var text string
	switch {
	case err != nil:
		text = deadDotStyle.Render("●") + " agent unreachable"
	case status == nil:
		text = deadDotStyle.Render("●") + " connecting"
	default:
		host := "host down"
		if status.HostRunning {
			host = "host up"
		}
		parts := []string{
			liveDotStyle.Render("●") + " agent up " + formatUptime(status.UptimeSeconds),
			host,
			fmt.Sprintf("%d live / %d stored", status.LiveWindows, status.StoredWindows),
		}
		if status.SyncsInFlight > 0 {
			parts = append(parts, fmt.Sprintf("syncing (%d)", status.SyncsInFlight))
		}
		if len(status.TrackedClasses) > 0 {
			parts = append(parts, "tracking "+strings.Join(status.TrackedClasses, ", "))
		}
		text = strings.Join(parts, "  ")
	}
	return statusBarStyle.Width(width).Render(text)
}

// renderWindowTable renders one row per tracked window.
func renderWindowTable(windows []identity.WindowStatus, width, height int) string {
	if len(windows) == 0 {
		return emptyStyle.
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("no tracked windows")
	}

	lines := make([]string, 0, len(windows)+1)
	lines = append(lines, headerStyle.Render(
		fmt.Sprintf("%-10s %-10s %-18s %-2s %s", "WINDOW", "IDENTITY", "WORKSPACE", "", "TITLE")))

	for _, w := range windows {
		workspace := w.Workspace
		if workspace == "" {
			workspace = "-"
		}
		dot := deadDotStyle.Render("●")
		style := goneRowStyle
		if w.Live {
			dot = liveDotStyle.Render("●")
			style = rowStyle
		}
		row := fmt.Sprintf("0x%-8x %-10s %-18s %s  %s",
			w.Handle,
			shortIdentity(w.Identity),
			truncate(workspace, 18),
			dot,
			truncate(w.Title, width-46))
		lines = append(lines, style.Render(row))
	}

	body := strings.Join(lines, "\n")
	return lipgloss.NewStyle().Width(width).Height(height).Render(body)
}

// renderHelpBar renders the bottom keybinding bar.
func renderHelpBar(width int) string {
	help := "l: live only  r: refresh now  q: quit"
	return helpBarStyle.Width(width).Render(help)
}

// shortIdentity abbreviates a uuid to its first group.
func shortIdentity(identity string) string {
	if len(identity) < 8 {
		return identity
	}
	return identity[:8]
}

func truncate(s string, max int) string {
	if max < 1 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

func formatUptime(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}

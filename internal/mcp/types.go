package mcp

import "github.com/wsanchor/wsanchor/internal/identity"

// StatusInput is the input for the anchor_status tool.
type StatusInput struct{}

// WindowsInput is the input for the anchor_windows tool.
type WindowsInput struct {
	LiveOnly bool `json:"live_only,omitempty" jsonschema:"When true, list only windows currently on screen and skip stored identities whose window is gone"`
}

// WindowsOutput is the output for the anchor_windows tool.
type WindowsOutput struct {
	Windows []identity.WindowStatus `json:"windows"`
}

// SyncInput is the input for the anchor_sync tool.
type SyncInput struct{}

// SyncOutput is the output for the anchor_sync tool.
type SyncOutput struct {
	Triggered bool `json:"triggered"`
}

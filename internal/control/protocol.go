// Package control implements the agent's local control socket: one JSON
// request per connection, newline-delimited, answered and closed. The CLI
// subcommands and the MCP server are its clients.
package control

import (
	"encoding/json"
	"fmt"

	"github.com/wsanchor/wsanchor/internal/identity"
)

// CommandType names a control command.
type CommandType string

const (
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandListWindows CommandType = "LIST_WINDOWS"
	CommandSync        CommandType = "SYNC"
)

// Request is a control request from client to agent.
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is a control response from agent to client.
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData is returned by GET_STATUS.
type StatusData struct {
	AgentRunning   bool     `json:"agent_running"`
	UptimeSeconds  int64    `json:"uptime_seconds"`
	HostRunning    bool     `json:"host_running"`
	HostRestarts   int      `json:"host_restarts"`
	TrackedClasses []string `json:"tracked_classes"`
	LiveWindows    int      `json:"live_windows"`
	StoredWindows  int      `json:"stored_windows"`
	SyncsInFlight  int      `json:"syncs_in_flight"`
	StorePath      string   `json:"store_path"`
}

// WindowsData is returned by LIST_WINDOWS.
type WindowsData struct {
	Windows []identity.WindowStatus `json:"windows"`
}

// NewOKResponse creates a successful response with optional data.
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message.
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes.
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wsanchor/wsanchor/internal/control"
	"github.com/wsanchor/wsanchor/internal/identity"
)

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, control.StatusData, error) {
	status, err := s.control.Status()
	if err != nil {
		return nil, control.StatusData{}, fmt.Errorf("failed to reach the agent: %w", err)
	}
	s.log.Debug("served status",
		zap.Int("live", status.LiveWindows),
		zap.Int("stored", status.StoredWindows))
	return nil, *status, nil
}

func (s *Server) handleWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowsInput) (*mcpsdk.CallToolResult, WindowsOutput, error) {
	windows, err := s.control.Windows()
	if err != nil {
		return nil, WindowsOutput{}, fmt.Errorf("failed to reach the agent: %w", err)
	}

	if args.LiveOnly {
		live := make([]identity.WindowStatus, 0, len(windows))
		for _, w := range windows {
			if w.Live {
				live = append(live, w)
			}
		}
		windows = live
	}

	s.log.Debug("served windows", zap.Int("count", len(windows)))
	return nil, WindowsOutput{Windows: windows}, nil
}

func (s *Server) handleSync(_ context.Context, _ *mcpsdk.CallToolRequest, _ SyncInput) (*mcpsdk.CallToolResult, SyncOutput, error) {
	if err := s.control.Sync(); err != nil {
		return nil, SyncOutput{}, fmt.Errorf("failed to trigger a sync: %w", err)
	}
	s.log.Info("sync triggered")
	return nil, SyncOutput{Triggered: true}, nil
}

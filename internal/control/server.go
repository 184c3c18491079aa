package control

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wsanchor/wsanchor/internal/identity"
	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/runtimepath"
)

// Agent is the surface the control server exposes over the socket.
type Agent interface {
	Status() (*StatusData, error)
	Windows() ([]identity.WindowStatus, error)
	TriggerSync() error
}

// Server answers control requests on the agent's unix socket.
type Server struct {
	socketPath string
	listener   net.Listener
	agent      Agent
	log        *logging.Logger

	shutdownMu   sync.Mutex
	shuttingDown bool
}

// NewServer creates a control server for the given agent. A socket left
// behind by a dead agent is removed.
func NewServer(agent Agent, log *logging.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve control socket path: %w", err)
	}

	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		agent:      agent,
		log:        log,
	}, nil
}

// Start begins listening for control connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create control socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.log.Info("control server listening", zap.String("socket", s.socketPath))

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.log.Warn("control accept error", zap.Error(err))
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection serves one request and closes.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.log.Warn("control read error", zap.Error(err))
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.log.Error("failed to marshal control response", zap.Error(err))
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.log.Warn("failed to send control response", zap.Error(err))
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	s.log.Debug("control request", zap.String("command", string(req.Command)))

	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListWindows:
		return s.handleListWindows()
	case CommandSync:
		return s.handleSync()
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func (s *Server) handleGetStatus() *Response {
	status, err := s.agent.Status()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to collect status: %v", err))
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListWindows() *Response {
	windows, err := s.agent.Windows()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to list windows: %v", err))
	}

	resp, _ := NewOKResponse(WindowsData{Windows: windows})
	return resp
}

func (s *Server) handleSync() *Response {
	if err := s.agent.TriggerSync(); err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to trigger sync: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop shuts the control server down and removes its socket.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

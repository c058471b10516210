package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/tessro/cleandl/internal/logging"
	"github.com/tessro/cleandl/internal/paths"
)

// BroadcastTimeout bounds how long a slow subscriber can hold up Broadcast.
const BroadcastTimeout = time.Second

// DefaultSocketPath returns the default Unix socket path.
func DefaultSocketPath() string {
	return paths.SocketPath()
}

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	connKey    contextKey = "conn"
	serverKey  contextKey = "server"
	encoderKey contextKey = "encoder"
	writeMuKey contextKey = "writeMu"
)

// Handler processes IPC requests and returns responses.
type Handler interface {
	// Handle processes a request and returns a response.
	// The context carries the connection, server, encoder and write lock for
	// attach/detach; use the *FromContext helpers to retrieve them.
	Handle(ctx context.Context, req *Request) *Response
}

// ConnFromContext retrieves the client connection from the context.
func ConnFromContext(ctx context.Context) net.Conn {
	conn, _ := ctx.Value(connKey).(net.Conn)
	return conn
}

// ServerFromContext retrieves the server from the context.
func ServerFromContext(ctx context.Context) *Server {
	srv, _ := ctx.Value(serverKey).(*Server)
	return srv
}

// EncoderFromContext retrieves the connection's response encoder.
func EncoderFromContext(ctx context.Context) *json.Encoder {
	enc, _ := ctx.Value(encoderKey).(*json.Encoder)
	return enc
}

// WriteMuFromContext retrieves the lock serializing writes to the connection.
func WriteMuFromContext(ctx context.Context) *sync.Mutex {
	mu, _ := ctx.Value(writeMuKey).(*sync.Mutex)
	return mu
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, req *Request) *Response

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) *Response {
	return f(ctx, req)
}

// Server is the Unix socket control server of the cleandl daemon.
type Server struct {
	socketPath string
	handler    Handler
	listener   net.Listener // Set in Start before goroutine, closed in Stop

	mu sync.Mutex
	// +checklocks:mu
	conns map[net.Conn]struct{}
	// +checklocks:mu
	attached map[net.Conn]*attachedClient
	// +checklocks:mu
	started bool
	done    chan struct{}
}

// attachedClient is a connection subscribed to outcome events. It shares the
// connection's encoder and write lock so events never interleave with
// responses.
type attachedClient struct {
	conn    net.Conn
	encoder *json.Encoder
	writeMu *sync.Mutex
	states  []string // Filter: empty means every state (immutable after creation)
}

func (c *attachedClient) wants(state string) bool {
	return len(c.states) == 0 || slices.Contains(c.states, state)
}

// NewServer creates a new daemon server.
func NewServer(socketPath string, handler Handler) *Server {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		conns:      make(map[net.Conn]struct{}),
		attached:   make(map[net.Conn]*attachedClient),
		done:       make(chan struct{}),
	}
}

// SocketPath returns the socket path this server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening on the Unix socket.
// Returns an error if the server is already running or cannot bind.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	s.mu.Unlock()

	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}

	// Remove stale socket file if it exists
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}

	// Owner only
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("set socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.started = true
	s.mu.Unlock()

	slog.Info("control server started", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	defer logging.LogPanic("control-accept", nil)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				slog.Error("accept connection failed", "error", err)
				continue
			}
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		connCount := len(s.conns)
		s.mu.Unlock()

		slog.Debug("client connected", "connections", connCount)

		go s.handleConnection(conn)
	}
}

// handleConnection processes requests from a single client.
func (s *Server) handleConnection(conn net.Conn) {
	defer logging.LogPanic("control-conn", nil)
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.attached, conn)
		connCount := len(s.conns)
		s.mu.Unlock()
		slog.Debug("client disconnected", "connections", connCount)
	}()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)
	writeMu := &sync.Mutex{}

	ctx := context.WithValue(context.Background(), connKey, conn)
	ctx = context.WithValue(ctx, serverKey, s)
	ctx = context.WithValue(ctx, encoderKey, encoder)
	ctx = context.WithValue(ctx, writeMuKey, writeMu)

	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			slog.Warn("decode request failed", "error", err)
			writeMu.Lock()
			_ = encoder.Encode(&Response{
				Success: false,
				Error:   fmt.Sprintf("decode request: %v", err),
			})
			writeMu.Unlock()
			return
		}

		slog.Debug("request received", "type", req.Type, "id", req.ID)

		resp := s.handler.Handle(ctx, &req)
		if resp == nil {
			resp = &Response{
				Success: false,
				Error:   "handler returned nil response",
			}
		}

		// Ensure response has correct correlation info
		if resp.Type == "" {
			resp.Type = req.Type
		}
		if resp.ID == "" {
			resp.ID = req.ID
		}

		if !resp.Success {
			slog.Warn("request failed", "type", req.Type, "error", resp.Error)
		}

		writeMu.Lock()
		err := encoder.Encode(resp)
		writeMu.Unlock()
		if err != nil {
			slog.Debug("write response failed", "error", err)
			return
		}
	}
}

// Stop shuts down the server, closing every client connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	connCount := len(s.conns)
	s.mu.Unlock()

	slog.Info("control server stopping", "active_connections", connCount)

	close(s.done)

	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[net.Conn]struct{})
	s.attached = make(map[net.Conn]*attachedClient)
	s.mu.Unlock()

	os.Remove(s.socketPath)

	slog.Info("control server stopped")

	return nil
}

// Attach subscribes a connection to outcome events, optionally filtered by
// state. encoder and writeMu must be the ones handed to the handler.
func (s *Server) Attach(conn net.Conn, states []string, encoder *json.Encoder, writeMu *sync.Mutex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached[conn] = &attachedClient{
		conn:    conn,
		encoder: encoder,
		writeMu: writeMu,
		states:  states,
	}
}

// Detach removes a connection from outcome events.
func (s *Server) Detach(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attached, conn)
}

// Broadcast sends an event to every attached client whose filter accepts it.
func (s *Server) Broadcast(event *StreamEvent) {
	s.mu.Lock()
	clients := make([]*attachedClient, 0, len(s.attached))
	for _, client := range s.attached {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	for _, client := range clients {
		if !client.wants(event.Outcome.State) {
			continue
		}
		client.writeMu.Lock()
		_ = client.conn.SetWriteDeadline(time.Now().Add(BroadcastTimeout))
		if err := client.encoder.Encode(event); err != nil {
			slog.Debug("broadcast failed", "error", err)
		}
		_ = client.conn.SetWriteDeadline(time.Time{})
		client.writeMu.Unlock()
	}
}

// AttachedCount returns the number of attached streaming clients.
func (s *Server) AttachedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attached)
}

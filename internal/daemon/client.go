package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Client connects to the cleandl daemon over its Unix socket.
type Client struct {
	socketPath string

	mu sync.Mutex
	// +checklocks:mu
	conn net.Conn
	// +checklocks:mu
	encoder *json.Encoder
	// +checklocks:mu
	decoder *json.Decoder

	// ioMu serializes request/response cycles on the main connection.
	// Must be acquired AFTER mu if both are needed.
	ioMu sync.Mutex

	reqID atomic.Uint64

	// Outcome streaming via dedicated connection
	eventMu sync.Mutex
	// +checklocks:eventMu
	eventConn net.Conn
	// +checklocks:eventMu
	eventDone chan struct{}
}

// NewClient creates a new daemon client.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	return &Client{
		socketPath: socketPath,
	}
}

// ConnectTimeout is the default timeout for connecting to the daemon.
const ConnectTimeout = 5 * time.Second

// RequestTimeout bounds a request/response cycle.
const RequestTimeout = 30 * time.Second

// Connect establishes a connection to the daemon.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, err := net.DialTimeout("unix", c.socketPath, ConnectTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.conn = conn
	c.encoder = json.NewEncoder(conn)
	c.decoder = json.NewDecoder(conn)
	return nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	c.StopEventStream()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	c.encoder = nil
	c.decoder = nil
	return err
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SocketPath returns the socket path this client connects to.
func (c *Client) SocketPath() string {
	return c.socketPath
}

func (c *Client) nextID() string {
	return fmt.Sprintf("req-%d", c.reqID.Add(1))
}

// DecodePayload decodes a request or response payload into the given type.
// If payload is nil, returns a pointer to the zero value of T.
func DecodePayload[T any](payload any) (*T, error) {
	var result T
	if payload == nil {
		return &result, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &result, nil
}

// Send sends a request and waits for the response.
// On connection errors, the connection is closed so that IsConnected() returns false.
func (c *Client) Send(req *Request) (*Response, error) {
	return c.send(req, RequestTimeout)
}

func (c *Client) send(req *Request, timeout time.Duration) (*Response, error) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	encoder := c.encoder
	decoder := c.decoder
	c.mu.Unlock()

	if req.ID == "" {
		req.ID = c.nextID()
	}

	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		c.closeConn()
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	defer func() { _ = conn.SetDeadline(time.Time{}) }()

	if err := encoder.Encode(req); err != nil {
		c.closeConn()
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		c.closeConn()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &resp, nil
}

// closeConn closes the main connection and clears connection state.
// Caller must NOT hold c.mu.
func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.encoder = nil
		c.decoder = nil
	}
}

// Ping sends a ping request to check daemon connectivity.
func (c *Client) Ping() (*PingResponse, error) {
	resp, err := c.Send(&Request{Type: MsgPing})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError("ping", resp.Error)
	}
	return DecodePayload[PingResponse](resp.Payload)
}

// Shutdown asks the daemon to drain and exit. It returns once the request is
// accepted; the daemon keeps running until its tracked files are resolved.
func (c *Client) Shutdown() error {
	resp, err := c.Send(&Request{Type: MsgShutdown})
	if err != nil {
		return err
	}
	if !resp.Success {
		return NewServerError("shutdown", resp.Error)
	}
	return nil
}

// Status gets the daemon and engine status.
func (c *Client) Status() (*StatusResponse, error) {
	resp, err := c.Send(&Request{Type: MsgStatus})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError("status", resp.Error)
	}
	return DecodePayload[StatusResponse](resp.Payload)
}

// EventResult contains either a stream event or an error.
type EventResult struct {
	Event *StreamEvent
	Err   error
}

// StreamEvents opens a dedicated connection, attaches it to outcome events
// (optionally filtered by state) and returns a channel of events. The channel
// closes after an error or StopEventStream.
func (c *Client) StreamEvents(states []string) (<-chan EventResult, error) {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	if c.eventConn != nil {
		c.eventConn.Close()
		if c.eventDone != nil {
			close(c.eventDone)
		}
	}

	conn, err := net.DialTimeout("unix", c.socketPath, ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	encoder := json.NewEncoder(conn)
	decoder := json.NewDecoder(conn)

	req := &Request{
		ID:      "event-stream",
		Type:    MsgAttach,
		Payload: AttachRequest{States: states},
	}
	if err := encoder.Encode(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("encode attach request: %w", err)
	}

	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode attach response: %w", err)
	}
	if !resp.Success {
		conn.Close()
		return nil, NewServerError("attach", resp.Error)
	}

	c.eventConn = conn
	c.eventDone = make(chan struct{})
	done := c.eventDone

	events := make(chan EventResult, 16)

	go func() {
		defer close(events)
		defer conn.Close()

		for {
			var event StreamEvent
			if err := decoder.Decode(&event); err != nil {
				select {
				case <-done:
					// Clean shutdown, don't send error
				case events <- EventResult{Err: fmt.Errorf("decode event: %w", err)}:
				}
				return
			}

			select {
			case <-done:
				return
			case events <- EventResult{Event: &event}:
			}
		}
	}()

	return events, nil
}

// StopEventStream stops the event streaming goroutine and closes the event connection.
func (c *Client) StopEventStream() {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	if c.eventDone != nil {
		close(c.eventDone)
		c.eventDone = nil
	}
	if c.eventConn != nil {
		c.eventConn.Close()
		c.eventConn = nil
	}
}

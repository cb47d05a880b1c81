package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/PizzaHomicide/crossplay/internal/log"
)

// ErrDisconnected is returned for commands issued after the connection to mpv was lost
var ErrDisconnected = errors.New("not connected to mpv")

// Message is anything mpv writes to the IPC socket: either a reply carrying the request_id of a command, or an
// asynchronous event.
type Message struct {
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	ID        int             `json:"id,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	FileError string          `json:"file_error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID int             `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// IPCClient talks to one mpv instance over its JSON IPC socket
type IPCClient struct {
	socketPath string
	logger     *log.Logger

	mu      sync.Mutex
	conn    net.Conn
	nextID  int
	pending map[int]chan Message
	closed  bool

	events chan Message
}

// NewIPCClient creates a client for the socket at socketPath.  Nothing is dialled until Connect.
func NewIPCClient(socketPath string, logger *log.Logger) *IPCClient {
	if logger == nil {
		logger = log.L()
	}
	return &IPCClient{
		socketPath: socketPath,
		logger:     logger,
		pending:    make(map[int]chan Message),
		events:     make(chan Message, 100),
	}
}

// Connect establishes a connection with mpv
func (c *IPCClient) Connect(ctx context.Context) error {
	conn, err := dial(ctx, c.socketPath)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readMessages(conn)
	return nil
}

// WaitForConnection attempts to connect to mpv with retries
func (c *IPCClient) WaitForConnection(ctx context.Context, maxAttempts int, retryDelay time.Duration) error {
	c.logger.Debug("Waiting for mpv to create socket", "socket_path", c.socketPath, "max_attempts", maxAttempts)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check if socket file exists for unix sockets
		if runtime.GOOS != "windows" {
			if _, err := os.Stat(c.socketPath); os.IsNotExist(err) {
				c.logger.Trace("mpv socket does not exist yet", "attempt", attempt, "path", c.socketPath)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(retryDelay):
					continue
				}
			}
		}

		err := c.Connect(ctx)
		if err == nil {
			c.logger.Debug("Connected to mpv", "attempt", attempt)
			return nil
		}

		c.logger.Debug("Failed to connect to mpv", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return fmt.Errorf("failed to connect to mpv after %d attempts", maxAttempts)
}

// Close closes the connection to mpv.  Pending commands fail with ErrDisconnected.
func (c *IPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// readMessages routes replies to the command waiting for them and everything else to the events channel.  The events
// channel is closed once the connection drops.
func (c *IPCClient) readMessages(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		c.logger.Trace("Raw mpv message", "data", string(line))

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			c.logger.Error("Failed to unmarshal mpv message", "error", err)
			continue
		}

		if msg.Event == "" && msg.RequestID != 0 {
			c.mu.Lock()
			ch, ok := c.pending[msg.RequestID]
			delete(c.pending, msg.RequestID)
			c.mu.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}

		c.events <- msg
	}

	if err := scanner.Err(); err != nil {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			c.logger.Error("Error reading from mpv socket", "error", err)
		}
	}

	c.mu.Lock()
	c.conn = nil
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	c.logger.Debug("mpv message reader stopped")
	close(c.events)
}

// Events returns the channel of asynchronous mpv events
func (c *IPCClient) Events() <-chan Message {
	return c.events
}

// Command sends a command to mpv and waits for its reply
func (c *IPCClient) Command(ctx context.Context, args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, ErrDisconnected
	}
	c.nextID++
	id := c.nextID
	reply := make(chan Message, 1)
	c.pending[id] = reply
	conn := c.conn
	c.mu.Unlock()

	data, err := json.Marshal(map[string]any{
		"command":    args,
		"request_id": id,
	})
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	if _, err = conn.Write(append(data, '\n')); err != nil {
		c.forget(id)
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case msg, ok := <-reply:
		if !ok {
			return nil, ErrDisconnected
		}
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", args[0], msg.Error)
		}
		return msg.Data, nil
	}
}

func (c *IPCClient) forget(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// ObserveProperty starts observing an mpv property.  Changes arrive as property-change events carrying id.
func (c *IPCClient) ObserveProperty(ctx context.Context, id int, name string) error {
	_, err := c.Command(ctx, "observe_property", id, name)
	return err
}

// GetFloat reads a numeric property
func (c *IPCClient) GetFloat(ctx context.Context, name string) (float64, error) {
	data, err := c.Command(ctx, "get_property", name)
	if err != nil {
		return 0, err
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return value, nil
}

// SetProperty sets an mpv property
func (c *IPCClient) SetProperty(ctx context.Context, name string, value any) error {
	_, err := c.Command(ctx, "set_property", name, value)
	return err
}

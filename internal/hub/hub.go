// Package hub provides connection management for WebSocket clients.
package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultSendBuffer is the outbound queue length of a connection.
const DefaultSendBuffer = 256

// DeliveryTimeout bounds how long Emit waits for queue space for a terminal event.
var DeliveryTimeout = 5 * time.Second

// terminal is implemented by events that close a unit of work and must not
// be dropped while the writer is merely slow.
type terminal interface {
	Terminal() bool
}

// Connection represents a single WebSocket connection.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu       sync.Mutex
	writeMu  sync.Mutex
	closed   bool
	done     chan struct{}
	doneOnce sync.Once
}

// Hub tracks the open connections of the process.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	register   chan *Connection
	unregister chan *Connection
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is cancelled, closing
// the send queue of every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			total := len(h.connections)
			h.mu.Unlock()
			log.Printf("INFO: WebSocket client connected: %s. Total connections: %d", conn.ID, total)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				conn.closeSend()
			}
			total := len(h.connections)
			h.mu.Unlock()
			log.Printf("INFO: WebSocket client disconnected: %s. Total connections: %d", conn.ID, total)

		case <-ctx.Done():
			h.mu.Lock()
			for id, conn := range h.connections {
				conn.closeSend()
				delete(h.connections, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// NewConnection wraps ws in a connection with an empty send queue.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, DefaultSendBuffer),
		done: make(chan struct{}),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.closeSend()
	}
}

// Unregister removes conn and closes its send queue. It is safe to call
// more than once.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SendJSON queues the JSON encoding of v without blocking.
func (c *Connection) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.enqueue(data, 0)
}

// SendJSONWait queues the JSON encoding of v, waiting up to timeout for
// queue space.
func (c *Connection) SendJSONWait(v interface{}, timeout time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.enqueue(data, timeout)
}

// Emit queues event for delivery. Terminal events wait up to
// DeliveryTimeout for queue space; everything else is dropped when the
// queue is full. Undeliverable events are logged.
func (c *Connection) Emit(event interface{}) {
	var err error
	if t, ok := event.(terminal); ok && t.Terminal() {
		err = c.SendJSONWait(event, DeliveryTimeout)
	} else {
		err = c.SendJSON(event)
	}
	if err != nil {
		log.Printf("WARN: Failed to send message to %s: %v", c.ID, err)
	}
}

func (c *Connection) enqueue(data []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
	}
	if timeout <= 0 {
		return ErrBufferFull
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c.Send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-timer.C:
		return ErrBufferFull
	}
}

func (c *Connection) closeSend() {
	// Wake a sender waiting for queue space before taking the lock.
	c.doneOnce.Do(func() { close(c.done) })
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}

// ErrConnectionClosed is returned when sending on an unregistered connection.
var ErrConnectionClosed = &ConnectionClosedError{}

// ConnectionClosedError represents a send on a closed connection.
type ConnectionClosedError struct{}

func (e *ConnectionClosedError) Error() string {
	return "connection closed"
}

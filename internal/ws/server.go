// Package ws provides WebSocket server functionality for operator connections.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/harness/internal/config"
	"github.com/xiaot623/gogo/harness/internal/harness"
	"github.com/xiaot623/gogo/harness/internal/hub"
	"github.com/xiaot623/gogo/harness/internal/protocol"
)

const (
	connectedMessage = "Connected to Multi-Agent System - Conversational Task Creator Ready"
	jobQueueSize     = 16
)

// Server handles WebSocket connections. Every connection owns one
// orchestrator session.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	deps     harness.Deps
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, deps harness.Deps) *Server {
	return &Server{
		cfg:  cfg,
		hub:  h,
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// client is the per-connection state: the orchestrator and the queue of
// inputs it works through one at a time.
type client struct {
	conn *hub.Connection
	orch *harness.Orchestrator
	jobs chan protocol.InboundMessage

	ctx      context.Context
	shutdown context.CancelFunc

	mu        sync.Mutex
	runCtx    context.Context
	cancelRun context.CancelFunc

	pendingResets atomic.Int32
}

func (s *Server) newClient(conn *hub.Connection) *client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &client{
		conn:     conn,
		orch:     harness.NewOrchestrator(s.deps, conn),
		jobs:     make(chan protocol.InboundMessage, jobQueueSize),
		ctx:      ctx,
		shutdown: cancel,
	}
	c.newRun()
	return c
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("ERROR: Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	cl := s.newClient(conn)
	conn.Emit(protocol.Connected(connectedMessage))

	go s.writePump(conn)
	go cl.work()
	go s.readPump(cl)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(c *client) {
	conn := c.conn
	defer func() {
		c.shutdown()
		close(c.jobs)
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ERROR: WebSocket error: %v", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		s.handleMessage(c, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("ERROR: Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages. Pings are answered at once;
// inputs and resets are queued for the connection's worker.
func (s *Server) handleMessage(c *client, data []byte) {
	var msg protocol.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(c.conn, protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}
	log.Printf("INFO: Received message: %s", msg.Type)

	switch msg.Type {
	case protocol.TypePing:
		c.conn.Emit(protocol.Pong())
	case protocol.TypeUserInput:
		if strings.TrimSpace(msg.Message) == "" {
			s.sendError(c.conn, protocol.ErrorCodeInvalidMessage, "message is required")
			return
		}
		if !c.enqueue(msg) {
			s.sendError(c.conn, protocol.ErrorCodeInvalidState, "too many pending messages")
		}
	case protocol.TypeReset:
		// The reset is applied in order by the worker; the current run is
		// stopped right away so the worker reaches it.
		c.pendingResets.Add(1)
		c.stopRun()
		if !c.enqueue(msg) {
			c.pendingResets.Add(-1)
			s.sendError(c.conn, protocol.ErrorCodeInvalidState, "too many pending messages")
		}
	default:
		s.sendError(c.conn, protocol.ErrorCodeInvalidMessage, "unknown message type: "+msg.Type)
	}
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, code, message string) {
	conn.Emit(protocol.Error(code, message))
}

func (c *client) enqueue(msg protocol.InboundMessage) bool {
	select {
	case c.jobs <- msg:
		return true
	default:
		return false
	}
}

// work processes queued messages until the connection closes.
func (c *client) work() {
	for msg := range c.jobs {
		if c.ctx.Err() != nil {
			return
		}
		c.process(msg)
	}
}

func (c *client) process(msg protocol.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Error processing message: %v", r)
			c.conn.Emit(protocol.Error(protocol.ErrorCodeInternalError, fmt.Sprint(r)))
		}
	}()

	switch msg.Type {
	case protocol.TypeUserInput:
		if c.pendingResets.Load() > 0 {
			log.Printf("INFO: Dropping user input queued before reset")
			return
		}
		log.Printf("INFO: Processing user input: %s (Agent: %s, Country: %s)", msg.Message, msg.AgentType, msg.Country)
		res := c.orch.Handle(c.currentRun(), msg.Message, msg.AgentType, msg.Country)
		log.Printf("INFO: Input handled: status=%s tasks=%d", res.Status, res.TaskCount)

	case protocol.TypeReset:
		log.Printf("INFO: Resetting orchestrator")
		c.orch.Reset()
		c.newRun()
		c.pendingResets.Add(-1)
		c.conn.Emit(protocol.ResetComplete())
	}
}

func (c *client) newRun() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelRun != nil {
		c.cancelRun()
	}
	c.runCtx, c.cancelRun = context.WithCancel(c.ctx)
}

func (c *client) currentRun() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runCtx
}

func (c *client) stopRun() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelRun()
}

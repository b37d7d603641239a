package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/harness/internal/protocol"
)

// Client is an operator connection to the harness WebSocket.
type Client struct {
	conn      *websocket.Conn
	agentType string
	country   string
	done      chan struct{}
}

// NewClient connects to the server and waits for its greeting.
func NewClient(addr, agentType, country string) (*Client, string, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, "", fmt.Errorf("dial: %w", err)
	}

	var greeting struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := conn.ReadJSON(&greeting); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("read greeting: %w", err)
	}
	if greeting.Type != protocol.TypeConnected {
		conn.Close()
		return nil, "", fmt.Errorf("expected %s, got: %s", protocol.TypeConnected, greeting.Type)
	}

	return &Client{
		conn:      conn,
		agentType: agentType,
		country:   country,
		done:      make(chan struct{}),
	}, greeting.Message, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// SendInput sends one operator message with the current agent selection.
func (c *Client) SendInput(content string) error {
	return c.conn.WriteJSON(protocol.InboundMessage{
		Type:      protocol.TypeUserInput,
		Message:   content,
		AgentType: c.agentType,
		Country:   c.country,
	})
}

// SendReset asks the server to drop the session and start over.
func (c *Client) SendReset() error {
	return c.conn.WriteJSON(protocol.InboundMessage{Type: protocol.TypeReset})
}

// ReadMessages renders server events until the connection closes.
func (c *Client) ReadMessages(r *Renderer) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("Read error: %v", err)
				}
			}
			return
		}

		var event map[string]interface{}
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}
		r.Render(event)
	}
}

package gateway

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// commandMsg is the inbound client message shape.
type commandMsg struct {
	Action string `json:"action"` // "activate", "deactivate", "ping"
	ID     string `json:"id"`
	ReqID  string `json:"req_id,omitempty"`
}

func (c *Client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

// SendAck reports a successfully executed command back to the client.
func (c *Client) SendAck(action, id, reqID string, active []string) {
	msg, _ := json.Marshal(map[string]any{
		"type":   "ack",
		"action": action,
		"id":     id,
		"req_id": reqID,
		"active": active,
	})
	c.enqueue(msg)
}

// SendError reports a failed command back to the client.
func (c *Client) SendError(reqID, detail string) {
	msg, _ := json.Marshal(map[string]any{
		"type":   "error",
		"req_id": reqID,
		"error":  detail,
	})
	c.enqueue(msg)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	// The send channel is never closed (replies may arrive after the hub
	// drops this client); the pump exits when a write or ping fails on the
	// connection readPump closed.
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: batch queued messages into a single
			// WebSocket frame with newline separators.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var cmd commandMsg
		if err := json.Unmarshal(msg, &cmd); err != nil {
			c.SendError("", "invalid message: "+err.Error())
			continue
		}

		switch cmd.Action {
		case "activate", "deactivate":
			if cmd.ID == "" {
				c.SendError(cmd.ReqID, "id is required")
				continue
			}
			select {
			case c.hub.Commands <- Command{Client: c, Action: cmd.Action, ID: cmd.ID, ReqID: cmd.ReqID}:
			default:
				c.SendError(cmd.ReqID, "engine busy, retry")
			}

		case "ping":
			pong, _ := json.Marshal(map[string]any{
				"type":      "pong",
				"req_id":    cmd.ReqID,
				"server_ts": time.Now().UnixMilli(),
			})
			c.enqueue(pong)

		default:
			c.SendError(cmd.ReqID, "unknown action: "+cmd.Action)
		}
	}
}

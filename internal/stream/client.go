package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/cargotrack/routeplay/internal/display"
	"github.com/cargotrack/routeplay/pkg/streaming"
)

// client is one connected page with a single write goroutine.
type client struct {
	hub    *Hub
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
	layout *display.Layout
}

func newClient(h *Hub, conn *ws.Conn) *client {
	return &client{
		hub:    h,
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		layout: display.NewLayout(),
	}
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *client) send(data []byte) {
	select {
	case <-c.done:
	case c.sendCh <- data:
	default:
		c.hub.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// writeLoop drains sendCh and keeps the connection alive with pings.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
			_ = c.conn.Close()
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				c.close()
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.hub.logger.Warn("WebSocket write error", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Debug("WebSocket ping failed", "error", err)
				c.close()
				return
			}
		}
	}
}

// readLoop handles layout and command messages until the page goes away.
func (c *client) readLoop(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
					c.hub.logger.Warn("WebSocket read error", "error", err)
				}
			}
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.hub.logger.Debug("Malformed message received", "raw", string(message))
			continue
		}

		switch env.Type {
		case streaming.TypeLayout:
			var p streaming.LayoutPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				c.hub.logger.Debug("Malformed layout message", "error", err)
				continue
			}
			c.layout.Replace(p.Elements...)
		case streaming.TypeCommand:
			var p streaming.CommandPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				c.hub.logger.Debug("Malformed command message", "error", err)
				continue
			}
			reply := c.hub.runCommand(ctx, p)
			data, err := streaming.MarshalEnvelope(streaming.TypeReply, reply)
			if err != nil {
				c.hub.logger.Error("Failed to encode reply", "error", err)
				continue
			}
			c.send(data)
		default:
			c.hub.logger.Debug("Unknown message type", "type", env.Type)
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

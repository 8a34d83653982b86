// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lanserve/lanserve/internal/config"
	"github.com/lanserve/lanserve/internal/logging"
)

const pingFraction = 9 // pingPeriod = pongTimeout * 9/10

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan Frame
	cfg    config.RealtimeConfig
}

// NewClient wraps an upgraded connection for the given user.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, cfg config.RealtimeConfig) *Client {
	return &Client{
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan Frame, cfg.SendBuffer),
		cfg:    cfg,
	}
}

// UserID returns the authenticated identity this connection belongs to.
func (c *Client) UserID() string { return c.userID }

// Start registers the client and runs both pumps. The read pump owns the
// calling goroutine's lifetime proxy via Unregister on exit. A connection
// arriving after the hub has stopped is closed immediately.
func (c *Client) Start() {
	select {
	case c.hub.Register <- c:
	case <-c.hub.done:
		_ = c.conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump drains inbound frames. Clients do not send domain data over the
// socket; reading only services pong handling and close detection.
func (c *Client) readPump() {
	defer func() {
		c.hub.release(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout)); err != nil {
		logging.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).
					Str("user_id", c.userID).
					Msg("Unexpected websocket close")
			}
			return
		}
	}
}

// writePump serializes queued frames to the connection and keeps it alive
// with pings. Any write failure ends the connection; the read pump notices
// the close and unregisters.
func (c *Client) writePump() {
	pingPeriod := c.cfg.PongTimeout * pingFraction / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				logging.Warn().Err(err).
					Str("user_id", c.userID).
					Msg("Websocket write failed")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Upgrader builds the websocket upgrader used by both duplex endpoints.
// Origin checking is delegated to the CORS layer in front of the handler.
func Upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

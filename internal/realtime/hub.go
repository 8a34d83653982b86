// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package realtime is the best-effort push gateway. It keeps live websocket
// connections keyed by user identity and delivers named event frames to every
// open connection of a user. It is never the source of truth: durability
// lives in the message log and notification store, and offline users catch
// up on their next fetch.
package realtime

import (
	"context"
	"sync"

	"github.com/lanserve/lanserve/internal/logging"
	"github.com/lanserve/lanserve/internal/metrics"
)

// Named events pushed to clients. The frame is {"event": ..., "data": ...}.
const (
	EventReceiveMessage      = "ReceiveMessage"
	EventReceiveNotification = "ReceiveNotification"
)

// Frame is one outbound websocket payload.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// push is an internal request to deliver a frame to one user.
type push struct {
	userID string
	frame  Frame
}

// Hub owns the user-to-connections registry. Connect/disconnect and push all
// flow through the run loop; the mutex guards the registry for the
// synchronous readers (SendToUser fast path, counts).
type Hub struct {
	clients map[string]map[*Client]struct{}

	Register   chan *Client
	Unregister chan *Client
	pushes     chan push
	done       chan struct{}
	stopOnce   sync.Once

	mu sync.RWMutex
}

// NewHub creates an empty hub. Run or RunWithContext must be started before
// clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		pushes:     make(chan push, 256),
		done:       make(chan struct{}),
	}
}

// RunWithContext processes lifecycle and push events until the context is
// canceled, then closes every connection and returns ctx.Err(). Lifecycle
// events take priority over pushes so the registry is consistent before a
// frame is delivered.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case p := <-h.pushes:
			h.deliver(p)
		}
	}
}

// SendToUser queues a named frame for every open connection of userID. A
// user with no connections is the expected steady state, not an error. The
// call never blocks: if the hub's queue is full the push is dropped and
// counted, since this channel carries no durability guarantee.
func (h *Hub) SendToUser(userID, event string, data any) {
	p := push{userID: userID, frame: Frame{Event: event, Data: data}}
	select {
	case h.pushes <- p:
	default:
		metrics.PushAttemptsTotal.WithLabelValues(event, "dropped").Inc()
		logging.Warn().
			Str("user_id", userID).
			Str("event", event).
			Msg("Push queue full, frame dropped")
	}
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// UserConnectionCount returns the number of open connections for one user.
func (h *Hub) UserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.userID] = set
	}
	set[client] = struct{}{}
	users, conns := len(h.clients), h.connectionCountLocked()
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(float64(conns))
	metrics.WebSocketUsersOnline.Set(float64(users))
	logging.Info().
		Str("user_id", client.userID).
		Int("total_connections", conns).
		Msg("Realtime client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if set, ok := h.clients[client.userID]; ok {
		if _, present := set[client]; present {
			delete(set, client)
			close(client.send)
		}
		if len(set) == 0 {
			delete(h.clients, client.userID)
		}
	}
	users, conns := len(h.clients), h.connectionCountLocked()
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(float64(conns))
	metrics.WebSocketUsersOnline.Set(float64(users))
	logging.Info().
		Str("user_id", client.userID).
		Int("total_connections", conns).
		Msg("Realtime client disconnected")
}

// deliver pushes a frame to each of the user's connections independently. A
// connection with a full send buffer is dropped as a slow consumer; the other
// connections are unaffected.
func (h *Hub) deliver(p push) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[p.userID]
	if !ok {
		metrics.PushAttemptsTotal.WithLabelValues(p.frame.Event, "offline").Inc()
		return
	}

	var slow []*Client
	for client := range set {
		select {
		case client.send <- p.frame:
			metrics.PushAttemptsTotal.WithLabelValues(p.frame.Event, "sent").Inc()
		default:
			metrics.PushAttemptsTotal.WithLabelValues(p.frame.Event, "dropped").Inc()
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		delete(set, client)
		close(client.send)
		logging.Warn().
			Str("user_id", p.userID).
			Msg("Realtime client dropped, send buffer full")
	}
	if len(set) == 0 {
		delete(h.clients, p.userID)
	}
}

func (h *Hub) connectionCountLocked() int {
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// release hands a client back to the run loop, or drops it once the hub has
// stopped. readPump defers this; without the done case every connection
// closing after shutdown would block on Unregister forever.
func (h *Hub) release(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.stopOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	conns := 0
	for _, set := range h.clients {
		for client := range set {
			close(client.send)
			conns++
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(0)
	metrics.WebSocketUsersOnline.Set(0)
	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "realtime-hub").
		Str("reason", reason).
		Int("connections_closed", conns).
		Msg("Realtime hub stopped")
}

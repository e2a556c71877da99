// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package wsbridge mirrors monitor availability broadcasts onto WebSocket
// connections, for operator dashboards that want push updates without
// speaking the UDP protocol. It wraps the existing push path rather than
// replacing it: the UDP monitor registry still owns subscriber lifetime,
// and this package only fans broadcasts already computed out to anyone
// who has a socket open.
package wsbridge

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is one event sent to a connected dashboard client.
type Message struct {
	Type      string    `json:"type"`
	Facility  string    `json:"facility,omitempty"`
	Text      string    `json:"text,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub accepts WebSocket connections and fans availability broadcasts out
// to all of them.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// HandleWebSocket upgrades the request and registers the connection until
// it closes or the client disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsbridge: upgrade error: %v", err)
		return
	}

	h.register(conn)
	defer h.unregister(conn)

	h.keepAlive(conn)
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// keepAlive reads (and discards) client frames until the connection
// closes, which is what detects a dead client; dashboards do not send us
// anything meaningful.
func (h *Hub) keepAlive(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast fans an availability change out to every connected client.
// It satisfies the dispatch.BroadcastSink interface.
func (h *Hub) Broadcast(facility, text string) {
	msg := Message{Type: "availability", Facility: facility, Text: text, Timestamp: time.Now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("wsbridge: write error, dropping client: %v", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

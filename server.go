// ABOUTME: WebSocket hub broadcasting message events to connected clients.
// ABOUTME: Accepts HTTP POST message events and forwards them to all clients.

package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow connections from any origin
	},
}

// StreamHub manages WebSocket connections and broadcasts message events.
// SelfID is the identity the watched account posts under; it is announced
// to clients in the hello frame so they can suppress their own messages.
type StreamHub struct {
	token   string
	selfID  string
	clients map[*hubClient]struct{}
	mu      sync.RWMutex
}

// hubClient wraps a connection with a write lock. The websocket package
// allows at most one concurrent writer per connection, and broadcasts
// arrive from concurrent POST handlers.
type hubClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *hubClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewStreamHub creates a hub with the given authentication token.
func NewStreamHub(token, selfID string) *StreamHub {
	return &StreamHub{
		token:   token,
		selfID:  selfID,
		clients: make(map[*hubClient]struct{}),
	}
}

// checkAuth validates the Authorization header against the hub token.
func (s *StreamHub) checkAuth(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	return strings.TrimPrefix(auth, "Bearer ") == s.token
}

// HandleWebSocket upgrades the connection and sends the hello frame.
func (s *StreamHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkAuth(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &hubClient{conn: conn}

	hello, err := EncodeFrame(FrameTypeHello, Hello{SelfID: s.selfID})
	if err != nil {
		conn.Close()
		return
	}
	if err := client.write(hello); err != nil {
		conn.Close()
		return
	}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	log.Printf("Client connected (%d total)", s.ClientCount())

	go s.handleClient(client)
}

// handleClient keeps the connection open and detects disconnection.
// Clients do not send anything meaningful upstream.
func (s *StreamHub) handleClient(client *hubClient) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		s.mu.Unlock()
		client.conn.Close()
		log.Printf("Client disconnected (%d remaining)", s.ClientCount())
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// HandleMessage handles HTTP POST requests that inject message events.
func (s *StreamHub) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	if !s.checkAuth(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var ev MessageEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if ev.SenderID == "" {
		http.Error(w, "senderId required", http.StatusBadRequest)
		return
	}

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	s.Broadcast(ev)
	w.WriteHeader(http.StatusAccepted)
}

// Broadcast sends a message event to all connected clients.
func (s *StreamHub) Broadcast(ev MessageEvent) {
	data, err := EncodeFrame(FrameTypeMessage, ev)
	if err != nil {
		log.Printf("Broadcast: failed to encode message event: %v", err)
		return
	}

	s.mu.RLock()
	clients := make([]*hubClient, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		if err := client.write(data); err != nil {
			log.Printf("Broadcast: failed to send to client: %v", err)
			// Connection will be cleaned up by its read loop
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *StreamHub) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

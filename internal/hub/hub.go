package hub

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Saymum-GS/Awaken-DIU/internal/config"
	"github.com/Saymum-GS/Awaken-DIU/pkg/log"
)

// Hub tracks connected WebSocket clients and delivers outbound events either
// to one identified party (student or volunteer) or to every connection.
type Hub struct {
	clients    map[string]*Client // clientID -> client
	users      map[string]*Client // role:userID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		users:      make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		config:     cfg,
	}
}

func userKey(role, userID string) string {
	return fmt.Sprintf("%s:%s", role, userID)
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				client.Conn.Close()
				delete(h.clients, id)
			}
			h.users = make(map[string]*Client)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str("client_id", client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for key, c := range h.users {
					if c == client {
						delete(h.users, key)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str("client_id", client.ID).Msg("client unregistered")

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- data:
				default:
					go h.removeClient(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BindUser associates a client connection with a party identity. A rebind for
// the same identity replaces the previous connection in the lookup (the newer
// socket wins, matching reconnect behavior).
func (h *Hub) BindUser(client *Client, role, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Drop any stale binding this client held.
	for key, c := range h.users {
		if c == client {
			delete(h.users, key)
		}
	}
	h.users[userKey(role, userID)] = client
	l := log.L()
	l.Info().Str("client_id", client.ID).Str("role", role).Str("user_id", userID).Msg("client identified")
}

// SendToUser delivers an event to one identified party. Returns false when
// the party has no live connection.
func (h *Hub) SendToUser(role, userID string, message interface{}) bool {
	data, err := json.Marshal(message)
	if err != nil {
		return false
	}

	h.mu.RLock()
	client, ok := h.users[userKey(role, userID)]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case client.Send <- data:
		return true
	default:
		go h.removeClient(client)
		return false
	}
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.broadcast <- data
	return nil
}

// Stop closes every client connection and terminates Run().
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}

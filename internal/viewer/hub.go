// Package viewer pushes map changes and notifications to connected browsers.
package viewer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client // clientID -> client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	seq        func() uint64
	presence   *PresenceManager
}

// NewHub creates a hub. seq reports the current map change sequence for
// welcome and sync replies.
func NewHub(seq func() uint64) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		seq:        seq,
		presence:   NewPresenceManager(),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		}
	}
}

// Register adds client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Viewers lists the connected viewers and their last reported view.
func (h *Hub) Viewers() []Presence {
	return h.presence.All()
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.presence.Join(client, time.Now().UTC())
	h.mu.Lock()
	h.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(&Message{Type: TypeWelcome, ClientID: client.ClientID, Seq: h.seq()})
	h.broadcastPresence()
	slog.Info("viewer joined", "client", client.ClientID, "subject", client.Subject)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}
	h.presence.Remove(client.ClientID)
	delete(h.clients, client.ClientID)
	close(client.send)
	h.mu.Unlock()

	h.broadcastPresence()
	slog.Info("viewer left", "client", client.ClientID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
		h.presence.Remove(id)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeSync:
		h.sendTo(sender, LayersChanged(h.seq()))
	case TypePresenceView:
		var v View
		if err := json.Unmarshal(msg.Payload, &v); err != nil {
			slog.Warn("invalid presence payload", "error", err, "client", sender.ClientID)
			return
		}
		if h.presence.UpdateView(sender.ClientID, v) {
			h.broadcastPresence()
		}
	default:
		slog.Warn("unknown viewer message type", "type", msg.Type, "client", sender.ClientID)
	}
}

// Broadcast sends msg to every viewer. Send never blocks, so the read lock
// also keeps clients from being closed mid-send.
func (h *Hub) Broadcast(msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.Send(msg)
	}
}

func (h *Hub) broadcastPresence() {
	if msg := h.presence.StateMessage(); msg != nil {
		h.Broadcast(msg)
	}
}

// sendTo sends to one viewer if it is still registered.
func (h *Hub) sendTo(c *Client, msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.clients[c.ClientID] == c {
		c.Send(msg)
	}
}

package hub

import (
	"expvar"
	"log"
	"sync"
)

var droppedSubscribers = expvar.NewInt("hub_dropped_subscribers_total")

type Client struct {
	ID       string
	TenantID string
	Send     chan []byte
}

// Hub keeps one subscriber registry per tenant. A registry appears when the
// tenant's first subscriber connects and is removed with its last one, so an
// idle tenant costs nothing.
type Hub struct {
	mu      sync.RWMutex
	tenants map[string]map[*Client]struct{}
}

func New() *Hub {
	return &Hub{tenants: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	registry, ok := h.tenants[client.TenantID]
	if !ok {
		registry = make(map[*Client]struct{})
		h.tenants[client.TenantID] = registry
	}
	registry[client] = struct{}{}
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	registry, ok := h.tenants[client.TenantID]
	if !ok {
		return
	}
	if _, present := registry[client]; !present {
		return
	}
	delete(registry, client)
	if len(registry) == 0 {
		delete(h.tenants, client.TenantID)
	}
	close(client.Send)
}

// Broadcast delivers payload to every subscriber of the tenant. A subscriber
// whose queue is full is disconnected instead of slowing the publisher down;
// it will reconnect and start over from a fresh snapshot.
func (h *Hub) Broadcast(tenantID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.tenants[tenantID] {
		select {
		case client.Send <- payload:
		default:
			droppedSubscribers.Add(1)
			log.Printf("hub: dropping slow subscriber %s (tenant %s)", client.ID, tenantID)
			go h.Unregister(client)
		}
	}
}

func (h *Hub) SubscriberCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenants[tenantID])
}

func (h *Hub) TenantCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenants)
}

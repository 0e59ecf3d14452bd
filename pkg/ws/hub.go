// Package ws tracks the bridge connection for each live interview and
// serializes concurrent writers onto it (the notifier pushes from the
// streaming event loop, the proctoring timers, and the warning timer).
package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with a write lock.
type Conn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func Wrap(c *websocket.Conn) *Conn {
	return &Conn{c: c}
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.c.WriteJSON(v)
}

func (c *Conn) Close() error {
	return c.c.Close()
}

// Raw exposes the underlying connection for reads; reads have a single
// owner (the bridge handler) and need no locking.
func (c *Conn) Raw() *websocket.Conn {
	return c.c
}

type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewHub() *Hub {
	return &Hub{conns: map[string]*Conn{}}
}

func (h *Hub) Add(id string, c *Conn) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
}

func (h *Hub) Get(id string) (*Conn, bool) {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	return c, ok
}

func (h *Hub) Remove(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

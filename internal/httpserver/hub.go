package httpserver

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/pairs/internal/game"
)

const clientBuffer = 256

// hubClient is one websocket connection's outbound queue.
type hubClient struct {
	send chan []byte
}

// Hub fans a session's effects out to every connected websocket.
// It is the game.Sink handed to session.New, so Emit runs on the session loop
// and must never block: a client whose queue is full misses the effect.
type Hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

func newHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// Emit encodes e once and queues it for every client.
func (h *Hub) Emit(e game.Effect) {
	b, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("effect", string(e.Type)).Msg("encode effect")
		return
	}
	h.broadcast(b)
}

func (h *Hub) broadcast(b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			log.Warn().Int("queued", len(c.send)).Msg("slow websocket client, effect dropped")
		}
	}
}

func (h *Hub) register() *hubClient {
	c := &hubClient{send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

package web

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// event is the wire frame pushed to dashboard clients.
type event struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

// hub fans events out to connected websocket clients. Slow clients are
// dropped rather than allowed to stall the loop.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	log     zerolog.Logger
}

func newHub(log zerolog.Logger) *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte), log: log}
}

func (h *hub) add(conn *websocket.Conn) {
	send := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	go func() {
		defer h.remove(conn)
		for msg := range send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	conn.Close()
}

func (h *hub) broadcast(typ string, payload any) {
	msg, err := json.Marshal(event{Type: typ, Time: time.Now().UTC(), Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Str("type", typ).Msg("event marshal failed")
		return
	}

	h.mu.Lock()
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			// Buffer full, the client is not keeping up.
			delete(h.clients, conn)
			close(send)
			conn.Close()
		}
	}
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

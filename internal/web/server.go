// Package web serves the monitoring dashboard: JSON endpoints for trades,
// portfolio history, and live status, plus a websocket stream of engine
// events.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"macdbot/internal/state"
	"macdbot/internal/strategy"
)

// BotView is the read-only slice of the engine the dashboard renders.
type BotView interface {
	Positions() map[string]strategy.PositionSnapshot
	RecentPrices(pair string) []strategy.PricePoint
}

// Server exposes the dashboard and implements the engine's Publisher.
type Server struct {
	store *state.Store
	bot   BotView
	hub   *hub
	log   zerolog.Logger
	srv   *http.Server

	mu         sync.Mutex
	lastStatus any
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is same-host tooling, not a public origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewServer builds the dashboard server for addr.
func NewServer(addr string, store *state.Store, bot BotView, log zerolog.Logger) *Server {
	s := &Server{store: store, bot: bot, hub: newHub(log), log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/prices", s.handlePrices)
	mux.HandleFunc("/ws", s.handleWS)

	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start listens in a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("dashboard server stopped")
		}
	}()
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Publish implements engine.Publisher: status events are cached for
// /api/status and everything is forwarded to websocket clients.
func (s *Server) Publish(eventType string, payload any) {
	if eventType == "status" {
		s.mu.Lock()
		s.lastStatus = payload
		s.mu.Unlock()
	}
	s.hub.broadcast(eventType, payload)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.lastStatus
	s.mu.Unlock()

	if status == nil {
		writeJSON(w, map[string]any{
			"ready":     false,
			"positions": s.bot.Positions(),
		})
		return
	}
	writeJSON(w, status)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.Trades(r.Context(), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []state.Trade{}
	}
	writeJSON(w, trades)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.PortfolioHistory(r.Context(), time.Now().UTC().Add(-7*24*time.Hour))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []state.PortfolioPoint{}
	}
	writeJSON(w, points)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		http.Error(w, "pair query parameter is required", http.StatusBadRequest)
		return
	}
	points := s.bot.RecentPrices(pair)
	if points == nil {
		points = []strategy.PricePoint{}
	}
	writeJSON(w, points)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.hub.add(conn)
	// Reader goroutine only to detect close; the dashboard never sends.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.remove(conn)
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

package web

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"stockwatch/internal/tracker/store"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server exposes the snapshot store read-only over HTTP and pushes
// periodic snapshots to WebSocket subscribers. It never mutates the
// store.
type Server struct {
	store        *store.SnapshotStore
	pushInterval time.Duration
	logger       *zap.Logger

	upgrader websocket.Upgrader
	srv      *http.Server
}

func NewServer(addr string, st *store.SnapshotStore, pushInterval time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:        st,
		pushInterval: pushInterval,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/snapshot/", s.handleSymbol)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)

	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start runs the HTTP server until ctx is cancelled, then shuts it
// down. It blocks.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()
	s.logger.Info("web server listening", zap.String("addr", s.srv.Addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.logger, snapshotView(s.store))
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := strings.TrimPrefix(r.URL.Path, "/snapshot/")
	if symbol == "" {
		http.Error(w, "missing symbol", http.StatusBadRequest)
		return
	}

	snap := s.store.Snapshot()
	st, ok := snap[symbol]
	if !ok {
		http.Error(w, "unknown symbol", http.StatusNotFound)
		return
	}
	writeJSON(w, s.logger, newSymbolView(st))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]any{
		"status":      "ok",
		"last_update": s.store.LastUpdate(),
	})
}

// handleWS upgrades the connection and pushes a full snapshot on every
// push interval until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so control messages are processed and a
	// closed peer is noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	// Push an immediate snapshot so subscribers don't wait a full tick.
	if err := conn.WriteJSON(snapshotView(s.store)); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(snapshotView(s.store)); err != nil {
				s.logger.Debug("websocket push ended", zap.Error(err))
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response", zap.Error(err))
	}
}

// SnapshotView is the wire shape of a full store snapshot.
type SnapshotView struct {
	LastUpdate time.Time             `json:"last_update"`
	Symbols    map[string]SymbolView `json:"symbols"`
}

// SymbolView mirrors store.SymbolState with the infinity sentinels
// replaced by null so the payload stays valid JSON.
type SymbolView struct {
	Symbol           string      `json:"symbol"`
	CurrentPrice     float64     `json:"current_price"`
	ChangePercent    float64     `json:"change_percent"`
	ChangePercent24h float64     `json:"change_percent_24h"`
	RecentPrices     []float64   `json:"recent_prices"`
	RecentTimestamps []time.Time `json:"recent_timestamps"`
	History          []PointView `json:"history"`
	RecentMin        *float64    `json:"recent_min,omitempty"`
	RecentMax        *float64    `json:"recent_max,omitempty"`
	HistoryMin       *float64    `json:"history_min,omitempty"`
	HistoryMax       *float64    `json:"history_max,omitempty"`
}

type PointView struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

func snapshotView(st *store.SnapshotStore) SnapshotView {
	snap := st.Snapshot()
	symbols := make(map[string]SymbolView, len(snap))
	for sym, state := range snap {
		symbols[sym] = newSymbolView(state)
	}
	return SnapshotView{
		LastUpdate: st.LastUpdate(),
		Symbols:    symbols,
	}
}

func newSymbolView(st store.SymbolState) SymbolView {
	history := make([]PointView, len(st.HistoryWindow))
	for i, p := range st.HistoryWindow {
		history[i] = PointView{Price: p.Price, Timestamp: p.Timestamp}
	}
	return SymbolView{
		Symbol:           st.Symbol,
		CurrentPrice:     st.CurrentPrice,
		ChangePercent:    st.ChangePercent,
		ChangePercent24h: st.ChangePercent24h,
		RecentPrices:     st.RecentPrices,
		RecentTimestamps: st.RecentTimestamps,
		History:          history,
		RecentMin:        finiteOrNil(st.RecentMin),
		RecentMax:        finiteOrNil(st.RecentMax),
		HistoryMin:       finiteOrNil(st.HistoryMin),
		HistoryMax:       finiteOrNil(st.HistoryMax),
	}
}

func finiteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) {
		return nil
	}
	return &v
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/worldgrid/internal/config"
	"github.com/zeusync/worldgrid/internal/core/grid"
	"github.com/zeusync/worldgrid/internal/core/observability/log"
	"github.com/zeusync/worldgrid/pkg/generic"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Snapshot encoding shares buffers across handlers and stream ticks.
var encodeBuffers = generic.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) })

// Server is the operator-facing debug surface of a world instance. It
// exposes grid occupancy only; the client-facing world-state protocol is a
// different system entirely.
type Server struct {
	addr     string
	interval time.Duration
	grid     *grid.BlockMap
	logger   log.Log

	httpServer *http.Server
}

func New(cfg config.Server, bm *grid.BlockMap, logger log.Log) *Server {
	s := &Server{
		addr:     cfg.Addr,
		interval: cfg.StreamInterval.Std(),
		grid:     bm,
		logger:   logger.With(log.String("component", "debug-server")),
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/live", s.handleLive)
	s.httpServer = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("debug server listening", log.String("addr", s.addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("debug server stopped", log.Error(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	buf := encodeBuffers.Get()
	defer encodeBuffers.Put(buf)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(s.grid.Stats()); err != nil {
		s.logger.Error("stats encode failed", log.Error(err))
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

// handleLive streams periodic Statistics snapshots over a websocket until
// the peer goes away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Debug("live stream opened", log.String("peer", conn.RemoteAddr().String()))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := s.writeSnapshot(conn); err != nil {
			s.logger.Debug("live stream closed", log.Error(err))
			return
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn) error {
	buf := encodeBuffers.Get()
	defer encodeBuffers.Put(buf)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(s.grid.Stats()); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, buf.Bytes())
}

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vitos/market_snapshot/internal/domain"
	"go.uber.org/zap"
)

// SnapshotReader is the read side of the snapshot pipeline.
type SnapshotReader interface {
	LoadInstruments(ctx context.Context) ([]domain.InstrumentRecord, error)
	LoadKlines(ctx context.Context) (domain.KlineSeries, error)
}

// KeyLister is implemented by stores that can enumerate saved keys.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// Server exposes the latest saved snapshots over read-only JSON endpoints.
type Server struct {
	router *http.ServeMux
	server *http.Server
	reader SnapshotReader
	keys   KeyLister
	logger *zap.Logger
}

// NewServer builds the viewer. keys may be nil.
func NewServer(port int, reader SnapshotReader, keys KeyLister, logger *zap.Logger) *Server {
	s := &Server{
		router: http.NewServeMux(),
		reader: reader,
		keys:   keys,
		logger: logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Snapshots
	s.router.HandleFunc("GET /snapshots/instruments", s.handleInstruments)
	s.router.HandleFunc("GET /snapshots/klines", s.handleKlines)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

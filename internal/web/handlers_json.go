package web

import (
	"net/http"

	"github.com/vitos/market_snapshot/internal/domain"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type statusResponse struct {
	Status    string   `json:"status"`
	Snapshots []string `json:"snapshots,omitempty"`
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	records, err := s.reader.LoadInstruments(r.Context())
	if err != nil {
		s.writeLoadError(w, domain.InstrumentsSnapshotKey, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	series, err := s.reader.LoadKlines(r.Context())
	if err != nil {
		s.writeLoadError(w, domain.KlinesSnapshotKey, err)
		return
	}
	s.writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: "ok"}
	if s.keys != nil {
		keys, err := s.keys.Keys(r.Context())
		if err != nil {
			s.logger.Error("Failed to list snapshots", zap.Error(err))
			s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list snapshots", Kind: string(domain.KindOf(err))})
			return
		}
		resp.Snapshots = keys
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeLoadError(w http.ResponseWriter, key string, err error) {
	kind := domain.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindInvalidKey:
		status = http.StatusBadRequest
	default:
		s.logger.Error("Failed to load snapshot", zap.String("key", key), zap.String("kind", string(kind)), zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: string(kind)})
}

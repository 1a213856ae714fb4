package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/market_snapshot/internal/domain"
	"go.uber.org/zap"
)

type MockReader struct {
	Instruments    []domain.InstrumentRecord
	InstrumentsErr error
	Series         domain.KlineSeries
	SeriesErr      error
}

func (m *MockReader) LoadInstruments(ctx context.Context) ([]domain.InstrumentRecord, error) {
	return m.Instruments, m.InstrumentsErr
}

func (m *MockReader) LoadKlines(ctx context.Context) (domain.KlineSeries, error) {
	return m.Series, m.SeriesErr
}

type MockKeys struct {
	Names []string
	Err   error
}

func (m *MockKeys) Keys(ctx context.Context) ([]string, error) {
	return m.Names, m.Err
}

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Instruments(t *testing.T) {
	reader := &MockReader{Instruments: []domain.InstrumentRecord{{
		Symbol: "BTCUSDT", BaseCoin: "BTC", QuoteCoin: "USDT", InnovationFlag: "0", Status: "Trading",
		LotSizeFilter: map[string]any{}, PriceFilter: map[string]any{"tickSize": "0.01"},
	}}}
	s := NewServer(0, reader, nil, zap.NewNop())

	rec := serve(t, s, "/snapshots/instruments")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []domain.InstrumentRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, reader.Instruments, got)
}

func TestServer_Klines(t *testing.T) {
	reader := &MockReader{Series: domain.KlineSeries{Symbol: "BTCUSDT", Interval: "60", Bars: []domain.KlineBar{{
		Symbol: "BTCUSDT", OpenTime: "1700000000000", Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: "10", Turnover: "15",
	}}}}
	s := NewServer(0, reader, nil, zap.NewNop())

	rec := serve(t, s, "/snapshots/klines")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.KlineSeries
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, reader.Series, got)
}

func TestServer_LoadErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   domain.ErrorKind
	}{
		{"not found", &domain.NotFoundError{Key: domain.KlinesSnapshotKey}, http.StatusNotFound, domain.KindNotFound},
		{"corrupt", &domain.CorruptDataError{Key: domain.KlinesSnapshotKey, Reason: "checksum mismatch"}, http.StatusInternalServerError, domain.KindCorruptData},
		{"io", &domain.IOError{Key: domain.KlinesSnapshotKey, Op: "read", Err: errors.New("permission denied")}, http.StatusInternalServerError, domain.KindIO},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewServer(0, &MockReader{SeriesErr: tc.err}, nil, zap.NewNop())

			rec := serve(t, s, "/snapshots/klines")
			assert.Equal(t, tc.status, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tc.kind), body.Kind)
		})
	}
}

func TestServer_Status(t *testing.T) {
	keys := &MockKeys{Names: []string{"instruments_info", "kline_data"}}
	s := NewServer(0, &MockReader{}, keys, zap.NewNop())

	rec := serve(t, s, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","snapshots":["instruments_info","kline_data"]}`, rec.Body.String())

	keys.Err = &domain.IOError{Key: "", Op: "list", Err: errors.New("boom")}
	rec = serve(t, s, "/status")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_RejectsWrites(t *testing.T) {
	s := NewServer(0, &MockReader{}, nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/snapshots/klines", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

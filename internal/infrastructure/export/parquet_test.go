package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/market_snapshot/internal/domain"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
)

// readFile is a read-only parquet source over a byte slice.
type readFile struct {
	data []byte
	*bytes.Reader
}

func newReadFile(data []byte) *readFile { return &readFile{data: data, Reader: bytes.NewReader(data)} }

func (r *readFile) Create(string) (source.ParquetFile, error) { return nil, os.ErrPermission }
func (r *readFile) Open(string) (source.ParquetFile, error)   { return newReadFile(r.data), nil }
func (r *readFile) Write([]byte) (int, error)                 { return 0, os.ErrPermission }
func (r *readFile) Close() error                              { return nil }

func TestExportKlines(t *testing.T) {
	exp, err := NewParquetExporter(t.TempDir(), "snappy")
	require.NoError(t, err)

	series := domain.KlineSeries{
		Symbol:   "BTCUSDT",
		Interval: "60",
		Bars: []domain.KlineBar{
			{Symbol: "BTCUSDT", OpenTime: "1700003600000", Open: "37000.5", High: "37100", Low: "36950.25", Close: "37050", Volume: "12.5", Turnover: "462500.1"},
			{Symbol: "BTCUSDT", OpenTime: "1700000000000", Open: "36900", High: "37010", Low: "36880", Close: "37000.5", Volume: "8.25", Turnover: "304500"},
		},
	}
	path, err := exp.ExportKlines(domain.KlinesSnapshotKey, series)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(exp.dir, "kline_data.parquet"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	pr, err := reader.NewParquetReader(newReadFile(data), new(klineRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	require.Equal(t, 2, n)
	rows := make([]klineRow, n)
	require.NoError(t, pr.Read(&rows))
	assert.Equal(t, "1700003600000", rows[0].OpenTime)
	assert.Equal(t, "60", rows[1].Interval)
	assert.Equal(t, "37000.5", rows[1].Close)
}

func TestExportInstruments(t *testing.T) {
	exp, err := NewParquetExporter(t.TempDir(), "")
	require.NoError(t, err)

	records := []domain.InstrumentRecord{{
		Symbol:         "BTCUSDT",
		BaseCoin:       "BTC",
		QuoteCoin:      "USDT",
		InnovationFlag: "0",
		Status:         "Trading",
		LotSizeFilter:  map[string]any{"minOrderQty": "0.000048"},
		PriceFilter:    map[string]any{"tickSize": "0.01"},
	}}
	path, err := exp.ExportInstruments(domain.InstrumentsSnapshotKey, records)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	pr, err := reader.NewParquetReader(newReadFile(data), new(instrumentRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	rows := make([]instrumentRow, pr.GetNumRows())
	require.NoError(t, pr.Read(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "BTCUSDT", rows[0].Symbol)
	assert.JSONEq(t, `{"tickSize":"0.01"}`, rows[0].PriceFilter)

	entries, err := os.ReadDir(exp.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewParquetExporter_BadCompression(t *testing.T) {
	_, err := NewParquetExporter(t.TempDir(), "zstd-9000")
	assert.Error(t, err)
}

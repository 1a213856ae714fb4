package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vitos/market_snapshot/internal/domain"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

type instrumentRow struct {
	Symbol         string `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	BaseCoin       string `parquet:"name=base_coin, type=BYTE_ARRAY, convertedtype=UTF8"`
	QuoteCoin      string `parquet:"name=quote_coin, type=BYTE_ARRAY, convertedtype=UTF8"`
	InnovationFlag string `parquet:"name=innovation_flag, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status         string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	LotSizeFilter  string `parquet:"name=lot_size_filter, type=BYTE_ARRAY, convertedtype=UTF8"`
	PriceFilter    string `parquet:"name=price_filter, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// klineRow keeps the exchange text for every value, like KlineBar.
type klineRow struct {
	Symbol   string `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Interval string `parquet:"name=interval, type=BYTE_ARRAY, convertedtype=UTF8"`
	OpenTime string `parquet:"name=open_time, type=BYTE_ARRAY, convertedtype=UTF8"`
	Open     string `parquet:"name=open, type=BYTE_ARRAY, convertedtype=UTF8"`
	High     string `parquet:"name=high, type=BYTE_ARRAY, convertedtype=UTF8"`
	Low      string `parquet:"name=low, type=BYTE_ARRAY, convertedtype=UTF8"`
	Close    string `parquet:"name=close, type=BYTE_ARRAY, convertedtype=UTF8"`
	Volume   string `parquet:"name=volume, type=BYTE_ARRAY, convertedtype=UTF8"`
	Turnover string `parquet:"name=turnover, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// memFile is a write-only parquet sink backed by a buffer.
type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile { return &memFile{buffer: &bytes.Buffer{}} }

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// ParquetExporter writes record sets as parquet files, one per key.
type ParquetExporter struct {
	dir         string
	compression parquet.CompressionCodec
}

func NewParquetExporter(dir, compression string) (*ParquetExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %s: %w", dir, err)
	}

	codec := parquet.CompressionCodec_UNCOMPRESSED
	switch strings.ToLower(compression) {
	case "snappy":
		codec = parquet.CompressionCodec_SNAPPY
	case "gzip":
		codec = parquet.CompressionCodec_GZIP
	case "", "none", "uncompressed":
	default:
		return nil, fmt.Errorf("unsupported parquet compression %q", compression)
	}
	return &ParquetExporter{dir: dir, compression: codec}, nil
}

func (e *ParquetExporter) Path(key string) string {
	return filepath.Join(e.dir, key+".parquet")
}

func (e *ParquetExporter) ExportInstruments(key string, records []domain.InstrumentRecord) (string, error) {
	rows := make([]any, 0, len(records))
	for _, r := range records {
		lot, err := json.Marshal(r.LotSizeFilter)
		if err != nil {
			return "", fmt.Errorf("encode lot size filter for %s: %w", r.Symbol, err)
		}
		price, err := json.Marshal(r.PriceFilter)
		if err != nil {
			return "", fmt.Errorf("encode price filter for %s: %w", r.Symbol, err)
		}
		rows = append(rows, instrumentRow{
			Symbol:         r.Symbol,
			BaseCoin:       r.BaseCoin,
			QuoteCoin:      r.QuoteCoin,
			InnovationFlag: r.InnovationFlag,
			Status:         r.Status,
			LotSizeFilter:  string(lot),
			PriceFilter:    string(price),
		})
	}
	return e.write(key, new(instrumentRow), rows)
}

func (e *ParquetExporter) ExportKlines(key string, series domain.KlineSeries) (string, error) {
	rows := make([]any, 0, len(series.Bars))
	for _, b := range series.Bars {
		rows = append(rows, klineRow{
			Symbol:   b.Symbol,
			Interval: series.Interval,
			OpenTime: b.OpenTime,
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			Volume:   b.Volume,
			Turnover: b.Turnover,
		})
	}
	return e.write(key, new(klineRow), rows)
}

func (e *ParquetExporter) write(key string, schema any, rows []any) (string, error) {
	mem := newMemFile()
	pw, err := writer.NewParquetWriter(mem, schema, 1)
	if err != nil {
		return "", fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = e.compression

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return "", fmt.Errorf("write %s record: %w", key, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return "", fmt.Errorf("finalize %s parquet: %w", key, err)
	}

	target := e.Path(key)
	tmp := filepath.Join(e.dir, "."+key+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, mem.Bytes(), 0o644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("replace %s: %w", target, err)
	}
	return target, nil
}

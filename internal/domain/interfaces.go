package domain

import (
	"context"
	"encoding/json"
)

// MarketDataSource is the read-only exchange surface the snapshot pipeline needs.
// Both methods return the raw elements of result.list.
type MarketDataSource interface {
	FetchInstruments(ctx context.Context, symbol string, limit int) ([]json.RawMessage, error)
	FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]json.RawMessage, error)
}

// SnapshotStore persists whole values under a key. Save replaces any previous
// value atomically; Load decodes into dst, which must be a pointer.
type SnapshotStore interface {
	Save(ctx context.Context, key string, value any) error
	Load(ctx context.Context, key string, dst any) error
}

// Snapshot keys used by the pipeline.
const (
	InstrumentsSnapshotKey = "instruments_info"
	KlinesSnapshotKey      = "kline_data"
)

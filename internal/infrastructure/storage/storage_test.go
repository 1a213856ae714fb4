package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/market_snapshot/internal/domain"
)

func sampleInstruments() []domain.InstrumentRecord {
	return []domain.InstrumentRecord{
		{
			Symbol:         "BTCUSDT",
			BaseCoin:       "BTC",
			QuoteCoin:      "USDT",
			InnovationFlag: "0",
			Status:         "Trading",
			LotSizeFilter:  map[string]any{"basePrecision": "0.000001", "maxOrderQty": "71.73956243"},
			PriceFilter:    map[string]any{"tickSize": "0.01"},
		},
		{
			Symbol:         "ETHUSDT",
			BaseCoin:       "ETH",
			QuoteCoin:      "USDT",
			InnovationFlag: "0",
			Status:         "Trading",
			LotSizeFilter:  map[string]any{},
			PriceFilter:    map[string]any{"tickSize": "0.01"},
		},
	}
}

func sampleSeries() domain.KlineSeries {
	return domain.KlineSeries{
		Symbol:   "BTCUSDT",
		Interval: "60",
		Bars: []domain.KlineBar{
			{Symbol: "BTCUSDT", OpenTime: "1700003600000", Open: "37000.5", High: "37100", Low: "36950.25", Close: "37050", Volume: "12.5", Turnover: "462500.1"},
			{Symbol: "BTCUSDT", OpenTime: "1700000000000", Open: "36900", High: "37010", Low: "36880", Close: "37000.5", Volume: "8.25", Turnover: "304500"},
		},
	}
}

// storeContract runs the behaviour every domain.SnapshotStore backend must share.
func storeContract(t *testing.T, newStore func(t *testing.T) domain.SnapshotStore) {
	ctx := context.Background()

	t.Run("round trip instruments", func(t *testing.T) {
		store := newStore(t)
		in := sampleInstruments()
		require.NoError(t, store.Save(ctx, domain.InstrumentsSnapshotKey, in))

		var out []domain.InstrumentRecord
		require.NoError(t, store.Load(ctx, domain.InstrumentsSnapshotKey, &out))
		assert.Equal(t, in, out)
	})

	t.Run("numeric filters keep literal text", func(t *testing.T) {
		store := newStore(t)
		in := []domain.InstrumentRecord{{
			Symbol:         "BTCUSDT",
			BaseCoin:       "BTC",
			QuoteCoin:      "USDT",
			InnovationFlag: "0",
			Status:         "Trading",
			LotSizeFilter:  map[string]any{"maxOrderQty": json.Number("9007199254740993"), "basePrecision": json.Number("0.10")},
			PriceFilter:    map[string]any{"tickSize": json.Number("1e400")},
		}}
		require.NoError(t, store.Save(ctx, domain.InstrumentsSnapshotKey, in))

		var out []domain.InstrumentRecord
		require.NoError(t, store.Load(ctx, domain.InstrumentsSnapshotKey, &out))
		assert.Equal(t, in, out)
	})

	t.Run("round trip klines", func(t *testing.T) {
		store := newStore(t)
		in := sampleSeries()
		require.NoError(t, store.Save(ctx, domain.KlinesSnapshotKey, in))

		var out domain.KlineSeries
		require.NoError(t, store.Load(ctx, domain.KlinesSnapshotKey, &out))
		assert.Equal(t, in, out)
	})

	t.Run("not found", func(t *testing.T) {
		store := newStore(t)
		var out []domain.InstrumentRecord
		err := store.Load(ctx, "never_saved", &out)
		var nf *domain.NotFoundError
		require.True(t, errors.As(err, &nf), "got %v", err)
		assert.Equal(t, "never_saved", nf.Key)
	})

	t.Run("overwrite", func(t *testing.T) {
		store := newStore(t)
		first := sampleInstruments()
		second := first[1:]
		require.NoError(t, store.Save(ctx, "k", first))
		require.NoError(t, store.Save(ctx, "k", second))

		var out []domain.InstrumentRecord
		require.NoError(t, store.Load(ctx, "k", &out))
		assert.Equal(t, second, out)
	})

	t.Run("invalid key", func(t *testing.T) {
		store := newStore(t)
		for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
			err := store.Save(ctx, key, 1)
			assert.Equal(t, domain.KindInvalidKey, domain.KindOf(err), "key %q", key)
		}
	})
}

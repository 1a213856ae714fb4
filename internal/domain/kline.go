package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// KlineBar holds one candle exactly as the exchange returned it.
// Values stay raw strings; call Parse for typed access.
type KlineBar struct {
	Symbol   string `json:"symbol"`
	OpenTime string `json:"open_time"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
	Turnover string `json:"turnover"`
}

// Tuple returns the bar fields in exchange order:
// [startTime, open, high, low, close, volume, turnover].
func (b KlineBar) Tuple() [7]string {
	return [7]string{b.OpenTime, b.Open, b.High, b.Low, b.Close, b.Volume, b.Turnover}
}

// ParsedBar is a KlineBar with numeric fields decoded.
type ParsedBar struct {
	Symbol   string
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
	Turnover decimal.Decimal
}

func (b KlineBar) Parse() (ParsedBar, error) {
	ms, err := strconv.ParseInt(b.OpenTime, 10, 64)
	if err != nil {
		return ParsedBar{}, fmt.Errorf("parse open time %q: %w", b.OpenTime, err)
	}

	p := ParsedBar{Symbol: b.Symbol, OpenTime: time.UnixMilli(ms).UTC()}
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", b.Open, &p.Open},
		{"high", b.High, &p.High},
		{"low", b.Low, &p.Low},
		{"close", b.Close, &p.Close},
		{"volume", b.Volume, &p.Volume},
		{"turnover", b.Turnover, &p.Turnover},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return ParsedBar{}, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return p, nil
}

// KlineSeries is the persisted shape of one kline fetch: a single symbol
// and interval, bars in the order the exchange sent them (newest first).
type KlineSeries struct {
	Symbol   string     `json:"symbol"`
	Interval string     `json:"interval"`
	Bars     []KlineBar `json:"bars"`
}

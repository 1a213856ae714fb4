package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vitos/market_snapshot/internal/domain"
)

// Exchange keys of an instruments-info list element, in record order.
const (
	keySymbol        = "symbol"
	keyBaseCoin      = "baseCoin"
	keyQuoteCoin     = "quoteCoin"
	keyInnovation    = "innovation"
	keyStatus        = "status"
	keyLotSizeFilter = "lotSizeFilter"
	keyPriceFilter   = "priceFilter"
)

// Kline row layout: [startTime, open, high, low, close, volume, turnover].
var klineKeys = [7]string{"startTime", "open", "high", "low", "close", "volume", "turnover"}

// NormalizeInstruments maps raw instruments-info elements onto InstrumentRecord,
// keeping input order. Any element lacking a required key fails the whole call.
func NormalizeInstruments(raw []json.RawMessage) ([]domain.InstrumentRecord, error) {
	records := make([]domain.InstrumentRecord, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for i, item := range raw {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			return nil, &domain.MalformedRowError{Index: i, Reason: "instrument is not a JSON object"}
		}

		rec := domain.InstrumentRecord{}
		strFields := []struct {
			key string
			dst *string
		}{
			{keySymbol, &rec.Symbol},
			{keyBaseCoin, &rec.BaseCoin},
			{keyQuoteCoin, &rec.QuoteCoin},
			{keyInnovation, &rec.InnovationFlag},
			{keyStatus, &rec.Status},
		}
		for _, f := range strFields {
			v, err := stringField(obj, i, f.key)
			if err != nil {
				return nil, err
			}
			*f.dst = v
		}

		var err error
		if rec.LotSizeFilter, err = objectField(obj, i, keyLotSizeFilter); err != nil {
			return nil, err
		}
		if rec.PriceFilter, err = objectField(obj, i, keyPriceFilter); err != nil {
			return nil, err
		}

		if _, dup := seen[rec.Symbol]; dup {
			return nil, &domain.DuplicateSymbolError{Index: i, Symbol: rec.Symbol}
		}
		seen[rec.Symbol] = struct{}{}
		records = append(records, rec)
	}
	return records, nil
}

// NormalizeKlines maps raw kline rows onto KlineBar, attaching symbol to every
// bar. Rows may be positional arrays or objects keyed like the websocket feed.
// Values are kept as the exchange's text.
func NormalizeKlines(raw []json.RawMessage, symbol string) ([]domain.KlineBar, error) {
	bars := make([]domain.KlineBar, 0, len(raw))
	for i, row := range raw {
		fields, err := klineFields(row, i)
		if err != nil {
			return nil, err
		}
		bars = append(bars, domain.KlineBar{
			Symbol:   symbol,
			OpenTime: fields[0],
			Open:     fields[1],
			High:     fields[2],
			Low:      fields[3],
			Close:    fields[4],
			Volume:   fields[5],
			Turnover: fields[6],
		})
	}
	return bars, nil
}

func klineFields(row json.RawMessage, index int) ([7]string, error) {
	var out [7]string
	trimmed := bytes.TrimSpace(row)
	if len(trimmed) == 0 {
		return out, &domain.MalformedRowError{Index: index, Reason: "empty row"}
	}

	switch trimmed[0] {
	case '[':
		var values []json.RawMessage
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return out, &domain.MalformedRowError{Index: index, Reason: err.Error()}
		}
		if len(values) != len(out) {
			return out, &domain.MalformedRowError{
				Index:  index,
				Arity:  len(values),
				Reason: fmt.Sprintf("expected %d fields", len(out)),
			}
		}
		for j, v := range values {
			s, ok := scalarText(v)
			if !ok {
				return out, &domain.MalformedRowError{Index: index, Arity: len(values), Reason: fmt.Sprintf("field %s is not a string or number", klineKeys[j])}
			}
			out[j] = s
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return out, &domain.MalformedRowError{Index: index, Reason: err.Error()}
		}
		for j, key := range klineKeys {
			v, ok := obj[key]
			if !ok {
				return out, &domain.MalformedRowError{Index: index, Arity: len(obj), Reason: fmt.Sprintf("missing key %s", key)}
			}
			s, ok := scalarText(v)
			if !ok {
				return out, &domain.MalformedRowError{Index: index, Arity: len(obj), Reason: fmt.Sprintf("field %s is not a string or number", key)}
			}
			out[j] = s
		}
	default:
		return out, &domain.MalformedRowError{Index: index, Reason: "row is neither an array nor an object"}
	}
	return out, nil
}

// scalarText returns a JSON string's value, or a JSON number's literal text.
func scalarText(v json.RawMessage) (string, bool) {
	if isNull(v) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func stringField(obj map[string]json.RawMessage, index int, key string) (string, error) {
	v, ok := obj[key]
	if !ok || isNull(v) {
		return "", &domain.MissingFieldError{Index: index, Field: key, Reason: "is missing"}
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", &domain.MissingFieldError{Index: index, Field: key, Reason: "is not a string"}
	}
	return s, nil
}

func objectField(obj map[string]json.RawMessage, index int, key string) (map[string]any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, &domain.MissingFieldError{Index: index, Field: key, Reason: "is missing"}
	}
	// Numbers stay json.Number so the filter keeps the exchange's exact text.
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, &domain.MissingFieldError{Index: index, Field: key, Reason: "is not an object"}
	}
	return m, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

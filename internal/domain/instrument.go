package domain

// InstrumentRecord is one tradable spot symbol as listed by instruments-info.
// LotSizeFilter and PriceFilter are passed through verbatim; their shape
// differs per instrument type and nothing downstream interprets them.
type InstrumentRecord struct {
	Symbol         string         `json:"symbol"`
	BaseCoin       string         `json:"base_coin"`
	QuoteCoin      string         `json:"quote_coin"`
	InnovationFlag string         `json:"innovation_flag"`
	Status         string         `json:"status"`
	LotSizeFilter  map[string]any `json:"lot_size_filter"`
	PriceFilter    map[string]any `json:"price_filter"`
}

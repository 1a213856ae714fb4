package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/market_snapshot/internal/config"
	"github.com/vitos/market_snapshot/internal/domain"
	"github.com/vitos/market_snapshot/internal/infrastructure/exchange"
	"github.com/vitos/market_snapshot/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	symbol := flag.String("symbol", "", "kline symbol (defaults to fetch.kline_symbol)")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *symbol == "" {
		*symbol = cfg.Fetch.KlineSymbol
	}

	fmt.Printf("Testing %s Interaction...\n", cfg.Exchange.Name)
	fmt.Printf("Endpoint: %s\n", cfg.Exchange.RESTEndpoint)

	adapter := exchange.NewBybitAdapter(nil,
		exchange.WithBaseURL(cfg.Exchange.RESTEndpoint),
		exchange.WithTimeout(cfg.Exchange.Timeout),
	)
	ctx := context.Background()
	failed := false

	// 2. Instruments
	raw, err := adapter.FetchInstruments(ctx, *symbol, 1)
	if err != nil {
		fmt.Printf("❌ Failed to get instruments [%s]: %v\n", domain.KindOf(err), err)
		failed = true
	} else if records, err := usecase.NormalizeInstruments(raw); err != nil {
		fmt.Printf("❌ Instruments did not normalize [%s]: %v\n", domain.KindOf(err), err)
		failed = true
	} else {
		fmt.Printf("✅ Instrument (%s): base=%s quote=%s status=%s\n",
			records[0].Symbol, records[0].BaseCoin, records[0].QuoteCoin, records[0].Status)
	}

	// 3. Klines
	raw, err = adapter.FetchKlines(ctx, *symbol, cfg.Fetch.KlineInterval, 1)
	if err != nil {
		fmt.Printf("❌ Failed to get klines [%s]: %v\n", domain.KindOf(err), err)
		failed = true
	} else if bars, err := usecase.NormalizeKlines(raw, *symbol); err != nil {
		fmt.Printf("❌ Klines did not normalize [%s]: %v\n", domain.KindOf(err), err)
		failed = true
	} else {
		row, _ := json.Marshal(bars[0].Tuple())
		fmt.Printf("✅ Latest kline (%s, %s): %s\n", *symbol, cfg.Fetch.KlineInterval, row)
	}

	if failed {
		os.Exit(1)
	}
}

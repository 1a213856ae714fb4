package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/market_snapshot/internal/config"
	"github.com/vitos/market_snapshot/internal/domain"
	"github.com/vitos/market_snapshot/internal/infrastructure/storage"
	"github.com/vitos/market_snapshot/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	bars := flag.Int("bars", 5, "number of klines to print")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		fmt.Printf("Failed to open %s storage: %v\n", cfg.Storage.Backend, err)
		os.Exit(1)
	}
	defer store.Close()

	keys, err := store.Keys(ctx)
	if err != nil {
		fmt.Printf("Failed to list snapshots: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d snapshots in %s storage: %v\n", len(keys), cfg.Storage.Backend, keys)

	svc := usecase.NewSnapshotService(nil, store, nil, nil)

	instruments, err := svc.LoadInstruments(ctx)
	if err != nil {
		fmt.Printf("❌ %s [%s]: %v\n", domain.InstrumentsSnapshotKey, domain.KindOf(err), err)
	} else {
		fmt.Printf("✅ %s: %d instruments\n", domain.InstrumentsSnapshotKey, len(instruments))
		for _, rec := range instruments {
			fmt.Printf("- %s %s/%s status=%s innovation=%s\n",
				rec.Symbol, rec.BaseCoin, rec.QuoteCoin, rec.Status, rec.InnovationFlag)
		}
	}

	series, err := svc.LoadKlines(ctx)
	if err != nil {
		fmt.Printf("❌ %s [%s]: %v\n", domain.KlinesSnapshotKey, domain.KindOf(err), err)
		return
	}
	fmt.Printf("✅ %s: %d bars for %s (interval %s)\n", domain.KlinesSnapshotKey, len(series.Bars), series.Symbol, series.Interval)
	for i, b := range series.Bars {
		if i >= *bars {
			break
		}
		p, err := b.Parse()
		if err != nil {
			fmt.Printf("  ⚠️ %v: %v\n", b.Tuple(), err)
			continue
		}
		fmt.Printf("- %s O=%s H=%s L=%s C=%s V=%s\n",
			p.OpenTime.Format("2006-01-02 15:04"), p.Open, p.High, p.Low, p.Close, p.Volume)
	}
}

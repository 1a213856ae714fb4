package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vitos/market_snapshot/internal/config"
	"github.com/vitos/market_snapshot/internal/infrastructure/credentials"
	"github.com/vitos/market_snapshot/internal/infrastructure/exchange"
	"github.com/vitos/market_snapshot/internal/infrastructure/export"
	"github.com/vitos/market_snapshot/internal/infrastructure/logger"
	"github.com/vitos/market_snapshot/internal/infrastructure/storage"
	"github.com/vitos/market_snapshot/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		// stage failures are already logged by the service with stage and kind
		var stageErr *usecase.StageError
		if !errors.As(err, &stageErr) {
			log.Error("Snapshot failed", zap.Error(err))
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting snapshot",
		zap.String("exchange", cfg.Exchange.Name),
		zap.String("endpoint", cfg.Exchange.RESTEndpoint),
		zap.String("storage", cfg.Storage.Backend))

	// 3. Init Credentials
	auth, err := authorizer(cfg, log)
	if err != nil {
		return err
	}

	// 4. Init Exchange (Bybit)
	adapter := exchange.NewBybitAdapter(auth,
		exchange.WithBaseURL(cfg.Exchange.RESTEndpoint),
		exchange.WithTimeout(cfg.Exchange.Timeout),
		exchange.WithRetry(cfg.Exchange.Retry.MaxAttempts, cfg.Exchange.Retry.InitialBackoff),
		exchange.WithLogger(log.Named("bybit")),
	)

	// 5. Init Storage
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	defer store.Close()

	// 6. Init Export
	var exporter usecase.Exporter
	if cfg.Export.Parquet.Enabled {
		pq, err := export.NewParquetExporter(cfg.Export.Parquet.Dir, cfg.Export.Parquet.Compression)
		if err != nil {
			return fmt.Errorf("init parquet export: %w", err)
		}
		exporter = pq
	}

	// 7. Run
	svc := usecase.NewSnapshotService(adapter, store, exporter, log)
	report, err := svc.Run(ctx, usecase.RunParams{
		InstrumentSymbol: cfg.Fetch.InstrumentSymbol,
		InstrumentLimit:  cfg.Fetch.InstrumentLimit,
		KlineSymbol:      cfg.Fetch.KlineSymbol,
		KlineInterval:    cfg.Fetch.KlineInterval,
		KlineLimit:       cfg.Fetch.KlineLimit,
		SkipEmpty:        cfg.Fetch.SkipEmpty,
		Verify:           cfg.Fetch.Verify,
	})
	if err != nil {
		return err
	}

	for _, st := range report.Stages {
		if st.Skipped {
			fmt.Printf("%-12s %-18s skipped (no data)\n", st.Stage, st.Key)
			continue
		}
		fmt.Printf("%-12s %-18s %d records\n", st.Stage, st.Key, st.Records)
		if st.Export != "" {
			fmt.Printf("%-12s %-18s exported to %s\n", "", "", st.Export)
		}
	}
	return nil
}

// authorizer returns nil when no key pair is configured; market endpoints are public.
func authorizer(cfg *config.Config, log *zap.Logger) (exchange.Authorizer, error) {
	creds, err := credentials.Load(cfg.Exchange.EnvFile, credentials.Credentials{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
	})
	if errors.Is(err, credentials.ErrMissingCredentials) {
		log.Warn("No API credentials configured, sending unauthenticated requests")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return credentials.PlainHeaders{Credentials: creds}, nil
}

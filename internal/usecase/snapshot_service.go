package usecase

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/vitos/market_snapshot/internal/domain"
	"go.uber.org/zap"
)

// Pipeline stages, as reported in StageError and RunReport.
const (
	StageInstruments = "instruments"
	StageKlines      = "klines"
	StageVerify      = "verify"
	StageExport      = "export"
)

// Exporter writes record sets in an additional columnar format.
type Exporter interface {
	ExportInstruments(key string, records []domain.InstrumentRecord) (string, error)
	ExportKlines(key string, series domain.KlineSeries) (string, error)
}

type RunParams struct {
	InstrumentSymbol string
	InstrumentLimit  int
	KlineSymbol      string
	KlineInterval    string
	KlineLimit       int
	// SkipEmpty treats an EmptyResultError as "no data" for that stage
	// instead of aborting the run.
	SkipEmpty bool
	Verify    bool
}

type StageResult struct {
	Stage   string
	Key     string
	Records int
	Skipped bool
	Export  string
}

type RunReport struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Stages   []StageResult
}

// StageError names the pipeline stage an unrecovered failure came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Kind is the taxonomy name of the underlying failure.
func (e *StageError) Kind() domain.ErrorKind { return domain.KindOf(e.Err) }

// SnapshotService runs fetch -> normalize -> save for instruments and klines.
type SnapshotService struct {
	source   domain.MarketDataSource
	store    domain.SnapshotStore
	exporter Exporter
	logger   *zap.Logger
	timeNow  func() time.Time
}

// NewSnapshotService wires the pipeline. exporter may be nil.
func NewSnapshotService(source domain.MarketDataSource, store domain.SnapshotStore, exporter Exporter, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		source:   source,
		store:    store,
		exporter: exporter,
		logger:   logger,
		timeNow:  time.Now,
	}
}

func (s *SnapshotService) Run(ctx context.Context, p RunParams) (*RunReport, error) {
	report := &RunReport{RunID: uuid.NewString(), Started: s.timeNow()}
	log := s.logger.With(zap.String("run_id", report.RunID))
	log.Info("Snapshot run started",
		zap.String("kline_symbol", p.KlineSymbol),
		zap.String("interval", p.KlineInterval),
		zap.Int("kline_limit", p.KlineLimit))

	instruments, res, err := s.instrumentsStage(ctx, p)
	if err != nil {
		return report, s.fail(log, StageInstruments, err)
	}
	report.Stages = append(report.Stages, res)
	s.logStage(log, res)

	series, res, err := s.klinesStage(ctx, p)
	if err != nil {
		return report, s.fail(log, StageKlines, err)
	}
	report.Stages = append(report.Stages, res)
	s.logStage(log, res)

	if p.Verify {
		if err := s.verify(ctx, report.Stages, instruments, series); err != nil {
			return report, s.fail(log, StageVerify, err)
		}
		log.Info("Snapshots verified")
	}

	if s.exporter != nil {
		if err := s.export(report.Stages, instruments, series); err != nil {
			return report, s.fail(log, StageExport, err)
		}
	}

	report.Finished = s.timeNow()
	log.Info("Snapshot run finished", zap.Duration("elapsed", report.Finished.Sub(report.Started)))
	return report, nil
}

func (s *SnapshotService) instrumentsStage(ctx context.Context, p RunParams) ([]domain.InstrumentRecord, StageResult, error) {
	res := StageResult{Stage: StageInstruments, Key: domain.InstrumentsSnapshotKey}

	raw, err := s.source.FetchInstruments(ctx, p.InstrumentSymbol, p.InstrumentLimit)
	if p.SkipEmpty && domain.IsEmptyResult(err) {
		res.Skipped = true
		return nil, res, nil
	}
	if err != nil {
		return nil, res, fmt.Errorf("fetch instruments: %w", err)
	}

	records, err := NormalizeInstruments(raw)
	if err != nil {
		return nil, res, fmt.Errorf("normalize instruments: %w", err)
	}
	if err := s.store.Save(ctx, res.Key, records); err != nil {
		return nil, res, fmt.Errorf("save instruments: %w", err)
	}
	res.Records = len(records)
	return records, res, nil
}

func (s *SnapshotService) klinesStage(ctx context.Context, p RunParams) (domain.KlineSeries, StageResult, error) {
	res := StageResult{Stage: StageKlines, Key: domain.KlinesSnapshotKey}
	series := domain.KlineSeries{Symbol: p.KlineSymbol, Interval: p.KlineInterval}

	raw, err := s.source.FetchKlines(ctx, p.KlineSymbol, p.KlineInterval, p.KlineLimit)
	if p.SkipEmpty && domain.IsEmptyResult(err) {
		res.Skipped = true
		return series, res, nil
	}
	if err != nil {
		return series, res, fmt.Errorf("fetch klines: %w", err)
	}

	bars, err := NormalizeKlines(raw, p.KlineSymbol)
	if err != nil {
		return series, res, fmt.Errorf("normalize klines: %w", err)
	}
	series.Bars = bars
	if err := s.store.Save(ctx, res.Key, series); err != nil {
		return series, res, fmt.Errorf("save klines: %w", err)
	}
	res.Records = len(bars)
	return series, res, nil
}

// verify reloads what was just saved and checks it matches what was written.
func (s *SnapshotService) verify(ctx context.Context, stages []StageResult, instruments []domain.InstrumentRecord, series domain.KlineSeries) error {
	for _, st := range stages {
		if st.Skipped {
			continue
		}
		switch st.Stage {
		case StageInstruments:
			loaded, err := s.LoadInstruments(ctx)
			if err != nil {
				return err
			}
			if !reflect.DeepEqual(loaded, instruments) {
				return fmt.Errorf("reloaded %s differs from saved records", st.Key)
			}
		case StageKlines:
			loaded, err := s.LoadKlines(ctx)
			if err != nil {
				return err
			}
			if !reflect.DeepEqual(loaded, series) {
				return fmt.Errorf("reloaded %s differs from saved series", st.Key)
			}
		}
	}
	return nil
}

func (s *SnapshotService) export(stages []StageResult, instruments []domain.InstrumentRecord, series domain.KlineSeries) error {
	for i := range stages {
		st := &stages[i]
		if st.Skipped {
			continue
		}
		var (
			path string
			err  error
		)
		switch st.Stage {
		case StageInstruments:
			path, err = s.exporter.ExportInstruments(st.Key, instruments)
		case StageKlines:
			path, err = s.exporter.ExportKlines(st.Key, series)
		}
		if err != nil {
			return fmt.Errorf("export %s: %w", st.Key, err)
		}
		st.Export = path
	}
	return nil
}

func (s *SnapshotService) LoadInstruments(ctx context.Context) ([]domain.InstrumentRecord, error) {
	var records []domain.InstrumentRecord
	if err := s.store.Load(ctx, domain.InstrumentsSnapshotKey, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *SnapshotService) LoadKlines(ctx context.Context) (domain.KlineSeries, error) {
	var series domain.KlineSeries
	if err := s.store.Load(ctx, domain.KlinesSnapshotKey, &series); err != nil {
		return domain.KlineSeries{}, err
	}
	return series, nil
}

func (s *SnapshotService) fail(log *zap.Logger, stage string, err error) error {
	stageErr := &StageError{Stage: stage, Err: err}
	log.Error("Snapshot run failed",
		zap.String("stage", stage),
		zap.String("kind", string(stageErr.Kind())),
		zap.Error(err))
	return stageErr
}

func (s *SnapshotService) logStage(log *zap.Logger, res StageResult) {
	if res.Skipped {
		log.Warn("No data returned, snapshot left unchanged",
			zap.String("stage", res.Stage),
			zap.String("key", res.Key))
		return
	}
	log.Info("Snapshot saved",
		zap.String("stage", res.Stage),
		zap.String("key", res.Key),
		zap.Int("records", res.Records))
}

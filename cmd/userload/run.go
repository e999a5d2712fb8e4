// This file holds the run itself: load one CSV snapshot, clean it, then hand
// the survivors to the CSV sink and the store sink. The CLI layer in main.go
// only builds the config, logger and metrics backend around it.
package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"userload/internal/cleaning"
	"userload/internal/config"
	"userload/internal/datasource"
	"userload/internal/datasource/file"
	"userload/internal/datasource/httpds"
	"userload/internal/etlerr"
	"userload/internal/metrics"
	pcsv "userload/internal/parser/csv"
	"userload/internal/records"
	"userload/internal/sink/csvfile"
	"userload/internal/storage"
	"userload/internal/transformer"
)

// Steps reported to metrics and logs.
const (
	stepLoad  = "load"
	stepClean = "clean"
	stepCSV   = "csv_sink"
	stepStore = "store_sink"
)

const banner = "==================================="

// Seams for tests; production code never reassigns them.
var (
	openSource = func(cfg *config.Config) datasource.Source {
		if httpds.IsURL(cfg.Input) {
			return httpds.New(cfg.Input, httpds.Config{})
		}
		return file.NewLocal(cfg.Resolve(cfg.Input))
	}
	writeCSV   = csvfile.WriteFile
	applyStore = storage.Apply
)

// Report summarizes one run. Err is a structural failure that stopped the
// run before any sink; CSVErr and StoreErr are reported independently.
type Report struct {
	Input      int
	Valid      int
	Rejections []transformer.StageCount
	Upserted   int64

	Err      error
	CSVErr   error
	StoreErr error
}

// Failed reports whether anything went wrong.
func (r Report) Failed() bool {
	return r.Err != nil || r.CSVErr != nil || r.StoreErr != nil
}

// ExitCode maps the report onto the process status: 0 on success, 2 for an
// invalid input (missing, malformed or wrong header), 1 for everything else.
func (r Report) ExitCode() int {
	switch etlerr.KindOf(r.Err) {
	case etlerr.KindInputNotFound, etlerr.KindParse, etlerr.KindSchema:
		return 2
	case etlerr.KindNone:
	default:
		return 1
	}
	if r.CSVErr != nil || r.StoreErr != nil {
		return 1
	}
	return 0
}

// run executes one load. It never panics on bad data and always returns a
// populated Report; the logger receives every stage outcome.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) Report {
	start := time.Now()
	log.Info(banner)
	log.Info("processing started", zap.String("job", cfg.Job), zap.String("input", inputLocation(cfg)))
	log.Info(banner)

	rep := execute(ctx, cfg, log)

	fields := []zap.Field{
		zap.Int("rows_in", rep.Input),
		zap.Int("rows_valid", rep.Valid),
		zap.Int64("rows_upserted", rep.Upserted),
		zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)),
	}
	log.Info(banner)
	if rep.Failed() {
		log.Warn("processing finished with errors", fields...)
	} else {
		log.Info("processing finished", fields...)
	}
	log.Info(banner)
	return rep
}

func execute(ctx context.Context, cfg *config.Config, log *zap.Logger) Report {
	var rep Report

	t0 := time.Now()
	log.Info("loading csv")
	ds, err := load(ctx, cfg)
	metrics.RecordStep(cfg.Job, stepLoad, err, time.Since(t0))
	if err != nil {
		log.Error("load failed", zap.String("kind", etlerr.KindOf(err).String()), zap.Error(err))
		rep.Err = err
		return rep
	}
	rep.Input = len(ds.Rows)
	metrics.RecordRows(cfg.Job, "read", int64(rep.Input))
	log.Info("csv loaded", zap.Int("rows", rep.Input), zap.Strings("columns", ds.Columns))
	logMissing(log, ds)

	t0 = time.Now()
	res, err := cleaning.Clean(ds, records.CanonicalColumns)
	metrics.RecordStep(cfg.Job, stepClean, err, time.Since(t0))
	if err != nil {
		log.Error("cleaning aborted", zap.String("kind", etlerr.KindOf(err).String()), zap.Error(err))
		rep.Err = err
		return rep
	}
	rep.Rejections = res.Rejections
	rep.Valid = len(res.Users)
	for _, c := range res.Rejections {
		log.Info("stage done", zap.String("stage", c.Stage), zap.Int("rejected", c.Rejected))
		metrics.RecordRejected(cfg.Job, c.Stage, int64(c.Rejected))
	}
	metrics.RecordRows(cfg.Job, "valid", int64(rep.Valid))
	log.Info("cleaning done", zap.Int("rows", rep.Valid), zap.Int("rejected", res.Rejected()))

	rep.CSVErr = sinkCSV(cfg, res.Users, log)
	rep.Upserted, rep.StoreErr = sinkStore(ctx, cfg, res.Users, log)
	return rep
}

func inputLocation(cfg *config.Config) string {
	if httpds.IsURL(cfg.Input) {
		return cfg.Input
	}
	return cfg.Resolve(cfg.Input)
}

func load(ctx context.Context, cfg *config.Config) (records.Dataset, error) {
	rc, err := openSource(cfg).Open(ctx)
	if err != nil {
		return records.Dataset{}, err
	}
	defer rc.Close()

	p := pcsv.NewParser(pcsv.Options{NAValues: cfg.NAValues, HeaderMap: cfg.HeaderMap})
	return p.Parse(rc)
}

func logMissing(log *zap.Logger, ds records.Dataset) {
	missing := ds.MissingCounts()
	fields := make([]zap.Field, 0, len(ds.Columns))
	for _, c := range ds.Columns {
		fields = append(fields, zap.Int(c, missing[c]))
	}
	log.Info("missing values before cleaning", zap.Dict("missing", fields...))
}

func sinkCSV(cfg *config.Config, users []records.User, log *zap.Logger) error {
	path := cfg.Resolve(cfg.Output)
	t0 := time.Now()
	err := writeCSV(path, users)
	metrics.RecordStep(cfg.Job, stepCSV, err, time.Since(t0))
	if err != nil {
		err = fmt.Errorf("csv sink: %w", err)
		log.Error("csv sink failed", zap.String("path", path), zap.Error(err))
		return err
	}
	metrics.RecordRows(cfg.Job, "written_csv", int64(len(users)))
	log.Info("csv written", zap.String("path", path), zap.Int("rows", len(users)))
	return nil
}

func sinkStore(ctx context.Context, cfg *config.Config, users []records.User, log *zap.Logger) (int64, error) {
	sc := storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.StorageDSN(), Table: cfg.Storage.Table}
	t0 := time.Now()
	n, err := applyStore(ctx, sc, users, log)
	metrics.RecordStep(cfg.Job, stepStore, err, time.Since(t0))
	if err != nil {
		kind := etlerr.KindOf(err)
		if kind == etlerr.KindIntegrity {
			log.Error("store rejected batch, rolled back", zap.String("kind", kind.String()), zap.Error(err))
		} else {
			log.Error("store sink failed", zap.String("kind", kind.String()), zap.Error(err))
		}
		return 0, err
	}
	metrics.RecordRows(cfg.Job, "upserted", n)
	log.Info("rows upserted", zap.String("table", sc.Table), zap.Int64("rows", n))
	return n, nil
}

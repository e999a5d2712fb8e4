package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"userload/internal/records"
)

// Apply opens the store described by cfg, resets the schema, upserts users
// as one batch and closes the store on every path. It returns the number of
// rows applied, which is 0 whenever err is non-nil.
func Apply(ctx context.Context, cfg Config, users []records.User, log *zap.Logger) (int64, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("storage_kind", cfg.Kind))

	repo, err := New(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("storage: open: %w", err)
	}
	defer func() {
		repo.Close()
		log.Debug("store closed")
	}()

	if err := repo.ResetSchema(ctx); err != nil {
		return 0, fmt.Errorf("storage: reset schema: %w", err)
	}
	log.Info("schema reset", zap.String("table", tableOrDefault(cfg.Table)))

	n, err := repo.UpsertBatch(ctx, users)
	if err != nil {
		return 0, fmt.Errorf("storage: upsert: %w", err)
	}
	log.Info("upsert committed", zap.Int64("rows", n))
	return n, nil
}

func tableOrDefault(t string) string {
	if t == "" {
		return DefaultTable
	}
	return t
}

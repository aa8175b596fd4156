package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cafichain/eventlog"
)

// exportEvents dumps the event log to a Parquet file and returns the row count.
func exportEvents(ctx context.Context, dsn, path string, logger *slog.Logger) (int, error) {
	store, err := eventlog.Open(dsn)
	if err != nil {
		return 0, fmt.Errorf("open event log: %w", err)
	}
	defer store.Close()

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export: %w", err)
	}
	rows, err := store.ExportParquet(ctx, file, eventlog.Filter{})
	if err != nil {
		file.Close()
		return rows, err
	}
	if err := file.Close(); err != nil {
		return rows, fmt.Errorf("close export: %w", err)
	}
	logger.Info("event log exported", slog.String("path", path), slog.Int("rows", rows))
	return rows, nil
}

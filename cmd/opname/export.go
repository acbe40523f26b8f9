package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/erazemk/opname/internal/auth"
	"github.com/erazemk/opname/internal/config"
	"github.com/erazemk/opname/internal/report"
)

func runExport(cfg config.Config, outPath string) error {
	ctx := context.Background()

	state := auth.NewState()
	defer state.Close()

	a, err := openApp(ctx, cfg, state)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.inventory.List(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	if outPath == "" {
		outPath = report.Filename(now)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	if err := report.Write(f, records, now); err != nil {
		f.Close()
		os.Remove(outPath)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}

	slog.Info("report written", "path", outPath, "records", len(records))
	fmt.Printf("Wrote %d records to %s\n", len(records), outPath)
	return nil
}

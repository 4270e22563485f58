package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-checker/internal/common"
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/export"
	"github.com/joseph-ayodele/invoice-checker/internal/ingest"
)

func newWatchCmd() *cobra.Command {
	var (
		f           extractFlags
		initialScan bool
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch DIR...",
		Short: "Watch directories and extract tables from new PDFs",
		Long: `Watch submits every PDF created or written below the given directories. With --out
the workbook is rewritten after each processed document.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Workers.ShutdownGrace+5*time.Second)
				defer cancel()
				a.close(closeCtx)
			}()
			if err := f.applyConfig(a); err != nil {
				return err
			}

			events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initialScan,
				Debounce:    debounce,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			exporter := export.NewService(logger)
			// runs on the notifier's consumer, one document at a time
			onDocument := func(d *entity.Document) {
				logger.Info("document ready", "file", d.SourcePDF, "status", d.Status, "tables", len(d.Tables), "error", d.Error)
				if f.out == "" {
					return
				}
				if err := exporter.WriteXLSX(context.Background(), a.coord.Workspace().Snapshot(), f.out); err != nil {
					logger.Error("export failed", "out", f.out, "error", err)
				}
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				for p := range events {
					if _, err := a.coord.Submit(gctx, []string{p}, f.params(), onDocument); err != nil {
						if errors.Is(err, common.ErrShuttingDown) || gctx.Err() != nil {
							return nil
						}
						logger.Error("submit failed", "path", p, "error", err)
					}
				}
				return nil
			})
			g.Go(func() error {
				for err := range errs {
					logger.Warn("watch error", "error", err)
				}
				return nil
			})

			logger.Info("watching", "dirs", args, "initial_scan", initialScan)
			if err := g.Wait(); err != nil {
				return err
			}
			logger.Info("watch stopped", "documents", a.coord.Workspace().Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&initialScan, "initial-scan", true, "process PDFs already present")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "wait this long after the last write before submitting a file")
	f.register(cmd)
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/export"
	"github.com/joseph-ayodele/invoice-checker/internal/extract"
	"github.com/joseph-ayodele/invoice-checker/internal/ingest"
	"github.com/joseph-ayodele/invoice-checker/internal/notify"
)

type extractFlags struct {
	dir        string
	config     string
	flavor     string
	rowTol     string
	out        string
	skipHidden bool
	quiet      bool
}

func (f *extractFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.config, "config", "", "region config to apply to every PDF (default: per invoice type)")
	cmd.Flags().StringVar(&f.flavor, "flavor", "", "extraction flavor, lattice or stream (default: per invoice type)")
	cmd.Flags().StringVar(&f.rowTol, "row-tol", "", "row tolerance for stream (default: per invoice type)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write the extracted tables to this XLSX file")
}

func (f *extractFlags) params() extract.Params {
	return extract.Params{Flavor: f.flavor, RowTol: f.rowTol}
}

// applyConfig loads the named config and makes it the active one.
func (f *extractFlags) applyConfig(a *app) error {
	if f.config == "" {
		return nil
	}
	c, err := a.configs.Load(f.config)
	if err != nil {
		return fmt.Errorf("load config %q: %w", f.config, err)
	}
	a.coord.SetActiveConfig(c)
	return nil
}

func newExtractCmd() *cobra.Command {
	var f extractFlags

	cmd := &cobra.Command{
		Use:   "extract [PDF...]",
		Short: "Extract tables from PDF files",
		Long: `Extract runs every given PDF (and every PDF below --dir) through invoice type
detection and table extraction, prints a summary and optionally writes an XLSX workbook.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := append([]string(nil), args...)
			if f.dir != "" {
				found, stats, err := ingest.CollectPDFs(f.dir, f.skipHidden, logger)
				if err != nil {
					return err
				}
				logger.Info("directory scanned", "dir", f.dir, "pdfs", stats.Matched, "failed", stats.Failed)
				paths = append(paths, found...)
			}
			if len(paths) == 0 {
				return errors.New("no PDF files given (pass files or --dir)")
			}

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

			var bar *ProgressBar
			if !f.quiet {
				bar = NewProgressBar(int64(len(paths)), "extracting")
			}

			var batchID string
			ready := make(chan struct{})
			unsubscribe := a.notifier.Subscribe(func(ev notify.Event) {
				<-ready
				if ev.BatchID != batchID {
					return
				}
				switch ev.Type {
				case notify.ProgressUpdated:
					if bar != nil {
						bar.SetFraction(ev.Progress)
					}
				case notify.DocumentProcessed:
					if ev.Document != nil && ev.Document.HasError() {
						logger.Warn("document finished with error", "file", ev.Document.SourcePDF, "error", ev.Document.Error)
					}
				}
			})
			defer unsubscribe()

			batch, err := a.coord.Submit(ctx, paths, f.params(), nil)
			if batch != nil {
				batchID = batch.ID.String()
			}
			close(ready)
			if err != nil && batch == nil {
				return err
			}

			docs, waitErr := batch.Wait(ctx)
			if err := a.notifier.Flush(ctx); err != nil {
				logger.Debug("notification flush interrupted", "error", err)
			}
			if bar != nil {
				bar.Finish()
			}
			if waitErr != nil {
				return waitErr
			}

			snapshot := a.coord.Workspace().Snapshot()
			printDocuments(cmd.OutOrStdout(), snapshot)
			reportFailures(docs)

			if f.out != "" {
				if err := export.NewService(logger).WriteXLSX(ctx, snapshot, f.out); err != nil {
					return err
				}
				Success("wrote %s", f.out)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&f.dir, "dir", "d", "", "directory to scan for PDFs (recursive)")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "hide the progress bar")
	cmd.Flags().BoolVar(&f.skipHidden, "skip-hidden", true, "skip hidden files and directories below --dir")
	f.register(cmd)
	return cmd
}

func reportFailures(docs []*entity.Document) {
	failed := 0
	for _, d := range docs {
		if d.HasError() && len(d.Tables) == 0 {
			failed++
		}
	}
	if failed > 0 {
		Warning("%d of %d documents yielded no tables", failed, len(docs))
	}
}

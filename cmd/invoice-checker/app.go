package main

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/invoice-checker/internal/areaconfig"
	"github.com/joseph-ayodele/invoice-checker/internal/async"
	"github.com/joseph-ayodele/invoice-checker/internal/classify"
	"github.com/joseph-ayodele/invoice-checker/internal/common"
	"github.com/joseph-ayodele/invoice-checker/internal/core"
	"github.com/joseph-ayodele/invoice-checker/internal/extract"
	"github.com/joseph-ayodele/invoice-checker/internal/notify"
	"github.com/joseph-ayodele/invoice-checker/internal/pdftext"
	"github.com/joseph-ayodele/invoice-checker/internal/runner"
	"github.com/joseph-ayodele/invoice-checker/internal/workspace"
)

// app is the wired engine shared by the commands.
type app struct {
	logger   *slog.Logger
	notifier *notify.Notifier
	configs  *areaconfig.Store
	rules    *classify.Store
	coord    *core.Coordinator
}

func openStores(c *common.Config, logger *slog.Logger) (*areaconfig.Store, *classify.Store, error) {
	configs, err := areaconfig.NewStore(c.Storage.ConfigDir, logger)
	if err != nil {
		return nil, nil, err
	}
	rules, err := classify.NewStore(c.Storage.InvoiceTypesCSV, logger)
	if err != nil {
		return nil, nil, err
	}
	return configs, rules, nil
}

func newClassifier(c *common.Config, rules *classify.Store, logger *slog.Logger) *classify.Classifier {
	text := pdftext.NewExtractor(c.PDFText.Binary, runner.NewExecRunner(c.PDFText.Timeout, logger), logger)
	return classify.NewClassifier(text, rules, logger)
}

func newApp(c *common.Config, logger *slog.Logger) (*app, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	configs, rules, err := openStores(c, logger)
	if err != nil {
		return nil, err
	}

	n := notify.New(logger)
	cls := newClassifier(c, rules, logger)
	client := extract.NewScriptClient(extract.Config{
		Interpreter: c.Extractor.Interpreter,
		ScriptPath:  c.Extractor.ScriptPath,
		Timeout:     c.Extractor.Timeout,
	}, runner.NewExecRunner(c.Extractor.Timeout, logger), logger)

	coord, err := core.NewCoordinator(core.Deps{
		Client:     client,
		Classifier: cls,
		Configs:    configs,
		Workspace:  workspace.New(n, logger),
		Notifier:   n,
		Logger:     logger,
	},
		async.WithWorkers(c.Workers.Count),
		async.WithQueueSize(c.Workers.QueueSize),
		async.WithShutdownGrace(c.Workers.ShutdownGrace),
	)
	if err != nil {
		n.Close()
		return nil, err
	}

	logger.Info("engine ready",
		"workers", c.Workers.Count,
		"script", c.Extractor.ScriptPath,
		"config_dir", configs.Dir(),
		"invoice_types", rules.Path(),
	)
	return &app{logger: logger, notifier: n, configs: configs, rules: rules, coord: coord}, nil
}

// close stops the pool, then drains pending notifications.
func (a *app) close(ctx context.Context) {
	if err := a.coord.Shutdown(ctx); err != nil {
		a.logger.Warn("shutdown incomplete", "error", err)
	}
	if err := a.notifier.Flush(ctx); err != nil {
		a.logger.Warn("notification flush incomplete", "error", err)
	}
	a.notifier.Close()
}

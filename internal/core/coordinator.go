package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-checker/constants"
	"github.com/joseph-ayodele/invoice-checker/internal/async"
	"github.com/joseph-ayodele/invoice-checker/internal/common"
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/extract"
	"github.com/joseph-ayodele/invoice-checker/internal/merge"
	"github.com/joseph-ayodele/invoice-checker/internal/notify"
	"github.com/joseph-ayodele/invoice-checker/internal/plan"
	"github.com/joseph-ayodele/invoice-checker/internal/workspace"
)

// Classifier resolves the invoice type of a document.
type Classifier interface {
	Classify(ctx context.Context, path string) (entity.InvoiceTypeRule, error)
	Default() entity.InvoiceTypeRule
}

// ConfigLoader loads a named region config.
type ConfigLoader interface {
	Load(name string) (*entity.ExtractionConfig, error)
}

// Deps are the collaborators of a Coordinator. Configs and Notifier may be nil.
type Deps struct {
	Client     extract.Client
	Classifier Classifier
	Configs    ConfigLoader
	Workspace  *workspace.Workspace
	Notifier   notify.Publisher
	Logger     *slog.Logger
}

// Coordinator runs the per-document pipeline
// classify -> resolve parameters -> plan -> extract -> merge -> commit -> notify
// on a worker pool. Build one per session and Shutdown it at the end.
type Coordinator struct {
	client     extract.Client
	classifier Classifier
	configs    ConfigLoader
	ws         *workspace.Workspace
	pub        notify.Publisher
	logger     *slog.Logger
	queue      *async.ProcessorQueue

	mu      sync.RWMutex
	active  *entity.ExtractionConfig
	batches map[uuid.UUID]*Batch
}

func NewCoordinator(deps Deps, opts ...async.Option) (*Coordinator, error) {
	if deps.Client == nil || deps.Classifier == nil || deps.Workspace == nil {
		return nil, common.NewAppError(common.CodeConfiguration, "coordinator needs a client, a classifier and a workspace", common.ErrInvalidInput)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = inlinePublisher{}
	}
	c := &Coordinator{
		client:     deps.Client,
		classifier: deps.Classifier,
		configs:    deps.Configs,
		ws:         deps.Workspace,
		pub:        deps.Notifier,
		logger:     deps.Logger,
		batches:    map[uuid.UUID]*Batch{},
	}
	c.queue = async.NewProcessorQueue(c, deps.Logger, opts...)
	return c, nil
}

func (c *Coordinator) Workspace() *workspace.Workspace { return c.ws }

// SetActiveConfig sets the region config used by Submit (nil for none).
func (c *Coordinator) SetActiveConfig(cfg *entity.ExtractionConfig) {
	c.mu.Lock()
	c.active = cfg.Clone()
	name := ""
	if cfg != nil {
		name = cfg.Name
	}
	c.mu.Unlock()

	c.logger.Info("active config changed", "config", name)
	c.pub.Publish(notify.Event{Type: notify.ActiveConfigChanged, Config: name})
}

func (c *Coordinator) ActiveConfig() *entity.ExtractionConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active.Clone()
}

// Submit processes paths with the active region config. onDocument (optional) runs on the
// notifier's consumer context once per path.
func (c *Coordinator) Submit(ctx context.Context, paths []string, params extract.Params, onDocument func(*entity.Document)) (*Batch, error) {
	return c.SubmitWithConfig(ctx, paths, params, c.ActiveConfig(), onDocument)
}

// SubmitWithConfig processes paths with cfg; a nil cfg lets each invoice type pick its config.
func (c *Coordinator) SubmitWithConfig(ctx context.Context, paths []string, params extract.Params, cfg *entity.ExtractionConfig, onDocument func(*entity.Document)) (*Batch, error) {
	var clean []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		return nil, common.NewAppError(common.CodeInput, "no paths submitted", common.ErrInvalidInput)
	}

	batch := newBatch(len(clean), onDocument)
	c.mu.Lock()
	c.batches[batch.ID] = batch
	c.mu.Unlock()

	c.logger.Info("batch submitted", "batch_id", batch.ID, "documents", len(clean), "config", configName(cfg))

	now := time.Now()
	for i, p := range clean {
		job := async.Job{
			ID:          uuid.New(),
			BatchID:     batch.ID,
			Path:        p,
			Params:      params,
			Config:      cfg.Clone(),
			SubmittedAt: now,
		}
		if err := c.queue.Enqueue(ctx, job); err != nil {
			if i == 0 && errors.Is(err, common.ErrShuttingDown) {
				c.mu.Lock()
				delete(c.batches, batch.ID)
				c.mu.Unlock()
				return nil, err
			}
			go c.forget(batch)
			// paths that never reached the pool still get a document
			for _, rest := range clean[i:] {
				doc := entity.NewDocumentShell(rest)
				doc.Error = "not scheduled: " + err.Error()
				doc.Status = constants.JobStatusFailed
				c.commit(batch, doc)
			}
			return batch, err
		}
	}
	go c.forget(batch)
	return batch, nil
}

// Batch returns a batch that is still running.
func (c *Coordinator) Batch(id uuid.UUID) (*Batch, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.batches[id]
	return b, ok
}

func (c *Coordinator) forget(b *Batch) {
	<-b.Done()
	c.mu.Lock()
	delete(c.batches, b.ID)
	c.mu.Unlock()
}

// Handle runs one job. It never panics and always commits exactly one document.
func (c *Coordinator) Handle(ctx context.Context, job async.Job) {
	start := time.Now()
	logger := c.logger.With(append(common.LogAttrs(ctx), "path", job.Path)...)

	doc := c.process(ctx, job, logger)

	c.mu.RLock()
	batch := c.batches[job.BatchID]
	c.mu.RUnlock()
	c.commit(batch, doc)

	logger.Info("document processed",
		"status", doc.Status,
		"tables", len(doc.Tables),
		"error", doc.Error,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (c *Coordinator) process(ctx context.Context, job async.Job, logger *slog.Logger) (doc *entity.Document) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("internal error while processing", "panic", r, "stack", string(debug.Stack()))
			doc = c.internalErrorDocument(job.Path, fmt.Errorf("%v", r))
		}
	}()

	shell := entity.NewDocumentShell(job.Path)

	rule, err := c.classifier.Classify(ctx, job.Path)
	if err != nil {
		logger.Warn("invoice type detection failed, using default", "error", err)
		rule = c.classifier.Default()
		shell.Error = "invoice type detection failed: " + err.Error()
	}
	shell.InvoiceType = &rule

	params := ResolveParams(job.Params, rule)
	cfg := c.resolveConfig(job, rule, logger)
	p := plan.FromConfig(cfg)
	reqs := p.Requests(job.Path, params)
	logger.Debug("extraction planned",
		"type", rule.Type,
		"flavor", params.Flavor,
		"row_tol", params.RowTol,
		"plan", p.Kind.String(),
		"config", configName(cfg),
		"requests", len(reqs),
	)

	parts := make([]merge.Part, 0, len(reqs))
	for _, req := range reqs {
		parts = append(parts, merge.Part{Request: req, Outcome: c.client.Extract(ctx, req)})
	}

	doc = merge.Merge(shell, parts)
	doc.Status = statusOf(doc, parts)
	return doc
}

func (c *Coordinator) commit(batch *Batch, doc *entity.Document) {
	doc.ProcessedAt = time.Now()
	res := c.ws.Commit(doc)

	batchID := ""
	if batch != nil {
		batchID = batch.ID.String()
	}
	c.pub.Publish(notify.Event{Type: notify.DocumentsUpdated, BatchID: batchID, Documents: res.Snapshot, Document: doc})
	if batch != nil {
		batch.complete(doc, c.pub)
	}
}

// resolveConfig: the submission's config wins, then the config named by the invoice type.
func (c *Coordinator) resolveConfig(job async.Job, rule entity.InvoiceTypeRule, logger *slog.Logger) *entity.ExtractionConfig {
	if job.Config != nil {
		return job.Config
	}
	if rule.UsesManualAreaConfig() || c.configs == nil {
		return nil
	}
	cfg, err := c.configs.Load(rule.AreaType)
	if err != nil {
		logger.Warn("config of invoice type not available, extracting without regions", "config", rule.AreaType, "error", err)
		return nil
	}
	return cfg
}

func (c *Coordinator) internalErrorDocument(path string, cause error) *entity.Document {
	doc := entity.NewDocumentShell(path)
	rule := c.classifier.Default()
	doc.InvoiceType = &rule
	doc.Error = "internal error: " + cause.Error()
	doc.Status = constants.JobStatusFailed
	return doc
}

// Shutdown stops the pool; see async.ProcessorQueue.Shutdown.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	return c.queue.Shutdown(ctx)
}

// ResolveParams lays the caller's non-blank values over the invoice type defaults.
func ResolveParams(caller extract.Params, rule entity.InvoiceTypeRule) extract.Params {
	out := extract.Params{Flavor: rule.DefaultFlavor, RowTol: rule.DefaultRowTol}
	if v := strings.TrimSpace(caller.Flavor); v != "" {
		out.Flavor = v
	}
	if v := strings.TrimSpace(caller.RowTol); v != "" {
		out.RowTol = v
	}
	if out.Flavor == "" {
		out.Flavor = string(constants.DefaultFlavor)
	}
	return out
}

func statusOf(doc *entity.Document, parts []merge.Part) constants.JobStatus {
	if len(doc.Tables) > 0 {
		return constants.JobStatusCompleted
	}
	for _, p := range parts {
		if p.Outcome.Failed() {
			return constants.JobStatusFailed
		}
	}
	return constants.JobStatusCompleted
}

func configName(cfg *entity.ExtractionConfig) string {
	if cfg == nil {
		return ""
	}
	return cfg.Name
}

// inlinePublisher is used when no notifier is wired; events are dropped and callbacks run inline.
type inlinePublisher struct{}

func (inlinePublisher) Publish(notify.Event) {}
func (inlinePublisher) Invoke(fn func())     { fn() }

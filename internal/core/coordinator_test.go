package core

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-checker/constants"
	"github.com/joseph-ayodele/invoice-checker/internal/async"
	"github.com/joseph-ayodele/invoice-checker/internal/common"
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/extract"
	"github.com/joseph-ayodele/invoice-checker/internal/notify"
	"github.com/joseph-ayodele/invoice-checker/internal/workspace"
)

type fakeClient struct {
	mu       sync.Mutex
	requests []extract.Request
	respond  func(extract.Request) extract.Outcome
}

func (f *fakeClient) Extract(_ context.Context, req extract.Request) extract.Outcome {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
	return f.respond(req)
}

func (f *fakeClient) requestsFor(path string) []extract.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []extract.Request
	for _, r := range f.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

type fakeClassifier struct {
	rules map[string]entity.InvoiceTypeRule
	err   error
}

func (f fakeClassifier) Classify(_ context.Context, path string) (entity.InvoiceTypeRule, error) {
	if f.err != nil {
		return f.Default(), f.err
	}
	if r, ok := f.rules[filepath.Base(path)]; ok {
		return r, nil
	}
	return f.Default(), nil
}

func (fakeClassifier) Default() entity.InvoiceTypeRule { return entity.DefaultInvoiceTypeRule() }

type mapConfigs map[string]*entity.ExtractionConfig

func (m mapConfigs) Load(name string) (*entity.ExtractionConfig, error) {
	if c, ok := m[name]; ok {
		return c.Clone(), nil
	}
	return nil, common.ErrNotFound
}

func abs(t *testing.T, p string) string {
	t.Helper()
	a, err := filepath.Abs(p)
	require.NoError(t, err)
	return a
}

func newCoordinator(t *testing.T, client extract.Client, cls Classifier, cfgs ConfigLoader) (*Coordinator, *notify.Notifier) {
	t.Helper()
	n := notify.New(nil)
	ws := workspace.New(n, nil)
	c, err := NewCoordinator(Deps{Client: client, Classifier: cls, Configs: cfgs, Workspace: ws, Notifier: n}, async.WithWorkers(4))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Shutdown(context.Background())
		n.Close()
	})
	return c, n
}

func wait(t *testing.T, b *Batch) []*entity.Document {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	docs, err := b.Wait(ctx)
	require.NoError(t, err)
	return docs
}

func TestEndToEndTwoDocuments(t *testing.T) {
	p1, p2 := abs(t, "in/p1.pdf"), abs(t, "in/p2.pdf")

	perPage := entity.NewExtractionConfig("P2 layout")
	perPage.UsePageSpecificAreas = true
	perPage.AddPageArea(3, entity.NewAreaDefinition(0, 0, 100, 100))
	perPage.AddPageArea(1, entity.NewAreaDefinition(10, 10, 50, 50))

	client := &fakeClient{respond: func(req extract.Request) extract.Outcome {
		switch {
		case req.Path == p1:
			return extract.Outcome{
				BillingPeriodStart: "2024-01-01",
				Tables:             []entity.Table{{Page: 1, Index: 0, Data: [][]string{{"a"}}}, {Page: 2, Index: 0}},
			}
		case req.Pages == "1":
			return extract.Outcome{Error: "no tables found"}
		default:
			return extract.Outcome{
				BillingPeriodStart: "2024-02-01", BillingPeriodEnd: "2024-02-29",
				Tables: []entity.Table{{Page: 3, Index: 0}},
			}
		}
	}}
	p2Rule := entity.NewInvoiceTypeRule("Grid operator", "EDIS", "", "", "", "", "P2 layout", "lattice", "2")
	cls := fakeClassifier{rules: map[string]entity.InvoiceTypeRule{"p2.pdf": p2Rule}}
	c, n := newCoordinator(t, client, cls, mapConfigs{"P2 layout": perPage})

	var (
		mu        sync.Mutex
		callbacks []string
	)
	onDoc := func(d *entity.Document) {
		mu.Lock()
		callbacks = append(callbacks, d.IdentityKey())
		mu.Unlock()
	}
	b, err := c.SubmitWithConfig(context.Background(), []string{p1, p2}, extract.Params{}, nil, onDoc)
	require.NoError(t, err)
	wait(t, b)
	require.NoError(t, n.Flush(context.Background()))

	snap := c.Workspace().Snapshot()
	require.Len(t, snap, 2)

	d1 := c.Workspace().Get(p1)
	require.NotNil(t, d1)
	assert.Len(t, d1.Tables, 2)
	assert.Empty(t, d1.Error)
	assert.Equal(t, constants.JobStatusCompleted, d1.Status)
	assert.Equal(t, "Others", d1.InvoiceType.Type)

	d2 := c.Workspace().Get(p2)
	require.NotNil(t, d2)
	assert.Len(t, d2.Tables, 1)
	assert.Contains(t, d2.Error, "1: no tables found")
	assert.NotContains(t, d2.Error, "3")
	assert.Equal(t, "2024-02-01", d2.BillingPeriodStartRaw)
	assert.Equal(t, constants.JobStatusCompleted, d2.Status)

	var pages []string
	for _, r := range client.requestsFor(p2) {
		pages = append(pages, r.Pages)
		assert.Equal(t, "lattice", r.Params.Flavor)
		assert.Len(t, r.Regions, 1)
	}
	assert.Equal(t, []string{"1", "3"}, pages)

	p1Reqs := client.requestsFor(p1)
	require.Len(t, p1Reqs, 1)
	assert.Equal(t, "all", p1Reqs[0].Pages)
	assert.Nil(t, p1Reqs[0].Regions)
	assert.Equal(t, extract.Params{Flavor: "stream", RowTol: "5"}, p1Reqs[0].Params)

	mu.Lock()
	assert.ElementsMatch(t, []string{p1, p2}, callbacks)
	mu.Unlock()
	assert.Equal(t, 1.0, b.Progress())
}

func TestResubmissionKeepsOneDocumentAndReconcilesSelection(t *testing.T) {
	p := abs(t, "in/a.pdf")
	var (
		mu    sync.Mutex
		round int
	)
	client := &fakeClient{respond: func(extract.Request) extract.Outcome {
		mu.Lock()
		defer mu.Unlock()
		if round == 0 {
			return extract.Outcome{Tables: []entity.Table{{Page: 1, Index: 0}}}
		}
		return extract.Outcome{Tables: []entity.Table{{Page: 2, Index: 0}, {Page: 2, Index: 1}}}
	}}
	c, _ := newCoordinator(t, client, fakeClassifier{}, nil)

	b, err := c.Submit(context.Background(), []string{p}, extract.Params{}, nil)
	require.NoError(t, err)
	wait(t, b)

	first := c.Workspace().Get(p)
	c.Workspace().SetSelectedDocument(first)
	require.Equal(t, entity.TableKey{Page: 1, Index: 0}, c.Workspace().SelectedTable().Key())

	mu.Lock()
	round = 1
	mu.Unlock()
	for i := 0; i < 3; i++ {
		b, err = c.Submit(context.Background(), []string{p}, extract.Params{}, nil)
		require.NoError(t, err)
		wait(t, b)
	}

	assert.Equal(t, 1, c.Workspace().Len())
	latest := c.Workspace().Get(p)
	assert.NotSame(t, first, latest)
	assert.Same(t, latest, c.Workspace().SelectedDocument())
	assert.Same(t, &latest.Tables[0], c.Workspace().SelectedTable())
}

func TestClassificationFailureIsSoftError(t *testing.T) {
	p := abs(t, "in/a.pdf")
	client := &fakeClient{respond: func(extract.Request) extract.Outcome {
		return extract.Outcome{Tables: []entity.Table{{Page: 1}}}
	}}
	c, _ := newCoordinator(t, client, fakeClassifier{err: errors.New("pdftotext not found")}, nil)

	b, err := c.Submit(context.Background(), []string{p}, extract.Params{Flavor: "lattice"}, nil)
	require.NoError(t, err)
	docs := wait(t, b)
	require.Len(t, docs, 1)

	assert.Contains(t, docs[0].Error, "invoice type detection failed: pdftotext not found")
	assert.True(t, docs[0].InvoiceType.IsDefault())
	assert.Len(t, docs[0].Tables, 1)
	assert.Equal(t, constants.JobStatusCompleted, docs[0].Status)
	assert.Equal(t, extract.Params{Flavor: "lattice", RowTol: "5"}, client.requestsFor(p)[0].Params)
}

func TestPanicBecomesInternalErrorDocument(t *testing.T) {
	p := abs(t, "in/boom.pdf")
	client := &fakeClient{respond: func(extract.Request) extract.Outcome { panic("nil map write") }}
	c, _ := newCoordinator(t, client, fakeClassifier{}, nil)

	b, err := c.Submit(context.Background(), []string{p}, extract.Params{}, nil)
	require.NoError(t, err)
	docs := wait(t, b)
	require.Len(t, docs, 1)

	d := c.Workspace().Get(p)
	require.NotNil(t, d)
	assert.Equal(t, "internal error: nil map write", d.Error)
	assert.Equal(t, "boom.pdf", d.SourcePDF)
	assert.Empty(t, d.Tables)
	assert.Equal(t, constants.JobStatusFailed, d.Status)
	assert.True(t, d.InvoiceType.IsDefault())
}

func TestFailedExtractionStillCommitted(t *testing.T) {
	p := abs(t, "in/a.pdf")
	client := &fakeClient{respond: func(extract.Request) extract.Outcome {
		return extract.Outcome{Error: "extraction script failed (exit code: -1, timeout after 90s)"}
	}}
	c, _ := newCoordinator(t, client, fakeClassifier{}, nil)

	b, err := c.Submit(context.Background(), []string{p}, extract.Params{}, nil)
	require.NoError(t, err)
	wait(t, b)

	d := c.Workspace().Get(p)
	require.NotNil(t, d)
	assert.Equal(t, constants.JobStatusFailed, d.Status)
	assert.Contains(t, d.Error, "exit code: -1")
}

func TestSubmissionConfigWinsOverInvoiceTypeConfig(t *testing.T) {
	p := abs(t, "in/a.pdf")
	client := &fakeClient{respond: func(extract.Request) extract.Outcome { return extract.Outcome{} }}
	rule := entity.NewInvoiceTypeRule("T", "x", "", "", "", "", "Named", "lattice", "2")
	named := entity.NewExtractionConfig("Named")
	named.AddGlobalArea(entity.NewAreaDefinition(1, 1, 2, 2))
	c, _ := newCoordinator(t, client, fakeClassifier{rules: map[string]entity.InvoiceTypeRule{"a.pdf": rule}}, mapConfigs{"Named": named})

	active := entity.NewExtractionConfig("Active")
	active.AddGlobalArea(entity.NewAreaDefinition(5, 5, 6, 6))
	c.SetActiveConfig(active)

	b, err := c.Submit(context.Background(), []string{p}, extract.Params{}, nil)
	require.NoError(t, err)
	wait(t, b)
	assert.Equal(t, []string{"5.00,5.00,6.00,6.00"}, client.requestsFor(p)[0].Regions)

	c.SetActiveConfig(nil)
	b, err = c.Submit(context.Background(), []string{p}, extract.Params{}, nil)
	require.NoError(t, err)
	wait(t, b)
	reqs := client.requestsFor(p)
	assert.Equal(t, []string{"1.00,1.00,2.00,2.00"}, reqs[len(reqs)-1].Regions)
}

func TestProgressIsMonotonic(t *testing.T) {
	client := &fakeClient{respond: func(extract.Request) extract.Outcome { return extract.Outcome{} }}
	c, n := newCoordinator(t, client, fakeClassifier{}, nil)

	var (
		mu       sync.Mutex
		progress []float64
		order    []notify.EventType
	)
	n.Subscribe(func(ev notify.Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Type == notify.ProgressUpdated {
			progress = append(progress, ev.Progress)
		}
		if ev.Type == notify.DocumentsUpdated || ev.Type == notify.DocumentProcessed {
			order = append(order, ev.Type)
		}
	})

	var paths []string
	for i := 0; i < 20; i++ {
		paths = append(paths, abs(t, filepath.Join("in", string(rune('a'+i))+".pdf")))
	}
	b, err := c.Submit(context.Background(), paths, extract.Params{}, nil)
	require.NoError(t, err)
	wait(t, b)
	require.NoError(t, n.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, progress, 20)
	assert.True(t, slices.IsSorted(progress))
	assert.Equal(t, 1.0, progress[len(progress)-1])
	assert.Equal(t, notify.DocumentsUpdated, order[0])
}

func TestSubmitValidation(t *testing.T) {
	client := &fakeClient{respond: func(extract.Request) extract.Outcome { return extract.Outcome{} }}
	c, _ := newCoordinator(t, client, fakeClassifier{}, nil)

	_, err := c.Submit(context.Background(), []string{" "}, extract.Params{}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	require.NoError(t, c.Shutdown(context.Background()))
	_, err = c.Submit(context.Background(), []string{"a.pdf"}, extract.Params{}, nil)
	assert.ErrorIs(t, err, common.ErrShuttingDown)
}

func TestSubmitAfterShutdownReleasesBatches(t *testing.T) {
	client := &fakeClient{respond: func(extract.Request) extract.Outcome { return extract.Outcome{} }}
	c, _ := newCoordinator(t, client, fakeClassifier{}, nil)
	require.NoError(t, c.Shutdown(context.Background()))

	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		b, err := c.Submit(context.Background(), []string{"a.pdf", "b.pdf"}, extract.Params{}, nil)
		require.ErrorIs(t, err, common.ErrShuttingDown)
		assert.Nil(t, b)
	}
	time.Sleep(20 * time.Millisecond)

	assert.LessOrEqual(t, runtime.NumGoroutine(), before+2)
	c.mu.RLock()
	assert.Empty(t, c.batches)
	c.mu.RUnlock()
}

func TestNewCoordinatorRequiresDeps(t *testing.T) {
	_, err := NewCoordinator(Deps{})
	assert.Equal(t, common.CodeConfiguration, common.KindOf(err))
}

func TestResolveParams(t *testing.T) {
	rule := entity.NewInvoiceTypeRule("T", "x", "", "", "", "", "", "stream", "7")
	assert.Equal(t, extract.Params{Flavor: "stream", RowTol: "7"}, ResolveParams(extract.Params{}, rule))
	assert.Equal(t, extract.Params{Flavor: "lattice", RowTol: "7"}, ResolveParams(extract.Params{Flavor: " lattice "}, rule))
	assert.Equal(t, extract.Params{Flavor: "stream", RowTol: "3"}, ResolveParams(extract.Params{RowTol: "3"}, rule))
}

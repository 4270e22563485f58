package core

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/notify"
)

// Batch tracks one submission. Every path of the batch yields exactly one document.
type Batch struct {
	ID    uuid.UUID
	Total int

	onDocument func(*entity.Document)

	mu   sync.Mutex
	docs []*entity.Document
	done chan struct{}
}

func newBatch(total int, onDocument func(*entity.Document)) *Batch {
	b := &Batch{
		ID:         uuid.New(),
		Total:      total,
		onDocument: onDocument,
		done:       make(chan struct{}),
	}
	if total == 0 {
		close(b.done)
	}
	return b
}

// Done is closed once every path has a committed document.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until the batch is done or ctx ends.
func (b *Batch) Wait(ctx context.Context) ([]*entity.Document, error) {
	select {
	case <-b.done:
		return b.Documents(), nil
	case <-ctx.Done():
		return b.Documents(), fmt.Errorf("wait for batch %s: %w", b.ID, ctx.Err())
	}
}

// Progress is the completed fraction in [0, 1].
func (b *Batch) Progress() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progressLocked()
}

func (b *Batch) progressLocked() float64 {
	if b.Total == 0 {
		return 1
	}
	return float64(len(b.docs)) / float64(b.Total)
}

// Documents returns the documents completed so far, in completion order.
func (b *Batch) Documents() []*entity.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.docs)
}

// complete records doc and publishes progress. Publishing happens under the batch lock so
// consumers see a non-decreasing fraction.
func (b *Batch) complete(doc *entity.Document, pub notify.Publisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.docs) >= b.Total {
		return
	}
	b.docs = append(b.docs, doc)
	progress := b.progressLocked()

	pub.Publish(notify.Event{Type: notify.ProgressUpdated, BatchID: b.ID.String(), Progress: progress})
	pub.Publish(notify.Event{Type: notify.DocumentProcessed, BatchID: b.ID.String(), Document: doc, Status: doc.Status})
	if b.onDocument != nil {
		cb := b.onDocument
		pub.Invoke(func() { cb(doc) })
	}
	if len(b.docs) == b.Total {
		close(b.done)
	}
}

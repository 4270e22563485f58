package workspace

import (
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/notify"
)

// Workspace is the session's document collection plus the current selection.
// One lock covers both so readers never see a list that disagrees with the selection.
type Workspace struct {
	mu     sync.RWMutex
	store  DocumentStore
	sel    selection
	pub    notify.Publisher
	logger *slog.Logger
}

// CommitResult describes the state right after a commit.
type CommitResult struct {
	Snapshot   []*entity.Document
	Replaced   *entity.Document
	Reconciled bool // the committed document replaced the selected one
}

// New creates an empty workspace. pub may be nil.
func New(pub notify.Publisher, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{pub: pub, logger: logger}
}

// Commit upserts doc and, when it replaces the selected document, points the selection at
// doc and resets the selected table to its first table. Both happen under one lock.
func (w *Workspace) Commit(doc *entity.Document) CommitResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	replaced := w.store.Upsert(doc)
	res := CommitResult{Replaced: replaced}

	if w.sel.doc != nil && w.sel.doc.IdentityKey() == doc.IdentityKey() {
		w.replaceSelectionLocked(doc)
		res.Reconciled = true
		w.logger.Debug("selection reconciled", "path", doc.IdentityKey())
	}
	res.Snapshot = w.store.Snapshot()
	return res
}

// Upsert is Commit returning only the new snapshot.
func (w *Workspace) Upsert(doc *entity.Document) []*entity.Document {
	return w.Commit(doc).Snapshot
}

func (w *Workspace) Snapshot() []*entity.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.Snapshot()
}

func (w *Workspace) Get(key string) *entity.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.Get(key)
}

func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.Len()
}

// Remove drops a document; removing the selected one clears the selection.
func (w *Workspace) Remove(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.store.Remove(key) {
		return false
	}
	if w.sel.doc != nil && w.sel.doc.IdentityKey() == key {
		w.setDocumentLocked(nil)
	}
	w.publish(notify.Event{Type: notify.DocumentsUpdated, Documents: w.store.Snapshot()})
	return true
}

// Clear empties the collection and the selection.
func (w *Workspace) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.store.Clear()
	w.setDocumentLocked(nil)
	w.publish(notify.Event{Type: notify.DocumentsUpdated})
}

func (w *Workspace) publish(ev notify.Event) {
	if w.pub != nil {
		w.pub.Publish(ev)
	}
}

package workspace

import (
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/notify"
)

// selection is the current document and table. table always points into doc.Tables.
type selection struct {
	doc   *entity.Document
	table *entity.Table
}

// SetSelectedDocument selects d (nil clears). Selecting the document that is already
// selected (same identity key) does nothing; otherwise the table selection moves to d's
// first table, or nil.
func (w *Workspace) SetSelectedDocument(d *entity.Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setDocumentLocked(d)
}

func (w *Workspace) setDocumentLocked(d *entity.Document) {
	if sameDocument(w.sel.doc, d) {
		return
	}
	w.replaceSelectionLocked(d)
}

// replaceSelectionLocked swaps the selected document unconditionally and cascades.
func (w *Workspace) replaceSelectionLocked(d *entity.Document) {
	old := w.sel.doc
	w.sel.doc = d
	w.publish(notify.Event{Type: notify.SelectedDocumentChanged, Document: d, OldDocument: old})

	var first *entity.Table
	if d != nil {
		first = d.FirstTable()
	}
	w.setTableLocked(first)
}

// SetSelectedTable selects t within the selected document (nil clears). A table the selected
// document does not have is ignored.
func (w *Workspace) SetSelectedTable(t *entity.Table) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t == nil {
		w.setTableLocked(nil)
		return
	}
	if w.sel.doc == nil {
		w.logger.Debug("table selection ignored: no document selected", "page", t.Page, "index", t.Index)
		return
	}
	owned := w.sel.doc.TableByKey(t.Key())
	if owned == nil {
		w.logger.Debug("table selection ignored: not in selected document", "path", w.sel.doc.IdentityKey(), "page", t.Page, "index", t.Index)
		return
	}
	w.setTableLocked(owned)
}

func (w *Workspace) setTableLocked(t *entity.Table) {
	if w.sel.table == t {
		return
	}
	old := w.sel.table
	w.sel.table = t
	w.publish(notify.Event{Type: notify.SelectedTableChanged, Document: w.sel.doc, Table: t, OldTable: old})
}

func (w *Workspace) SelectedDocument() *entity.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sel.doc
}

func (w *Workspace) SelectedTable() *entity.Table {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sel.table
}

// AvailableTables lists the tables of the selected document.
func (w *Workspace) AvailableTables() []entity.Table {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.sel.doc == nil {
		return nil
	}
	out := make([]entity.Table, len(w.sel.doc.Tables))
	copy(out, w.sel.doc.Tables)
	return out
}

// SelectedTableData returns a copy of the selected table's grid.
func (w *Workspace) SelectedTableData() [][]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.sel.table == nil {
		return nil
	}
	return w.sel.table.Clone().Data
}

func sameDocument(a, b *entity.Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IdentityKey() == b.IdentityKey()
}

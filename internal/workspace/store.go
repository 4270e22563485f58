package workspace

import (
	"slices"

	"github.com/joseph-ayodele/invoice-checker/internal/entity"
)

// DocumentStore keeps at most one document per identity key, sorted by
// entity.CompareDocuments. It does no locking of its own; Workspace guards it.
type DocumentStore struct {
	docs []*entity.Document
}

// Upsert replaces any document with the same identity key and re-sorts.
// It returns the replaced document, if any.
func (s *DocumentStore) Upsert(doc *entity.Document) *entity.Document {
	key := doc.IdentityKey()
	var replaced *entity.Document
	s.docs = slices.DeleteFunc(s.docs, func(d *entity.Document) bool {
		if d.IdentityKey() == key {
			replaced = d
			return true
		}
		return false
	})
	s.docs = append(s.docs, doc)
	slices.SortStableFunc(s.docs, entity.CompareDocuments)
	return replaced
}

// Snapshot returns a copy of the ordered list. Documents are shared; they are immutable once stored.
func (s *DocumentStore) Snapshot() []*entity.Document {
	return slices.Clone(s.docs)
}

func (s *DocumentStore) Get(key string) *entity.Document {
	for _, d := range s.docs {
		if d.IdentityKey() == key {
			return d
		}
	}
	return nil
}

// Remove drops the document with key and reports whether one existed.
func (s *DocumentStore) Remove(key string) bool {
	n := len(s.docs)
	s.docs = slices.DeleteFunc(s.docs, func(d *entity.Document) bool { return d.IdentityKey() == key })
	return len(s.docs) != n
}

func (s *DocumentStore) Len() int { return len(s.docs) }

func (s *DocumentStore) Clear() { s.docs = nil }

package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/extract"
)

func page(n string) extract.Request { return extract.Request{Path: "/a.pdf", Pages: n} }

func TestMergeTablesSortedRegardlessOfOrder(t *testing.T) {
	parts := []Part{
		{Request: page("3"), Outcome: extract.Outcome{Tables: []entity.Table{{Page: 3, Index: 1}, {Page: 3, Index: 0}}}},
		{Request: page("1"), Outcome: extract.Outcome{Tables: []entity.Table{{Page: 1, Index: 0}}}},
	}
	doc := Merge(entity.NewDocumentShell("/a.pdf"), parts)

	var keys []entity.TableKey
	for _, tbl := range doc.Tables {
		keys = append(keys, tbl.Key())
	}
	assert.Equal(t, []entity.TableKey{{Page: 1, Index: 0}, {Page: 3, Index: 0}, {Page: 3, Index: 1}}, keys)
	assert.Empty(t, doc.Error)
}

func TestMergeFirstBillingPeriodWins(t *testing.T) {
	parts := []Part{
		{Request: page("1"), Outcome: extract.Outcome{BillingPeriodStart: "  "}},
		{Request: page("3"), Outcome: extract.Outcome{BillingPeriodStart: "2024-03-01", BillingPeriodEnd: "2024-03-31"}},
		{Request: page("5"), Outcome: extract.Outcome{BillingPeriodStart: "2024-05-01", BillingPeriodEnd: "2024-05-31"}},
	}
	doc := Merge(entity.NewDocumentShell("/a.pdf"), parts)
	assert.Equal(t, "2024-03-01", doc.BillingPeriodStartRaw)
	assert.Equal(t, "2024-03-31", doc.BillingPeriodEndRaw)
	require.NotNil(t, doc.BillingPeriodStart)
	assert.Equal(t, 3, int(doc.BillingPeriodStart.Month()))
}

func TestMergeErrorAggregationWithPageProvenance(t *testing.T) {
	parts := []Part{
		{Request: page("1"), Outcome: extract.Outcome{Error: "no tables found"}},
		{Request: page("3"), Outcome: extract.Outcome{Tables: []entity.Table{{Page: 3, Index: 0}}}},
	}
	doc := Merge(entity.NewDocumentShell("/a.pdf"), parts)
	assert.Len(t, doc.Tables, 1)
	assert.Contains(t, doc.Error, "1: no tables found")
	assert.NotContains(t, doc.Error, "3")
}

func TestMergeAllPagesErrorHasNoLabel(t *testing.T) {
	doc := Merge(entity.NewDocumentShell("/a.pdf"), []Part{
		{Request: page("all"), Outcome: extract.Outcome{Error: "extraction script returned empty output"}},
	})
	assert.Equal(t, "extraction script returned empty output;", doc.Error)
	assert.Empty(t, doc.Tables)
}

func TestMergeKeepsExistingSoftError(t *testing.T) {
	shell := entity.NewDocumentShell("/a.pdf")
	shell.Error = "invoice type detection failed: pdftotext missing"
	doc := Merge(shell, []Part{
		{Request: page("2"), Outcome: extract.Outcome{Error: "timeout"}},
	})
	assert.Equal(t, "invoice type detection failed: pdftotext missing; page 2: timeout;", doc.Error)
}

func TestMergeNothing(t *testing.T) {
	assert.NotPanics(t, func() {
		doc := Merge(nil, nil)
		assert.Empty(t, doc.Tables)
		assert.Empty(t, doc.Error)
		assert.Nil(t, doc.BillingPeriodStart)
	})
}

package entity

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAreaDefinitionNormalizesCorners(t *testing.T) {
	a := NewAreaDefinition(300, 50, 20.5, 700)
	assert.Equal(t, AreaDefinition{X1: 20.5, Y1: 50, X2: 300, Y2: 700}, a)
	assert.Equal(t, "20.50,50.00,300.00,700.00", a.RegionString())
	assert.InDelta(t, 279.5, a.Width(), 1e-9)
	assert.InDelta(t, 650, a.Height(), 1e-9)
}

func TestAreaDefinitionUnmarshalNormalizes(t *testing.T) {
	var a AreaDefinition
	require.NoError(t, json.Unmarshal([]byte(`{"x1":10,"y1":90,"x2":5,"y2":20}`), &a))
	assert.Equal(t, AreaDefinition{X1: 5, Y1: 20, X2: 10, Y2: 90}, a)
}

func TestExtractionConfigRoundTripKeepsPageMap(t *testing.T) {
	cfg := NewExtractionConfig("Telekom")
	cfg.UsePageSpecificAreas = true
	cfg.AddPageArea(3, NewAreaDefinition(1, 2, 3, 4))
	cfg.AddPageArea(1, NewAreaDefinition(5, 6, 7, 8))

	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"pageSpecificAreasMap":{"1":`)

	var back ExtractionConfig
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []int{1, 3}, back.ConfiguredPages())
	assert.Equal(t, cfg.AreasForPage(3), back.AreasForPage(3))
}

func TestExtractionConfigBlankNameAndAreaEditing(t *testing.T) {
	cfg := NewExtractionConfig("   ")
	assert.Equal(t, DefaultConfigName, cfg.Name)

	a := NewAreaDefinition(0, 0, 10, 10)
	cfg.AddPageArea(2, a)
	cfg.SetPageAreas(4, nil)
	assert.Equal(t, []int{2}, cfg.ConfiguredPages())

	cfg.RemovePageArea(2, a)
	assert.Empty(t, cfg.ConfiguredPages())
	_, ok := cfg.PageAreas[2]
	assert.False(t, ok)

	cfg.AddGlobalArea(a)
	assert.Equal(t, []AreaDefinition{a}, cfg.AreasForPage(9))
	cfg.RemoveGlobalArea(a)
	assert.Empty(t, cfg.GlobalAreas)
}

func TestExtractionConfigCloneIsDeep(t *testing.T) {
	cfg := NewExtractionConfig("x")
	cfg.AddPageArea(1, NewAreaDefinition(0, 0, 1, 1))
	cp := cfg.Clone()
	cp.AddPageArea(1, NewAreaDefinition(2, 2, 3, 3))
	assert.Len(t, cfg.PageAreas[1], 1)
	assert.Len(t, cp.PageAreas[1], 2)
}

func TestInvoiceTypeRuleDefaults(t *testing.T) {
	r := NewInvoiceTypeRule(" Telekom ", " Deutsche Telekom ", "", "", "", "", "", "", "")
	assert.Equal(t, "Telekom", r.Type)
	assert.Equal(t, "Deutsche Telekom", r.IdentifyingKeyword())
	assert.Equal(t, "lattice", r.DefaultFlavor)
	assert.Equal(t, "2", r.DefaultRowTol)
	assert.True(t, r.UsesManualAreaConfig())
	assert.False(t, r.IsDefault())

	d := DefaultInvoiceTypeRule()
	assert.True(t, d.IsDefault())
	assert.Equal(t, "stream", d.DefaultFlavor)
	assert.Equal(t, "5", d.DefaultRowTol)
	assert.Equal(t, []string{"Others"}, d.IncludePatterns())
	assert.Empty(t, d.ExcludePatterns())
}

func TestDocumentSetBillingPeriod(t *testing.T) {
	d := NewDocumentShell("/tmp/in/a.pdf")
	assert.Equal(t, "a.pdf", d.SourcePDF)
	assert.Equal(t, "/tmp/in/a.pdf", d.IdentityKey())

	d.SetBillingPeriod("2024-01-01", "not-a-date")
	require.NotNil(t, d.BillingPeriodStart)
	assert.Equal(t, 2024, d.BillingPeriodStart.Year())
	assert.Nil(t, d.BillingPeriodEnd)
	assert.Equal(t, "not-a-date", d.BillingPeriodEndRaw)
}

func TestDocumentIdentityKeyFallsBackToFileName(t *testing.T) {
	d := &Document{SourcePDF: "x.pdf", FullPath: "  "}
	assert.Equal(t, "x.pdf", d.IdentityKey())
}

func TestCompareDocuments(t *testing.T) {
	mk := func(name, start string) *Document {
		d := &Document{SourcePDF: name, FullPath: "/" + name}
		d.SetBillingPeriod(start, "")
		return d
	}
	docs := []*Document{
		mk("c.pdf", ""),
		mk("", ""),
		mk("B.pdf", "2024-02-01"),
		mk("a.pdf", "2024-02-01"),
		mk("z.pdf", "2023-12-01"),
		mk("A2.pdf", ""),
	}
	slices.SortFunc(docs, CompareDocuments)

	var names []string
	for _, d := range docs {
		names = append(names, d.SourcePDF)
	}
	assert.Equal(t, []string{"z.pdf", "a.pdf", "B.pdf", "A2.pdf", "c.pdf", ""}, names)
}

func TestSortTablesByPageThenIndex(t *testing.T) {
	d := &Document{Tables: []Table{
		{Page: 3, Index: 0},
		{Page: 1, Index: 1},
		{Page: 1, Index: 0},
	}}
	d.SortTables()
	assert.Equal(t, TableKey{Page: 1, Index: 0}, d.FirstTable().Key())
	assert.Equal(t, TableKey{Page: 3, Index: 0}, d.Tables[2].Key())
	assert.NotNil(t, d.TableByKey(TableKey{Page: 1, Index: 1}))
	assert.Nil(t, d.TableByKey(TableKey{Page: 9, Index: 0}))
}

func TestTableCounts(t *testing.T) {
	tbl := Table{Data: [][]string{{"h1", "h2"}, {"a"}, {"b", "c", "d"}}}
	assert.Equal(t, 2, tbl.RowCount())
	assert.Equal(t, 3, tbl.ColumnCount())
	assert.Equal(t, 0, (&Table{}).RowCount())
}

package entity

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-checker/constants"
)

// BillingDateLayout is the layout the extraction tool reports billing dates in.
const BillingDateLayout = "2006-01-02"

// Document is the merged result of processing one PDF. Once committed to the workspace it is
// never mutated again; reprocessing replaces it.
type Document struct {
	SourcePDF             string              `json:"source_pdf"`
	FullPath              string              `json:"full_path"`
	BillingPeriodStartRaw string              `json:"billing_period_start,omitempty"`
	BillingPeriodEndRaw   string              `json:"billing_period_end,omitempty"`
	BillingPeriodStart    *time.Time          `json:"-"`
	BillingPeriodEnd      *time.Time          `json:"-"`
	Tables                []Table             `json:"tables"`
	Error                 string              `json:"error,omitempty"`
	InvoiceType           *InvoiceTypeRule    `json:"invoice_type,omitempty"`
	Status                constants.JobStatus `json:"status,omitempty"`
	ProcessedAt           time.Time           `json:"processed_at"`
}

// NewDocumentShell returns a document carrying only path metadata.
func NewDocumentShell(path string) *Document {
	return &Document{
		SourcePDF: filepath.Base(path),
		FullPath:  path,
	}
}

// IdentityKey deduplicates documents: the full path, or the file name when the path is blank.
func (d *Document) IdentityKey() string {
	if strings.TrimSpace(d.FullPath) != "" {
		return d.FullPath
	}
	return d.SourcePDF
}

// SetBillingPeriod stores the raw values and parses them. Unparseable values keep the raw
// string and leave the date nil.
func (d *Document) SetBillingPeriod(start, end string) {
	d.BillingPeriodStartRaw = start
	d.BillingPeriodEndRaw = end
	d.BillingPeriodStart = parseBillingDate(start)
	d.BillingPeriodEnd = parseBillingDate(end)
}

func parseBillingDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(BillingDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func (d *Document) HasError() bool { return strings.TrimSpace(d.Error) != "" }

// FirstTable returns the first table in sort order, or nil.
func (d *Document) FirstTable() *Table {
	if len(d.Tables) == 0 {
		return nil
	}
	return &d.Tables[0]
}

// TableByKey looks a table up by (page, index).
func (d *Document) TableByKey(k TableKey) *Table {
	for i := range d.Tables {
		if d.Tables[i].Key() == k {
			return &d.Tables[i]
		}
	}
	return nil
}

// SortTables orders tables by (page, index), stable for equal keys.
func (d *Document) SortTables() {
	slices.SortStableFunc(d.Tables, CompareTables)
}

// CompareDocuments orders by billing start ascending (nil last), then file name
// case-insensitively (blank last).
func CompareDocuments(a, b *Document) int {
	switch {
	case a.BillingPeriodStart == nil && b.BillingPeriodStart != nil:
		return 1
	case a.BillingPeriodStart != nil && b.BillingPeriodStart == nil:
		return -1
	case a.BillingPeriodStart != nil && b.BillingPeriodStart != nil:
		if c := a.BillingPeriodStart.Compare(*b.BillingPeriodStart); c != 0 {
			return c
		}
	}

	an, bn := strings.TrimSpace(a.SourcePDF), strings.TrimSpace(b.SourcePDF)
	switch {
	case an == "" && bn == "":
		return 0
	case an == "":
		return 1
	case bn == "":
		return -1
	}
	return strings.Compare(strings.ToLower(an), strings.ToLower(bn))
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	if d.Tables != nil {
		out.Tables = make([]Table, len(d.Tables))
		for i, t := range d.Tables {
			out.Tables[i] = t.Clone()
		}
	}
	if d.InvoiceType != nil {
		rule := *d.InvoiceType
		out.InvoiceType = &rule
	}
	return &out
}

// String is the label shown in listings: file name plus billing period and a marker for errors.
func (d *Document) String() string {
	var b strings.Builder
	b.WriteString(d.SourcePDF)
	if d.BillingPeriodStart != nil {
		b.WriteString(" (")
		b.WriteString(d.BillingPeriodStart.Format("02.01.2006"))
		if d.BillingPeriodEnd != nil {
			b.WriteString(" - ")
			b.WriteString(d.BillingPeriodEnd.Format("02.01.2006"))
		}
		b.WriteString(")")
	}
	if d.HasError() {
		b.WriteString(" [error]")
	}
	if n := len(d.Tables); n > 0 {
		fmt.Fprintf(&b, " [%d tables]", n)
	}
	return b.String()
}

package merge

import (
	"strings"

	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/extract"
)

// Part pairs a request with its outcome. Parts must be passed in request order.
type Part struct {
	Request extract.Request
	Outcome extract.Outcome
}

// Merge combines the outcomes of one document into shell and returns it.
// Tables end up sorted by (page, index); the first outcome with a billing start supplies the
// billing period; outcome errors are appended after any error already on the shell.
func Merge(shell *entity.Document, parts []Part) *entity.Document {
	doc := shell
	if doc == nil {
		doc = &entity.Document{}
	}

	var errs strings.Builder
	if doc.HasError() {
		errs.WriteString(strings.TrimSpace(doc.Error))
		errs.WriteString("; ")
	}

	billingSet := strings.TrimSpace(doc.BillingPeriodStartRaw) != ""
	var tables []entity.Table
	tables = append(tables, doc.Tables...)

	for _, p := range parts {
		o := p.Outcome
		tables = append(tables, o.Tables...)

		if !billingSet && strings.TrimSpace(o.BillingPeriodStart) != "" {
			doc.SetBillingPeriod(o.BillingPeriodStart, o.BillingPeriodEnd)
			billingSet = true
		}

		if o.Failed() {
			if label := p.Request.PageLabel(); label != "" {
				errs.WriteString("page ")
				errs.WriteString(label)
				errs.WriteString(": ")
			}
			errs.WriteString(strings.TrimSpace(o.Error))
			errs.WriteString("; ")
		}
	}

	doc.Tables = tables
	doc.SortTables()
	doc.Error = strings.TrimSpace(errs.String())
	return doc
}

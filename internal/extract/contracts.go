package extract

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/invoice-checker/constants"
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
)

// Client runs the table-extraction tool once per request. It never returns a zero Outcome
// on failure: failures are reported in Outcome.Error (and typed in Outcome.Err).
type Client interface {
	Extract(ctx context.Context, req Request) Outcome
}

// Params are the tool parameters after defaults have been resolved.
type Params struct {
	Flavor string
	RowTol string
}

// Request is one tool invocation: a document, a page selector and optional regions.
type Request struct {
	Path    string
	Params  Params
	Regions []string
	Pages   string // "all" or a single 1-based page number
}

// PageLabel is the provenance prefix used in merged error messages; blank for all pages.
func (r Request) PageLabel() string {
	p := strings.TrimSpace(r.Pages)
	if p == "" || strings.EqualFold(p, constants.PageAll) {
		return ""
	}
	return p
}

// Outcome is the result of one Request.
type Outcome struct {
	SourcePDF          string
	FullPath           string
	BillingPeriodStart string
	BillingPeriodEnd   string
	Tables             []entity.Table
	Error              string
	Err                error
}

// Failed reports whether the outcome carries an error message.
func (o Outcome) Failed() bool { return strings.TrimSpace(o.Error) != "" }

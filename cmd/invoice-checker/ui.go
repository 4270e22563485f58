package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/invoice-checker/internal/entity"
)

// ProgressBar wraps a progressbar instance fed by batch progress fractions.
type ProgressBar struct {
	bar   *progressbar.ProgressBar
	total int64
}

func NewProgressBar(total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pdfs"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ProgressBar{bar: bar, total: total}
}

// SetFraction moves the bar to fraction (0..1) of the total.
func (p *ProgressBar) SetFraction(fraction float64) {
	_ = p.bar.Set64(int64(fraction*float64(p.total) + 0.5))
}

func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// printDocuments writes one line per document.
func printDocuments(w io.Writer, docs []*entity.Document) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tTYPE\tSTATUS\tTABLES\tBILLING\tERROR")
	for _, d := range docs {
		typ := ""
		if d.InvoiceType != nil {
			typ = d.InvoiceType.Type
		}
		billing := strings.Trim(d.BillingPeriodStartRaw+" - "+d.BillingPeriodEndRaw, " -")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", d.SourcePDF, typ, d.Status, len(d.Tables), billing, d.Error)
	}
	_ = tw.Flush()
}

func Success(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "✓ %s\n", fmt.Sprintf(format, args...))
}

func Warning(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "⚠ %s\n", fmt.Sprintf(format, args...))
}

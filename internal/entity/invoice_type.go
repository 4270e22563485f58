package entity

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-checker/constants"
)

const (
	// DefaultTypeKeyword marks the fallback rule in the rule file.
	DefaultTypeKeyword = "Others"
	// ManualAreaConfig tells the coordinator to use the region config of the submission.
	ManualAreaConfig = "Config*"
)

// InvoiceTypeRule maps keyword patterns found in a document to extraction defaults.
// All include patterns must match and no exclude pattern may match.
type InvoiceTypeRule struct {
	Type          string `json:"type"`
	KeywordIncl1  string `json:"keyword_incl_1"`
	KeywordIncl2  string `json:"keyword_incl_2,omitempty"`
	KeywordIncl3  string `json:"keyword_incl_3,omitempty"`
	KeywordExcl1  string `json:"keyword_excl_1,omitempty"`
	KeywordExcl2  string `json:"keyword_excl_2,omitempty"`
	AreaType      string `json:"area_type,omitempty"`
	DefaultFlavor string `json:"default_flavor"`
	DefaultRowTol string `json:"default_row_tol"`
}

// NewInvoiceTypeRule trims every field and applies flavor/row-tolerance defaults.
func NewInvoiceTypeRule(typ, incl1, incl2, incl3, excl1, excl2, areaType, flavor, rowTol string) InvoiceTypeRule {
	r := InvoiceTypeRule{
		Type:          strings.TrimSpace(typ),
		KeywordIncl1:  strings.TrimSpace(incl1),
		KeywordIncl2:  strings.TrimSpace(incl2),
		KeywordIncl3:  strings.TrimSpace(incl3),
		KeywordExcl1:  strings.TrimSpace(excl1),
		KeywordExcl2:  strings.TrimSpace(excl2),
		AreaType:      strings.TrimSpace(areaType),
		DefaultFlavor: strings.TrimSpace(flavor),
		DefaultRowTol: strings.TrimSpace(rowTol),
	}
	if r.DefaultFlavor == "" {
		r.DefaultFlavor = string(constants.DefaultFlavor)
	}
	if r.DefaultRowTol == "" {
		r.DefaultRowTol = constants.DefaultRowTol
	}
	return r
}

// DefaultInvoiceTypeRule is used when no rule file provides an "Others" row.
func DefaultInvoiceTypeRule() InvoiceTypeRule {
	return NewInvoiceTypeRule(DefaultTypeKeyword, DefaultTypeKeyword, "", "", "", "", ManualAreaConfig, string(constants.Stream), "5")
}

func (r InvoiceTypeRule) IdentifyingKeyword() string { return r.KeywordIncl1 }

func (r InvoiceTypeRule) IsDefault() bool {
	return strings.EqualFold(r.IdentifyingKeyword(), DefaultTypeKeyword)
}

// IncludePatterns returns the non-blank include keywords in column order.
func (r InvoiceTypeRule) IncludePatterns() []string {
	return nonBlank(r.KeywordIncl1, r.KeywordIncl2, r.KeywordIncl3)
}

func (r InvoiceTypeRule) ExcludePatterns() []string {
	return nonBlank(r.KeywordExcl1, r.KeywordExcl2)
}

// UsesManualAreaConfig is true when the rule does not name its own region config.
func (r InvoiceTypeRule) UsesManualAreaConfig() bool {
	return r.AreaType == "" || r.AreaType == ManualAreaConfig
}

func (r InvoiceTypeRule) String() string {
	return fmt.Sprintf("InvoiceTypeRule{keyword=%q, type=%q}", r.IdentifyingKeyword(), r.Type)
}

func nonBlank(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

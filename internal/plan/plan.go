package plan

import (
	"strconv"

	"github.com/joseph-ayodele/invoice-checker/constants"
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/extract"
)

// Kind tags the strategy a Plan carries.
type Kind int

const (
	KindNone    Kind = iota // whole document, no regions
	KindGlobal              // whole document, same regions on every page
	KindPerPage             // one request per configured page
)

func (k Kind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindPerPage:
		return "per_page"
	default:
		return "none"
	}
}

// PageRegions are the regions of one page.
type PageRegions struct {
	Page    int
	Regions []string
}

// Plan is the extraction strategy for one document. Regions is set for KindGlobal,
// Pages (ascending) for KindPerPage.
type Plan struct {
	Kind    Kind
	Config  string
	Regions []string
	Pages   []PageRegions
}

// FromConfig derives the plan for cfg. A nil config, or page-specific mode without any page
// carrying regions, yields KindNone.
func FromConfig(cfg *entity.ExtractionConfig) Plan {
	if cfg == nil {
		return Plan{Kind: KindNone}
	}
	if !cfg.UsePageSpecificAreas {
		return Plan{Kind: KindGlobal, Config: cfg.Name, Regions: entity.RegionStrings(cfg.GlobalAreas)}
	}

	var pages []PageRegions
	for _, p := range cfg.ConfiguredPages() {
		if regions := entity.RegionStrings(cfg.PageAreas[p]); len(regions) > 0 {
			pages = append(pages, PageRegions{Page: p, Regions: regions})
		}
	}
	if len(pages) == 0 {
		return Plan{Kind: KindNone, Config: cfg.Name}
	}
	return Plan{Kind: KindPerPage, Config: cfg.Name, Pages: pages}
}

// Requests expands the plan into the ordered request list for path.
func (p Plan) Requests(path string, params extract.Params) []extract.Request {
	switch p.Kind {
	case KindPerPage:
		reqs := make([]extract.Request, 0, len(p.Pages))
		for _, pr := range p.Pages {
			reqs = append(reqs, extract.Request{
				Path:    path,
				Params:  params,
				Regions: append([]string(nil), pr.Regions...),
				Pages:   strconv.Itoa(pr.Page),
			})
		}
		return reqs
	case KindGlobal:
		var regions []string
		if len(p.Regions) > 0 {
			regions = append(regions, p.Regions...)
		}
		return []extract.Request{{Path: path, Params: params, Regions: regions, Pages: constants.PageAll}}
	default:
		return []extract.Request{{Path: path, Params: params, Pages: constants.PageAll}}
	}
}

// SelectRequests is FromConfig followed by Requests.
func SelectRequests(cfg *entity.ExtractionConfig, path string, params extract.Params) []extract.Request {
	return FromConfig(cfg).Requests(path, params)
}

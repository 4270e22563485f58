package entity

import (
	"slices"
	"sort"
	"strings"
)

// DefaultConfigName replaces a blank configuration name.
const DefaultConfigName = "Standard"

// ExtractionConfig is a named set of regions, either applied to every page (global)
// or keyed by 1-based page number (page specific).
type ExtractionConfig struct {
	Name                 string                   `json:"name"`
	UsePageSpecificAreas bool                     `json:"usePageSpecificAreas"`
	GlobalAreas          []AreaDefinition         `json:"globalAreasList"`
	PageAreas            map[int][]AreaDefinition `json:"pageSpecificAreasMap"`
}

func NewExtractionConfig(name string) *ExtractionConfig {
	c := &ExtractionConfig{Name: name, PageAreas: map[int][]AreaDefinition{}}
	c.Normalize()
	return c
}

// Normalize fills defaults after construction or decoding.
func (c *ExtractionConfig) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = DefaultConfigName
	}
	if c.PageAreas == nil {
		c.PageAreas = map[int][]AreaDefinition{}
	}
}

func (c *ExtractionConfig) AddGlobalArea(a AreaDefinition) {
	c.GlobalAreas = append(c.GlobalAreas, a)
}

func (c *ExtractionConfig) RemoveGlobalArea(a AreaDefinition) {
	if i := slices.Index(c.GlobalAreas, a); i >= 0 {
		c.GlobalAreas = slices.Delete(c.GlobalAreas, i, i+1)
	}
}

func (c *ExtractionConfig) AddPageArea(page int, a AreaDefinition) {
	if c.PageAreas == nil {
		c.PageAreas = map[int][]AreaDefinition{}
	}
	c.PageAreas[page] = append(c.PageAreas[page], a)
}

// RemovePageArea removes one area; the page entry disappears once empty.
func (c *ExtractionConfig) RemovePageArea(page int, a AreaDefinition) {
	areas := c.PageAreas[page]
	if i := slices.Index(areas, a); i >= 0 {
		areas = slices.Delete(areas, i, i+1)
	}
	if len(areas) == 0 {
		delete(c.PageAreas, page)
		return
	}
	c.PageAreas[page] = areas
}

// SetPageAreas replaces the areas of a page; an empty list removes the page.
func (c *ExtractionConfig) SetPageAreas(page int, areas []AreaDefinition) {
	if len(areas) == 0 {
		delete(c.PageAreas, page)
		return
	}
	if c.PageAreas == nil {
		c.PageAreas = map[int][]AreaDefinition{}
	}
	c.PageAreas[page] = slices.Clone(areas)
}

// AreasForPage returns the areas in effect for a page under the current mode.
func (c *ExtractionConfig) AreasForPage(page int) []AreaDefinition {
	if c.UsePageSpecificAreas {
		return slices.Clone(c.PageAreas[page])
	}
	return slices.Clone(c.GlobalAreas)
}

// ConfiguredPages lists pages with at least one area, ascending.
func (c *ExtractionConfig) ConfiguredPages() []int {
	pages := make([]int, 0, len(c.PageAreas))
	for p, areas := range c.PageAreas {
		if len(areas) > 0 {
			pages = append(pages, p)
		}
	}
	sort.Ints(pages)
	return pages
}

func (c *ExtractionConfig) Clone() *ExtractionConfig {
	if c == nil {
		return nil
	}
	out := &ExtractionConfig{
		Name:                 c.Name,
		UsePageSpecificAreas: c.UsePageSpecificAreas,
		GlobalAreas:          slices.Clone(c.GlobalAreas),
		PageAreas:            make(map[int][]AreaDefinition, len(c.PageAreas)),
	}
	for p, areas := range c.PageAreas {
		out.PageAreas[p] = slices.Clone(areas)
	}
	return out
}

func (c *ExtractionConfig) String() string { return c.Name }

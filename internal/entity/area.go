package entity

import (
	"encoding/json"
	"fmt"
	"math"
)

// AreaDefinition is a rectangular region in PDF page coordinates (origin bottom-left).
// X1/Y1 is always the lower-left corner, X2/Y2 the upper-right one.
type AreaDefinition struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewAreaDefinition builds a normalized area from two arbitrary corners.
func NewAreaDefinition(x1, y1, x2, y2 float64) AreaDefinition {
	return AreaDefinition{
		X1: math.Min(x1, x2),
		Y1: math.Min(y1, y2),
		X2: math.Max(x1, x2),
		Y2: math.Max(y1, y2),
	}
}

// UnmarshalJSON decodes {x1,y1,x2,y2} and normalizes the corners.
func (a *AreaDefinition) UnmarshalJSON(b []byte) error {
	type raw AreaDefinition
	var r raw
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	*a = NewAreaDefinition(r.X1, r.Y1, r.X2, r.Y2)
	return nil
}

// RegionString renders the area the way the extraction tool expects it: "x1,y1,x2,y2".
func (a AreaDefinition) RegionString() string {
	return fmt.Sprintf("%.2f,%.2f,%.2f,%.2f", a.X1, a.Y1, a.X2, a.Y2)
}

func (a AreaDefinition) Width() float64  { return math.Abs(a.X2 - a.X1) }
func (a AreaDefinition) Height() float64 { return math.Abs(a.Y2 - a.Y1) }

func (a AreaDefinition) String() string {
	return fmt.Sprintf("[%.1f, %.1f, %.1f, %.1f]", a.X1, a.Y1, a.X2, a.Y2)
}

// RegionStrings converts a list of areas; nil for an empty list.
func RegionStrings(areas []AreaDefinition) []string {
	if len(areas) == 0 {
		return nil
	}
	out := make([]string, 0, len(areas))
	for _, a := range areas {
		out = append(out, a.RegionString())
	}
	return out
}

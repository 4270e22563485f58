package constants

import "strings"

// Flavor is the table-detection variant the extraction tool runs with.
type Flavor string

const (
	Lattice Flavor = "lattice" // ruled-line based
	Stream  Flavor = "stream"  // whitespace based
)

const (
	DefaultFlavor = Lattice
	DefaultRowTol = "2"
)

// PageAll is the page selector covering every page of a document.
const PageAll = "all"

// ParseFlavor lowercases and trims the input; ok is false for unknown flavors.
func ParseFlavor(s string) (Flavor, bool) {
	switch Flavor(strings.ToLower(strings.TrimSpace(s))) {
	case Lattice:
		return Lattice, true
	case Stream:
		return Stream, true
	default:
		return DefaultFlavor, false
	}
}

// Flavors lists the supported flavors as strings.
func Flavors() []string {
	return []string{string(Lattice), string(Stream)}
}

// Package fragment generates theoretical fragment-ion series for peptide
// candidates, including neutral-loss, isotope and charge-state variants.
package fragment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/camvtools/camv/internal/mass"
)

// Series identifies a fragment-ion family.
type Series int

const (
	SeriesB Series = iota
	SeriesY
	SeriesA
	SeriesParent   // intact peptide (MH)
	SeriesInternal // double backbone cleavage
	SeriesImmonium // diagnostic immonium ions (pY)
	SeriesReporter // isobaric label reporter ions
)

// String returns the series letter used in ion names.
func (s Series) String() string {
	switch s {
	case SeriesB:
		return "b"
	case SeriesY:
		return "y"
	case SeriesA:
		return "a"
	case SeriesParent:
		return "MH"
	case SeriesInternal:
		return "int"
	case SeriesImmonium:
		return "imm"
	case SeriesReporter:
		return "rep"
	default:
		return "?"
	}
}

// Ion is one theoretical ion. Ions are value types created fresh per
// (candidate, assignment) evaluation and never mutated afterwards.
type Ion struct {
	Series   Series
	Position int    // cleavage index for a/b/y (1-based); 0 otherwise
	Label    string // display label for internal/immonium/reporter ions

	// SpanStart/SpanEnd delimit the residue index range [start, end)
	// covered by the ion, for site-determining analysis.
	SpanStart int
	SpanEnd   int

	// Losses are the applied neutral losses, sorted.
	Losses []mass.Loss

	Charge  int
	Isotope int

	// Mass is the neutral (uncharged, monoisotopic) fragment mass for
	// backbone and parent ions. Reporter and immonium ions store their
	// conventional singly protonated m/z minus one proton so that MZ()
	// reproduces the published values.
	Mass float64
}

// MZ returns the ion's mass-to-charge ratio including its isotope shift.
func (i Ion) MZ() float64 {
	z := i.Charge
	if z < 1 {
		z = 1
	}
	return (i.Mass + float64(i.Isotope)*mass.DeltaC13 + float64(z)*mass.Proton) / float64(z)
}

// Name renders a human-readable ion name, e.g. "y7-H3PO4^2".
func (i Ion) Name() string {
	var b strings.Builder
	switch i.Series {
	case SeriesB, SeriesY, SeriesA:
		fmt.Fprintf(&b, "%s%d", i.Series, i.Position)
	case SeriesParent:
		b.WriteString("MH")
	default:
		b.WriteString(i.Label)
	}
	for _, l := range i.Losses {
		b.WriteByte('-')
		b.WriteString(string(l))
	}
	if i.Isotope > 0 {
		fmt.Fprintf(&b, "+%dC13", i.Isotope)
	}
	if i.Charge > 1 {
		fmt.Fprintf(&b, "^%d", i.Charge)
	}
	return b.String()
}

// Key identifies the ion by (series, position/span, loss multiset, charge,
// isotope). Two ions with equal keys are the same theoretical species and
// never coexist in one generated set. The display Label is deliberately
// excluded: it encodes modification placement, which must not distinguish
// the same species across sibling assignments.
func (i Ion) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d:%d-%d", i.Series, i.Position, i.SpanStart, i.SpanEnd)
	if i.Series == SeriesReporter {
		fmt.Fprintf(&b, ":%s", i.Label)
	}
	for _, l := range i.Losses {
		b.WriteByte('-')
		b.WriteString(string(l))
	}
	fmt.Fprintf(&b, ":%d:%d", i.Charge, i.Isotope)
	return b.String()
}

// IsBackbone reports whether the ion belongs to a primary backbone series,
// the strongest class of evidence for peptide identity.
func (i Ion) IsBackbone() bool {
	return i.Series == SeriesB || i.Series == SeriesY
}

// SortByMZ orders ions ascending by m/z, the order the matcher expects.
func SortByMZ(ions []Ion) {
	sort.Slice(ions, func(a, b int) bool { return ions[a].MZ() < ions[b].MZ() })
}

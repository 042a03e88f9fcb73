// Package peptide provides peptide candidate modeling and enumeration of
// variable-modification site assignments.
package peptide

import (
	"fmt"
	"sort"
	"strings"

	"github.com/camvtools/camv/internal/mass"
)

// Terminal pseudo-positions for modifications that attach to the peptide
// backbone termini rather than a residue side chain.
const (
	PosNTerm = -1
	PosCTerm = -2
)

// SiteMod is a modification placed at a specific site.
type SiteMod struct {
	Position int // 0-based residue index, or PosNTerm / PosCTerm
	Name     string
}

// VarMod declares a variable modification reported by the search engine:
// Count occurrences of Name, placeable on any residue in Residues and/or the
// peptide termini.
type VarMod struct {
	Count    int
	Name     string
	Residues string // applicable one-letter codes, e.g. "STY"
	NTerm    bool
	CTerm    bool
}

// Query is one peptide-spectrum interpretation reported by the search
// engine, with enough metadata to enumerate and score its modification
// assignments.
type Query struct {
	Accessions  []string
	Proteins    []string
	Sequence    string
	Scan        int
	Charge      int
	PrecursorMZ float64
	Score       float64
	Rank        int

	Fixed    []SiteMod
	Variable []VarMod

	// Reported is the search engine's own site placement, when it reports
	// one. Enumeration guarantees it survives truncation.
	Reported *Assignment

	// AltBestCount is the number of interpretations the engine reported as
	// tied for best rank. Values above 1 feed the ambiguity flag.
	AltBestCount int
}

// Key returns a stable identity for the query, used for per-scan grouping
// and protein-hit merging.
func (q *Query) Key() string {
	return fmt.Sprintf("%s#%d", q.Sequence, q.Scan)
}

// MergeProteinHits folds another query's protein accessions into this one,
// keeping the union without duplicates.
func (q *Query) MergeProteinHits(other *Query) {
	q.Accessions = unionSorted(q.Accessions, other.Accessions)
	q.Proteins = unionSorted(q.Proteins, other.Proteins)
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks the sequence against the mass table. The ambiguous code
// 'X' is accepted; every other symbol must have a defined residue mass.
func (q *Query) Validate() error {
	for i := 0; i < len(q.Sequence); i++ {
		if _, err := mass.Expand(q.Sequence[i]); err != nil {
			return fmt.Errorf("peptide %s: %w", q.Sequence, err)
		}
	}
	return nil
}

// Assignment is one concrete placement of the variable modifications.
// The zero value is the empty assignment. Mods are kept sorted by position
// then name so equality is structural.
type Assignment struct {
	Mods []SiteMod
}

// NewAssignment builds a normalized assignment from the given placements.
func NewAssignment(mods []SiteMod) Assignment {
	out := make([]SiteMod, len(mods))
	copy(out, mods)
	sortSiteMods(out)
	return Assignment{Mods: out}
}

func sortSiteMods(mods []SiteMod) {
	sort.Slice(mods, func(i, j int) bool {
		if mods[i].Position != mods[j].Position {
			return mods[i].Position < mods[j].Position
		}
		return mods[i].Name < mods[j].Name
	})
}

// Key returns a canonical string identity, e.g. "Phospho@4;Oxidation@7".
// Assignments with identical position+name multisets share a key.
func (a Assignment) Key() string {
	if len(a.Mods) == 0 {
		return ""
	}
	parts := make([]string, len(a.Mods))
	for i, m := range a.Mods {
		parts[i] = fmt.Sprintf("%s@%d", m.Name, m.Position)
	}
	return strings.Join(parts, ";")
}

// Equal reports structural equality of two assignments.
func (a Assignment) Equal(b Assignment) bool {
	if len(a.Mods) != len(b.Mods) {
		return false
	}
	for i := range a.Mods {
		if a.Mods[i] != b.Mods[i] {
			return false
		}
	}
	return true
}

// ModsAt returns the modification names placed at a position, combining the
// assignment's variable placements with the query's fixed modifications.
func (q *Query) ModsAt(a Assignment, pos int) []string {
	var names []string
	for _, m := range q.Fixed {
		if m.Position == pos {
			names = append(names, m.Name)
		}
	}
	for _, m := range a.Mods {
		if m.Position == pos {
			names = append(names, m.Name)
		}
	}
	return names
}

// ModifiedString renders the sequence with modified residues in lower case,
// the conventional CAMV display form.
func (q *Query) ModifiedString(a Assignment) string {
	modded := make(map[int]bool, len(a.Mods))
	for _, m := range a.Mods {
		if m.Position >= 0 {
			modded[m.Position] = true
		}
	}
	var b strings.Builder
	for i := 0; i < len(q.Sequence); i++ {
		c := q.Sequence[i]
		if modded[i] {
			b.WriteByte(c | 0x20)
		} else {
			b.WriteByte(c &^ 0x20)
		}
	}
	return b.String()
}

package fragment

import (
	"fmt"

	"github.com/camvtools/camv/internal/mass"
	"github.com/camvtools/camv/internal/peptide"
)

// Config selects which ion series to generate and bounds neutral-loss
// stacking.
type Config struct {
	A         bool // a ions (b - CO)
	Internal  bool // double-cleavage internal fragments
	Immonium  bool // diagnostic immonium ions (pY)
	Reporters bool // isobaric label reporter ions

	// LossDepth bounds how many neutral losses may stack on one backbone or
	// parent ion. Internal fragments always use depth 1.
	LossDepth int
}

// DefaultConfig enables every series with loss depth 2.
func DefaultConfig() Config {
	return Config{A: true, Internal: true, Immonium: true, Reporters: true, LossDepth: 2}
}

func (c Config) lossDepth() int {
	if c.LossDepth <= 0 {
		return 2
	}
	return c.LossDepth
}

// internalLossDepth bounds loss stacking on internal fragments.
const internalLossDepth = 1

// site is one residue with its effective modifications for an assignment.
type site struct {
	residue byte
	mods    []string
	mass    float64
}

// Ions generates the theoretical charge-1 ion set for one candidate
// assignment. The output is free of duplicate (series, position, loss) keys
// and unsorted; use Expand and SortByMZ before matching.
func Ions(q *peptide.Query, a peptide.Assignment, cfg Config) ([]Ion, error) {
	sites, nTermMass, cTermMass, err := buildSites(q, a)
	if err != nil {
		return nil, err
	}
	n := len(sites)

	// Prefix sums of residue+modification masses.
	pre := make([]float64, n+1)
	for i, s := range sites {
		pre[i+1] = pre[i] + s.mass
	}

	var ions []Ion

	addWithLosses := func(base Ion, depth int) {
		avail := lossAvailability(base, sites)
		for _, combo := range lossCombos(avail, depth) {
			ion := base
			ion.Losses = combo
			for _, l := range combo {
				ion.Mass -= l.Mass()
			}
			ions = append(ions, ion)
		}
	}

	// b / a ions: prefix fragments carrying the N-terminal group.
	for i := 1; i < n; i++ {
		b := Ion{
			Series:   SeriesB,
			Position: i,
			SpanEnd:  i,
			Charge:   1,
			Mass:     nTermMass + pre[i],
		}
		addWithLosses(b, cfg.lossDepth())
		if cfg.A {
			ai := b
			ai.Series = SeriesA
			ai.Mass -= mass.LossCO.Mass()
			addWithLosses(ai, cfg.lossDepth())
		}
	}

	// y ions: suffix fragments carrying the C-terminal group plus water.
	for i := 1; i < n; i++ {
		y := Ion{
			Series:    SeriesY,
			Position:  i,
			SpanStart: n - i,
			SpanEnd:   n,
			Charge:    1,
			Mass:      cTermMass + (pre[n] - pre[n-i]) + mass.Water,
		}
		addWithLosses(y, cfg.lossDepth())
	}

	// Parent (MH) ion.
	parent := Ion{
		Series:  SeriesParent,
		SpanEnd: n,
		Charge:  1,
		Mass:    nTermMass + pre[n] + cTermMass + mass.Water,
	}
	addWithLosses(parent, cfg.lossDepth())

	// Internal fragments: double cleavage, b-type, excluding the terminal
	// residues (those spans are plain b/y ions).
	if cfg.Internal {
		for i := 1; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				ion := Ion{
					Series:    SeriesInternal,
					Label:     internalLabel(sites[i:j]),
					SpanStart: i,
					SpanEnd:   j,
					Charge:    1,
					Mass:      pre[j] - pre[i],
				}
				addWithLosses(ion, internalLossDepth)
			}
		}
	}

	if cfg.Immonium {
		ions = append(ions, immoniumIons(sites)...)
	}

	if cfg.Reporters {
		ions = append(ions, reporterIons(q)...)
	}

	return ions, nil
}

// buildSites resolves per-residue masses including fixed and assigned
// variable modifications, plus the terminal modification masses.
func buildSites(q *peptide.Query, a peptide.Assignment) ([]site, float64, float64, error) {
	n := len(q.Sequence)
	sites := make([]site, n)
	var nTerm, cTerm float64

	for i := 0; i < n; i++ {
		r := q.Sequence[i]
		m, err := mass.Residue(r)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("peptide %s: %w", q.Sequence, err)
		}
		sites[i] = site{residue: r, mass: m}
	}

	apply := func(sm peptide.SiteMod) error {
		delta, err := mass.Modification(sm.Name)
		if err != nil {
			return fmt.Errorf("peptide %s: %w", q.Sequence, err)
		}
		switch sm.Position {
		case peptide.PosNTerm:
			nTerm += delta
		case peptide.PosCTerm:
			cTerm += delta
		default:
			if sm.Position < 0 || sm.Position >= n {
				return fmt.Errorf("peptide %s: modification %s at invalid position %d",
					q.Sequence, sm.Name, sm.Position)
			}
			sites[sm.Position].mods = append(sites[sm.Position].mods, sm.Name)
			sites[sm.Position].mass += delta
		}
		return nil
	}

	for _, sm := range q.Fixed {
		if err := apply(sm); err != nil {
			return nil, 0, 0, err
		}
	}
	for _, sm := range a.Mods {
		if err := apply(sm); err != nil {
			return nil, 0, 0, err
		}
	}

	return sites, nTerm, cTerm, nil
}

// internalLabel renders an internal fragment's covered residues, modified
// positions in lower case.
func internalLabel(span []site) string {
	out := make([]byte, len(span))
	for i, s := range span {
		if hasLocalizableMod(s) {
			out[i] = s.residue | 0x20
		} else {
			out[i] = s.residue &^ 0x20
		}
	}
	return string(out)
}

func hasLocalizableMod(s site) bool {
	for _, m := range s.mods {
		if !mass.IsLabel(m) {
			return true
		}
	}
	return false
}

// immoniumIons emits the phospho-tyrosine diagnostic ion when the candidate
// carries one.
func immoniumIons(sites []site) []Ion {
	for i, s := range sites {
		if s.residue != 'Y' {
			continue
		}
		for _, m := range s.mods {
			if m != "Phospho" {
				continue
			}
			imm, _ := mass.Immonium('Y')
			phospho := mass.MustModification("Phospho")
			return []Ion{{
				Series:    SeriesImmonium,
				Label:     "pY",
				SpanStart: i,
				SpanEnd:   i + 1,
				Charge:    1,
				Mass:      imm + phospho - mass.Proton,
			}}
		}
	}
	return nil
}

// reporterIons emits one ion per quantitation channel for any isobaric
// label the query carries.
func reporterIons(q *peptide.Query) []Ion {
	var labels []string
	seen := map[string]bool{}
	for _, sm := range q.Fixed {
		if mass.IsLabel(sm.Name) && !seen[sm.Name] {
			seen[sm.Name] = true
			labels = append(labels, sm.Name)
		}
	}
	for _, vm := range q.Variable {
		if mass.IsLabel(vm.Name) && !seen[vm.Name] {
			seen[vm.Name] = true
			labels = append(labels, vm.Name)
		}
	}

	var ions []Ion
	for _, name := range labels {
		label, _ := mass.LabelByName(name)
		for c, channel := range label.Channels {
			ions = append(ions, Ion{
				Series: SeriesReporter,
				Label:  channel,
				Charge: 1,
				Mass:   label.Reporter[c] - mass.Proton,
			})
		}
	}
	return ions
}

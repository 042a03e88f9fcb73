// Package mass provides monoisotopic mass constants and lookups for peptide
// and fragment-ion mass calculation. The tables are populated at package init
// and never mutated afterwards, so they are safe to share across goroutines.
package mass

import "fmt"

// Atomic masses (monoisotopic).
const (
	MassH = 1.0078250321
	MassC = 12.0000000000
	MassN = 14.0030740052
	MassO = 15.9949146221
	MassS = 31.9720706900
	MassP = 30.9737615100

	// Proton mass for charge-state calculations.
	Proton = 1.00727646688

	// DeltaC13 is the mass shift of a single C12 -> C13 substitution.
	DeltaC13 = 1.0033548378

	Water = 2*MassH + MassO
)

// Composition stores an elemental formula.
type Composition struct {
	C, H, N, O, S, P int
}

// Mass returns the monoisotopic mass of the composition.
func (c Composition) Mass() float64 {
	return float64(c.C)*MassC +
		float64(c.H)*MassH +
		float64(c.N)*MassN +
		float64(c.O)*MassO +
		float64(c.S)*MassS +
		float64(c.P)*MassP
}

// residueCompositions maps amino acid one-letter codes to the elemental
// composition of the residue (amino acid minus water).
var residueCompositions = map[byte]Composition{
	'A': {C: 3, H: 5, N: 1, O: 1},
	'R': {C: 6, H: 12, N: 4, O: 1},
	'N': {C: 4, H: 6, N: 2, O: 2},
	'D': {C: 4, H: 5, N: 1, O: 3},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3},
	'Q': {C: 5, H: 8, N: 2, O: 2},
	'G': {C: 2, H: 3, N: 1, O: 1},
	'H': {C: 6, H: 7, N: 3, O: 1},
	'I': {C: 6, H: 11, N: 1, O: 1},
	'L': {C: 6, H: 11, N: 1, O: 1},
	'K': {C: 6, H: 12, N: 2, O: 1},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1},
	'P': {C: 5, H: 7, N: 1, O: 1},
	'S': {C: 3, H: 5, N: 1, O: 2},
	'T': {C: 4, H: 7, N: 1, O: 2},
	'W': {C: 11, H: 10, N: 2, O: 1},
	'Y': {C: 9, H: 9, N: 1, O: 2},
	'V': {C: 5, H: 9, N: 1, O: 1},
}

// residueMasses is derived from residueCompositions at init.
var residueMasses = func() map[byte]float64 {
	m := make(map[byte]float64, len(residueCompositions))
	for sym, comp := range residueCompositions {
		m[sym] = comp.Mass()
	}
	return m
}()

// StandardResidues lists the twenty standard amino acid one-letter codes in
// alphabetical order.
var StandardResidues = []byte{
	'A', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'K', 'L',
	'M', 'N', 'P', 'Q', 'R', 'S', 'T', 'V', 'W', 'Y',
}

// UnknownResidueError reports a one-letter code absent from the mass table.
type UnknownResidueError struct {
	Symbol byte
}

func (e *UnknownResidueError) Error() string {
	return fmt.Sprintf("unknown residue %q", string(e.Symbol))
}

// Residue returns the monoisotopic residue mass for a one-letter code.
// The ambiguous code 'X' has no single mass; use Expand to iterate candidate
// residues before calling Residue.
func Residue(sym byte) (float64, error) {
	m, ok := residueMasses[sym]
	if !ok {
		return 0, &UnknownResidueError{Symbol: sym}
	}
	return m, nil
}

// Expand resolves an ambiguous residue code to its candidate set. 'X' expands
// to every standard residue; any other known code expands to itself.
func Expand(sym byte) ([]byte, error) {
	if sym == 'X' {
		out := make([]byte, len(StandardResidues))
		copy(out, StandardResidues)
		return out, nil
	}
	if _, ok := residueMasses[sym]; !ok {
		return nil, &UnknownResidueError{Symbol: sym}
	}
	return []byte{sym}, nil
}

// SequenceMass returns the summed residue mass of a peptide sequence,
// without terminal groups or modifications.
func SequenceMass(seq string) (float64, error) {
	var total float64
	for i := 0; i < len(seq); i++ {
		m, err := Residue(seq[i])
		if err != nil {
			return 0, err
		}
		total += m
	}
	return total, nil
}

// modificationMasses maps modification names to monoisotopic mass shifts.
// Values follow Unimod.
var modificationMasses = map[string]float64{
	"Acetyl":          42.010565,
	"Amidated":        -0.984016,
	"Carbamidomethyl": 57.021464,
	"Carbamyl":        43.005814,
	"Deamidated":      0.984016,
	"Dehydrated":      -18.010565,
	"Dioxidation":     31.989829,
	"Gln->pyro-Glu":   -17.026549,
	"Glu->pyro-Glu":   -18.010565,
	"Methyl":          14.015650,
	"Dimethyl":        28.031300,
	"Trimethyl":       42.046950,
	"Methylthio":      45.987721,
	"Oxidation":       15.994915,
	"Phospho":         79.966331,
	"Propionamide":    71.037114,
	"Sulfo":           79.956815,
	"TMT6plex":        229.162932,
	"TMT10plex":       229.162932,
	"TMT11plex":       229.162932,
	"TMTPro":          304.207146,
	"TMT16plex":       304.207146,
	"iTRAQ4plex":      144.102063,
	"iTRAQ8plex":      304.205360,
}

// UnknownModificationError reports a modification name absent from the table.
type UnknownModificationError struct {
	Name string
}

func (e *UnknownModificationError) Error() string {
	return fmt.Sprintf("unknown modification %q", e.Name)
}

// Modification returns the monoisotopic mass shift for a modification name.
func Modification(name string) (float64, error) {
	m, ok := modificationMasses[name]
	if !ok {
		return 0, &UnknownModificationError{Name: name}
	}
	return m, nil
}

// MustModification is like Modification but panics on unknown names. It is
// intended for static tables built at init time.
func MustModification(name string) float64 {
	m, err := Modification(name)
	if err != nil {
		panic(err)
	}
	return m
}

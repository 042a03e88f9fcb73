package mass

// Loss identifies a neutral-loss species.
type Loss string

// Neutral losses observed from peptide fragments.
const (
	LossWater   Loss = "H2O"
	LossAmmonia Loss = "NH3"
	LossCO      Loss = "CO"
	LossH3PO4   Loss = "H3PO4"
	LossHPO3    Loss = "HPO3"
	LossHPO3H2O Loss = "HPO3-H2O"
	LossSOCH4   Loss = "SOCH4"
	LossSO2CH4  Loss = "SO2CH4"
)

var lossMasses = map[Loss]float64{
	LossWater:   Water,
	LossAmmonia: MassN + 3*MassH,
	LossCO:      MassC + MassO,
	LossH3PO4:   3*MassH + MassP + 4*MassO,
	LossHPO3:    MassH + MassP + 3*MassO,
	LossHPO3H2O: MassH + MassP + 3*MassO + Water,
	LossSOCH4:   MassS + MassO + MassC + 4*MassH,
	LossSO2CH4:  MassS + 2*MassO + MassC + 4*MassH,
}

// Mass returns the monoisotopic mass of the neutral-loss species.
func (l Loss) Mass() float64 {
	return lossMasses[l]
}

// modLossKey pairs a residue letter with a modification name.
type modLossKey struct {
	residue byte
	mod     string
}

// modLosses maps modified residues to the neutral losses they exhibit.
var modLosses = map[modLossKey][]Loss{
	{'M', "Oxidation"}:   {LossSOCH4},
	{'M', "Dioxidation"}: {LossSO2CH4},
	{'S', "Phospho"}:     {LossH3PO4},
	{'T', "Phospho"}:     {LossH3PO4},
	{'Y', "Phospho"}:     {LossHPO3, LossHPO3H2O},
}

// ModificationLosses returns the neutral losses a modification exhibits when
// placed on the given residue, or nil when none apply.
func ModificationLosses(residue byte, mod string) []Loss {
	return modLosses[modLossKey{residue: residue, mod: mod}]
}

// PeptideLosses are the losses any backbone fragment may exhibit from its
// unprotected termini and side chains.
var PeptideLosses = []Loss{LossWater, LossAmmonia}

// InternalLosses additionally include CO loss from the acylium terminus of
// internal fragments.
var InternalLosses = []Loss{LossWater, LossAmmonia, LossCO}

package fragment

import (
	"sort"

	"github.com/camvtools/camv/internal/mass"
)

// lossSlot is one neutral-loss species and how many times the ion's residue
// span can emit it.
type lossSlot struct {
	loss mass.Loss
	max  int
}

// lossAvailability derives which neutral losses an ion may exhibit from the
// residues and modifications inside its span plus its terminal groups.
func lossAvailability(ion Ion, sites []site) []lossSlot {
	counts := map[mass.Loss]int{}

	for _, s := range sites[ion.SpanStart:ion.SpanEnd] {
		switch s.residue {
		case 'S', 'T', 'E', 'D':
			counts[mass.LossWater]++
		case 'R', 'K', 'Q', 'N':
			counts[mass.LossAmmonia]++
		}
		for _, m := range s.mods {
			for _, l := range mass.ModificationLosses(s.residue, m) {
				counts[l]++
			}
		}
	}

	// Terminal groups: the free N-terminal amine loses ammonia, the free
	// C-terminal carboxyl loses water, the acylium terminus of an internal
	// fragment loses CO.
	switch ion.Series {
	case SeriesB, SeriesA:
		counts[mass.LossAmmonia]++
	case SeriesY:
		counts[mass.LossWater]++
	case SeriesParent:
		counts[mass.LossAmmonia]++
		counts[mass.LossWater]++
	case SeriesInternal:
		counts[mass.LossAmmonia]++
		counts[mass.LossCO]++
	default:
		return nil
	}

	slots := make([]lossSlot, 0, len(counts))
	for l, c := range counts {
		slots = append(slots, lossSlot{loss: l, max: c})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].loss < slots[j].loss })
	return slots
}

// lossCombos enumerates every loss multiset up to the given stacking depth,
// starting with the empty (no-loss) combination. Order is deterministic.
func lossCombos(slots []lossSlot, depth int) [][]mass.Loss {
	combos := [][]mass.Loss{nil}

	var walk func(idx, used int, current []mass.Loss)
	walk = func(idx, used int, current []mass.Loss) {
		if len(current) > 0 {
			combo := make([]mass.Loss, len(current))
			copy(combo, current)
			combos = append(combos, combo)
		}
		if used >= depth || idx >= len(slots) {
			return
		}
		for i := idx; i < len(slots); i++ {
			s := slots[i]
			taken := 0
			for _, l := range current {
				if l == s.loss {
					taken++
				}
			}
			if taken >= s.max {
				continue
			}
			walk(i, used+1, append(current, s.loss))
		}
	}
	walk(0, 0, nil)

	return combos
}

package peptide

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultMaxCombinations caps how many site assignments are enumerated per
// peptide before truncation.
const DefaultMaxCombinations = 10

// EnumerateOptions controls assignment enumeration.
type EnumerateOptions struct {
	// MaxCombinations caps the number of assignments returned. Zero or
	// negative selects DefaultMaxCombinations.
	MaxCombinations int

	// Unrestricted removes the cap entirely (reprocessing mode).
	Unrestricted bool

	// Strict makes enumeration fail with CombinationLimitExceededError when
	// the true combination count exceeds the cap, instead of truncating.
	Strict bool
}

func (o EnumerateOptions) cap() int {
	if o.Unrestricted {
		return 0
	}
	if o.MaxCombinations <= 0 {
		return DefaultMaxCombinations
	}
	return o.MaxCombinations
}

// Enumeration is the result of enumerating a query's site assignments.
type Enumeration struct {
	Assignments []Assignment

	// Total is the true combination count before any truncation, computed
	// from the modification declarations.
	Total int

	// Truncated is set when the cap discarded assignments. The search
	// engine's reported placement is never among the discarded.
	Truncated bool
}

// CombinationLimitExceededError is returned in strict mode when a peptide's
// true combination count exceeds the configured cap.
type CombinationLimitExceededError struct {
	Sequence string
	Count    int
	Cap      int
}

func (e *CombinationLimitExceededError) Error() string {
	return fmt.Sprintf("peptide %s: %d modification combinations exceed cap %d",
		e.Sequence, e.Count, e.Cap)
}

// TooFewSitesError is returned when a declared modification has more
// occurrences than eligible sites on the sequence.
type TooFewSitesError struct {
	Sequence string
	Mod      VarMod
	Eligible int
}

func (e *TooFewSitesError) Error() string {
	return fmt.Sprintf("peptide %s: too few sites for %d x %s (%s): %d eligible",
		e.Sequence, e.Mod.Count, e.Mod.Name, e.Mod.Residues, e.Eligible)
}

// RemapPhosphoSTY widens a variable Phospho declared on exactly {S,T} to
// {S,T,Y}. Search engines configured for pST searches still produce pY hits,
// so localization must consider tyrosine sites too.
func RemapPhosphoSTY(mods []VarMod) []VarMod {
	out := make([]VarMod, len(mods))
	copy(out, mods)
	for i, m := range out {
		if m.Name != "Phospho" {
			continue
		}
		set := map[byte]bool{}
		for j := 0; j < len(m.Residues); j++ {
			set[m.Residues[j]] = true
		}
		if len(set) == 2 && set['S'] && set['T'] {
			out[i].Residues = "STY"
		}
	}
	return out
}

// Enumerate produces the deduplicated site assignments for a query, in a
// stable order with the search engine's reported placement first. A query
// with no variable modifications yields exactly one empty assignment.
func Enumerate(q *Query, opts EnumerateOptions) (*Enumeration, error) {
	limit := opts.cap()

	mods := RemapPhosphoSTY(q.Variable)

	// Assign the most restricted modifications first so that broader ones
	// (e.g. pSTY after pY) see the remaining free sites.
	sort.SliceStable(mods, func(i, j int) bool {
		return eligibleWidth(mods[i]) < eligibleWidth(mods[j])
	})

	total := 1
	for _, m := range mods {
		n := len(eligiblePositions(q, m, nil))
		// Sites consumed by sibling modifications over the same residue set
		// are unavailable to this one.
		for _, o := range mods {
			if o.Name != m.Name && sameResidueSet(o, m) {
				n -= o.Count
			}
		}
		if n < m.Count {
			return nil, &TooFewSitesError{Sequence: q.Sequence, Mod: m, Eligible: n}
		}
		total *= nCr(n, m.Count)
	}

	if opts.Strict && limit > 0 && total > limit {
		return nil, &CombinationLimitExceededError{
			Sequence: q.Sequence, Count: total, Cap: limit,
		}
	}

	enum := &Enumeration{Total: total}
	seen := make(map[string]bool)

	collect := func(a Assignment) bool {
		key := a.Key()
		if seen[key] {
			return true
		}
		seen[key] = true
		enum.Assignments = append(enum.Assignments, a)
		return limit <= 0 || len(enum.Assignments) < limit
	}

	generate(q, mods, nil, collect)

	if limit > 0 && total > len(enum.Assignments) {
		enum.Truncated = true
	}

	// The engine's own placement must survive truncation and lead the order.
	if q.Reported != nil {
		promoteReported(q, enum, seen)
	}

	return enum, nil
}

func eligibleWidth(m VarMod) int {
	n := len(m.Residues)
	if m.NTerm {
		n++
	}
	if m.CTerm {
		n++
	}
	return n
}

func sameResidueSet(a, b VarMod) bool {
	as := []byte(a.Residues)
	bs := []byte(b.Residues)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	return string(as) == string(bs) && a.NTerm == b.NTerm && a.CTerm == b.CTerm
}

// eligiblePositions lists the unoccupied sites a modification may attach to,
// in ascending position order with termini first.
func eligiblePositions(q *Query, m VarMod, occupied map[int]bool) []int {
	var out []int
	if m.NTerm && !occupied[PosNTerm] {
		out = append(out, PosNTerm)
	}
	if m.CTerm && !occupied[PosCTerm] {
		out = append(out, PosCTerm)
	}
	for i := 0; i < len(q.Sequence); i++ {
		if occupied[i] {
			continue
		}
		if !strings.ContainsRune(m.Residues, rune(q.Sequence[i])) {
			continue
		}
		// Trypsin does not cleave after acetylated lysine, so an observed
		// C-terminal K cannot carry an acetyl group.
		if m.Name == "Acetyl" && q.Sequence[i] == 'K' && i == len(q.Sequence)-1 {
			continue
		}
		out = append(out, i)
	}
	return out
}

// generate walks the cartesian product of per-modification site
// combinations, invoking collect for every complete assignment. It stops
// early when collect returns false.
func generate(q *Query, mods []VarMod, placed []SiteMod, collect func(Assignment) bool) bool {
	if len(mods) == 0 {
		return collect(NewAssignment(placed))
	}

	m := mods[0]
	occupied := make(map[int]bool, len(placed))
	for _, p := range placed {
		occupied[p.Position] = true
	}
	eligible := eligiblePositions(q, m, occupied)
	if len(eligible) < m.Count {
		// Sites exhausted along this branch; nothing to emit.
		return true
	}

	return combinations(eligible, m.Count, func(choice []int) bool {
		next := placed
		for _, pos := range choice {
			next = append(next[:len(next):len(next)], SiteMod{Position: pos, Name: m.Name})
		}
		return generate(q, mods[1:], next, collect)
	})
}

// combinations emits every k-subset of items in lexicographic order,
// stopping early when emit returns false.
func combinations(items []int, k int, emit func([]int) bool) bool {
	if k == 0 {
		return emit(nil)
	}
	if k > len(items) {
		return true
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	choice := make([]int, k)
	for {
		for i, j := range idx {
			choice[i] = items[j]
		}
		if !emit(choice) {
			return false
		}
		// Advance to the next lexicographic index tuple.
		i := k - 1
		for i >= 0 && idx[i] == len(items)-k+i {
			i--
		}
		if i < 0 {
			return true
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// promoteReported moves the engine-reported assignment to the front of the
// enumeration, inserting it if truncation dropped it.
func promoteReported(q *Query, enum *Enumeration, seen map[string]bool) {
	rep := NewAssignment(q.Reported.Mods)
	key := rep.Key()

	for i, a := range enum.Assignments {
		if a.Key() == key {
			copy(enum.Assignments[1:i+1], enum.Assignments[:i])
			enum.Assignments[0] = a
			return
		}
	}

	if !seen[key] && enum.Truncated {
		if len(enum.Assignments) == 0 {
			// Every branch exhausted its sites; the engine's placement is
			// still the one under review.
			enum.Assignments = append(enum.Assignments, rep)
			seen[key] = true
			return
		}
		// Replace the last kept assignment rather than growing past the cap.
		last := len(enum.Assignments) - 1
		copy(enum.Assignments[1:last+1], enum.Assignments[:last])
		enum.Assignments[0] = rep
		seen[key] = true
	}
}

// nCr computes the binomial coefficient with small integer inputs.
func nCr(n, r int) int {
	if r < 0 || r > n {
		return 0
	}
	if r > n-r {
		r = n - r
	}
	out := 1
	for i := 0; i < r; i++ {
		out = out * (n - i) / (i + 1)
	}
	return out
}

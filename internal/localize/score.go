package localize

import (
	"math"
	"sort"

	"github.com/camvtools/camv/internal/match"
	"github.com/camvtools/camv/internal/peptide"
	"github.com/camvtools/camv/internal/spectra"
)

// DefaultMargin is the probability gap below which the top two assignments
// are treated as indistinguishable.
const DefaultMargin = 0.05

// Config tunes the scoring policy.
//
// The exact phosphoRS weighting is not published in full; the model here is
// the documented policy: for each assignment, the probability that its
// matched site-determining ions arose by chance follows a binomial with
// per-ion random-match probability estimated from the spectrum's peak
// density and the match tolerance. The score is -10*log10 of that
// probability, phosphoRS-style.
type Config struct {
	// Margin is the normalized-probability gap defining ambiguity.
	// Zero selects DefaultMargin.
	Margin float64

	// AutoMaybe classifies the top assignment of an ambiguous scan as
	// "maybe" for manual review. Enabled by pipeline default.
	AutoMaybe bool

	// RandomP overrides the estimated per-ion random match probability.
	// Zero estimates it from the scan.
	RandomP float64
}

func (c Config) margin() float64 {
	if c.Margin <= 0 {
		return DefaultMargin
	}
	return c.Margin
}

// massEpsilon separates "same ion mass" from "site-determining" when
// comparing theoretical masses across sibling assignments.
const massEpsilon = 1e-6

// Rank scores all sibling assignments of one query against each other and
// returns ranked results, best first.
func Rank(q *peptide.Query, cands []CandidateEvidence, scan *spectra.Scan, tol match.Tolerance, cfg Config) []Result {
	if len(cands) == 0 {
		return nil
	}

	p := cfg.RandomP
	if p <= 0 {
		p = estimateRandomP(scan, tol)
	}

	determining := siteDeterminingKeys(cands)
	basePeak := maxIntensity(scan)

	results := make([]Result, len(cands))
	for i, c := range cands {
		res := Result{
			Assignment: c.Assignment,
			Evidence:   c.Records,
			SiteKeys:   determining,
		}
		for _, r := range c.Records {
			if !determining[r.Ion.Key()] {
				continue
			}
			res.SiteIons++
			if r.Matched() {
				res.SiteMatched++
				if basePeak > 0 {
					res.IntensityWeight += r.Peak.Intensity / basePeak
				}
			}
		}
		res.Score = -10 * math.Log10(binomialTail(res.SiteIons, res.SiteMatched, p))
		results[i] = res
	}

	normalizeProbabilities(results)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].IntensityWeight != results[j].IntensityWeight {
			return results[i].IntensityWeight > results[j].IntensityWeight
		}
		return results[i].Assignment.Key() < results[j].Assignment.Key()
	})
	for i := range results {
		results[i].Rank = i + 1
	}

	ambiguous := false
	if len(results) > 1 {
		gap := results[0].Probability - results[1].Probability
		ambiguous = gap < cfg.margin()
	}
	// The engine reporting several co-equal best interpretations also marks
	// the scan ambiguous, unless one assignment holds nearly all of the
	// probability mass.
	if q.AltBestCount > 1 && len(results) > 1 &&
		results[0].Probability < 1-cfg.margin() {
		ambiguous = true
	}

	for i := range results {
		results[i].Ambiguous = ambiguous
	}
	if ambiguous && cfg.AutoMaybe {
		results[0].Status = StatusMaybe
	}

	return results
}

// siteDeterminingKeys finds the ion keys whose theoretical mass differs
// between at least two sibling assignments, or which some sibling lacks
// entirely. Only these ions carry localization information.
func siteDeterminingKeys(cands []CandidateEvidence) map[string]bool {
	type span struct {
		lo, hi float64
		count  int
	}
	masses := make(map[string]*span)
	for _, c := range cands {
		for _, r := range c.Records {
			k := r.Ion.Key()
			mz := r.Ion.MZ()
			s, ok := masses[k]
			if !ok {
				masses[k] = &span{lo: mz, hi: mz, count: 1}
				continue
			}
			s.count++
			if mz < s.lo {
				s.lo = mz
			}
			if mz > s.hi {
				s.hi = mz
			}
		}
	}

	out := make(map[string]bool, len(masses))
	for k, s := range masses {
		if s.hi-s.lo > massEpsilon || s.count < len(cands) {
			out[k] = true
		}
	}
	return out
}

// estimateRandomP estimates the chance a random theoretical ion lands on an
// observed peak: peak count times the average match window, over the
// occupied m/z range.
func estimateRandomP(scan *spectra.Scan, tol match.Tolerance) float64 {
	if scan == nil || len(scan.Peaks) == 0 {
		return 0.01
	}
	lo := scan.Peaks[0].MZ
	hi := scan.Peaks[len(scan.Peaks)-1].MZ
	if hi <= lo {
		return 0.01
	}
	mid := (lo + hi) / 2
	p := float64(len(scan.Peaks)) * 2 * tol.Window(mid) / (hi - lo)
	return clamp(p, 1e-6, 0.9)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxIntensity(scan *spectra.Scan) float64 {
	if scan == nil {
		return 0
	}
	return scan.MaxIntensity()
}

// binomialTail computes P(X >= n) for X ~ Binomial(total, p).
func binomialTail(total, n int, p float64) float64 {
	if n <= 0 {
		return 1
	}
	if n > total {
		return 1 // no evidence is possible; degenerate, treat as chance
	}
	var tail float64
	for k := n; k <= total; k++ {
		tail += math.Exp(logChoose(total, k) +
			float64(k)*math.Log(p) +
			float64(total-k)*math.Log1p(-p))
	}
	if tail > 1 {
		tail = 1
	}
	if tail < math.SmallestNonzeroFloat64 {
		tail = math.SmallestNonzeroFloat64
	}
	return tail
}

func logChoose(n, k int) float64 {
	ln1, _ := math.Lgamma(float64(n + 1))
	ln2, _ := math.Lgamma(float64(k + 1))
	ln3, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - ln2 - ln3
}

// normalizeProbabilities converts scores into sibling-normalized
// probabilities: each assignment's likelihood is the inverse of its chance
// probability, 10^(score/10).
func normalizeProbabilities(results []Result) {
	var sum float64
	likes := make([]float64, len(results))
	for i, r := range results {
		likes[i] = math.Pow(10, r.Score/10)
		sum += likes[i]
	}
	if sum <= 0 {
		return
	}
	for i := range results {
		results[i].Probability = likes[i] / sum
	}
}

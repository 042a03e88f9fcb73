// Package pipeline runs the per-scan validation pipeline: assignment
// enumeration, fragment generation, spectral matching and localization
// scoring, with scan-level parallelism.
package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/camvtools/camv/internal/fragment"
	"github.com/camvtools/camv/internal/localize"
	"github.com/camvtools/camv/internal/mass"
	"github.com/camvtools/camv/internal/match"
	"github.com/camvtools/camv/internal/peptide"
	"github.com/camvtools/camv/internal/spectra"
)

// StatusKind classifies the outcome of one scan's processing.
type StatusKind int

const (
	StatusOK        StatusKind = iota
	StatusTruncated            // combination cap applied
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusOK:
		return "ok"
	case StatusTruncated:
		return "truncated"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ScanResult is the full validation outcome for one (query, scan) pair.
// Failed scans appear explicitly rather than being dropped, so downstream
// reviewers can see that coverage is incomplete.
type ScanResult struct {
	Query *peptide.Query
	Scan  *spectra.Scan

	Status StatusKind
	Err    error // set when Status == StatusFailed

	// Results are the ranked localization results, best first.
	Results []localize.Result

	// Combinations is the true combination count before truncation.
	Combinations int

	// MaxIsotope is the per-scan isotope bound that was applied.
	MaxIsotope int
}

// Options configures a Validator.
type Options struct {
	// Tolerance overrides the per-collision-type default when set.
	Tolerance *match.Tolerance

	Enumerate peptide.EnumerateOptions
	Fragment  fragment.Config
	Localize  localize.Config

	// Workers bounds scan-level parallelism; 0 selects runtime.NumCPU().
	Workers int
}

// maxAmbiguousVariants caps how many concrete sequences an ambiguous 'X'
// residue expansion may produce before the scan is failed instead.
const maxAmbiguousVariants = 400

// Validator evaluates peptide queries against their scans. It holds only
// immutable configuration after construction and is safe for concurrent use.
type Validator struct {
	opts   Options
	logger *zap.Logger
}

// New creates a Validator. An invalid tolerance is rejected here, before
// any scan processing begins.
func New(opts Options) (*Validator, error) {
	if opts.Tolerance != nil {
		if err := opts.Tolerance.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.Fragment == (fragment.Config{}) {
		opts.Fragment = fragment.DefaultConfig()
	}
	return &Validator{opts: opts, logger: zap.NewNop()}, nil
}

// SetLogger sets the logger for per-scan warnings and progress.
func (v *Validator) SetLogger(l *zap.Logger) {
	v.logger = l
}

// ProcessScan runs the full pipeline for one query against its scan.
// Errors are folded into the returned result's failed status, never
// propagated, so one bad scan cannot abort its siblings.
func (v *Validator) ProcessScan(q *peptide.Query, scan *spectra.Scan) *ScanResult {
	res := &ScanResult{Query: q, Scan: scan}

	if err := q.Validate(); err != nil {
		return failed(res, err)
	}

	tol := v.tolerance(scan)

	maxIso, err := scan.MaxIsotope()
	if err != nil {
		var noPeaks *spectra.NoPeaksInWindowError
		if !errors.As(err, &noPeaks) {
			return failed(res, err)
		}
		// Empty isolation window: only the precursor-error inference below
		// can raise the bound above the monoisotopic peak.
		v.logger.Debug("no peaks in isolation window",
			zap.Int("scan", scan.Number),
			zap.String("peptide", q.Sequence))
		maxIso = 0
	}
	maxIso = isotopeBound(q, scan, maxIso)
	res.MaxIsotope = maxIso

	variants, err := expandAmbiguous(q)
	if err != nil {
		return failed(res, err)
	}

	var best *ScanResult
	for _, vq := range variants {
		vres, err := v.evaluate(vq, scan, tol, maxIso)
		if err != nil {
			return failed(res, err)
		}
		if best == nil || betterVariant(vres, best) {
			best = vres
		}
	}

	best.Query = q
	best.Scan = scan
	best.MaxIsotope = maxIso
	return best
}

// evaluate scores every site assignment of one concrete sequence.
func (v *Validator) evaluate(q *peptide.Query, scan *spectra.Scan, tol match.Tolerance, maxIso int) (*ScanResult, error) {
	res := &ScanResult{Query: q, Scan: scan, MaxIsotope: maxIso}

	enum, err := peptide.Enumerate(q, v.opts.Enumerate)
	if err != nil {
		return nil, err
	}
	res.Combinations = enum.Total
	if enum.Truncated {
		res.Status = StatusTruncated
		v.logger.Info("combination cap applied",
			zap.Int("scan", scan.Number),
			zap.String("peptide", q.Sequence),
			zap.Int("combinations", enum.Total),
			zap.Int("kept", len(enum.Assignments)))
	}

	cands := make([]localize.CandidateEvidence, 0, len(enum.Assignments))
	for _, a := range enum.Assignments {
		ions, err := fragment.Ions(q, a, v.opts.Fragment)
		if err != nil {
			return nil, err
		}
		ions = fragment.ExpandForPrecursor(ions, scan.Precursor.Charge, maxIso)
		cands = append(cands, localize.CandidateEvidence{
			Assignment: a,
			Records:    match.Ions(ions, scan.Peaks, tol),
		})
	}

	res.Results = localize.Rank(q, cands, scan, tol, v.opts.Localize)
	return res, nil
}

// maxIsotopeBound caps the precursor-error isotope inference against bad
// precursor metadata.
const maxIsotopeBound = 3

// isotopeBound cross-checks the window-based envelope estimate with the
// isotope number inferred from the precursor mass error. The engine
// reporting a precursor m/z offset from the isolation target means the
// instrument selected a higher isotope, even when the survey envelope was
// not resolved (or, as with MGF input, not recorded at all).
func isotopeBound(q *peptide.Query, scan *spectra.Scan, windowIso int) int {
	if q.PrecursorMZ <= 0 || scan.Precursor.IsolationMZ <= 0 {
		return windowIso
	}
	k := spectra.IsotopeFromPrecursorError(q.PrecursorMZ, scan.Precursor.Charge, scan.Precursor.IsolationMZ)
	if k > maxIsotopeBound {
		k = maxIsotopeBound
	}
	if k > windowIso {
		return k
	}
	return windowIso
}

func (v *Validator) tolerance(scan *spectra.Scan) match.Tolerance {
	if v.opts.Tolerance != nil {
		return *v.opts.Tolerance
	}
	return match.ForCollisionType(scan.CollisionType)
}

func failed(res *ScanResult, err error) *ScanResult {
	res.Status = StatusFailed
	res.Err = err
	return res
}

func topScore(res *ScanResult) float64 {
	if res == nil || len(res.Results) == 0 {
		return -1
	}
	return res.Results[0].Score
}

// betterVariant compares two ambiguous-residue readings of the same scan:
// localization score first, then total matched evidence. Single-assignment
// variants all score zero on localization, so matched peaks decide.
func betterVariant(a, b *ScanResult) bool {
	sa, sb := topScore(a), topScore(b)
	if sa != sb {
		return sa > sb
	}
	return matchedEvidence(a) > matchedEvidence(b)
}

func matchedEvidence(res *ScanResult) int {
	if res == nil || len(res.Results) == 0 {
		return 0
	}
	return match.Count(res.Results[0].Evidence)
}

// expandAmbiguous resolves 'X' residues by iterating the candidate set over
// all standard amino acids, yielding one query per concrete sequence.
// Unambiguous sequences pass through unchanged.
func expandAmbiguous(q *peptide.Query) ([]*peptide.Query, error) {
	var xPos []int
	for i := 0; i < len(q.Sequence); i++ {
		if q.Sequence[i] == 'X' {
			xPos = append(xPos, i)
		}
	}
	if len(xPos) == 0 {
		return []*peptide.Query{q}, nil
	}

	total := 1
	for range xPos {
		total *= len(mass.StandardResidues)
		if total > maxAmbiguousVariants {
			return nil, fmt.Errorf("peptide %s: too many ambiguous residues to expand", q.Sequence)
		}
	}

	seqs := [][]byte{[]byte(q.Sequence)}
	for _, pos := range xPos {
		next := make([][]byte, 0, len(seqs)*len(mass.StandardResidues))
		for _, s := range seqs {
			for _, r := range mass.StandardResidues {
				dup := make([]byte, len(s))
				copy(dup, s)
				dup[pos] = r
				next = append(next, dup)
			}
		}
		seqs = next
	}

	out := make([]*peptide.Query, len(seqs))
	for i, s := range seqs {
		vq := *q
		vq.Sequence = string(s)
		out[i] = &vq
	}
	return out, nil
}

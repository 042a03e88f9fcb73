package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camvtools/camv/internal/mass"
	"github.com/camvtools/camv/internal/match"
	"github.com/camvtools/camv/internal/peptide"
	"github.com/camvtools/camv/internal/spectra"
)

func newValidator(t *testing.T, opts Options) *Validator {
	t.Helper()
	v, err := New(opts)
	require.NoError(t, err)
	return v
}

// testScan builds a minimal HCD scan carrying the given fragment peaks.
func testScan(number int, peaks ...spectra.Peak) *spectra.Scan {
	s := &spectra.Scan{
		Number:        number,
		Source:        "test.mgf",
		CollisionType: "HCD",
		Precursor: spectra.Precursor{
			MZ: 500.0, Charge: 2, IsolationMZ: 500.0,
			WindowLow: 1.0, WindowHigh: 1.0,
		},
		Peaks: peaks,
	}
	s.SortPeaks()
	return s
}

func TestNewRejectsBadTolerance(t *testing.T) {
	bad := match.Tolerance{Value: -5, Unit: match.PPM}
	_, err := New(Options{Tolerance: &bad})
	require.Error(t, err)

	var cfgErr *match.MatchToleranceConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestStatusKindString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "truncated", StatusTruncated.String())
	assert.Equal(t, "failed", StatusFailed.String())
}

func TestProcessScanSimplePeptide(t *testing.T) {
	v := newValidator(t, Options{})

	q := &peptide.Query{Sequence: "RVY", Scan: 100, Charge: 2}
	// b2 and y1 of the unmodified peptide
	scan := testScan(100,
		spectra.Peak{MZ: 256.17680, Intensity: 900},
		spectra.Peak{MZ: 182.08117, Intensity: 700},
	)

	res := v.ProcessScan(q, scan)

	assert.Equal(t, StatusOK, res.Status)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Combinations)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 1, res.Results[0].Rank)
}

func TestProcessScanInvalidSequence(t *testing.T) {
	v := newValidator(t, Options{})

	q := &peptide.Query{Sequence: "RBY", Scan: 101}
	res := v.ProcessScan(q, testScan(101))

	assert.Equal(t, StatusFailed, res.Status)
	require.Error(t, res.Err)

	var unkErr *mass.UnknownResidueError
	assert.ErrorAs(t, res.Err, &unkErr)
}

func TestProcessScanTruncated(t *testing.T) {
	v := newValidator(t, Options{
		Enumerate: peptide.EnumerateOptions{MaxCombinations: 5},
	})

	q := &peptide.Query{
		Sequence: "SSSSSSSS",
		Scan:     102,
		Charge:   2,
		Variable: []peptide.VarMod{{Count: 2, Name: "Phospho", Residues: "STY"}},
	}
	res := v.ProcessScan(q, testScan(102, spectra.Peak{MZ: 300, Intensity: 10}))

	assert.Equal(t, StatusTruncated, res.Status)
	assert.Equal(t, 28, res.Combinations) // C(8,2)
	assert.Len(t, res.Results, 5)
}

func TestProcessScanStrictCombinationLimit(t *testing.T) {
	v := newValidator(t, Options{
		Enumerate: peptide.EnumerateOptions{MaxCombinations: 5, Strict: true},
	})

	q := &peptide.Query{
		Sequence: "SSSSSSSS",
		Scan:     103,
		Variable: []peptide.VarMod{{Count: 2, Name: "Phospho", Residues: "STY"}},
	}
	res := v.ProcessScan(q, testScan(103))

	assert.Equal(t, StatusFailed, res.Status)
	var limitErr *peptide.CombinationLimitExceededError
	assert.ErrorAs(t, res.Err, &limitErr)
}

func TestProcessScanIsotopeFromPrecursorError(t *testing.T) {
	v := newValidator(t, Options{})

	// MGF input carries no survey peaks, so the isolation window is empty;
	// a one-isotope precursor offset must still raise the bound.
	q := &peptide.Query{Sequence: "RVY", Scan: 104, Charge: 2, PrecursorMZ: 500.0 + mass.DeltaC13/2}
	res := v.ProcessScan(q, testScan(104))
	assert.Equal(t, 1, res.MaxIsotope)

	// No reported precursor m/z leaves the bound at zero.
	q = &peptide.Query{Sequence: "RVY", Scan: 105, Charge: 2}
	res = v.ProcessScan(q, testScan(105))
	assert.Equal(t, 0, res.MaxIsotope)

	// Garbage precursor metadata is capped.
	q = &peptide.Query{Sequence: "RVY", Scan: 106, Charge: 2, PrecursorMZ: 510.0}
	res = v.ProcessScan(q, testScan(106))
	assert.Equal(t, 3, res.MaxIsotope)
}

func TestProcessScanAmbiguousResidue(t *testing.T) {
	v := newValidator(t, Options{})

	// One 'X' expands across the twenty standard residues; the spectrum
	// supports the valine reading.
	q := &peptide.Query{Sequence: "RXY", Scan: 104, Charge: 2}
	scan := testScan(104,
		spectra.Peak{MZ: 256.17680, Intensity: 900}, // b2 of RVY
		spectra.Peak{MZ: 182.08117, Intensity: 700},
	)

	res := v.ProcessScan(q, scan)

	require.Equal(t, StatusOK, res.Status)
	// The original query is reported, not the winning variant
	assert.Equal(t, "RXY", res.Query.Sequence)
	require.NotEmpty(t, res.Results)
}

func TestProcessScanTooManyAmbiguousResidues(t *testing.T) {
	v := newValidator(t, Options{})

	q := &peptide.Query{Sequence: "XXX", Scan: 105}
	res := v.ProcessScan(q, testScan(105))

	assert.Equal(t, StatusFailed, res.Status)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "ambiguous")
}

func TestExpandAmbiguous(t *testing.T) {
	qs, err := expandAmbiguous(&peptide.Query{Sequence: "AGK"})
	require.NoError(t, err)
	require.Len(t, qs, 1)

	qs, err = expandAmbiguous(&peptide.Query{Sequence: "AXK"})
	require.NoError(t, err)
	assert.Len(t, qs, 20)
	assert.Equal(t, "AAK", qs[0].Sequence)

	qs, err = expandAmbiguous(&peptide.Query{Sequence: "XX"})
	require.NoError(t, err)
	assert.Len(t, qs, 400)

	_, err = expandAmbiguous(&peptide.Query{Sequence: "XXX"})
	assert.Error(t, err)
}

func TestToleranceSelection(t *testing.T) {
	v := newValidator(t, Options{})
	hcd := &spectra.Scan{CollisionType: "HCD"}
	cid := &spectra.Scan{CollisionType: "CID"}
	assert.Equal(t, match.Tolerance{Value: 10, Unit: match.PPM}, v.tolerance(hcd))
	assert.Equal(t, match.Tolerance{Value: 1000, Unit: match.PPM}, v.tolerance(cid))

	fixed := match.Tolerance{Value: 25, Unit: match.PPM}
	v = newValidator(t, Options{Tolerance: &fixed})
	assert.Equal(t, fixed, v.tolerance(hcd))
}

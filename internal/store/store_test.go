package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camvtools/camv/internal/fragment"
	"github.com/camvtools/camv/internal/localize"
	"github.com/camvtools/camv/internal/match"
	"github.com/camvtools/camv/internal/peptide"
	"github.com/camvtools/camv/internal/pipeline"
	"github.com/camvtools/camv/internal/spectra"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

// sampleResult builds one successful scan result with a single matched
// site-determining ion.
func sampleResult() *pipeline.ScanResult {
	q := &peptide.Query{
		Sequence:   "ASTYK",
		Scan:       2104,
		Charge:     2,
		Accessions: []string{"P01234", "Q99999"},
	}
	a := peptide.NewAssignment([]peptide.SiteMod{{Position: 1, Name: "Phospho"}})
	ion := fragment.Ion{Series: fragment.SeriesB, Position: 2, SpanEnd: 2, Charge: 1, Mass: 238.03547}
	rec := match.Record{
		Ion:       ion,
		PeakIndex: 0,
		Peak:      spectra.Peak{MZ: ion.MZ() + 0.0005, Intensity: 800},
		Error:     0.0005,
	}

	return &pipeline.ScanResult{
		Query:        q,
		Scan:         &spectra.Scan{Number: 2104, Source: "run01.mgf"},
		Status:       pipeline.StatusOK,
		Combinations: 3,
		MaxIsotope:   1,
		Results: []localize.Result{
			{
				Assignment:  a,
				Score:       26.0,
				Probability: 0.95,
				Rank:        1,
				SiteIons:    4,
				SiteMatched: 1,
				Evidence:    []match.Record{rec},
				SiteKeys:    map[string]bool{ion.Key(): true},
			},
		},
	}
}

func TestWriteResults(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteResults([]*pipeline.ScanResult{sampleResult()}))

	var status, peptideSeq, modSeq string
	row := s.DB().QueryRow(`SELECT status, peptide FROM scan_status WHERE scan = 2104`)
	require.NoError(t, row.Scan(&status, &peptideSeq))
	assert.Equal(t, "ok", status)
	assert.Equal(t, "ASTYK", peptideSeq)

	var rank int
	var score float64
	row = s.DB().QueryRow(
		`SELECT modified_sequence, rank, score FROM assignments WHERE scan = 2104`)
	require.NoError(t, row.Scan(&modSeq, &rank, &score))
	assert.Equal(t, "AsTYK", modSeq)
	assert.Equal(t, 1, rank)
	assert.InDelta(t, 26.0, score, 1e-9)

	var ionName string
	var siteDetermining bool
	row = s.DB().QueryRow(`SELECT ion, site_determining FROM matches WHERE scan = 2104`)
	require.NoError(t, row.Scan(&ionName, &siteDetermining))
	assert.Equal(t, "b2", ionName)
	assert.True(t, siteDetermining)
}

func TestWriteResultsIdempotent(t *testing.T) {
	s := openInMemory(t)

	res := sampleResult()
	require.NoError(t, s.WriteResults([]*pipeline.ScanResult{res}))
	require.NoError(t, s.WriteResults([]*pipeline.ScanResult{res}))

	var n int
	row := s.DB().QueryRow(`SELECT COUNT(*) FROM scan_status`)
	require.NoError(t, row.Scan(&n))
	assert.Equal(t, 1, n)

	row = s.DB().QueryRow(`SELECT COUNT(*) FROM assignments`)
	require.NoError(t, row.Scan(&n))
	assert.Equal(t, 1, n)
}

func TestWriteResultsFailedScan(t *testing.T) {
	s := openInMemory(t)

	failed := &pipeline.ScanResult{
		Query:  &peptide.Query{Sequence: "RBY", Scan: 7},
		Status: pipeline.StatusFailed,
		Err:    errors.New("unknown residue"),
	}
	require.NoError(t, s.WriteResults([]*pipeline.ScanResult{failed}))

	var status, errText string
	row := s.DB().QueryRow(`SELECT status, error FROM scan_status WHERE scan = 7`)
	require.NoError(t, row.Scan(&status, &errText))
	assert.Equal(t, "failed", status)
	assert.Contains(t, errText, "unknown residue")

	// Failed scans record status only
	var n int
	row = s.DB().QueryRow(`SELECT COUNT(*) FROM assignments WHERE scan = 7`)
	require.NoError(t, row.Scan(&n))
	assert.Equal(t, 0, n)

	scans, err := s.FailedScans()
	require.NoError(t, err)
	assert.Equal(t, []int{7}, scans)
}

func TestFailedScansEmpty(t *testing.T) {
	s := openInMemory(t)

	scans, err := s.FailedScans()
	require.NoError(t, err)
	assert.Empty(t, scans)
}

package match

import (
	"math"
	"sort"

	"github.com/camvtools/camv/internal/fragment"
	"github.com/camvtools/camv/internal/spectra"
)

// Record binds one theoretical ion to at most one observed peak.
type Record struct {
	Ion fragment.Ion

	// PeakIndex is the index into the scan's peak list, -1 when unmatched.
	PeakIndex int
	Peak      spectra.Peak

	// Error is observed m/z minus theoretical m/z; zero when unmatched.
	Error float64
}

// Matched reports whether the record found a peak within tolerance.
func (r Record) Matched() bool {
	return r.PeakIndex >= 0
}

// Ions matches theoretical ions against an observed peak list. Peaks must be
// sorted ascending by m/z. For each ion the peak with the smallest absolute
// mass error wins; exact error ties go to the higher-intensity peak. An
// observed peak may satisfy multiple ions, since isobaric ions are
// chemically possible. The function is pure: identical inputs always
// produce identical records, ordered by theoretical m/z.
func Ions(ions []fragment.Ion, peaks []spectra.Peak, tol Tolerance) []Record {
	sorted := make([]fragment.Ion, len(ions))
	copy(sorted, ions)
	fragment.SortByMZ(sorted)

	records := make([]Record, 0, len(sorted))
	for _, ion := range sorted {
		records = append(records, matchOne(ion, peaks, tol))
	}
	return records
}

func matchOne(ion fragment.Ion, peaks []spectra.Peak, tol Tolerance) Record {
	rec := Record{Ion: ion, PeakIndex: -1}

	mz := ion.MZ()
	window := tol.Window(mz)
	lo := mz - window
	hi := mz + window

	// First peak with m/z >= lo.
	start := sort.Search(len(peaks), func(i int) bool { return peaks[i].MZ >= lo })

	for i := start; i < len(peaks) && peaks[i].MZ <= hi; i++ {
		err := peaks[i].MZ - mz
		if !rec.Matched() {
			rec.PeakIndex = i
			rec.Peak = peaks[i]
			rec.Error = err
			continue
		}
		better := math.Abs(err) < math.Abs(rec.Error) ||
			(math.Abs(err) == math.Abs(rec.Error) && peaks[i].Intensity > rec.Peak.Intensity)
		if better {
			rec.PeakIndex = i
			rec.Peak = peaks[i]
			rec.Error = err
		}
	}

	return rec
}

// Count returns how many records found a peak.
func Count(records []Record) int {
	n := 0
	for _, r := range records {
		if r.Matched() {
			n++
		}
	}
	return n
}

// MatchedOnly filters records down to those that found a peak.
func MatchedOnly(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Matched() {
			out = append(out, r)
		}
	}
	return out
}

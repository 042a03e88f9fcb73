// Package spectra models picked-peak scan data and precursor metadata
// supplied by the spectral-data provider.
package spectra

import (
	"fmt"
	"math"
	"sort"

	"github.com/camvtools/camv/internal/mass"
)

// Peak is a single picked peak from a scan.
type Peak struct {
	MZ        float64
	Intensity float64
}

// Precursor holds the precursor selection metadata for a fragmentation scan.
type Precursor struct {
	MZ     float64 // reported precursor m/z
	Charge int

	IsolationMZ float64 // isolation window target m/z
	WindowLow   float64 // lower offset from target
	WindowHigh  float64 // upper offset from target
}

// Window returns the absolute isolation window bounds.
func (p Precursor) Window() (lo, hi float64) {
	return p.IsolationMZ - p.WindowLow, p.IsolationMZ + p.WindowHigh
}

// Scan is one fragmentation scan: its picked peak list plus the precursor
// peaks from the parent survey scan. The core only reads scans; ownership
// stays with the providing pipeline.
type Scan struct {
	Number        int
	Source        string // originating raw file basename
	CollisionType string // e.g. "HCD", "CID"
	Precursor     Precursor

	// Peaks is the fragment peak list, sorted ascending by m/z.
	Peaks []Peak

	// PrecursorPeaks is the survey-scan peak list around the isolation
	// window, used for isotope-envelope inspection. May be empty.
	PrecursorPeaks []Peak
}

// SortPeaks sorts both peak lists ascending by m/z.
func (s *Scan) SortPeaks() {
	sortPeaks(s.Peaks)
	sortPeaks(s.PrecursorPeaks)
}

func sortPeaks(peaks []Peak) {
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].MZ < peaks[j].MZ })
}

// PeaksSorted reports whether the fragment peak list is ascending by m/z.
func (s *Scan) PeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].MZ < s.Peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// MaxIntensity returns the base peak intensity of the fragment peak list.
func (s *Scan) MaxIntensity() float64 {
	var max float64
	for _, p := range s.Peaks {
		if p.Intensity > max {
			max = p.Intensity
		}
	}
	return max
}

// WindowPeaks returns the peaks with lo < m/z < hi from the given list.
func WindowPeaks(peaks []Peak, lo, hi float64) []Peak {
	var out []Peak
	for _, p := range peaks {
		if p.MZ > lo && p.MZ < hi {
			out = append(out, p)
		}
	}
	return out
}

// PrecursorWindow returns the survey peaks inside the isolation window,
// padded by pad on both sides for display context.
func (s *Scan) PrecursorWindow(pad float64) []Peak {
	lo, hi := s.Precursor.Window()
	return WindowPeaks(s.PrecursorPeaks, lo-pad, hi+pad)
}

// LabelWindow returns the fragment peaks inside a reporter-ion m/z window,
// padded by pad on both sides.
func (s *Scan) LabelWindow(label mass.IsobaricLabel, pad float64) []Peak {
	return WindowPeaks(s.Peaks, label.Window[0]-pad, label.Window[1]+pad)
}

// NoPeaksInWindowError reports an empty precursor isolation window. It is
// informational: callers fall back to isotope number 0 and continue.
type NoPeaksInWindowError struct {
	Scan int
}

func (e *NoPeaksInWindowError) Error() string {
	return fmt.Sprintf("scan %d: no peaks in precursor isolation window", e.Scan)
}

// isotopeMatchTol is the +/- m/z tolerance used when walking the precursor
// isotope envelope in survey-scan data.
const isotopeMatchTol = 0.01

// MaxIsotope estimates the highest C13 isotope number to model for this
// scan by counting resolvable isotope peaks inside the precursor isolation
// window. Two resolvable envelope peaks bound the isotope number at 1, and
// so on. When the window holds no peaks at all the estimate is 0 alongside
// a NoPeaksInWindowError.
func (s *Scan) MaxIsotope() (int, error) {
	lo, hi := s.Precursor.Window()
	window := WindowPeaks(s.PrecursorPeaks, lo, hi)
	if len(window) == 0 {
		return 0, &NoPeaksInWindowError{Scan: s.Number}
	}

	charge := s.Precursor.Charge
	if charge < 1 {
		charge = 1
	}
	spacing := mass.DeltaC13 / float64(charge)

	resolvable := 0
	for k := 0; ; k++ {
		target := s.Precursor.IsolationMZ + float64(k)*spacing
		if target > hi {
			break
		}
		if !hasPeakNear(window, target, isotopeMatchTol) {
			break
		}
		resolvable++
	}

	if resolvable == 0 {
		return 0, nil
	}
	return resolvable - 1, nil
}

func hasPeakNear(peaks []Peak, mz, tol float64) bool {
	for _, p := range peaks {
		if math.Abs(p.MZ-mz) <= tol {
			return true
		}
	}
	return false
}

// IsotopeFromPrecursorError infers the selected isotope number from the
// charge-scaled difference between the search engine's reported precursor
// m/z and the instrument's isolation target. A one-isotope offset shifts
// the isolation m/z by DeltaC13/z.
func IsotopeFromPrecursorError(reportedMZ float64, charge int, isolationMZ float64) int {
	if charge < 1 {
		charge = 1
	}
	return int(math.Round(float64(charge) * math.Abs(reportedMZ-isolationMZ)))
}

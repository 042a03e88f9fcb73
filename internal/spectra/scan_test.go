package spectra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camvtools/camv/internal/mass"
)

func TestPrecursorWindow(t *testing.T) {
	p := Precursor{IsolationMZ: 500.0, WindowLow: 1.0, WindowHigh: 2.0}
	lo, hi := p.Window()
	assert.InDelta(t, 499.0, lo, 1e-9)
	assert.InDelta(t, 502.0, hi, 1e-9)
}

func TestSortPeaks(t *testing.T) {
	s := &Scan{
		Peaks: []Peak{{MZ: 300}, {MZ: 100}, {MZ: 200}},
	}
	assert.False(t, s.PeaksSorted())
	s.SortPeaks()
	assert.True(t, s.PeaksSorted())
	assert.InDelta(t, 100, s.Peaks[0].MZ, 1e-9)
}

func TestMaxIntensity(t *testing.T) {
	s := &Scan{Peaks: []Peak{{MZ: 100, Intensity: 5}, {MZ: 200, Intensity: 50}, {MZ: 300, Intensity: 10}}}
	assert.InDelta(t, 50, s.MaxIntensity(), 1e-9)
	assert.InDelta(t, 0, (&Scan{}).MaxIntensity(), 1e-9)
}

func TestWindowPeaks(t *testing.T) {
	peaks := []Peak{{MZ: 99}, {MZ: 100.5}, {MZ: 101.5}, {MZ: 103}}
	got := WindowPeaks(peaks, 100, 102)
	require.Len(t, got, 2)
	assert.InDelta(t, 100.5, got[0].MZ, 1e-9)
	assert.InDelta(t, 101.5, got[1].MZ, 1e-9)
}

func TestLabelWindow(t *testing.T) {
	label, ok := mass.LabelByName("TMT6plex")
	require.True(t, ok)

	s := &Scan{Peaks: []Peak{
		{MZ: 120.0}, {MZ: 126.128}, {MZ: 131.138}, {MZ: 140.0},
	}}
	got := s.LabelWindow(label, 0.5)
	assert.Len(t, got, 2)
}

func TestMaxIsotope(t *testing.T) {
	tests := []struct {
		name  string
		scan  Scan
		want  int
		isErr bool
	}{
		{
			name: "two envelope peaks",
			scan: Scan{
				Number: 1,
				Precursor: Precursor{
					Charge: 2, IsolationMZ: 500.0,
					WindowLow: 1.0, WindowHigh: 1.5,
				},
				PrecursorPeaks: []Peak{
					{MZ: 500.0, Intensity: 100},
					{MZ: 500.0 + mass.DeltaC13/2, Intensity: 60},
				},
			},
			want: 1,
		},
		{
			name: "single peak",
			scan: Scan{
				Number: 2,
				Precursor: Precursor{
					Charge: 2, IsolationMZ: 500.0,
					WindowLow: 1.0, WindowHigh: 1.5,
				},
				PrecursorPeaks: []Peak{{MZ: 500.0, Intensity: 100}},
			},
			want: 0,
		},
		{
			name: "gap stops the walk",
			scan: Scan{
				Number: 3,
				Precursor: Precursor{
					Charge: 1, IsolationMZ: 500.0,
					WindowLow: 1.0, WindowHigh: 2.5,
				},
				PrecursorPeaks: []Peak{
					{MZ: 500.0, Intensity: 100},
					// missing +1 isotope
					{MZ: 500.0 + 2*mass.DeltaC13, Intensity: 40},
				},
			},
			want: 0,
		},
		{
			name: "empty window",
			scan: Scan{
				Number: 4,
				Precursor: Precursor{
					Charge: 2, IsolationMZ: 500.0,
					WindowLow: 1.0, WindowHigh: 1.0,
				},
				PrecursorPeaks: []Peak{{MZ: 600.0, Intensity: 100}},
			},
			want:  0,
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.scan.MaxIsotope()
			if tt.isErr {
				var noPeaks *NoPeaksInWindowError
				require.ErrorAs(t, err, &noPeaks)
				assert.Equal(t, tt.scan.Number, noPeaks.Scan)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsotopeFromPrecursorError(t *testing.T) {
	// A +1 isotope selection at charge 2 shifts the isolation m/z by
	// DeltaC13/2.
	got := IsotopeFromPrecursorError(500.0+mass.DeltaC13/2, 2, 500.0)
	assert.Equal(t, 1, got)

	assert.Equal(t, 0, IsotopeFromPrecursorError(500.0, 2, 500.0))
	assert.Equal(t, 2, IsotopeFromPrecursorError(500.0+mass.DeltaC13, 2, 500.0))
}

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camvtools/camv/internal/fragment"
	"github.com/camvtools/camv/internal/mass"
	"github.com/camvtools/camv/internal/spectra"
)

func TestToleranceValidate(t *testing.T) {
	tests := []struct {
		name  string
		tol   Tolerance
		isErr bool
	}{
		{"ppm ok", Tolerance{Value: 10, Unit: PPM}, false},
		{"dalton ok", Tolerance{Value: 0.5, Unit: Dalton}, false},
		{"zero", Tolerance{Value: 0, Unit: PPM}, true},
		{"negative", Tolerance{Value: -1, Unit: PPM}, true},
		{"bad unit", Tolerance{Value: 10, Unit: Unit(9)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tol.Validate()
			if tt.isErr {
				var cfgErr *MatchToleranceConfigError
				require.ErrorAs(t, err, &cfgErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToleranceWindow(t *testing.T) {
	ppm := Tolerance{Value: 10, Unit: PPM}
	assert.InDelta(t, 0.005, ppm.Window(500), 1e-9)

	da := Tolerance{Value: 0.5, Unit: Dalton}
	assert.InDelta(t, 0.5, da.Window(500), 1e-9)
	assert.InDelta(t, 0.5, da.Window(2000), 1e-9)
}

func TestForCollisionType(t *testing.T) {
	assert.Equal(t, Tolerance{Value: 10, Unit: PPM}, ForCollisionType("HCD"))
	assert.Equal(t, Tolerance{Value: 10, Unit: PPM}, ForCollisionType("hcd"))
	assert.Equal(t, Tolerance{Value: 1000, Unit: PPM}, ForCollisionType("CID"))
	// Unknown modes fall back to the wide ion-trap default
	assert.Equal(t, Tolerance{Value: 1000, Unit: PPM}, ForCollisionType("ETD"))
}

// ion builds a singly charged test ion with the given neutral mass.
func ion(pos int, neutral float64) fragment.Ion {
	return fragment.Ion{Series: fragment.SeriesB, Position: pos, SpanEnd: pos, Charge: 1, Mass: neutral}
}

func TestIonsMatching(t *testing.T) {
	ions := []fragment.Ion{
		ion(1, 200.0 - mass.Proton), // theoretical m/z 200.0
		ion(2, 300.0 - mass.Proton), // m/z 300.0, no peak nearby
	}
	peaks := []spectra.Peak{
		{MZ: 199.9995, Intensity: 50},
		{MZ: 250.0, Intensity: 10},
	}

	records := Ions(ions, peaks, Tolerance{Value: 10, Unit: PPM})
	require.Len(t, records, 2)

	require.True(t, records[0].Matched())
	assert.Equal(t, 0, records[0].PeakIndex)
	assert.InDelta(t, -0.0005, records[0].Error, 1e-6)

	assert.False(t, records[1].Matched())
	assert.Equal(t, -1, records[1].PeakIndex)

	assert.Equal(t, 1, Count(records))
	assert.Len(t, MatchedOnly(records), 1)
}

func TestIonsClosestPeakWins(t *testing.T) {
	ions := []fragment.Ion{ion(1, 500.0 - mass.Proton)}
	peaks := []spectra.Peak{
		{MZ: 499.9, Intensity: 1000},
		{MZ: 500.02, Intensity: 5},
	}

	records := Ions(ions, peaks, Tolerance{Value: 0.2, Unit: Dalton})
	require.True(t, records[0].Matched())
	// Smaller mass error beats higher intensity
	assert.Equal(t, 1, records[0].PeakIndex)
}

func TestIonsIntensityBreaksTies(t *testing.T) {
	ions := []fragment.Ion{ion(1, 500.0 - mass.Proton)}
	peaks := []spectra.Peak{
		{MZ: 499.75, Intensity: 5},
		{MZ: 500.25, Intensity: 50},
	}

	records := Ions(ions, peaks, Tolerance{Value: 0.5, Unit: Dalton})
	require.True(t, records[0].Matched())
	assert.Equal(t, 1, records[0].PeakIndex)
}

func TestIonsPeakMaySatisfyMultipleIons(t *testing.T) {
	// Two isobaric theoretical species over a single observed peak
	ions := []fragment.Ion{
		ion(1, 400.0 - mass.Proton),
		{Series: fragment.SeriesInternal, Label: "AG", SpanStart: 1, SpanEnd: 3, Charge: 1, Mass: 400.0 - mass.Proton},
	}
	peaks := []spectra.Peak{{MZ: 400.0, Intensity: 10}}

	records := Ions(ions, peaks, Tolerance{Value: 10, Unit: PPM})
	require.Len(t, records, 2)
	assert.True(t, records[0].Matched())
	assert.True(t, records[1].Matched())
	assert.Equal(t, records[0].PeakIndex, records[1].PeakIndex)
}

func TestIonsDeterministic(t *testing.T) {
	ions := []fragment.Ion{
		ion(3, 700.0 - mass.Proton),
		ion(1, 200.0 - mass.Proton),
		ion(2, 450.0 - mass.Proton),
	}
	peaks := []spectra.Peak{
		{MZ: 200.0, Intensity: 5},
		{MZ: 450.0, Intensity: 8},
		{MZ: 700.0, Intensity: 2},
	}
	tol := Tolerance{Value: 10, Unit: PPM}

	a := Ions(ions, peaks, tol)
	b := Ions(ions, peaks, tol)
	assert.Equal(t, a, b)

	// Records come back ordered by theoretical m/z
	for i := 1; i < len(a); i++ {
		assert.LessOrEqual(t, a[i-1].Ion.MZ(), a[i].Ion.MZ())
	}
}

func TestIonsEmptyInputs(t *testing.T) {
	tol := Tolerance{Value: 10, Unit: PPM}

	assert.Empty(t, Ions(nil, []spectra.Peak{{MZ: 100}}, tol))

	records := Ions([]fragment.Ion{ion(1, 200.0)}, nil, tol)
	require.Len(t, records, 1)
	assert.False(t, records[0].Matched())
}

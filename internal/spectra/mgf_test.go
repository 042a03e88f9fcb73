package spectra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMGF = `# sample peak list
BEGIN IONS
TITLE=File: "run01.raw"; scan=2104
PEPMASS=557.2706 1250000.0
CHARGE=2+
RTINSECONDS=1800.5
SCANS=2104
175.1190 3200.0
147.1128 1500.5
272.1717 800.0
END IONS

BEGIN IONS
TITLE=no scan number here
PEPMASS=601.3341
CHARGE=3+
201.1234 100.0
END IONS
`

func TestMGFReader(t *testing.T) {
	r := NewMGFReader(strings.NewReader(sampleMGF), "run01.mgf")

	require.True(t, r.Next())
	scan := r.Scan()
	assert.Equal(t, 2104, scan.Number)
	assert.Equal(t, "run01.mgf", scan.Source)
	assert.Equal(t, "HCD", scan.CollisionType)
	assert.InDelta(t, 557.2706, scan.Precursor.MZ, 1e-6)
	assert.Equal(t, 2, scan.Precursor.Charge)

	// Peaks come back sorted
	require.Len(t, scan.Peaks, 3)
	assert.InDelta(t, 147.1128, scan.Peaks[0].MZ, 1e-6)
	assert.InDelta(t, 175.1190, scan.Peaks[1].MZ, 1e-6)
	assert.InDelta(t, 272.1717, scan.Peaks[2].MZ, 1e-6)

	// Isolation defaults derive from PEPMASS
	assert.InDelta(t, 557.2706, scan.Precursor.IsolationMZ, 1e-6)
	assert.InDelta(t, DefaultIsolationOffset, scan.Precursor.WindowLow, 1e-9)
	assert.InDelta(t, DefaultIsolationOffset, scan.Precursor.WindowHigh, 1e-9)

	require.True(t, r.Next())
	scan = r.Scan()
	// No scan number in the title: sequential numbering applies
	assert.Equal(t, 2, scan.Number)
	assert.Equal(t, 3, scan.Precursor.Charge)

	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestMGFReaderCollisionType(t *testing.T) {
	r := NewMGFReader(strings.NewReader(sampleMGF), "run01.mgf")
	r.CollisionType = "CID"

	require.True(t, r.Next())
	assert.Equal(t, "CID", r.Scan().CollisionType)
}

func TestMGFReaderUnterminatedBlock(t *testing.T) {
	r := NewMGFReader(strings.NewReader("BEGIN IONS\nPEPMASS=500.0\n100.0 1.0\n"), "x.mgf")

	assert.False(t, r.Next())
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "unterminated")
}

func TestMGFReaderBadPeakLine(t *testing.T) {
	r := NewMGFReader(strings.NewReader("BEGIN IONS\nPEPMASS=500.0\n100.0\nEND IONS\n"), "x.mgf")

	assert.False(t, r.Next())
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "invalid peak line")
}

func TestParseCharge(t *testing.T) {
	tests := []struct {
		in    string
		want  int
		isErr bool
	}{
		{"2+", 2, false},
		{"3", 3, false},
		{"2-", -2, false},
		{"", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := parseCharge(tt.in)
		if tt.isErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

package mass

// IsobaricLabel describes a reporter-ion labeling reagent (TMT / iTRAQ).
type IsobaricLabel struct {
	Name     string
	Channels []string  // reporter channel names, low to high m/z
	Reporter []float64 // reporter ion m/z per channel
	Window   [2]float64
}

// isobaricLabels holds reporter ion masses per labeling reagent. Reporter
// values are the singly charged reporter fragment m/z.
var isobaricLabels = map[string]IsobaricLabel{
	"TMT6plex": {
		Name:     "TMT6plex",
		Channels: []string{"126", "127", "128", "129", "130", "131"},
		Reporter: []float64{
			126.127726, 127.124761, 128.134436,
			129.131471, 130.141145, 131.138180,
		},
		Window: [2]float64{126, 132},
	},
	"TMT10plex": {
		Name: "TMT10plex",
		Channels: []string{
			"126", "127N", "127C", "128N", "128C",
			"129N", "129C", "130N", "130C", "131",
		},
		Reporter: []float64{
			126.127726, 127.124761, 127.131081, 128.128116, 128.134436,
			129.131471, 129.137790, 130.134825, 130.141145, 131.138180,
		},
		Window: [2]float64{126, 132},
	},
	"TMT11plex": {
		Name: "TMT11plex",
		Channels: []string{
			"126", "127N", "127C", "128N", "128C", "129N",
			"129C", "130N", "130C", "131N", "131C",
		},
		Reporter: []float64{
			126.127726, 127.124761, 127.131081, 128.128116, 128.134436,
			129.131471, 129.137790, 130.134825, 130.141145, 131.138180,
			131.144500,
		},
		Window: [2]float64{126, 132},
	},
	"TMT16plex": {
		Name: "TMT16plex",
		Channels: []string{
			"126", "127N", "127C", "128N", "128C", "129N", "129C", "130N",
			"130C", "131N", "131C", "132N", "132C", "133N", "133C", "134N",
		},
		Reporter: []float64{
			126.127726, 127.124761, 127.131081, 128.128116,
			128.134436, 129.131471, 129.137790, 130.134825,
			130.141145, 131.138180, 131.144500, 132.141535,
			132.147855, 133.144890, 133.151210, 134.148245,
		},
		Window: [2]float64{126, 135},
	},
	"iTRAQ4plex": {
		Name:     "iTRAQ4plex",
		Channels: []string{"114", "115", "116", "117"},
		Reporter: []float64{114.111228, 115.108263, 116.111618, 117.114973},
		Window:   [2]float64{114, 118},
	},
	"iTRAQ8plex": {
		Name: "iTRAQ8plex",
		Channels: []string{
			"113", "114", "115", "116", "117", "118", "119", "121",
		},
		Reporter: []float64{
			113.107873, 114.111228, 115.108263, 116.111618,
			117.114973, 118.112008, 119.115363, 121.122072,
		},
		Window: [2]float64{113, 122},
	},
}

func init() {
	// TMTPro is the reagent name search engines use for the 16-channel TMT
	// kit; both spellings resolve to the same reporter set.
	isobaricLabels["TMTPro"] = isobaricLabels["TMT16plex"]
}

// LabelByName returns the isobaric label definition for a modification name.
func LabelByName(name string) (IsobaricLabel, bool) {
	l, ok := isobaricLabels[name]
	return l, ok
}

// IsLabel reports whether a modification name is an isobaric labeling
// reagent rather than a chemical modification of interest for localization.
func IsLabel(name string) bool {
	_, ok := isobaricLabels[name]
	return ok
}

// LabelChannelCount returns the number of quantitation channels for a label
// modification name, or 0 when the name is not a label.
func LabelChannelCount(name string) int {
	if l, ok := isobaricLabels[name]; ok {
		return len(l.Channels)
	}
	return 0
}

// immoniumMasses holds immonium ion m/z values for residues that produce
// diagnostic immonium peaks. Only tyrosine is consumed today, for the
// phospho-tyrosine reporter.
var immoniumMasses = map[byte]float64{
	'Y': 136.075690,
	'F': 120.080776,
	'W': 159.091675,
	'H': 110.071275,
}

// Immonium returns the immonium ion m/z for a residue, if defined.
func Immonium(residue byte) (float64, bool) {
	m, ok := immoniumMasses[residue]
	return m, ok
}

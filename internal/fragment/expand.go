package fragment

// Expand grows a charge-1 ion list with isotope variants 1..maxIsotope and
// charge variants 2..maxCharge for series where higher charge states occur.
// Reporter ions are fixed single-charge species and are returned as-is;
// immonium ions gain isotope but not charge variants.
func Expand(ions []Ion, maxCharge, maxIsotope int) []Ion {
	if maxCharge < 1 {
		maxCharge = 1
	}
	if maxIsotope < 0 {
		maxIsotope = 0
	}

	out := make([]Ion, 0, len(ions)*maxCharge*(maxIsotope+1))
	for _, ion := range ions {
		out = append(out, ion)

		if ion.Series == SeriesReporter {
			continue
		}

		zMax := maxCharge
		if ion.Series == SeriesImmonium {
			zMax = 1
		}

		for z := 1; z <= zMax; z++ {
			for k := 0; k <= maxIsotope; k++ {
				if z == 1 && k == 0 {
					continue // the base ion itself
				}
				v := ion
				v.Charge = z
				v.Isotope = k
				out = append(out, v)
			}
		}
	}
	return out
}

// ExpandForPrecursor applies the charge policy derived from the precursor:
// fragments are modeled up to one charge below the precursor, the intact
// parent ion up to the precursor charge itself.
func ExpandForPrecursor(ions []Ion, precursorCharge, maxIsotope int) []Ion {
	fragMax := precursorCharge - 1
	if fragMax < 1 {
		fragMax = 1
	}

	var frags, parents []Ion
	for _, ion := range ions {
		if ion.Series == SeriesParent {
			parents = append(parents, ion)
		} else {
			frags = append(frags, ion)
		}
	}

	out := Expand(frags, fragMax, maxIsotope)
	out = append(out, Expand(parents, precursorCharge, maxIsotope)...)
	return out
}

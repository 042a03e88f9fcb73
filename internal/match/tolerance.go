// Package match assigns theoretical fragment ions to observed peaks within
// a configurable mass tolerance.
package match

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the tolerance unit.
type Unit int

const (
	PPM Unit = iota
	Dalton
)

func (u Unit) String() string {
	if u == Dalton {
		return "Da"
	}
	return "ppm"
}

// Tolerance is a mass-match tolerance, relative (ppm) or absolute (Da).
type Tolerance struct {
	Value float64
	Unit  Unit
}

// MatchToleranceConfigError reports an invalid tolerance. It is fatal at
// configuration time, before any scan processing begins.
type MatchToleranceConfigError struct {
	Tolerance Tolerance
	Reason    string
}

func (e *MatchToleranceConfigError) Error() string {
	return fmt.Sprintf("invalid match tolerance %g %s: %s",
		e.Tolerance.Value, e.Tolerance.Unit, e.Reason)
}

// Validate checks the tolerance is positive and finite.
func (t Tolerance) Validate() error {
	if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) {
		return &MatchToleranceConfigError{Tolerance: t, Reason: "not finite"}
	}
	if t.Value <= 0 {
		return &MatchToleranceConfigError{Tolerance: t, Reason: "must be positive"}
	}
	if t.Unit != PPM && t.Unit != Dalton {
		return &MatchToleranceConfigError{Tolerance: t, Reason: "unknown unit"}
	}
	return nil
}

// Window returns the absolute +/- m/z window at a theoretical m/z.
func (t Tolerance) Window(mz float64) float64 {
	if t.Unit == Dalton {
		return t.Value
	}
	return mz * t.Value / 1e6
}

// Collision-mode default tolerances. Ion-trap CID spectra are far less
// accurate than Orbitrap HCD spectra.
var collisionTolerances = map[string]Tolerance{
	"HCD": {Value: 10, Unit: PPM},
	"CID": {Value: 1000, Unit: PPM},
}

// ForCollisionType returns the default tolerance for an activation mode,
// falling back to the CID default for unknown modes.
func ForCollisionType(ct string) Tolerance {
	if t, ok := collisionTolerances[strings.ToUpper(ct)]; ok {
		return t
	}
	return collisionTolerances["CID"]
}

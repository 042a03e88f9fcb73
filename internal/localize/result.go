// Package localize scores and ranks modification-site assignments from
// fragment-match evidence, flagging ambiguous localizations for review.
package localize

import (
	"github.com/camvtools/camv/internal/match"
	"github.com/camvtools/camv/internal/peptide"
)

// Status is the review classification of a localization call.
type Status int

const (
	StatusUnreviewed Status = iota
	StatusAccept
	StatusMaybe
	StatusReject
)

func (s Status) String() string {
	switch s {
	case StatusAccept:
		return "accept"
	case StatusMaybe:
		return "maybe"
	case StatusReject:
		return "reject"
	default:
		return "unreviewed"
	}
}

// CandidateEvidence is the match evidence for one site assignment, as
// produced by the spectral matcher.
type CandidateEvidence struct {
	Assignment peptide.Assignment
	Records    []match.Record
}

// Result is the scored localization outcome for one site assignment.
// Results are created once per scan after scoring completes and never
// mutated afterwards.
type Result struct {
	Assignment peptide.Assignment

	// Score is -10*log10 of the probability that the matched
	// site-determining ions arose by chance (binomial model). Higher is
	// better localized.
	Score float64

	// Probability is the score-derived likelihood of this assignment,
	// normalized over its siblings.
	Probability float64

	// IntensityWeight is the summed base-peak-relative intensity of matched
	// site-determining ions, a quality measure used as a deterministic
	// tie-break.
	IntensityWeight float64

	// Rank is 1 for the reported call, counting up.
	Rank int

	// Ambiguous is set on every sibling when the top two assignments are
	// statistically indistinguishable.
	Ambiguous bool

	Status Status

	// SiteIons counts this assignment's site-determining ions;
	// SiteMatched counts how many of those found a peak.
	SiteIons    int
	SiteMatched int

	// Evidence holds every match record, including non-discriminating ions
	// kept as peptide-level confirmation. SiteKeys marks which ion keys in
	// the evidence were site-determining for this scan.
	Evidence []match.Record
	SiteKeys map[string]bool
}

package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/camvtools/camv/internal/pipeline"
)

// WriteResults persists a batch of scan results: per-scan status, ranked
// assignments, and matched-ion evidence. Unmatched theoretical ions are not
// stored; the evidence table holds only ions that found a peak.
func (s *Store) WriteResults(results []*pipeline.ScanResult) error {
	for _, res := range results {
		if err := s.writeStatus(res); err != nil {
			return err
		}
		if res.Status == pipeline.StatusFailed {
			continue
		}
		if err := s.writeAssignments(res); err != nil {
			return err
		}
	}
	return s.writeMatches(results)
}

func (s *Store) writeStatus(res *pipeline.ScanResult) error {
	var errText string
	if res.Err != nil {
		errText = res.Err.Error()
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO scan_status
		 (scan, source, peptide, status, error, combinations, max_isotope)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.Query.Scan, scanSource(res), res.Query.Sequence,
		res.Status.String(), errText, res.Combinations, res.MaxIsotope,
	)
	if err != nil {
		return fmt.Errorf("write scan status: %w", err)
	}
	return nil
}

func scanSource(res *pipeline.ScanResult) string {
	if res.Scan == nil {
		return ""
	}
	return res.Scan.Source
}

func (s *Store) writeAssignments(res *pipeline.ScanResult) error {
	for _, r := range res.Results {
		_, err := s.db.Exec(
			`INSERT OR REPLACE INTO assignments
			 (scan, peptide, assignment, modified_sequence, rank, score,
			  probability, ambiguous, review_status, site_ions, site_matched,
			  accessions)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.Query.Scan, res.Query.Sequence, r.Assignment.Key(),
			res.Query.ModifiedString(r.Assignment), r.Rank, r.Score,
			r.Probability, r.Ambiguous, r.Status.String(),
			r.SiteIons, r.SiteMatched,
			strings.Join(res.Query.Accessions, ";"),
		)
		if err != nil {
			return fmt.Errorf("write assignment: %w", err)
		}
	}
	return nil
}

// writeMatches batch-inserts matched-ion evidence using the Appender API.
func (s *Store) writeMatches(results []*pipeline.ScanResult) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "matches")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, res := range results {
		if res.Status == pipeline.StatusFailed {
			continue
		}
		for _, r := range res.Results {
			for _, rec := range r.Evidence {
				if !rec.Matched() {
					continue
				}
				if err := appender.AppendRow(
					int32(res.Query.Scan),
					res.Query.Sequence,
					r.Assignment.Key(),
					rec.Ion.Name(),
					rec.Ion.MZ(),
					rec.Peak.MZ,
					rec.Peak.Intensity,
					rec.Error,
					r.SiteKeys[rec.Ion.Key()],
				); err != nil {
					return fmt.Errorf("append match: %w", err)
				}
			}
		}
	}

	if err := appender.Flush(); err != nil {
		return fmt.Errorf("flush matches: %w", err)
	}
	return nil
}

// FailedScans returns the scan numbers recorded with failed status, so
// reviewers can see coverage gaps.
func (s *Store) FailedScans() ([]int, error) {
	rows, err := s.db.Query(`SELECT scan FROM scan_status WHERE status = 'failed' ORDER BY scan`)
	if err != nil {
		return nil, fmt.Errorf("query failed scans: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var scan int
		if err := rows.Scan(&scan); err != nil {
			return nil, err
		}
		out = append(out, scan)
	}
	return out, rows.Err()
}

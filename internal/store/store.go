// Package store persists localization results and their match evidence in
// DuckDB, append-only and queryable for downstream review tooling.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for validation results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path. Use an empty
// string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_status (
			scan INTEGER,
			source VARCHAR,
			peptide VARCHAR,
			status VARCHAR,
			error VARCHAR,
			combinations INTEGER,
			max_isotope INTEGER,
			PRIMARY KEY (scan, peptide)
		)`,
		`CREATE TABLE IF NOT EXISTS assignments (
			scan INTEGER,
			peptide VARCHAR,
			assignment VARCHAR,
			modified_sequence VARCHAR,
			rank INTEGER,
			score DOUBLE,
			probability DOUBLE,
			ambiguous BOOLEAN,
			review_status VARCHAR,
			site_ions INTEGER,
			site_matched INTEGER,
			accessions VARCHAR,
			PRIMARY KEY (scan, peptide, assignment)
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			scan INTEGER,
			peptide VARCHAR,
			assignment VARCHAR,
			ion VARCHAR,
			theoretical_mz DOUBLE,
			peak_mz DOUBLE,
			intensity DOUBLE,
			mass_error DOUBLE,
			site_determining BOOLEAN
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

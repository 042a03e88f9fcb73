// Package searchdata loads peptide-spectrum interpretations from the
// tab-separated export at the search-engine collaborator boundary.
package searchdata

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/camvtools/camv/internal/peptide"
)

// Column names of the peptide query export.
const (
	ColScan        = "scan"
	ColSequence    = "sequence"
	ColCharge      = "charge"
	ColPrecursorMZ = "precursor_mz"
	ColScore       = "score"
	ColRank        = "rank"
	ColAccessions  = "accessions"
	ColProteins    = "proteins"
	ColFixedMods   = "fixed_mods"
	ColVarMods     = "var_mods"
	ColReported    = "reported_mods"
)

type columnIndices struct {
	scan, sequence, charge, precursorMZ, score, rank   int
	accessions, proteins, fixedMods, varMods, reported int
}

// Parser reads peptide queries from a TSV stream.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	columns    columnIndices
	gotHeader  bool
}

// NewParser opens a peptide query file. Supports plain and gzipped TSV;
// "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open search file: %w", err)
	}

	p := &Parser{file: file}

	buf := make([]byte, 2)
	if _, err := file.Read(buf); err != nil {
		file.Close()
		return nil, fmt.Errorf("read search file header: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek search file: %w", err)
	}

	if buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open gzip search file: %w", err)
		}
		p.gzipReader = gz
		p.reader = bufio.NewReader(gz)
	} else {
		p.reader = bufio.NewReader(file)
	}

	return p, nil
}

// NewParserFromReader creates a parser over an arbitrary reader.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	return &Parser{reader: bufio.NewReader(r)}, nil
}

// Close releases the underlying file handles.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// Next returns the next peptide query, or nil at end of input.
func (p *Parser) Next() (*peptide.Query, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil, nil
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			if err == io.EOF {
				return nil, nil
			}
			continue
		}

		if !p.gotHeader {
			if err := p.parseHeader(line); err != nil {
				return nil, err
			}
			p.gotHeader = true
			continue
		}

		q, perr := p.parseRow(line)
		if perr != nil {
			return nil, fmt.Errorf("line %d: %w", p.lineNumber, perr)
		}
		return q, nil
	}
}

// All reads every remaining query.
func (p *Parser) All() ([]*peptide.Query, error) {
	var out []*peptide.Query
	for {
		q, err := p.Next()
		if err != nil {
			return nil, err
		}
		if q == nil {
			return out, nil
		}
		out = append(out, q)
	}
}

func (p *Parser) parseHeader(line string) error {
	cols := strings.Split(line, "\t")
	idx := columnIndices{
		scan: -1, sequence: -1, charge: -1, precursorMZ: -1, score: -1,
		rank: -1, accessions: -1, proteins: -1, fixedMods: -1, varMods: -1,
		reported: -1,
	}
	for i, c := range cols {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case ColScan:
			idx.scan = i
		case ColSequence:
			idx.sequence = i
		case ColCharge:
			idx.charge = i
		case ColPrecursorMZ:
			idx.precursorMZ = i
		case ColScore:
			idx.score = i
		case ColRank:
			idx.rank = i
		case ColAccessions:
			idx.accessions = i
		case ColProteins:
			idx.proteins = i
		case ColFixedMods:
			idx.fixedMods = i
		case ColVarMods:
			idx.varMods = i
		case ColReported:
			idx.reported = i
		}
	}
	if idx.scan < 0 || idx.sequence < 0 || idx.charge < 0 {
		return fmt.Errorf("line %d: missing required columns (scan, sequence, charge)", p.lineNumber)
	}
	p.columns = idx
	return nil
}

func (p *Parser) parseRow(line string) (*peptide.Query, error) {
	fields := strings.Split(line, "\t")
	get := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	scan, err := strconv.Atoi(get(p.columns.scan))
	if err != nil {
		return nil, fmt.Errorf("invalid scan %q: %w", get(p.columns.scan), err)
	}
	charge, err := strconv.Atoi(get(p.columns.charge))
	if err != nil {
		return nil, fmt.Errorf("invalid charge %q: %w", get(p.columns.charge), err)
	}

	q := &peptide.Query{
		Scan:     scan,
		Sequence: strings.ToUpper(get(p.columns.sequence)),
		Charge:   charge,
		Rank:     1,
	}

	if v := get(p.columns.precursorMZ); v != "" {
		if q.PrecursorMZ, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid precursor_mz %q: %w", v, err)
		}
	}
	if v := get(p.columns.score); v != "" {
		if q.Score, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid score %q: %w", v, err)
		}
	}
	if v := get(p.columns.rank); v != "" {
		if q.Rank, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid rank %q: %w", v, err)
		}
	}
	if v := get(p.columns.accessions); v != "" {
		q.Accessions = splitList(v)
	}
	if v := get(p.columns.proteins); v != "" {
		q.Proteins = splitList(v)
	}
	if v := get(p.columns.fixedMods); v != "" {
		if q.Fixed, err = ParseSiteMods(v, q.Sequence); err != nil {
			return nil, fmt.Errorf("invalid fixed_mods: %w", err)
		}
	}
	if v := get(p.columns.varMods); v != "" {
		if q.Variable, err = ParseVarMods(v); err != nil {
			return nil, fmt.Errorf("invalid var_mods: %w", err)
		}
	}
	if v := get(p.columns.reported); v != "" {
		mods, err := ParseSiteMods(v, q.Sequence)
		if err != nil {
			return nil, fmt.Errorf("invalid reported_mods: %w", err)
		}
		rep := peptide.NewAssignment(mods)
		q.Reported = &rep
	}

	return q, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ";")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseSiteMods parses placed modifications of the form
// "Name@pos;Name@N-term;Name@C-term" with 1-based residue positions.
func ParseSiteMods(v, sequence string) ([]peptide.SiteMod, error) {
	var out []peptide.SiteMod
	for _, part := range strings.Split(v, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, posStr, ok := strings.Cut(part, "@")
		if !ok {
			return nil, fmt.Errorf("modification %q: expected Name@position", part)
		}
		pos, err := parsePosition(posStr, sequence)
		if err != nil {
			return nil, fmt.Errorf("modification %q: %w", part, err)
		}
		out = append(out, peptide.SiteMod{Position: pos, Name: strings.TrimSpace(name)})
	}
	return out, nil
}

func parsePosition(posStr, sequence string) (int, error) {
	posStr = strings.TrimSpace(posStr)
	switch strings.ToLower(posStr) {
	case "n-term", "nterm":
		return peptide.PosNTerm, nil
	case "c-term", "cterm":
		return peptide.PosCTerm, nil
	}
	// An optional leading residue letter documents the site, e.g. "S3".
	trimmed := strings.TrimLeft(posStr, "ACDEFGHIKLMNPQRSTVWYX")
	pos, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", posStr)
	}
	if pos < 1 || pos > len(sequence) {
		return 0, fmt.Errorf("position %d outside sequence", pos)
	}
	return pos - 1, nil
}

// ParseVarMods parses variable modification declarations of the form
// "2xPhospho(STY);1xOxidation(M);1xAcetyl(N-term)".
func ParseVarMods(v string) ([]peptide.VarMod, error) {
	var out []peptide.VarMod
	for _, part := range strings.Split(v, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		countStr, rest, ok := strings.Cut(part, "x")
		if !ok {
			return nil, fmt.Errorf("declaration %q: expected CountxName(Residues)", part)
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil || count < 1 {
			return nil, fmt.Errorf("declaration %q: invalid count", part)
		}
		lp := strings.IndexByte(rest, '(')
		rp := strings.LastIndexByte(rest, ')')
		if lp < 0 || rp < lp {
			return nil, fmt.Errorf("declaration %q: missing residue list", part)
		}
		vm := peptide.VarMod{
			Count: count,
			Name:  strings.TrimSpace(rest[:lp]),
		}
		for _, tgt := range strings.Split(rest[lp+1:rp], ",") {
			switch t := strings.TrimSpace(tgt); strings.ToLower(t) {
			case "n-term", "nterm":
				vm.NTerm = true
			case "c-term", "cterm":
				vm.CTerm = true
			default:
				vm.Residues += t
			}
		}
		out = append(out, vm)
	}
	return out, nil
}

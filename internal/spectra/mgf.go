package spectra

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultIsolationOffset is the half-width assumed for the precursor
// isolation window when the peak list format does not carry one.
const DefaultIsolationOffset = 1.0

// MGFReader provides streaming access to Mascot Generic Format peak lists.
type MGFReader struct {
	scanner *bufio.Scanner
	source  string
	lineNum int
	current *Scan
	err     error

	// CollisionType is stamped on every scan read; MGF does not carry the
	// activation mode. Defaults to HCD.
	CollisionType string

	// IsolationOffset is the assumed isolation half-width.
	IsolationOffset float64

	autoScan int
}

// NewMGFReader creates a streaming MGF reader. source labels the scans'
// originating file.
func NewMGFReader(r io.Reader, source string) *MGFReader {
	return &MGFReader{
		scanner:         bufio.NewScanner(r),
		source:          source,
		CollisionType:   "HCD",
		IsolationOffset: DefaultIsolationOffset,
	}
}

// Next advances to the next scan. Returns false at end of input or error.
func (r *MGFReader) Next() bool {
	r.current = nil

	scan, err := r.readScan()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.current = scan
	return true
}

// Scan returns the current scan.
func (r *MGFReader) Scan() *Scan {
	return r.current
}

// Err returns any error encountered during reading.
func (r *MGFReader) Err() error {
	return r.err
}

func (r *MGFReader) readScan() (*Scan, error) {
	inIons := false
	var scan *Scan

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !inIons {
			if line == "BEGIN IONS" {
				inIons = true
				r.autoScan++
				scan = &Scan{
					Number:        r.autoScan,
					Source:        r.source,
					CollisionType: r.CollisionType,
				}
			}
			continue
		}

		if line == "END IONS" {
			scan.SortPeaks()
			if scan.Precursor.WindowLow == 0 && scan.Precursor.WindowHigh == 0 {
				scan.Precursor.WindowLow = r.IsolationOffset
				scan.Precursor.WindowHigh = r.IsolationOffset
			}
			if scan.Precursor.IsolationMZ == 0 {
				scan.Precursor.IsolationMZ = scan.Precursor.MZ
			}
			return scan, nil
		}

		if key, value, ok := strings.Cut(line, "="); ok && !isPeakLine(line) {
			if err := r.parseHeader(scan, key, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			continue
		}

		peak, err := parsePeakLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		scan.Peaks = append(scan.Peaks, peak)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if inIons {
		return nil, fmt.Errorf("line %d: unterminated ion block", r.lineNum)
	}
	return nil, io.EOF
}

func (r *MGFReader) parseHeader(scan *Scan, key, value string) error {
	switch strings.ToUpper(key) {
	case "TITLE":
		if n, ok := scanFromTitle(value); ok {
			scan.Number = n
		}
	case "PEPMASS":
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return fmt.Errorf("empty PEPMASS")
		}
		mz, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("invalid PEPMASS %q: %w", fields[0], err)
		}
		scan.Precursor.MZ = mz
	case "CHARGE":
		charge, err := parseCharge(value)
		if err != nil {
			return err
		}
		scan.Precursor.Charge = charge
	case "SCANS":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid SCANS %q: %w", value, err)
		}
		scan.Number = n
	}
	// Unknown headers (RTINSECONDS etc.) are skipped.
	return nil
}

// scanFromTitle extracts a scan number from TITLE values of the common
// "... scan=123" form.
func scanFromTitle(title string) (int, bool) {
	for _, field := range strings.FieldsFunc(title, func(r rune) bool {
		return r == ' ' || r == ',' || r == '"'
	}) {
		if v, ok := strings.CutPrefix(field, "scan="); ok {
			if n, err := strconv.Atoi(v); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func parseCharge(value string) (int, error) {
	v := strings.TrimSpace(value)
	neg := strings.HasSuffix(v, "-")
	v = strings.TrimRight(v, "+-")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid CHARGE %q: %w", value, err)
	}
	if neg {
		n = -n
	}
	return n, nil
}

// isPeakLine reports whether a line starts with a numeric m/z value rather
// than a KEY=VALUE header.
func isPeakLine(line string) bool {
	c := line[0]
	return c >= '0' && c <= '9' || c == '.' || c == '-'
}

func parsePeakLine(line string) (Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Peak{}, fmt.Errorf("invalid peak line %q", line)
	}
	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Peak{}, fmt.Errorf("invalid m/z %q: %w", fields[0], err)
	}
	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Peak{}, fmt.Errorf("invalid intensity %q: %w", fields[1], err)
	}
	return Peak{MZ: mz, Intensity: intensity}, nil
}

// Package ldparse turns a delimited text file of pairwise LD records into
// a stream of LDPair and IndexVariantSummary events. It is the external
// collaborator referenced but not specified by the core design: the core
// only depends on the two-callback shape this package produces.
package ldparse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LDPair is one parsed input record relating an index variant to a
// candidate surrogate.
type LDPair struct {
	IndexID  string
	LDID     string
	IndexMAF float64
	R2       float64
}

// IsInLD reports whether the pair's r² meets or exceeds threshold.
func (p LDPair) IsInLD(threshold float64) bool {
	return p.R2 >= threshold
}

// IndexVariantSummary is emitted once per distinct index variant, after
// all of its LD rows have been seen.
type IndexVariantSummary struct {
	VariantID   string
	MAF         float64
	NSurrogates uint64
}

var (
	// ErrNonContiguousIndexID is returned when rows for the same index_id
	// do not appear as a contiguous run in the input, violating the
	// builder's ordering contract.
	ErrNonContiguousIndexID = errors.New("ldparse: index_id rows are not contiguous")

	// ErrColumnNotFound is returned when a header-name column cannot be
	// resolved against the input's header row.
	ErrColumnNotFound = errors.New("ldparse: column not found in header")

	// ErrInvalidMAF is returned for a row whose maf field does not parse
	// as a decimal in [0, 0.5].
	ErrInvalidMAF = errors.New("ldparse: invalid maf")

	// ErrInvalidR2 is returned for a row whose r² field does not parse as
	// a decimal in [0, 1].
	ErrInvalidR2 = errors.New("ldparse: invalid r2")

	// ErrTooFewFields is returned for a row with fewer fields than the
	// configured column positions require.
	ErrTooFewFields = errors.New("ldparse: too few fields")
)

// Column identifies a field either by a 1-based position or by a header
// name looked up from the input's first line. Name takes precedence when
// set.
type Column struct {
	Name  string
	Index int // 1-based
}

// Config describes how to read fields out of each input line.
type Config struct {
	Delimiter string // defaults to a single space if empty
	HasHeader bool

	IndexID Column
	LDID    Column
	MAF     Column
	R2      Column
}

func (c Config) delimiter() string {
	if c.Delimiter == "" {
		return " "
	}
	return c.Delimiter
}

// Parser resolves a Config's columns against a concrete input (its
// header row, if any) into fixed field positions, then parses each
// subsequent line into an LDPair.
type Parser struct {
	cfg Config

	indexIDPos int // 0-based
	ldIDPos    int
	mafPos     int
	r2Pos      int
	maxPos     int
}

// NewParser resolves cfg's columns. header is the first line's fields,
// already split on the delimiter; it may be nil if cfg uses only
// positional columns and HasHeader is false.
func NewParser(cfg Config, header []string) (*Parser, error) {
	p := &Parser{cfg: cfg}

	resolve := func(col Column) (int, error) {
		if col.Name != "" {
			for i, h := range header {
				if h == col.Name {
					return i, nil
				}
			}
			return 0, fmt.Errorf("%w: %q", ErrColumnNotFound, col.Name)
		}
		if col.Index < 1 {
			return 0, fmt.Errorf("ldparse: column index must be 1-based, got %d", col.Index)
		}
		return col.Index - 1, nil
	}

	var err error
	if p.indexIDPos, err = resolve(cfg.IndexID); err != nil {
		return nil, err
	}
	if p.ldIDPos, err = resolve(cfg.LDID); err != nil {
		return nil, err
	}
	if p.mafPos, err = resolve(cfg.MAF); err != nil {
		return nil, err
	}
	if p.r2Pos, err = resolve(cfg.R2); err != nil {
		return nil, err
	}

	for _, pos := range []int{p.indexIDPos, p.ldIDPos, p.mafPos, p.r2Pos} {
		if pos > p.maxPos {
			p.maxPos = pos
		}
	}

	return p, nil
}

// ParsePair parses one line into an LDPair.
func (p *Parser) ParsePair(line string) (LDPair, error) {
	fields := strings.Split(line, p.cfg.delimiter())
	if len(fields) <= p.maxPos {
		return LDPair{}, fmt.Errorf("%w: need column %d, line has %d fields", ErrTooFewFields, p.maxPos+1, len(fields))
	}

	maf, err := strconv.ParseFloat(fields[p.mafPos], 64)
	if err != nil || maf < 0 || maf > 0.5 {
		return LDPair{}, fmt.Errorf("%w: %q", ErrInvalidMAF, fields[p.mafPos])
	}
	r2, err := strconv.ParseFloat(fields[p.r2Pos], 64)
	if err != nil || r2 < 0 || r2 > 1 {
		return LDPair{}, fmt.Errorf("%w: %q", ErrInvalidR2, fields[p.r2Pos])
	}

	return LDPair{
		IndexID:  fields[p.indexIDPos],
		LDID:     fields[p.ldIDPos],
		IndexMAF: maf,
		R2:       r2,
	}, nil
}

// InvalidLine describes one skipped input row.
type InvalidLine struct {
	LineNumber int
	Raw        string
	Err        error
}

// Iterate streams r line by line, parsing each into an LDPair and firing
// onPair for every pair meeting r2Threshold. At each boundary between two
// distinct index_ids, it fires onNewIndex with the completed variant's
// summary. Rows for a given index_id must arrive contiguously; a
// non-contiguous re-occurrence is reported via onInvalidLine and the row
// is skipped, matching the contract that parser errors never abort the
// build (table write errors in the builder do).
//
// If Config.HasHeader is set, the first line is consumed to resolve
// header-name columns and is never itself parsed as data.
func Iterate(r io.Reader, cfg Config, r2Threshold float64, onPair func(LDPair), onNewIndex func(IndexVariantSummary), onInvalidLine func(InvalidLine)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var header []string
	lineNo := 0
	if cfg.HasHeader {
		if !scanner.Scan() {
			return scanner.Err()
		}
		lineNo++
		header = strings.Split(scanner.Text(), cfg.delimiter())
	}

	parser, err := NewParser(cfg, header)
	if err != nil {
		return err
	}

	var (
		seen        = make(map[string]bool)
		haveCurrent bool
		current     IndexVariantSummary
	)

	flush := func() {
		if haveCurrent {
			onNewIndex(current)
		}
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		pair, err := parser.ParsePair(line)
		if err != nil {
			onInvalidLine(InvalidLine{LineNumber: lineNo, Raw: line, Err: err})
			continue
		}

		if !haveCurrent || current.VariantID != pair.IndexID {
			if haveCurrent && seen[pair.IndexID] {
				onInvalidLine(InvalidLine{
					LineNumber: lineNo,
					Raw:        line,
					Err:        fmt.Errorf("%w: %q", ErrNonContiguousIndexID, pair.IndexID),
				})
				continue
			}
			flush()
			current = IndexVariantSummary{VariantID: pair.IndexID, MAF: pair.IndexMAF}
			haveCurrent = true
			seen[pair.IndexID] = true
		}

		if pair.IsInLD(r2Threshold) {
			onPair(pair)
			current.NSurrogates++
		}
	}
	flush()

	return scanner.Err()
}

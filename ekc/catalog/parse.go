package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode"
)

// Column layout of the source export.
const (
	columnLeftGlyph  = "left_glyph"
	columnRightGlyph = "right_glyph"
	columnIssuedOn   = "issued_on"
	columnAssetID    = "asset_id"

	expectedColumns = 4
	issuedOnLayout  = "2006-01-02"
)

// ScannerOptions configures a RecordScanner.
type ScannerOptions struct {
	// HasHeader skips the first row of the input.
	HasHeader bool
}

// RecordScanner reads the raw export one row at a time and produces validated
// CombinationRecords. It is a single forward pass over the input and is not
// restartable.
type RecordScanner struct {
	reader *csv.Reader
	opts   ScannerOptions
	row    int
}

// NewRecordScanner wraps r for record-at-a-time parsing.
func NewRecordScanner(r io.Reader, opts ScannerOptions) *RecordScanner {
	cr := csv.NewReader(r)
	// Column count is validated per row so we can report it as a
	// MalformedRecordError instead of a csv.ParseError.
	cr.FieldsPerRecord = -1
	return &RecordScanner{reader: cr, opts: opts}
}

// Read returns the next validated record. It returns io.EOF at end of input,
// a *MalformedRecordError when a row fails validation (the caller may skip it
// and keep reading), or the underlying read error.
func (s *RecordScanner) Read() (CombinationRecord, error) {
	if s.opts.HasHeader && s.row == 0 {
		if _, err := s.reader.Read(); err != nil {
			if err == io.EOF {
				return CombinationRecord{}, io.EOF
			}
			return CombinationRecord{}, fmt.Errorf("failed to read header row: %w", err)
		}
		s.row++
	}

	fields, err := s.reader.Read()
	if err != nil {
		if err == io.EOF {
			return CombinationRecord{}, io.EOF
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// Quoting or encoding damage is a row-level failure like
			// any other validation error.
			s.row++
			return CombinationRecord{}, &MalformedRecordError{Row: s.row, Err: err}
		}
		return CombinationRecord{}, fmt.Errorf("failed to read row %d: %w", s.row+1, err)
	}
	s.row++

	if len(fields) != expectedColumns {
		return CombinationRecord{}, &MalformedRecordError{
			Row: s.row,
			Err: fmt.Errorf("%w: got %d, want %d", ErrBadColumnCount, len(fields), expectedColumns),
		}
	}

	left, err := s.validateGlyph(fields[0], columnLeftGlyph)
	if err != nil {
		return CombinationRecord{}, err
	}

	right, err := s.validateGlyph(fields[1], columnRightGlyph)
	if err != nil {
		return CombinationRecord{}, err
	}

	issuedOn, err := time.ParseInLocation(issuedOnLayout, fields[2], time.UTC)
	if err != nil {
		return CombinationRecord{}, &MalformedRecordError{
			Row:    s.row,
			Column: columnIssuedOn,
			Err:    fmt.Errorf("%w: %q", ErrBadDate, fields[2]),
		}
	}

	if fields[3] == "" {
		return CombinationRecord{}, &MalformedRecordError{
			Row:    s.row,
			Column: columnAssetID,
			Err:    ErrAssetIDEmpty,
		}
	}

	return CombinationRecord{
		Left:     left,
		Right:    right,
		IssuedOn: issuedOn,
		AssetID:  fields[3],
	}, nil
}

// Row returns the 1-based physical row number of the last row read.
func (s *RecordScanner) Row() int {
	return s.row
}

// validateGlyph checks glyph syntax and returns the NFC-normalized GlyphID.
func (s *RecordScanner) validateGlyph(raw, column string) (GlyphID, error) {
	if raw == "" {
		return "", &MalformedRecordError{Row: s.row, Column: column, Err: ErrGlyphEmpty}
	}
	for _, r := range raw {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", &MalformedRecordError{Row: s.row, Column: column, Err: ErrGlyphInvalidChar}
		}
		if string(r) == PairKeySeparator {
			return "", &MalformedRecordError{Row: s.row, Column: column, Err: ErrGlyphHasSeparator}
		}
	}
	return NormalizeGlyph(GlyphID(raw)), nil
}

package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Common validation errors reported inside MalformedRecordError reasons
var (
	ErrGlyphEmpty        = errors.New("glyph cannot be empty")
	ErrGlyphInvalidChar  = errors.New("glyph contains whitespace or control characters")
	ErrGlyphHasSeparator = errors.New("glyph contains the pair key separator")
	ErrAssetIDEmpty      = errors.New("asset id cannot be empty")
	ErrBadColumnCount    = errors.New("wrong number of columns")
	ErrBadDate           = errors.New("issued_on is not a valid date")
)

// MalformedRecordError reports a row that failed validation. Row is the
// 1-based physical row number in the input, including any header row.
type MalformedRecordError struct {
	Row    int
	Column string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("malformed record at row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("malformed record at row %d, column %s: %v", e.Row, e.Column, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Conflict describes same-date records for one pair key carrying different
// asset ids. AssetIDs is sorted and holds every asset observed at the tied
// date.
type Conflict struct {
	PairKey  PairKey
	IssuedOn string
	AssetIDs []string
}

// ConflictingRecordError is raised for a Conflict when the resolver runs
// under the abort policy.
type ConflictingRecordError struct {
	Conflict
}

func (e *ConflictingRecordError) Error() string {
	return fmt.Sprintf("conflicting records for pair %s on %s: assets [%s]",
		e.PairKey, e.IssuedOn, strings.Join(e.AssetIDs, ", "))
}

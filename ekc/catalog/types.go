package catalog

import (
	"time"
)

// GlyphID identifies a single emoji glyph by its codepoint sequence.
// It is opaque and compared by exact value; the parser stores it in NFC form.
type GlyphID string

// PairKey is the order-independent identifier for a glyph pair.
// See CanonicalKey for the derivation.
type PairKey string

// CombinationRecord is one validated row from the source export.
// Left/Right keep the orientation the row arrived in.
type CombinationRecord struct {
	Left     GlyphID
	Right    GlyphID
	IssuedOn time.Time
	AssetID  string
}

// Key returns the canonical pair key for the record's glyph pair.
func (r CombinationRecord) Key() PairKey {
	return CanonicalKey(r.Left, r.Right)
}

// CatalogEntry is the authoritative combination for one pair key after
// resolution. Left/Right retain the winning record's original orientation for
// display; lookup accepts either orientation.
type CatalogEntry struct {
	PairKey            PairKey
	Left               GlyphID
	Right              GlyphID
	IssuedOn           time.Time
	AssetID            string
	SupersededAssetIDs []string
}

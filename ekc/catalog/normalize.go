package catalog

import (
	"golang.org/x/text/unicode/norm"
)

// PairKeySeparator joins the two glyphs of a canonical pair key. The upstream
// export uses the same character between glyphs in its query strings, so the
// parser rejects it inside a GlyphID.
const PairKeySeparator = "_"

// NormalizeGlyph returns the NFC form of a glyph sequence so that visually
// identical sequences compare equal regardless of how the export encoded them.
func NormalizeGlyph(g GlyphID) GlyphID {
	return GlyphID(norm.NFC.String(string(g)))
}

// CanonicalKey derives the order-independent key for a glyph pair: both
// glyphs in NFC form, sorted byte-wise, joined with PairKeySeparator.
// CanonicalKey(a, b) == CanonicalKey(b, a) for every pair, including a == b.
func CanonicalKey(a, b GlyphID) PairKey {
	a = NormalizeGlyph(a)
	b = NormalizeGlyph(b)
	if b < a {
		a, b = b, a
	}
	return PairKey(string(a) + PairKeySeparator + string(b))
}

package indexing

import (
	"sync"

	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/catalog"

	roaring "github.com/RoaringBitmap/roaring"
	"github.com/armon/go-radix"
)

// EntryID is a stable ordinal for a catalog entry within one built index.
// It is intentionally small and contiguous to support roaring bitmap usage.
type EntryID = uint32

// GlyphIndex is an in-memory read-side accelerator over a committed catalog.
// Each glyph maps to a roaring bitmap of the EntryIDs it participates in;
// pair lookups intersect two glyph bitmaps. A radix tree over pair keys
// supports ordered prefix walks (all combinations whose canonical key starts
// with a given glyph).
//
// The index is rebuilt from scratch after every catalog replace; it is
// read-only once built.
type GlyphIndex struct {
	entries []catalog.CatalogEntry
	glyphs  map[catalog.GlyphID]*roaring.Bitmap
	keys    *radix.Tree
	mu      sync.RWMutex
}

// BuildGlyphIndex indexes the given entries. Entry order is preserved, so
// building from AllEntries (sorted by pair key) yields deterministic ids.
func BuildGlyphIndex(entries []catalog.CatalogEntry) *GlyphIndex {
	ix := &GlyphIndex{
		entries: entries,
		glyphs:  make(map[catalog.GlyphID]*roaring.Bitmap),
		keys:    radix.New(),
	}

	for i, entry := range entries {
		id := EntryID(i)
		ix.add(entry.Left, id)
		if entry.Right != entry.Left {
			ix.add(entry.Right, id)
		}
		ix.keys.Insert(string(entry.PairKey), id)
	}

	return ix
}

func (ix *GlyphIndex) add(g catalog.GlyphID, id EntryID) {
	bm, ok := ix.glyphs[g]
	if !ok {
		bm = roaring.New()
		ix.glyphs[g] = bm
	}
	bm.Add(id)
}

// Lookup finds the entry for an unordered glyph pair via bitmap
// intersection. Orientation does not matter; a miss returns ok=false.
func (ix *GlyphIndex) Lookup(a, b catalog.GlyphID) (*catalog.CatalogEntry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	key := catalog.CanonicalKey(a, b)

	bmA, okA := ix.glyphs[catalog.NormalizeGlyph(a)]
	bmB, okB := ix.glyphs[catalog.NormalizeGlyph(b)]
	if !okA || !okB {
		return nil, false
	}

	candidates := roaring.And(bmA, bmB)
	it := candidates.Iterator()
	for it.HasNext() {
		entry := &ix.entries[it.Next()]
		// A self-pair glyph intersected with itself matches every entry
		// containing the glyph, so confirm the canonical key.
		if entry.PairKey == key {
			return entry, true
		}
	}
	return nil, false
}

// CombinationsFor returns every catalog entry the glyph participates in,
// ordered by pair key.
func (ix *GlyphIndex) CombinationsFor(g catalog.GlyphID) []catalog.CatalogEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	bm, ok := ix.glyphs[catalog.NormalizeGlyph(g)]
	if !ok {
		return nil
	}

	results := make([]catalog.CatalogEntry, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		results = append(results, ix.entries[it.Next()])
	}
	return results
}

// WalkKeyPrefix visits entries whose canonical pair key starts with prefix,
// in key order. The walk stops when fn returns true.
func (ix *GlyphIndex) WalkKeyPrefix(prefix string, fn func(entry catalog.CatalogEntry) bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ix.keys.WalkPrefix(prefix, func(key string, value interface{}) bool {
		return fn(ix.entries[value.(EntryID)])
	})
}

// GlyphCount returns the number of distinct glyphs indexed.
func (ix *GlyphIndex) GlyphCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.glyphs)
}

// Size returns the number of indexed entries.
func (ix *GlyphIndex) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

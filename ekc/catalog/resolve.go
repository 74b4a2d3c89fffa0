package catalog

import (
	"fmt"
	"sort"
)

// ConflictPolicy decides what happens when two records for the same pair key
// share an issue date but carry different asset ids.
type ConflictPolicy string

const (
	// ConflictAbort fails the run with a ConflictingRecordError. Default.
	ConflictAbort ConflictPolicy = "abort"
	// ConflictPreferSmallestAsset keeps the lexicographically smallest
	// asset id deterministically and records the others as superseded.
	ConflictPreferSmallestAsset ConflictPolicy = "prefer_smallest_asset"
)

// ParseConflictPolicy validates a policy name from configuration.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case ConflictAbort, ConflictPreferSmallestAsset:
		return ConflictPolicy(s), nil
	case "":
		return ConflictAbort, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", s)
	}
}

// Resolve groups the full record set by canonical pair key and selects one
// winning record per key: the record with the latest IssuedOn. Exact
// duplicate rows collapse silently. Equal-date records with differing asset
// ids are a data-integrity condition handled per the policy; conflicts
// resolved under ConflictPreferSmallestAsset are returned so callers can
// report them.
//
// Grouping requires the whole input in memory; the resolver is a batch step,
// not a streaming one. Output is sorted by pair key so identical input always
// yields identical output.
func Resolve(records []CombinationRecord, policy ConflictPolicy) ([]CatalogEntry, []Conflict, error) {
	groups := make(map[PairKey][]CombinationRecord)
	for _, rec := range records {
		key := rec.Key()
		groups[key] = append(groups[key], rec)
	}

	keys := make([]PairKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	entries := make([]CatalogEntry, 0, len(keys))
	var conflicts []Conflict

	for _, key := range keys {
		group := groups[key]

		// Newest first; equal dates ordered by asset id so the winner
		// under the prefer policy is the lexicographically smallest.
		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].IssuedOn.Equal(group[j].IssuedOn) {
				return group[i].IssuedOn.After(group[j].IssuedOn)
			}
			return group[i].AssetID < group[j].AssetID
		})

		winner := group[0]

		tied := tiedAssetIDs(group, winner)
		if len(tied) > 1 {
			conflict := Conflict{
				PairKey:  key,
				IssuedOn: winner.IssuedOn.Format(issuedOnLayout),
				AssetIDs: tied,
			}
			if policy != ConflictPreferSmallestAsset {
				return nil, conflicts, &ConflictingRecordError{Conflict: conflict}
			}
			conflicts = append(conflicts, conflict)
		}

		entries = append(entries, CatalogEntry{
			PairKey:            key,
			Left:               winner.Left,
			Right:              winner.Right,
			IssuedOn:           winner.IssuedOn,
			AssetID:            winner.AssetID,
			SupersededAssetIDs: supersededAssetIDs(group, winner),
		})
	}

	return entries, conflicts, nil
}

// tiedAssetIDs returns the distinct asset ids issued on the winning date,
// sorted. A single element means plain duplicate rows, not a conflict.
func tiedAssetIDs(group []CombinationRecord, winner CombinationRecord) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, rec := range group {
		if !rec.IssuedOn.Equal(winner.IssuedOn) {
			break // group is sorted newest first
		}
		if !seen[rec.AssetID] {
			seen[rec.AssetID] = true
			ids = append(ids, rec.AssetID)
		}
	}
	sort.Strings(ids)
	return ids
}

// supersededAssetIDs collects every non-winning asset id for the group,
// ordered by descending IssuedOn then ascending asset id, deduplicated.
func supersededAssetIDs(group []CombinationRecord, winner CombinationRecord) []string {
	seen := map[string]bool{winner.AssetID: true}
	var ids []string
	for _, rec := range group {
		if seen[rec.AssetID] {
			continue
		}
		seen[rec.AssetID] = true
		ids = append(ids, rec.AssetID)
	}
	return ids
}

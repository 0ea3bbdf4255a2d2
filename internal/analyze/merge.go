// Package analyze runs the per-keyword competition pipeline: rank fetch,
// metadata enrichment, rank-preserving merge, and competition scoring.
package analyze

import "github.com/goldpan/goldpan/internal/appstore"

// RankedApp is one enriched result with its 1-based display rank.
type RankedApp struct {
	Rank int
	App  appstore.App
}

// MergeResult carries the merged sequence plus the identifiers dropped
// because enrichment returned no metadata for them.
type MergeResult struct {
	Apps    []RankedApp
	Omitted []int64
}

// MergeRanked reconciles the authoritative ranking order with the unordered
// enrichment mapping. It walks ids in order, attaches metadata where present,
// and assigns contiguous 1-based ranks counting only emitted entries. An
// identifier without metadata is recorded as an omission, never reordered or
// back-filled from the mapping.
func MergeRanked(ids []int64, details map[int64]appstore.App) MergeResult {
	res := MergeResult{Apps: make([]RankedApp, 0, len(ids))}
	for _, id := range ids {
		app, ok := details[id]
		if !ok {
			res.Omitted = append(res.Omitted, id)
			continue
		}
		res.Apps = append(res.Apps, RankedApp{
			Rank: len(res.Apps) + 1,
			App:  app,
		})
	}
	return res
}

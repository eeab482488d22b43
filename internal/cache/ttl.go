// Package cache implements the two-layer (memory + disk) store for
// normalized forge records. Reads are stale-while-revalidate: a lookup
// returns whatever is present immediately and never blocks on network;
// whether a returned entry is fresh enough is advisory, decided by the
// caller against the per-kind TTL table. Writes go through to both layers;
// disk failures degrade to memory-only caching and are never surfaced.
package cache

import (
	"time"

	"forgedeck/internal/forge"
)

// Default max staleness before a background refresh is triggered, per
// resource kind. Repository metadata barely moves, CI status churns.
const (
	ttlRepoMetadata = time.Hour
	ttlList         = 5 * time.Minute
	ttlDetail       = 2 * time.Minute
	ttlChecks       = 30 * time.Second
)

// TTLTable maps resource kinds to their max staleness.
type TTLTable map[forge.Kind]time.Duration

// DefaultTTLs returns the built-in staleness table.
func DefaultTTLs() TTLTable {
	return TTLTable{
		forge.KindRepoList:    ttlRepoMetadata,
		forge.KindHome:        ttlList,
		forge.KindPullList:    ttlList,
		forge.KindIssueList:   ttlList,
		forge.KindCommitList:  ttlList,
		forge.KindRunList:     ttlList,
		forge.KindPullDetail:  ttlDetail,
		forge.KindPullDiff:    ttlDetail,
		forge.KindCommit:      ttlDetail,
		forge.KindCheckStatus: ttlChecks,
	}
}

// For returns the max staleness for a kind. Kinds absent from the table
// fall back to the detail TTL, the most conservative of the list-or-detail
// pair, so a new kind never gets cached for an hour by accident.
func (t TTLTable) For(kind forge.Kind) time.Duration {
	if d, ok := t[kind]; ok {
		return d
	}
	return ttlDetail
}

// Merge overlays per-kind overrides (from user config) onto the table.
func (t TTLTable) Merge(overrides map[forge.Kind]time.Duration) TTLTable {
	out := make(TTLTable, len(t)+len(overrides))
	for k, d := range t {
		out[k] = d
	}
	for k, d := range overrides {
		if d > 0 {
			out[k] = d
		}
	}
	return out
}

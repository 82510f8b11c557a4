// Package query implements the stateless filter/sort/search and aggregation
// transforms applied to point-in-time store snapshots. Every function here is
// a pure function of its inputs; nothing in this package mutates a snapshot.
package query

import (
	"sort"
	"strings"

	"github.com/visorlabs/visor/internal/result"
)

// Filter holds the conjunctive (AND) selection criteria. Zero-value fields
// are inactive.
type Filter struct {
	StreamID  string            // exact match
	ModelName string            // exact match
	Level     result.AlertLevel // exact match
	Search    string            // case-insensitive substring over id, model and payload
}

// SortKey selects the ordering key. The zero value keeps input order.
type SortKey string

const (
	SortNone       SortKey = ""
	SortTimestamp  SortKey = "timestamp"
	SortConfidence SortKey = "confidence"
	SortAlertLevel SortKey = "alert_level"
)

// SortDir selects the ordering direction.
type SortDir string

const (
	Ascending  SortDir = "asc"
	Descending SortDir = "desc"
)

// Apply returns a new slice holding the entries of items that match f,
// ordered by key/dir. The sort is stable, so equal keys keep their input
// order and the output is deterministic. Apply never fails: no matches is an
// empty, non-error outcome.
func Apply(items []result.AIResult, f Filter, key SortKey, dir SortDir) []result.AIResult {
	search := strings.ToLower(f.Search)

	out := make([]result.AIResult, 0, len(items))
	for _, r := range items {
		if f.StreamID != "" && r.StreamID != f.StreamID {
			continue
		}
		if f.ModelName != "" && r.ModelName != f.ModelName {
			continue
		}
		if f.Level != "" && r.AlertLevel != f.Level {
			continue
		}
		if search != "" && !strings.Contains(r.SearchText(), search) {
			continue
		}
		out = append(out, r)
	}

	if key == SortNone {
		return out
	}

	less := lessFunc(out, key)
	sort.SliceStable(out, func(i, j int) bool {
		if dir == Descending {
			return less(j, i)
		}
		return less(i, j)
	})
	return out
}

func lessFunc(items []result.AIResult, key SortKey) func(i, j int) bool {
	switch key {
	case SortConfidence:
		return func(i, j int) bool { return items[i].Confidence < items[j].Confidence }
	case SortAlertLevel:
		return func(i, j int) bool { return items[i].AlertLevel.Rank() < items[j].AlertLevel.Rank() }
	default: // SortTimestamp
		return func(i, j int) bool { return items[i].Timestamp.Before(items[j].Timestamp) }
	}
}

// ParseSortKey normalizes a user-supplied sort key.
func ParseSortKey(s string) (SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return SortNone, true
	case "timestamp", "time":
		return SortTimestamp, true
	case "confidence":
		return SortConfidence, true
	case "alert_level", "level":
		return SortAlertLevel, true
	default:
		return SortNone, false
	}
}

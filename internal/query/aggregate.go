package query

import (
	"time"

	"github.com/visorlabs/visor/internal/result"
)

// HourBucket is one hour of activity: how many results arrived in it and how
// many of them were warning or critical.
type HourBucket struct {
	Hour   time.Time
	Total  int
	Alerts int
}

// HourlyActivity buckets items into the 24 hours ending at now, oldest bucket
// first. Results outside the window are ignored. Bucket n covers
// [Hour, Hour+1h).
func HourlyActivity(items []result.AIResult, now time.Time) []HourBucket {
	const window = 24

	end := now.Truncate(time.Hour)
	buckets := make([]HourBucket, window)
	for i := range buckets {
		buckets[i].Hour = end.Add(time.Duration(i-window+1) * time.Hour)
	}
	start := buckets[0].Hour

	for _, r := range items {
		ts := r.Timestamp
		if ts.Before(start) || !ts.Before(end.Add(time.Hour)) {
			continue
		}
		i := int(ts.Sub(start) / time.Hour)
		if i < 0 || i >= window {
			continue
		}
		buckets[i].Total++
		if r.AlertLevel == result.LevelWarning || r.AlertLevel == result.LevelCritical {
			buckets[i].Alerts++
		}
	}
	return buckets
}

// ModelStat is the per-model aggregate over a snapshot.
type ModelStat struct {
	ModelName     string
	Count         int
	AvgConfidence float64
}

// ModelStats folds items in input order into per-model counts and a running
// average confidence, maintained incrementally as each result is added.
// Models appear in first-seen order, which is deterministic for a given
// snapshot.
func ModelStats(items []result.AIResult) []ModelStat {
	index := make(map[string]int)
	stats := make([]ModelStat, 0, 4)

	for _, r := range items {
		i, ok := index[r.ModelName]
		if !ok {
			i = len(stats)
			index[r.ModelName] = i
			stats = append(stats, ModelStat{ModelName: r.ModelName})
		}
		s := &stats[i]
		s.Count++
		s.AvgConfidence += (r.Confidence - s.AvgConfidence) / float64(s.Count)
	}
	return stats
}

// LevelCounts tallies results by alert level.
func LevelCounts(items []result.AIResult) map[result.AlertLevel]int {
	counts := make(map[result.AlertLevel]int, 3)
	for _, r := range items {
		counts[r.AlertLevel]++
	}
	return counts
}

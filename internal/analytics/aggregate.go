// Package analytics derives counts, hotspots and trend signals from report
// snapshots. Every function is pure and tolerates empty input.
package analytics

import (
	"sort"

	"github.com/civicwatch/civicwatch/internal/domain/report"
)

// DefaultTopN is the default hotspot limit.
const DefaultTopN = 5

// LocationBucket is a location and the number of reports filed there.
type LocationBucket struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// HeatBucket is a location bucket with its count relative to the busiest
// location, in [0,1].
type HeatBucket struct {
	LocationBucket
	Heat float64 `json:"heat"`
}

// Sample pairs a hotspot with its newest report.
type Sample struct {
	LocationBucket
	Report report.Report `json:"report"`
}

// Counts tallies reports per fixed category. All four categories are
// present; unrecognized categories are not counted.
func Counts(snap report.Snapshot) map[report.Category]int {
	counts := make(map[report.Category]int, len(report.Categories))
	for _, c := range report.Categories {
		counts[c] = 0
	}
	for _, r := range snap.Reports {
		if r.Category.Known() {
			counts[r.Category]++
		}
	}
	return counts
}

// groupByLocation counts reports per normalized location in first-seen
// order.
func groupByLocation(snap report.Snapshot) []LocationBucket {
	index := make(map[string]int)
	var buckets []LocationBucket
	for _, r := range snap.Reports {
		loc := report.NormalizeLocation(r.Location)
		i, ok := index[loc]
		if !ok {
			i = len(buckets)
			index[loc] = i
			buckets = append(buckets, LocationBucket{Location: loc})
		}
		buckets[i].Count++
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Count > buckets[j].Count
	})
	return buckets
}

// Hotspots ranks locations by report count, descending. Equal counts keep
// the order in which the locations first appear in the snapshot. At most
// topN buckets are returned; topN <= 0 returns none.
func Hotspots(snap report.Snapshot, topN int) []LocationBucket {
	if topN <= 0 {
		return []LocationBucket{}
	}
	buckets := groupByLocation(snap)
	if len(buckets) > topN {
		buckets = buckets[:topN]
	}
	if buckets == nil {
		return []LocationBucket{}
	}
	return buckets
}

// Buckets returns every location bucket, ranked like Hotspots, with a heat
// ratio against the busiest location.
func Buckets(snap report.Snapshot) []HeatBucket {
	buckets := groupByLocation(snap)
	out := make([]HeatBucket, 0, len(buckets))
	if len(buckets) == 0 {
		return out
	}
	top := buckets[0].Count
	for _, b := range buckets {
		out = append(out, HeatBucket{LocationBucket: b, Heat: float64(b.Count) / float64(top)})
	}
	return out
}

// Samples returns the newest report at each hotspot. The snapshot is
// newest-first, so the first match wins.
func Samples(snap report.Snapshot, hotspots []LocationBucket) []Sample {
	out := make([]Sample, 0, len(hotspots))
	for _, h := range hotspots {
		for _, r := range snap.Reports {
			if report.NormalizeLocation(r.Location) == h.Location {
				out = append(out, Sample{LocationBucket: h, Report: r})
				break
			}
		}
	}
	return out
}

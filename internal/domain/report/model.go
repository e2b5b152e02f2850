package report

import (
	"sort"
	"strings"
	"time"
)

// Category classifies an incident report.
type Category string

const (
	CategoryNoise     Category = "noise"
	CategoryCrowd     Category = "crowd"
	CategoryTraffic   Category = "traffic"
	CategoryPollution Category = "pollution"
)

// Categories is the fixed category enumeration. Its order is the tie-break
// order used by trend detection.
var Categories = []Category{CategoryNoise, CategoryCrowd, CategoryTraffic, CategoryPollution}

// Known reports whether c is one of the fixed categories.
func (c Category) Known() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Status represents the remediation lifecycle of a report
type Status string

const (
	StatusNew      Status = "new"
	StatusCleaned  Status = "cleaned"
	StatusResolved Status = "resolved"
)

// UnknownLocation is the bucket for reports without a usable location.
const UnknownLocation = "Unknown"

// Report is the canonical in-memory shape of an incident record.
type Report struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id,omitempty"`
	Category    Category   `json:"category"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location"`
	Status      Status     `json:"status"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	Optimistic  bool       `json:"optimistic,omitempty"`
}

// Snapshot is a complete, newest-first view of all visible reports.
type Snapshot struct {
	Reports []Report `json:"reports"`
	Version uint64   `json:"version"`
}

// Len returns the number of reports in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Reports)
}

// Find returns the report with the given id.
func (s Snapshot) Find(id string) (Report, bool) {
	for _, r := range s.Reports {
		if r.ID == id {
			return r, true
		}
	}
	return Report{}, false
}

// AtLocation returns the reports whose normalized location equals loc, in
// snapshot order.
func (s Snapshot) AtLocation(loc string) []Report {
	key := NormalizeLocation(loc)
	var out []Report
	for _, r := range s.Reports {
		if NormalizeLocation(r.Location) == key {
			out = append(out, r)
		}
	}
	return out
}

// NormalizeLocation trims raw and maps empty input to UnknownLocation.
func NormalizeLocation(raw string) string {
	loc := strings.TrimSpace(raw)
	if loc == "" {
		return UnknownLocation
	}
	return loc
}

// NormalizeCategory lowercases and trims a raw category. Unrecognized values
// are preserved.
func NormalizeCategory(raw string) Category {
	return Category(strings.ToLower(strings.TrimSpace(raw)))
}

// SortNewestFirst orders reports by CreatedAt descending. Reports without a
// timestamp sort last; ties fall back to descending id.
func SortNewestFirst(reports []Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		switch {
		case a.CreatedAt == nil && b.CreatedAt == nil:
		case a.CreatedAt == nil:
			return false
		case b.CreatedAt == nil:
			return true
		case !a.CreatedAt.Equal(*b.CreatedAt):
			return a.CreatedAt.After(*b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

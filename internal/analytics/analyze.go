package analytics

import (
	"strings"

	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/domain/user"
)

// DefaultWindow is the default look-back for counts and hotspots.
const DefaultWindow = 50

// Options tune Analyze. TopN is used as given; Window <= 0 means the whole
// snapshot.
type Options struct {
	TopN   int
	Window int
}

// DefaultOptions returns the standard analysis options.
func DefaultOptions() Options {
	return Options{TopN: DefaultTopN, Window: DefaultWindow}
}

// Analysis is the operator view of a snapshot.
type Analysis struct {
	Version  uint64                  `json:"version"`
	Total    int                     `json:"total"`
	Window   int                     `json:"window"`
	Counts   map[report.Category]int `json:"counts"`
	Hotspots []LocationBucket        `json:"hotspots"`
	Samples  []Sample                `json:"samples"`
	Trend    Trend                   `json:"trend"`
	Summary  string                  `json:"summary"`
}

// Analyze computes counts and hotspots over the newest opts.Window reports
// and the trend over the newest reports.
func Analyze(snap report.Snapshot, opts Options) Analysis {
	windowed := snap
	if opts.Window > 0 && snap.Len() > opts.Window {
		windowed = report.Snapshot{Reports: snap.Reports[:opts.Window], Version: snap.Version}
	}

	hotspots := Hotspots(windowed, opts.TopN)
	trend := DetectTrend(snap)
	return Analysis{
		Version:  snap.Version,
		Total:    snap.Len(),
		Window:   windowed.Len(),
		Counts:   Counts(windowed),
		Hotspots: hotspots,
		Samples:  Samples(windowed, hotspots),
		Trend:    trend,
		Summary:  Summarize(trend),
	}
}

// Query filters a snapshot for display.
type Query struct {
	// Category is "all", empty, or one category name.
	Category string
	// Text matches description, location or owner id, case-insensitively.
	Text string
}

// FilterResult is a filtered listing with the "showing N of M" counts.
type FilterResult struct {
	Reports []report.Report `json:"reports"`
	Shown   int             `json:"shown"`
	Total   int             `json:"total"`
}

// Filter applies q to snap, preserving snapshot order.
func Filter(snap report.Snapshot, q Query) FilterResult {
	category := report.NormalizeCategory(q.Category)
	text := strings.ToLower(strings.TrimSpace(q.Text))

	out := make([]report.Report, 0, snap.Len())
	for _, r := range snap.Reports {
		if category != "" && category != "all" && r.Category != category {
			continue
		}
		if text != "" && !matchesText(r, text) {
			continue
		}
		out = append(out, r)
	}
	return FilterResult{Reports: out, Shown: len(out), Total: snap.Len()}
}

func matchesText(r report.Report, text string) bool {
	return strings.Contains(strings.ToLower(r.Description), text) ||
		strings.Contains(strings.ToLower(r.Location), text) ||
		strings.Contains(strings.ToLower(r.OwnerID), text)
}

// View is what a principal is shown for a snapshot.
type View struct {
	Role     user.Role               `json:"role"`
	Reports  []report.Report         `json:"reports"`
	Counts   map[report.Category]int `json:"counts,omitempty"`
	Buckets  []HeatBucket            `json:"buckets,omitempty"`
	Analysis *Analysis               `json:"analysis,omitempty"`
}

// ViewFor selects the aggregation views exposed to p. Admins get the global
// analysis, clients their own reports with counts and buckets, and
// principals without a role the plain listing.
func ViewFor(p user.Principal, snap report.Snapshot, opts Options) View {
	switch {
	case p.IsAdmin():
		analysis := Analyze(snap, opts)
		return View{Role: p.Role, Reports: snap.Reports, Counts: analysis.Counts, Buckets: Buckets(snap), Analysis: &analysis}
	case p.Role == user.RoleClient && p.SignedIn():
		own := OwnedBy(snap, p.ID)
		return View{Role: p.Role, Reports: own.Reports, Counts: Counts(own), Buckets: Buckets(own)}
	default:
		return View{Role: user.RoleUnset, Reports: snap.Reports}
	}
}

// OwnedBy narrows snap to the reports filed by ownerID.
func OwnedBy(snap report.Snapshot, ownerID string) report.Snapshot {
	out := report.Snapshot{Version: snap.Version, Reports: []report.Report{}}
	for _, r := range snap.Reports {
		if r.OwnerID == ownerID {
			out.Reports = append(out.Reports, r)
		}
	}
	return out
}

package mcp

import (
	"time"

	"github.com/civicwatch/civicwatch/internal/analytics"
	"github.com/civicwatch/civicwatch/internal/domain/activity"
	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/domain/user"
)

type ListReportsParams struct {
	Category string `json:"category,omitempty" jsonschema:"one of noise, crowd, traffic, pollution or all"`
	Query    string `json:"query,omitempty" jsonschema:"case-insensitive text matched against description, location and owner"`
	Location string `json:"location,omitempty" jsonschema:"only reports at this location"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of reports returned"`
}

type SearchReportsParams struct {
	Query    string          `json:"query" jsonschema:"full-text query over description and location"`
	Statuses []report.Status `json:"statuses,omitempty" jsonschema:"filter by status (new, cleaned, resolved)"`
	Limit    int             `json:"limit,omitempty" jsonschema:"maximum number of results"`
	Offset   int             `json:"offset,omitempty" jsonschema:"offset for pagination"`
}

type GetDashboardParams struct{}

type GetHotspotsParams struct {
	TopN   int `json:"top_n,omitempty" jsonschema:"number of hotspots, default 5"`
	Window int `json:"window,omitempty" jsonschema:"number of newest reports considered, default 50"`
}

type DetectTrendParams struct{}

type MarkStatusParams struct {
	ID     string        `json:"id" jsonschema:"report ID"`
	Status report.Status `json:"status" jsonschema:"cleaned or resolved"`
}

type CleanupLocationParams struct {
	Location string        `json:"location" jsonschema:"location whose reports are updated"`
	Status   report.Status `json:"status,omitempty" jsonschema:"cleaned (default) or resolved"`
}

type SubmitReportParams struct {
	Category    string `json:"category" jsonschema:"noise, crowd, traffic or pollution"`
	Description string `json:"description" jsonschema:"what happened"`
	Location    string `json:"location,omitempty" jsonschema:"where it happened"`
}

type GetRecentActivityParams struct {
	ReportID string `json:"report_id,omitempty" jsonschema:"only entries for this report"`
	Location string `json:"location,omitempty" jsonschema:"only entries for this location"`
	Outcome  string `json:"outcome,omitempty" jsonschema:"success, failure or busy"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of entries, default 50"`
}

type WhoAmIParams struct{}

type ListReportsResponse struct {
	Reports []report.Report `json:"reports"`
	Shown   int             `json:"shown"`
	Total   int             `json:"total"`
	Version uint64          `json:"version"`
}

type SearchReportsResponse struct {
	Results []report.SearchResult `json:"results"`
}

type DashboardResponse struct {
	Role     user.Role               `json:"role"`
	Reports  []report.Report         `json:"reports"`
	Counts   map[report.Category]int `json:"counts,omitempty"`
	Buckets  []analytics.HeatBucket  `json:"buckets,omitempty"`
	Analysis *analytics.Analysis     `json:"analysis,omitempty"`
}

type HotspotsResponse struct {
	Hotspots []analytics.LocationBucket `json:"hotspots"`
	Samples  []analytics.Sample         `json:"samples"`
	Window   int                        `json:"window"`
}

type TrendResponse struct {
	Category   report.Category `json:"category,omitempty"`
	Confidence float64         `json:"confidence"`
	Detected   bool            `json:"detected"`
	Summary    string          `json:"summary"`
}

type MarkStatusResponse struct {
	ID     string        `json:"id"`
	Status report.Status `json:"status"`
}

type CleanupLocationResponse struct {
	Location  string        `json:"location"`
	Status    report.Status `json:"status"`
	Attempted int           `json:"attempted"`
	Succeeded []string      `json:"succeeded"`
	Skipped   []string      `json:"skipped"`
}

type SubmitReportResponse struct {
	Report report.Report `json:"report"`
}

type GetRecentActivityResponse struct {
	Entries []ActivityEntryResponse `json:"entries"`
}

type ActivityEntryResponse struct {
	Timestamp time.Time             `json:"timestamp"`
	Type      activity.ActivityType `json:"type"`
	Outcome   activity.Outcome      `json:"outcome"`
	ActorID   string                `json:"actor_id,omitempty"`
	ReportID  *string               `json:"report_id,omitempty"`
	Location  *string               `json:"location,omitempty"`
	Summary   string                `json:"summary"`
	Details   string                `json:"details,omitempty"`
}

type WhoAmIResponse struct {
	ID       string    `json:"id,omitempty"`
	Role     user.Role `json:"role"`
	SignedIn bool      `json:"signed_in"`
}

package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `civicwatch watches a live feed of incident reports (noise, crowd, traffic, pollution) and coordinates their remediation.

Core concepts:
- Report: one incident with a category, a location, a status (new, cleaned, resolved) and an owner.
- Snapshot: the complete newest-first list of reports, refreshed whenever the store changes.
- Hotspot: a location ranked by report count. Trend: the category rising fastest in the newest reports.
- Optimistic change: a status change or submission shown before the store confirms it.

Workflow:
1) Orient: whoami, then get_dashboard (what you see depends on your role).
2) Browse: list_reports (category/text filter over the live snapshot) or search_reports (full text).
3) Analyse: get_hotspots and detect_trend (admin only).
4) Remediate: mark_status for one report, cleanup_location for every report at a place.
   - BUSY means the same report or location is being updated; retry later.
   - CLEANUP_PARTIAL lists the reports that failed; the others stay updated.
5) Audit: get_recent_activity.

Docs:
- civicwatch://docs/index
- civicwatch://docs/remediation
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "civicwatch://docs/index",
		Name:        "docs_index",
		Title:       "civicwatch docs index",
		Description: "Entry point: roles, tools and what each one returns.",
		Content: `# civicwatch: Docs Index

## Roles

- admin: sees every report, the global analysis, and may remediate any report.
- client: sees and remediates only their own reports; may submit reports.
- no role: sees the public listing only.

## Tools

- whoami: the principal the server resolved for you.
- get_dashboard: the role view (reports, counts, heat buckets, analysis).
- list_reports / search_reports: browse the snapshot or the store.
- get_hotspots / detect_trend: operator analysis.
- mark_status / cleanup_location / submit_report: remediation.
- get_recent_activity: outcome journal (success, failure, busy).

## Analysis rules

- Counts and hotspots use the newest 50 reports unless a window is given.
- Hotspots are ordered by count, ties by first appearance in the snapshot.
- The trend compares the newest 5 reports with the 5 before them. Confidence
  is the increase divided by 5, capped at 100%.
`,
	},
	{
		URI:         "civicwatch://docs/remediation",
		Name:        "docs_remediation",
		Title:       "Remediation rules",
		Description: "Status transitions, busy guards and partial cleanup failures.",
		Content: `# Remediation

## Transitions

- new -> cleaned, new -> resolved.
- Setting a report to the status it already has succeeds.
- cleaned and resolved never move to each other or back to new.

## Concurrency

- One mutation per report and one cleanup per location at a time. A second
  request fails immediately with BUSY; nothing waits in a queue.
- Changes show up in the snapshot immediately and are reconciled when the
  store's next snapshot arrives. A failed change is reverted.

## Cleanup

- Reports at the location are updated one at a time, newest first.
- Reports already at the target status, or past it, are skipped. Repeating
  a finished cleanup succeeds with every report skipped.
- NOTHING_TO_CLEAN means no report (of yours, for clients) is at the location.
- A failed report does not stop the run and nothing is rolled back. The
  CLEANUP_PARTIAL error lists each failed report with its reason.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}

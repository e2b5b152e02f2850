package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools exposes every handler operation as an MCP tool. Input
// schemas are inferred from the parameter structs.
func registerTools(server *sdkmcp.Server, h *Handler) {
	// Browsing
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "whoami",
		Description: "Show the principal and role the server resolved for this connection",
	}, tool(h.whoAmI))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_dashboard",
		Description: "Get the role view of the live snapshot: reports, category counts, location heat buckets and, for admins, the full analysis",
	}, tool(h.getDashboard))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_reports",
		Description: "List reports from the live snapshot, newest first, filtered by category, text or location",
	}, tool(h.listReports))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search_reports",
		Description: "Full-text search over stored report descriptions and locations",
	}, tool(h.searchReports))

	// Analysis
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_hotspots",
		Description: "Rank locations by report count over the newest reports, with the newest report at each hotspot (admin only)",
	}, tool(h.getHotspots))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "detect_trend",
		Description: "Detect the category rising fastest in the newest 5 reports compared with the 5 before them (admin only)",
	}, tool(h.detectTrend))

	// Remediation
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "mark_status",
		Description: "Set one report to cleaned or resolved. Fails with BUSY while another change to the same report is in flight",
	}, tool(h.markStatus))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "cleanup_location",
		Description: "Set every report at a location to cleaned (or resolved), one at a time. Failed reports are listed in a CLEANUP_PARTIAL error; the rest stay updated",
	}, tool(h.cleanupLocation))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "submit_report",
		Description: "File a new incident report owned by the caller",
	}, tool(h.submitReport))

	// Audit
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_recent_activity",
		Description: "List recent remediation outcomes (success, failure, busy), newest first",
	}, tool(h.getRecentActivity))
}

// tool adapts a handler method to the SDK. Output is left untyped so the
// SDK returns it as JSON text without an output schema.
func tool[In, Out any](fn func(context.Context, In) (Out, error)) sdkmcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
		out, err := fn(ctx, in)
		if err != nil {
			return nil, nil, mapError(err)
		}
		return nil, out, nil
	}
}

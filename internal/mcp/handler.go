package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/civicwatch/civicwatch/internal/analytics"
	"github.com/civicwatch/civicwatch/internal/domain/activity"
	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/domain/user"
	"github.com/civicwatch/civicwatch/internal/remediation"
)

// Handler dispatches MCP commands. The caller is read from the context
// with user.PrincipalFrom.
type Handler struct {
	reports     ReportService
	remediation RemediationService
	activity    ActivityService
	analytics   analytics.Options
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services) *Handler {
	return &Handler{
		reports:     services.Reports,
		remediation: services.Remediation,
		activity:    services.Activity,
		analytics:   services.Analytics,
	}
}

// Handle dispatches a JSON-RPC method to the matching tool.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "list_reports":
		return dispatch(ctx, params, h.listReports)
	case "search_reports":
		return dispatch(ctx, params, h.searchReports)
	case "get_dashboard":
		return dispatch(ctx, params, h.getDashboard)
	case "get_hotspots":
		return dispatch(ctx, params, h.getHotspots)
	case "detect_trend":
		return dispatch(ctx, params, h.detectTrend)
	case "mark_status":
		return dispatch(ctx, params, h.markStatus)
	case "cleanup_location":
		return dispatch(ctx, params, h.cleanupLocation)
	case "submit_report":
		return dispatch(ctx, params, h.submitReport)
	case "get_recent_activity":
		return dispatch(ctx, params, h.getRecentActivity)
	case "whoami":
		return dispatch(ctx, params, h.whoAmI)
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

func dispatch[In, Out any](ctx context.Context, params json.RawMessage, fn func(context.Context, In) (Out, error)) (any, error) {
	var in In
	if err := decodeParams(params, &in); err != nil {
		return nil, mapError(err)
	}
	out, err := fn(ctx, in)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (h *Handler) listReports(ctx context.Context, req ListReportsParams) (ListReportsResponse, error) {
	snap := h.remediation.Snapshot()
	visible := report.Snapshot{Reports: analytics.ViewFor(user.PrincipalFrom(ctx), snap, h.analytics).Reports, Version: snap.Version}
	if req.Location != "" {
		visible.Reports = visible.AtLocation(req.Location)
	}
	filtered := analytics.Filter(visible, analytics.Query{Category: req.Category, Text: req.Query})
	reports := filtered.Reports
	if req.Limit > 0 && len(reports) > req.Limit {
		reports = reports[:req.Limit]
	}
	return ListReportsResponse{
		Reports: reports,
		Shown:   len(reports),
		Total:   filtered.Total,
		Version: snap.Version,
	}, nil
}

func (h *Handler) searchReports(ctx context.Context, req SearchReportsParams) (SearchReportsResponse, error) {
	opts := report.SearchOptions{
		Statuses: req.Statuses,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	if p := user.PrincipalFrom(ctx); p.Role == user.RoleClient {
		opts.OwnerID = p.ID
	}
	results, err := h.reports.Search(ctx, req.Query, opts)
	if err != nil {
		return SearchReportsResponse{}, err
	}
	if results == nil {
		results = []report.SearchResult{}
	}
	return SearchReportsResponse{Results: results}, nil
}

func (h *Handler) getDashboard(ctx context.Context, _ GetDashboardParams) (analytics.View, error) {
	return analytics.ViewFor(user.PrincipalFrom(ctx), h.remediation.Snapshot(), h.analytics), nil
}

func (h *Handler) getHotspots(ctx context.Context, req GetHotspotsParams) (HotspotsResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return HotspotsResponse{}, err
	}
	opts := h.analytics
	if req.TopN > 0 {
		opts.TopN = req.TopN
	}
	if req.Window > 0 {
		opts.Window = req.Window
	}
	analysis := analytics.Analyze(h.remediation.Snapshot(), opts)
	return HotspotsResponse{
		Hotspots: analysis.Hotspots,
		Samples:  analysis.Samples,
		Window:   analysis.Window,
	}, nil
}

func (h *Handler) detectTrend(ctx context.Context, _ DetectTrendParams) (TrendResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return TrendResponse{}, err
	}
	trend := analytics.DetectTrend(h.remediation.Snapshot())
	return TrendResponse{
		Category:   trend.Category,
		Confidence: trend.Confidence,
		Detected:   trend.Detected(),
		Summary:    analytics.Summarize(trend),
	}, nil
}

func (h *Handler) markStatus(ctx context.Context, req MarkStatusParams) (MarkStatusResponse, error) {
	p, err := requireRole(ctx)
	if err != nil {
		return MarkStatusResponse{}, err
	}
	if !p.IsAdmin() {
		rep, ok := h.remediation.Snapshot().Find(req.ID)
		if !ok {
			return MarkStatusResponse{}, report.ErrReportNotFound
		}
		if rep.OwnerID != p.ID {
			return MarkStatusResponse{}, fmt.Errorf("%w: report %s belongs to another user", ErrForbidden, req.ID)
		}
	}
	if err := h.remediation.MarkStatus(ctx, req.ID, req.Status); err != nil {
		return MarkStatusResponse{}, err
	}
	return MarkStatusResponse{ID: req.ID, Status: req.Status}, nil
}

func (h *Handler) cleanupLocation(ctx context.Context, req CleanupLocationParams) (CleanupLocationResponse, error) {
	p, err := requireRole(ctx)
	if err != nil {
		return CleanupLocationResponse{}, err
	}
	opts := remediation.CleanupOptions{Status: req.Status}
	if !p.IsAdmin() {
		opts.OwnerID = p.ID
	}
	result, err := h.remediation.CleanupLocation(ctx, req.Location, opts)
	if err != nil {
		return CleanupLocationResponse{}, err
	}
	return CleanupLocationResponse{
		Location:  result.Location,
		Status:    result.Status,
		Attempted: result.Attempted,
		Succeeded: result.Succeeded,
		Skipped:   result.Skipped,
	}, nil
}

func (h *Handler) submitReport(ctx context.Context, req SubmitReportParams) (SubmitReportResponse, error) {
	p, err := requireRole(ctx)
	if err != nil {
		return SubmitReportResponse{}, err
	}
	rep, err := h.remediation.Submit(ctx, report.SubmitRequest{
		OwnerID:     p.ID,
		Category:    req.Category,
		Description: req.Description,
		Location:    req.Location,
	})
	if err != nil {
		return SubmitReportResponse{}, err
	}
	return SubmitReportResponse{Report: rep}, nil
}

func (h *Handler) getRecentActivity(ctx context.Context, req GetRecentActivityParams) (GetRecentActivityResponse, error) {
	p, err := requireRole(ctx)
	if err != nil {
		return GetRecentActivityResponse{}, err
	}
	opts := activity.ListActivityOptions{Limit: req.Limit}
	if !p.IsAdmin() {
		opts.ActorID = p.ID
	}
	if req.ReportID != "" {
		opts.ReportID = &req.ReportID
	}
	if req.Location != "" {
		loc := report.NormalizeLocation(req.Location)
		opts.Location = &loc
	}
	if req.Outcome != "" {
		outcome := activity.Outcome(strings.ToLower(req.Outcome))
		opts.Outcome = &outcome
	}
	entries, err := h.activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return GetRecentActivityResponse{}, err
	}
	resp := GetRecentActivityResponse{Entries: make([]ActivityEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, ActivityEntryResponse{
			Timestamp: entry.CreatedAt,
			Type:      entry.ActivityType,
			Outcome:   entry.Outcome,
			ActorID:   entry.ActorID,
			ReportID:  entry.ReportID,
			Location:  entry.Location,
			Summary:   entry.Summary,
			Details:   entry.Details,
		})
	}
	return resp, nil
}

func (h *Handler) whoAmI(ctx context.Context, _ WhoAmIParams) (WhoAmIResponse, error) {
	p := user.PrincipalFrom(ctx)
	return WhoAmIResponse{ID: p.ID, Role: p.Role, SignedIn: p.SignedIn()}, nil
}

// requireRole admits admins and clients.
func requireRole(ctx context.Context) (user.Principal, error) {
	p := user.PrincipalFrom(ctx)
	if !p.SignedIn() {
		return p, ErrUnauthorized
	}
	if p.Role != user.RoleAdmin && p.Role != user.RoleClient {
		return p, fmt.Errorf("%w: no role assigned", ErrForbidden)
	}
	return p, nil
}

func requireAdmin(ctx context.Context) error {
	p, err := requireRole(ctx)
	if err != nil {
		return err
	}
	if !p.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", report.ErrInvalidInput, err)
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civicwatch/civicwatch/internal/analytics"
	"github.com/civicwatch/civicwatch/internal/domain/activity"
	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/domain/user"
	"github.com/civicwatch/civicwatch/internal/remediation"
)

type reportStub struct {
	searchFn func(context.Context, string, report.SearchOptions) ([]report.SearchResult, error)
}

func (r reportStub) Search(ctx context.Context, query string, opts report.SearchOptions) ([]report.SearchResult, error) {
	return r.searchFn(ctx, query, opts)
}

type remediationStub struct {
	snapshot  report.Snapshot
	markFn    func(context.Context, string, report.Status) error
	cleanupFn func(context.Context, string, remediation.CleanupOptions) (remediation.CleanupResult, error)
	submitFn  func(context.Context, report.SubmitRequest) (report.Report, error)
}

func (r remediationStub) Snapshot() report.Snapshot {
	return r.snapshot
}
func (r remediationStub) MarkStatus(ctx context.Context, id string, status report.Status) error {
	return r.markFn(ctx, id, status)
}
func (r remediationStub) CleanupLocation(ctx context.Context, loc string, opts remediation.CleanupOptions) (remediation.CleanupResult, error) {
	return r.cleanupFn(ctx, loc, opts)
}
func (r remediationStub) Submit(ctx context.Context, req report.SubmitRequest) (report.Report, error) {
	return r.submitFn(ctx, req)
}

type activityStub struct {
	listFn func(context.Context, activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

func (a activityStub) GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	return a.listFn(ctx, opts)
}

var (
	adminCtx  = user.WithPrincipal(context.Background(), user.Principal{ID: "admin1", Role: user.RoleAdmin})
	clientCtx = user.WithPrincipal(context.Background(), user.Principal{ID: "alice", Role: user.RoleClient})
	anonCtx   = context.Background()
)

func testSnapshot() report.Snapshot {
	at := func(minute int) *time.Time {
		ts := time.Date(2024, 5, 1, 12, minute, 0, 0, time.UTC)
		return &ts
	}
	return report.Snapshot{Version: 7, Reports: []report.Report{
		{ID: "r5", OwnerID: "bob", Category: report.CategoryNoise, Description: "drums", Location: "Park", Status: report.StatusNew, CreatedAt: at(5)},
		{ID: "r4", OwnerID: "alice", Category: report.CategoryNoise, Description: "party", Location: "Main St", Status: report.StatusNew, CreatedAt: at(4)},
		{ID: "r3", OwnerID: "bob", Category: report.CategoryTraffic, Description: "jam", Location: "Main St", Status: report.StatusNew, CreatedAt: at(3)},
		{ID: "r2", OwnerID: "alice", Category: report.CategoryCrowd, Description: "queue", Location: "Park", Status: report.StatusCleaned, CreatedAt: at(2)},
		{ID: "r1", OwnerID: "bob", Category: report.CategoryPollution, Description: "smoke", Location: "Main St", Status: report.StatusNew, CreatedAt: at(1)},
	}}
}

func newTestHandler(rem remediationStub, reports reportStub, act activityStub) *Handler {
	return NewHandler(Services{
		Reports:     reports,
		Remediation: rem,
		Activity:    act,
		Analytics:   analytics.DefaultOptions(),
	})
}

func TestHandler_BrowseCommands(t *testing.T) {
	var searchOpts report.SearchOptions
	handler := newTestHandler(
		remediationStub{snapshot: testSnapshot()},
		reportStub{searchFn: func(_ context.Context, _ string, opts report.SearchOptions) ([]report.SearchResult, error) {
			searchOpts = opts
			return nil, nil
		}},
		activityStub{},
	)

	out, err := handler.Handle(adminCtx, "list_reports", mustJSON(t, ListReportsParams{Category: "noise"}))
	require.NoError(t, err)
	list := out.(ListReportsResponse)
	require.Equal(t, 2, list.Shown)
	require.Equal(t, 5, list.Total)
	require.Equal(t, uint64(7), list.Version)
	require.Equal(t, "r5", list.Reports[0].ID)

	out, err = handler.Handle(adminCtx, "list_reports", mustJSON(t, ListReportsParams{Location: " Main St ", Query: "SMOKE"}))
	require.NoError(t, err)
	list = out.(ListReportsResponse)
	require.Len(t, list.Reports, 1)
	require.Equal(t, "r1", list.Reports[0].ID)
	require.Equal(t, 3, list.Total)

	out, err = handler.Handle(adminCtx, "list_reports", mustJSON(t, ListReportsParams{Location: "Main St", Limit: 2}))
	require.NoError(t, err)
	list = out.(ListReportsResponse)
	require.Equal(t, 2, list.Shown)
	require.Equal(t, []string{"r4", "r3"}, []string{list.Reports[0].ID, list.Reports[1].ID})

	out, err = handler.Handle(clientCtx, "list_reports", nil)
	require.NoError(t, err)
	list = out.(ListReportsResponse)
	require.Equal(t, 2, list.Total)
	for _, r := range list.Reports {
		require.Equal(t, "alice", r.OwnerID)
	}

	out, err = handler.Handle(clientCtx, "search_reports", mustJSON(t, SearchReportsParams{Query: "party"}))
	require.NoError(t, err)
	require.NotNil(t, out.(SearchReportsResponse).Results)
	require.Equal(t, "alice", searchOpts.OwnerID)

	_, err = handler.Handle(adminCtx, "search_reports", mustJSON(t, SearchReportsParams{Query: "party", Limit: 3}))
	require.NoError(t, err)
	require.Empty(t, searchOpts.OwnerID)
	require.Equal(t, 3, searchOpts.Limit)

	out, err = handler.Handle(anonCtx, "whoami", nil)
	require.NoError(t, err)
	require.Equal(t, WhoAmIResponse{Role: user.RoleUnset}, out)
}

func TestHandler_DashboardByRole(t *testing.T) {
	handler := newTestHandler(remediationStub{snapshot: testSnapshot()}, reportStub{}, activityStub{})

	out, err := handler.Handle(adminCtx, "get_dashboard", nil)
	require.NoError(t, err)
	view := out.(analytics.View)
	require.NotNil(t, view.Analysis)
	require.Len(t, view.Reports, 5)
	require.Equal(t, "Main St", view.Analysis.Hotspots[0].Location)

	out, err = handler.Handle(clientCtx, "get_dashboard", nil)
	require.NoError(t, err)
	view = out.(analytics.View)
	require.Nil(t, view.Analysis)
	require.Len(t, view.Reports, 2)
	require.Equal(t, 1, view.Counts[report.CategoryCrowd])

	out, err = handler.Handle(anonCtx, "get_dashboard", nil)
	require.NoError(t, err)
	view = out.(analytics.View)
	require.Nil(t, view.Counts)
	require.Len(t, view.Reports, 5)
}

func TestHandler_AnalysisCommands(t *testing.T) {
	handler := newTestHandler(remediationStub{snapshot: testSnapshot()}, reportStub{}, activityStub{})

	out, err := handler.Handle(adminCtx, "get_hotspots", mustJSON(t, GetHotspotsParams{TopN: 1}))
	require.NoError(t, err)
	hot := out.(HotspotsResponse)
	require.Equal(t, []analytics.LocationBucket{{Location: "Main St", Count: 3}}, hot.Hotspots)
	require.Equal(t, "r4", hot.Samples[0].Report.ID)
	require.Equal(t, 5, hot.Window)

	out, err = handler.Handle(adminCtx, "detect_trend", nil)
	require.NoError(t, err)
	trend := out.(TrendResponse)
	require.Equal(t, report.CategoryNoise, trend.Category)
	require.True(t, trend.Detected)
	require.InDelta(t, 0.4, trend.Confidence, 1e-9)
	require.Equal(t, "Likely increase in noise (conf 40%)", trend.Summary)

	_, err = handler.Handle(clientCtx, "get_hotspots", nil)
	requireCode(t, err, "FORBIDDEN")
	_, err = handler.Handle(anonCtx, "detect_trend", nil)
	requireCode(t, err, "UNAUTHORIZED")
}

func TestHandler_RemediationCommands(t *testing.T) {
	var marked []string
	var cleanupOpts remediation.CleanupOptions
	var submitted report.SubmitRequest
	handler := newTestHandler(
		remediationStub{
			snapshot: testSnapshot(),
			markFn: func(_ context.Context, id string, status report.Status) error {
				marked = append(marked, id+"="+string(status))
				return nil
			},
			cleanupFn: func(_ context.Context, loc string, opts remediation.CleanupOptions) (remediation.CleanupResult, error) {
				cleanupOpts = opts
				return remediation.CleanupResult{Location: loc, Status: report.StatusCleaned, Attempted: 1, Succeeded: []string{"r4"}, Skipped: []string{}}, nil
			},
			submitFn: func(_ context.Context, req report.SubmitRequest) (report.Report, error) {
				submitted = req
				return report.Report{ID: "new1", OwnerID: req.OwnerID, Category: report.NormalizeCategory(req.Category)}, nil
			},
		},
		reportStub{},
		activityStub{},
	)

	_, err := handler.Handle(adminCtx, "mark_status", mustJSON(t, MarkStatusParams{ID: "r5", Status: report.StatusResolved}))
	require.NoError(t, err)
	_, err = handler.Handle(clientCtx, "mark_status", mustJSON(t, MarkStatusParams{ID: "r4", Status: report.StatusCleaned}))
	require.NoError(t, err)
	require.Equal(t, []string{"r5=resolved", "r4=cleaned"}, marked)

	_, err = handler.Handle(clientCtx, "mark_status", mustJSON(t, MarkStatusParams{ID: "r5", Status: report.StatusCleaned}))
	requireCode(t, err, "FORBIDDEN")
	_, err = handler.Handle(clientCtx, "mark_status", mustJSON(t, MarkStatusParams{ID: "nope", Status: report.StatusCleaned}))
	requireCode(t, err, "REPORT_NOT_FOUND")
	_, err = handler.Handle(anonCtx, "mark_status", mustJSON(t, MarkStatusParams{ID: "r4", Status: report.StatusCleaned}))
	requireCode(t, err, "UNAUTHORIZED")
	require.Len(t, marked, 2)

	out, err := handler.Handle(clientCtx, "cleanup_location", mustJSON(t, CleanupLocationParams{Location: "Main St"}))
	require.NoError(t, err)
	require.Equal(t, "alice", cleanupOpts.OwnerID)
	require.Equal(t, []string{"r4"}, out.(CleanupLocationResponse).Succeeded)

	_, err = handler.Handle(adminCtx, "cleanup_location", mustJSON(t, CleanupLocationParams{Location: "Main St", Status: report.StatusResolved}))
	require.NoError(t, err)
	require.Empty(t, cleanupOpts.OwnerID)
	require.Equal(t, report.StatusResolved, cleanupOpts.Status)

	out, err = handler.Handle(clientCtx, "submit_report", mustJSON(t, SubmitReportParams{Category: "Noise", Description: "bass", Location: "Dock"}))
	require.NoError(t, err)
	require.Equal(t, "new1", out.(SubmitReportResponse).Report.ID)
	require.Equal(t, "alice", submitted.OwnerID)

	noRole := user.WithPrincipal(context.Background(), user.Principal{ID: "carol"})
	_, err = handler.Handle(noRole, "submit_report", mustJSON(t, SubmitReportParams{Category: "noise"}))
	requireCode(t, err, "FORBIDDEN")
}

func TestHandler_ActivityScopedToActor(t *testing.T) {
	var got activity.ListActivityOptions
	handler := newTestHandler(remediationStub{}, reportStub{}, activityStub{
		listFn: func(_ context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
			got = opts
			reportID := "r1"
			return []activity.ActivityEntry{{
				ID:           1,
				ActorID:      "alice",
				ReportID:     &reportID,
				ActivityType: activity.TypeStatusChanged,
				Outcome:      activity.OutcomeBusy,
				Summary:      "mark_status busy",
			}}, nil
		},
	})

	out, err := handler.Handle(clientCtx, "get_recent_activity", mustJSON(t, GetRecentActivityParams{Location: " park ", Outcome: "BUSY", Limit: 5}))
	require.NoError(t, err)
	require.Equal(t, "alice", got.ActorID)
	require.Equal(t, "park", *got.Location)
	require.Equal(t, activity.OutcomeBusy, *got.Outcome)
	require.Equal(t, 5, got.Limit)
	entries := out.(GetRecentActivityResponse).Entries
	require.Len(t, entries, 1)
	require.Equal(t, activity.OutcomeBusy, entries[0].Outcome)

	_, err = handler.Handle(adminCtx, "get_recent_activity", nil)
	require.NoError(t, err)
	require.Empty(t, got.ActorID)
}

func TestHandler_ErrorMapping(t *testing.T) {
	mutationErr := &remediation.MutationError{ReportID: "r2", Reason: "store offline", Err: errors.New("store offline")}
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"busy", remediation.ErrBusy, "BUSY"},
		{"partial cleanup", &remediation.CleanupError{
			Location:  "Park",
			Attempted: 3,
			Succeeded: 2,
			Failures:  []*remediation.MutationError{{ReportID: "r2", Reason: "busy", Err: remediation.ErrBusy}},
		}, "CLEANUP_PARTIAL"},
		{"mutation", mutationErr, "MUTATION_FAILED"},
		{"not found", &remediation.MutationError{ReportID: "x", Reason: "missing", Err: report.ErrReportNotFound}, "REPORT_NOT_FOUND"},
		{"transition", fmt.Errorf("%w: cleaned -> resolved", report.ErrInvalidTransition), "INVALID_TRANSITION"},
		{"status", report.ErrInvalidStatus, "INVALID_INPUT"},
		{"nothing", fmt.Errorf("%w: Park", remediation.ErrNothingToClean), "NOTHING_TO_CLEAN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(remediationStub{
				snapshot: testSnapshot(),
				markFn: func(context.Context, string, report.Status) error {
					return tc.err
				},
			}, reportStub{}, activityStub{})
			_, err := handler.Handle(adminCtx, "mark_status", mustJSON(t, MarkStatusParams{ID: "r1", Status: report.StatusCleaned}))
			requireCode(t, err, tc.code)
		})
	}

	apiErr := MapError(&remediation.CleanupError{
		Location:  "Park",
		Attempted: 2,
		Succeeded: 1,
		Skipped:   1,
		Failures:  []*remediation.MutationError{mutationErr},
	})
	details := apiErr.Details.(CleanupFailureDetails)
	require.Equal(t, []FailureDetail{{ReportID: "r2", Reason: "store offline"}}, details.Failures)
	require.Equal(t, 1, details.Skipped)

	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(errors.New("boom")))

	handler := newTestHandler(remediationStub{}, reportStub{}, activityStub{})
	_, err := handler.Handle(adminCtx, "mark_status", json.RawMessage(`{"id":`))
	requireCode(t, err, "INVALID_INPUT")
	_, err = handler.Handle(adminCtx, "drop_tables", nil)
	require.ErrorContains(t, err, "unknown method")
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	require.Equal(t, code, apiErr.Code)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

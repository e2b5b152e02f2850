package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civicwatch/civicwatch/internal/domain/activity"
	"github.com/civicwatch/civicwatch/internal/remediation"
)

func TestEntryFor(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ev       remediation.Event
		wantType activity.ActivityType
		summary  string
	}{
		{
			name:     "mark",
			ev:       remediation.Event{Operation: remediation.OpMarkStatus, Outcome: remediation.OutcomeSuccess, ReportID: "r1", Location: "Park", Status: "cleaned", ActorID: "u1", At: at},
			wantType: activity.TypeStatusChanged,
			summary:  "report r1 to cleaned: success",
		},
		{
			name:     "partial cleanup",
			ev:       remediation.Event{Operation: remediation.OpCleanupLocation, Outcome: remediation.OutcomeFailure, Location: "Park", Status: "cleaned", Attempted: 3, Succeeded: 2, Reason: "boom", At: at},
			wantType: activity.TypeLocationCleanup,
			summary:  "cleanup of Park to cleaned (2/3 updated): failure (boom)",
		},
		{
			name:     "busy submit",
			ev:       remediation.Event{Operation: remediation.OpSubmit, Outcome: remediation.OutcomeBusy, Location: "Dock", At: at},
			wantType: activity.TypeReportSubmitted,
			summary:  "report at Dock: busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := entryFor(tt.ev)
			require.Equal(t, tt.wantType, entry.ActivityType)
			require.Equal(t, activity.Outcome(tt.ev.Outcome), entry.Outcome)
			require.Equal(t, tt.summary, entry.Summary)
			require.Equal(t, at, entry.CreatedAt)
			require.NotNil(t, entry.Location)
			require.Equal(t, tt.ev.Location, *entry.Location)
			require.Contains(t, entry.Details, `"operation":"`+string(tt.ev.Operation)+`"`)
			if tt.ev.ReportID == "" {
				require.Nil(t, entry.ReportID)
			} else {
				require.Equal(t, tt.ev.ReportID, *entry.ReportID)
			}
		})
	}
}

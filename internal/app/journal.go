package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/civicwatch/civicwatch/internal/domain/activity"
	"github.com/civicwatch/civicwatch/internal/remediation"
)

// Journal persists every coordinator outcome to the activity log.
func Journal(svc *activity.Service, logger *slog.Logger) remediation.Notifier {
	return remediation.NotifierFunc(func(ctx context.Context, ev remediation.Event) {
		entry := entryFor(ev)
		// The caller's request may already be cancelled; the outcome is
		// still recorded.
		if err := svc.LogActivity(context.WithoutCancel(ctx), &entry); err != nil {
			logger.Warn("journal_write_failed", "operation", ev.Operation, "error", err)
		}
	})
}

func entryFor(ev remediation.Event) activity.ActivityEntry {
	entry := activity.ActivityEntry{
		ActorID:      ev.ActorID,
		ActivityType: activityType(ev.Operation),
		Outcome:      activity.Outcome(ev.Outcome),
		Summary:      summarize(ev),
		CreatedAt:    ev.At,
	}
	if ev.ReportID != "" {
		id := ev.ReportID
		entry.ReportID = &id
	}
	if ev.Location != "" {
		loc := ev.Location
		entry.Location = &loc
	}
	if details, err := json.Marshal(ev); err == nil {
		entry.Details = string(details)
	}
	return entry
}

func activityType(op remediation.Operation) activity.ActivityType {
	switch op {
	case remediation.OpCleanupLocation:
		return activity.TypeLocationCleanup
	case remediation.OpSubmit:
		return activity.TypeReportSubmitted
	default:
		return activity.TypeStatusChanged
	}
}

func summarize(ev remediation.Event) string {
	var subject string
	switch ev.Operation {
	case remediation.OpCleanupLocation:
		subject = fmt.Sprintf("cleanup of %s to %s", ev.Location, ev.Status)
		if ev.Attempted > 0 {
			subject += fmt.Sprintf(" (%d/%d updated)", ev.Succeeded, ev.Attempted)
		}
	case remediation.OpSubmit:
		subject = fmt.Sprintf("report at %s", ev.Location)
	default:
		subject = fmt.Sprintf("report %s to %s", ev.ReportID, ev.Status)
	}
	if ev.Reason != "" {
		return fmt.Sprintf("%s: %s (%s)", subject, ev.Outcome, ev.Reason)
	}
	return fmt.Sprintf("%s: %s", subject, ev.Outcome)
}

package activity

import "time"

// ActivityType represents the operation an entry records
type ActivityType string

const (
	TypeReportSubmitted ActivityType = "report_submitted"
	TypeStatusChanged   ActivityType = "status_changed"
	TypeLocationCleanup ActivityType = "location_cleanup"
)

// Outcome is the operator-visible result of an operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeBusy    Outcome = "busy"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	ActorID      string       `json:"actor_id,omitempty"`
	ReportID     *string      `json:"report_id,omitempty"`
	Location     *string      `json:"location,omitempty"`
	ActivityType ActivityType `json:"type"`
	Outcome      Outcome      `json:"outcome"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}

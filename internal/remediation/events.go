package remediation

import (
	"context"
	"time"

	"github.com/civicwatch/civicwatch/internal/domain/report"
)

// Operation names a coordinator operation.
type Operation string

const (
	OpMarkStatus      Operation = "mark_status"
	OpCleanupLocation Operation = "cleanup_location"
	OpSubmit          Operation = "submit_report"
)

// Outcome is the operator-visible result of an operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeBusy    Outcome = "busy"
)

// Event describes the outcome of one coordinator operation.
type Event struct {
	Operation Operation     `json:"operation"`
	Outcome   Outcome       `json:"outcome"`
	ReportID  string        `json:"report_id,omitempty"`
	Location  string        `json:"location,omitempty"`
	Status    report.Status `json:"status,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	ActorID   string        `json:"actor_id,omitempty"`
	Attempted int           `json:"attempted,omitempty"`
	Succeeded int           `json:"succeeded,omitempty"`
	At        time.Time     `json:"at"`
}

// Notifier receives operation outcomes.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Notifiers fans an event out to several notifiers in order.
type Notifiers []Notifier

// Notify calls every notifier.
func (n Notifiers) Notify(ctx context.Context, ev Event) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(ctx, ev)
		}
	}
}

// Package remediation coordinates status changes against the record store:
// single-report marks, location-wide cleanups and optimistic submissions.
// At most one mutation runs per report and one cleanup per location.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/domain/user"
	"github.com/civicwatch/civicwatch/internal/ingest"
)

// TempIDPrefix marks ids of optimistic reports awaiting confirmation.
const TempIDPrefix = "temp-"

// Backend is the record store's mutation side.
type Backend interface {
	UpdateStatus(ctx context.Context, id string, status report.Status) error
	CreateReport(ctx context.Context, req report.SubmitRequest) (report.Document, error)
}

// Options configure a Coordinator.
type Options struct {
	Notifier Notifier
	Logger   *slog.Logger
}

// Coordinator serializes remediation against one live snapshot.
type Coordinator struct {
	backend  Backend
	live     *ingest.Live
	guard    *Guard
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a coordinator writing through backend and applying optimistic
// changes to live.
func New(backend Backend, live *ingest.Live, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Notifier == nil {
		opts.Notifier = Notifiers(nil)
	}
	return &Coordinator{
		backend:  backend,
		live:     live,
		guard:    NewGuard(),
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Snapshot returns the live snapshot including optimistic changes.
func (c *Coordinator) Snapshot() report.Snapshot {
	return c.live.Current()
}

// ReportBusy reports whether a mutation of id is in flight.
func (c *Coordinator) ReportBusy(id string) bool {
	return c.guard.Busy(reportKey(id))
}

// LocationBusy reports whether a cleanup of loc is in flight.
func (c *Coordinator) LocationBusy(loc string) bool {
	return c.guard.Busy(locationKey(report.NormalizeLocation(loc)))
}

// MarkStatus sets the status of one report. It returns ErrBusy without
// touching the store when the report is already being mutated. Re-applying
// the current status succeeds.
func (c *Coordinator) MarkStatus(ctx context.Context, id string, status report.Status) error {
	start := c.now()
	id = strings.TrimSpace(id)
	ev := Event{Operation: OpMarkStatus, ReportID: id, Status: status}

	if id == "" {
		return c.finish(ctx, ev, start, fmt.Errorf("%w: report id is required", report.ErrInvalidInput))
	}
	if status != report.StatusCleaned && status != report.StatusResolved {
		return c.finish(ctx, ev, start, fmt.Errorf("%w: %q", report.ErrInvalidStatus, status))
	}

	release, ok := c.guard.TryAcquire(reportKey(id))
	if !ok {
		return c.finish(ctx, ev, start, ErrBusy)
	}
	defer release()

	if r, found := c.live.Current().Find(id); found {
		ev.Location = r.Location
	}
	return c.finish(ctx, ev, start, c.apply(ctx, id, status))
}

// apply performs one guarded status change: overlay, write, then
// acknowledge or revert. The caller holds the report's guard.
func (c *Coordinator) apply(ctx context.Context, id string, status report.Status) error {
	if r, found := c.live.Current().Find(id); found {
		if err := report.ValidateTransition(r.Status, status); err != nil {
			return fmt.Errorf("%w: %s is %s", err, id, r.Status)
		}
	}

	overlay := c.live.OverlayStatus(id, status)
	if err := c.backend.UpdateStatus(ctx, id, status); err != nil {
		overlay.Revert()
		return newMutationError(id, err)
	}
	overlay.Acknowledge()
	return nil
}

// CleanupOptions narrow a location cleanup.
type CleanupOptions struct {
	// OwnerID restricts targets to one owner's reports.
	OwnerID string
	// Status is the target status; cleaned when empty.
	Status report.Status
}

// CleanupResult lists what a cleanup did.
type CleanupResult struct {
	Location  string           `json:"location"`
	Status    report.Status    `json:"status"`
	Attempted int              `json:"attempted"`
	Succeeded []string         `json:"succeeded"`
	Skipped   []string         `json:"skipped"`
	Failures  []*MutationError `json:"failures,omitempty"`
}

// CleanupLocation moves every report at loc to the target status, one at a
// time. A failed report does not stop the run and nothing is rolled back;
// failures are returned together as a *CleanupError. Reports already at the
// target, or past it, are skipped; a location holding only such reports is
// a success. ErrNothingToClean means no report at loc matched at all.
func (c *Coordinator) CleanupLocation(ctx context.Context, loc string, opts CleanupOptions) (CleanupResult, error) {
	start := c.now()
	status := opts.Status
	if status == "" {
		status = report.StatusCleaned
	}
	key := report.NormalizeLocation(loc)
	result := CleanupResult{Location: key, Status: status, Succeeded: []string{}, Skipped: []string{}}
	ev := Event{Operation: OpCleanupLocation, Location: key, Status: status}

	if strings.TrimSpace(loc) == "" {
		return result, c.finish(ctx, ev, start, fmt.Errorf("%w: location is required", report.ErrInvalidInput))
	}
	if status != report.StatusCleaned && status != report.StatusResolved {
		return result, c.finish(ctx, ev, start, fmt.Errorf("%w: %q", report.ErrInvalidStatus, status))
	}

	release, ok := c.guard.TryAcquire(locationKey(key))
	if !ok {
		return result, c.finish(ctx, ev, start, ErrBusy)
	}
	defer release()

	var targets []report.Report
	matched := 0
	for _, r := range c.live.Current().AtLocation(key) {
		if opts.OwnerID != "" && r.OwnerID != opts.OwnerID {
			continue
		}
		matched++
		if r.Optimistic || r.Status == status || report.ValidateTransition(r.Status, status) != nil {
			result.Skipped = append(result.Skipped, r.ID)
			continue
		}
		targets = append(targets, r)
	}
	if matched == 0 {
		return result, c.finish(ctx, ev, start, fmt.Errorf("%w: %s", ErrNothingToClean, key))
	}
	// Every match already settled: re-applying a cleanup succeeds like a
	// repeated MarkStatus.
	if len(targets) == 0 {
		return result, c.finish(ctx, ev, start, nil)
	}

	for _, r := range targets {
		result.Attempted++
		if err := c.cleanupOne(ctx, r.ID, status); err != nil {
			c.logger.Warn("cleanup_item_failed", "location", key, "report_id", r.ID, "error", err)
			result.Failures = append(result.Failures, err)
			continue
		}
		result.Succeeded = append(result.Succeeded, r.ID)
	}

	ev.Attempted = result.Attempted
	ev.Succeeded = len(result.Succeeded)
	if len(result.Failures) > 0 {
		return result, c.finish(ctx, ev, start, &CleanupError{
			Location:  key,
			Attempted: result.Attempted,
			Succeeded: len(result.Succeeded),
			Skipped:   len(result.Skipped),
			Failures:  result.Failures,
		})
	}
	return result, c.finish(ctx, ev, start, nil)
}

func (c *Coordinator) cleanupOne(ctx context.Context, id string, status report.Status) *MutationError {
	release, ok := c.guard.TryAcquire(reportKey(id))
	if !ok {
		return newMutationError(id, ErrBusy)
	}
	defer release()

	if err := c.apply(ctx, id, status); err != nil {
		var mutErr *MutationError
		if errors.As(err, &mutErr) {
			return mutErr
		}
		return newMutationError(id, err)
	}
	return nil
}

// Submit files a new report. An optimistic copy under a temporary id is
// visible immediately and retired once the store's copy arrives.
func (c *Coordinator) Submit(ctx context.Context, req report.SubmitRequest) (report.Report, error) {
	start := c.now()
	ev := Event{Operation: OpSubmit, Location: report.NormalizeLocation(req.Location)}

	if err := report.ValidateSubmit(req); err != nil {
		return report.Report{}, c.finish(ctx, ev, start, err)
	}

	createdAt := start
	optimistic := report.Report{
		ID:          TempIDPrefix + uuid.NewString(),
		OwnerID:     req.OwnerID,
		Category:    report.NormalizeCategory(req.Category),
		Description: strings.TrimSpace(req.Description),
		Location:    report.NormalizeLocation(req.Location),
		Status:      report.StatusNew,
		CreatedAt:   &createdAt,
		Optimistic:  true,
	}
	c.live.AddPending(optimistic)

	doc, err := c.backend.CreateReport(ctx, req)
	if err != nil {
		c.live.DropPending(optimistic.ID)
		ev.ReportID = optimistic.ID
		return report.Report{}, c.finish(ctx, ev, start, newMutationError(optimistic.ID, err))
	}

	c.live.ConfirmPending(optimistic.ID, doc.ID)
	ev.ReportID = doc.ID
	return doc.Normalize(), c.finish(ctx, ev, start, nil)
}

// finish records the outcome of an operation and returns err unchanged.
func (c *Coordinator) finish(ctx context.Context, ev Event, start time.Time, err error) error {
	ev.ActorID = user.PrincipalFrom(ctx).ID
	ev.At = c.now()
	var cleanupErr *CleanupError
	switch {
	case err == nil:
		ev.Outcome = OutcomeSuccess
	case errors.Is(err, ErrBusy) && !errors.As(err, &cleanupErr):
		ev.Outcome = OutcomeBusy
		ev.Reason = err.Error()
	default:
		ev.Outcome = OutcomeFailure
		ev.Reason = err.Error()
	}

	operationsTotal.WithLabelValues(string(ev.Operation), string(ev.Outcome)).Inc()
	operationDuration.WithLabelValues(string(ev.Operation)).Observe(ev.At.Sub(start).Seconds())

	attrs := []any{"operation", ev.Operation, "outcome", ev.Outcome}
	if ev.ReportID != "" {
		attrs = append(attrs, "report_id", ev.ReportID)
	}
	if ev.Location != "" {
		attrs = append(attrs, "location", ev.Location)
	}
	if err != nil {
		attrs = append(attrs, "error", err)
		c.logger.Info("remediation_rejected", attrs...)
	} else {
		c.logger.Info("remediation_done", attrs...)
	}

	c.notifier.Notify(ctx, ev)
	return err
}

package ingest

import (
	"sync"

	"github.com/civicwatch/civicwatch/internal/domain/report"
)

// staleAckLimit bounds how many authoritative snapshots an acknowledged
// overlay may outlive while the store still disagrees with it.
const staleAckLimit = 2

// Live owns the working snapshot: the last authoritative report set plus
// optimistic creates and status overlays awaiting confirmation. It is safe
// for concurrent use.
type Live struct {
	mu       sync.Mutex
	base     []report.Report
	pending  []*pendingCreate
	overlays map[string]*Overlay
	version  uint64
	current  report.Snapshot
	changed  chan struct{}
}

type pendingCreate struct {
	report      report.Report
	confirmedID string
}

// NewLive creates an empty live snapshot.
func NewLive() *Live {
	return &Live{
		overlays: make(map[string]*Overlay),
		changed:  make(chan struct{}, 1),
	}
}

// Changed signals after every change to the composed snapshot. Signals
// coalesce.
func (l *Live) Changed() <-chan struct{} {
	return l.changed
}

// Current returns the composed snapshot. The returned slice is not shared.
func (l *Live) Current() report.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copySnapshot(l.current)
}

// Replace installs a new authoritative report set and reconciles optimistic
// state against it.
func (l *Live) Replace(reports []report.Report) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.base = append([]report.Report(nil), reports...)
	present := make(map[string]report.Status, len(l.base))
	for _, r := range l.base {
		present[r.ID] = r.Status
	}

	kept := l.pending[:0]
	for _, p := range l.pending {
		if _, ok := present[p.confirmedID]; p.confirmedID != "" && ok {
			continue
		}
		kept = append(kept, p)
	}
	l.pending = kept

	for id, o := range l.overlays {
		if o.state != overlayAcknowledged {
			continue
		}
		o.survived++
		status, ok := present[id]
		if !ok || status == o.status || o.survived >= staleAckLimit {
			delete(l.overlays, id)
		}
	}

	l.recompose()
}

// AddPending inserts an optimistic report under a temporary id.
func (l *Live) AddPending(r report.Report) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r.Optimistic = true
	l.pending = append(l.pending, &pendingCreate{report: r})
	l.recompose()
}

// ConfirmPending records the store-assigned id of an optimistic report. The
// optimistic copy is retired once that id appears in an authoritative
// snapshot.
func (l *Live) ConfirmPending(tempID, confirmedID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, p := range l.pending {
		if p.report.ID != tempID {
			continue
		}
		for _, r := range l.base {
			if r.ID == confirmedID {
				l.pending = append(l.pending[:i], l.pending[i+1:]...)
				l.recompose()
				return
			}
		}
		p.confirmedID = confirmedID
		return
	}
}

// DropPending removes an optimistic report whose creation failed.
func (l *Live) DropPending(tempID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, p := range l.pending {
		if p.report.ID == tempID {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			l.recompose()
			return
		}
	}
}

// OverlayStatus shows status for id immediately, ahead of the store. The
// caller must Acknowledge or Revert the overlay once the write settles.
func (l *Live) OverlayStatus(id string, status report.Status) *Overlay {
	l.mu.Lock()
	defer l.mu.Unlock()
	o := &Overlay{live: l, id: id, status: status}
	l.overlays[id] = o
	l.recompose()
	return o
}

type overlayState int

const (
	overlayInFlight overlayState = iota
	overlayAcknowledged
	overlayReverted
)

// Overlay is an optimistic status change on one report.
type Overlay struct {
	live     *Live
	id       string
	status   report.Status
	state    overlayState
	survived int
}

// Acknowledge marks the write as accepted by the store. The overlay stays
// visible until an authoritative snapshot reflects it.
func (o *Overlay) Acknowledge() {
	l := o.live
	l.mu.Lock()
	defer l.mu.Unlock()
	if o.state != overlayInFlight {
		return
	}
	o.state = overlayAcknowledged
	if l.overlays[o.id] != o {
		return
	}
	for _, r := range l.base {
		if r.ID == o.id && r.Status == o.status {
			delete(l.overlays, o.id)
			return
		}
	}
}

// Revert removes the overlay after a failed write.
func (o *Overlay) Revert() {
	l := o.live
	l.mu.Lock()
	defer l.mu.Unlock()
	if o.state == overlayReverted {
		return
	}
	o.state = overlayReverted
	if l.overlays[o.id] == o {
		delete(l.overlays, o.id)
		l.recompose()
	}
}

// recompose rebuilds the composed snapshot. Callers hold l.mu.
func (l *Live) recompose() {
	reports := make([]report.Report, 0, len(l.base)+len(l.pending))
	for _, r := range l.base {
		if o, ok := l.overlays[r.ID]; ok {
			r.Status = o.status
		}
		reports = append(reports, r)
	}
	for _, p := range l.pending {
		reports = append(reports, p.report)
	}
	report.SortNewestFirst(reports)

	l.version++
	l.current = report.Snapshot{Reports: reports, Version: l.version}
	snapshotReports.Set(float64(len(reports)))

	select {
	case l.changed <- struct{}{}:
	default:
	}
}

func copySnapshot(s report.Snapshot) report.Snapshot {
	return report.Snapshot{
		Reports: append([]report.Report(nil), s.Reports...),
		Version: s.Version,
	}
}

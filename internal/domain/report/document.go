package report

import (
	"strings"
	"time"
)

// Document is the raw shape of a report as held by the record store and
// delivered on its change feed. Optional fields are nil when absent.
type Document struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"uid,omitempty"`
	Type         string     `json:"type"`
	Description  *string    `json:"description,omitempty"`
	Location     *string    `json:"location,omitempty"`
	Status       string     `json:"status"`
	ServerTime   *time.Time `json:"createdAt,omitempty"`
	ClientMillis *int64     `json:"createdAtClient,omitempty"`
}

// CreatedAt resolves the ordering timestamp: server time, then client time.
func (d Document) CreatedAt() *time.Time {
	if d.ServerTime != nil && !d.ServerTime.IsZero() {
		t := *d.ServerTime
		return &t
	}
	if d.ClientMillis != nil && *d.ClientMillis > 0 {
		t := time.UnixMilli(*d.ClientMillis)
		return &t
	}
	return nil
}

// Normalize converts a raw document into the canonical Report.
func (d Document) Normalize() Report {
	rep := Report{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Category:  NormalizeCategory(d.Type),
		Location:  UnknownLocation,
		Status:    StatusNew,
		CreatedAt: d.CreatedAt(),
	}
	if d.Description != nil {
		rep.Description = *d.Description
	}
	if d.Location != nil {
		rep.Location = NormalizeLocation(*d.Location)
	}
	if status, err := ParseStatus(d.Status); err == nil {
		rep.Status = status
	} else if s := strings.TrimSpace(d.Status); s != "" {
		rep.Status = Status(strings.ToLower(s))
	}
	return rep
}

// Normalized converts documents into reports sorted newest first, keeping
// the first occurrence of any duplicated id.
func Normalized(docs []Document) []Report {
	seen := make(map[string]struct{}, len(docs))
	out := make([]Report, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if _, dup := seen[doc.ID]; dup {
			continue
		}
		seen[doc.ID] = struct{}{}
		out = append(out, doc.Normalize())
	}
	SortNewestFirst(out)
	return out
}

package report

// SubmitRequest describes a new incident report.
type SubmitRequest struct {
	OwnerID     string `validate:"required"`
	Category    string
	Description string `validate:"max=2000"`
	Location    string `validate:"max=200"`
}

// ListOptions provides filtering options for listing stored reports.
type ListOptions struct {
	OwnerID    string
	Categories []Category
	Statuses   []Status
	Location   string
	Limit      int
	Offset     int
}

// SearchOptions provides filtering options for full-text search.
type SearchOptions struct {
	OwnerID  string
	Statuses []Status
	Limit    int
	Offset   int
}

// SearchResult is a full-text hit.
type SearchResult struct {
	Report  Report  `json:"report"`
	Rank    float64 `json:"rank"`
	Snippet string  `json:"snippet,omitempty"`
}

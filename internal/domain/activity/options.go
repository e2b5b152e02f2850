package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	ActorID      string
	ReportID     *string
	Location     *string
	ActivityType *ActivityType
	Outcome      *Outcome
	Limit        int
	Offset       int
}

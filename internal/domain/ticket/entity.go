package ticket

// Status enumerates the lifecycle states of a ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

// Priority enumerates ticket urgency levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Ticket represents a single support request. The UserID pins ownership and
// must always equal the partition key the ticket is stored under.
type Ticket struct {
	ID          string   `json:"id"`
	UserID      string   `json:"userId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
}

// Stats holds per-partition ticket counts. Total always equals the sum of the
// three status buckets.
type Stats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Closed     int `json:"closed"`
}

// Clone returns an independent copy of a ticket sequence so callers can never
// mutate a cached partition through a returned slice.
func Clone(tickets []Ticket) []Ticket {
	if tickets == nil {
		return []Ticket{}
	}
	out := make([]Ticket, len(tickets))
	copy(out, tickets)
	return out
}

package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "PENDING"
	ComplaintStatusAssigned   ComplaintStatus = "ASSIGNED"
	ComplaintStatusInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintStatusResolved   ComplaintStatus = "RESOLVED"
	ComplaintStatusEscalated  ComplaintStatus = "ESCALATED"
	ComplaintStatusClosed     ComplaintStatus = "CLOSED"
	ComplaintStatusRejected   ComplaintStatus = "REJECTED"
)

// ComplaintPriority enumerates urgency for due-date computation.
type ComplaintPriority string

const (
	ComplaintPriorityLow    ComplaintPriority = "LOW"
	ComplaintPriorityMedium ComplaintPriority = "MEDIUM"
	ComplaintPriorityHigh   ComplaintPriority = "HIGH"
	ComplaintPriorityUrgent ComplaintPriority = "URGENT"
)

// Rating is the single structured feedback record attached after resolution.
type Rating struct {
	Score   int
	Comment string
	RatedAt time.Time
}

// Complaint is the aggregate for student grievances.
type Complaint struct {
	ID                string
	ExternalKey       string
	Title             string
	Description       string
	Category          string
	Priority          ComplaintPriority
	Status            ComplaintStatus
	StudentName       string
	StudentEmail      string
	StudentCollegeID  string
	StudentPhone      string
	AssignedStaffID   *string
	AssignedStaffName *string
	EscalationLevel   int
	DueDate           time.Time
	Resolution        *string
	Rating            *Rating
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
	ClosedAt          *time.Time
}

// IsTerminal reports whether no further lifecycle transitions apply.
func (c *Complaint) IsTerminal() bool {
	switch c.Status {
	case ComplaintStatusResolved, ComplaintStatusClosed, ComplaintStatusRejected:
		return true
	}
	return false
}

// Rateable reports whether the rating gate is open for this complaint.
func (c *Complaint) Rateable() bool {
	return (c.Status == ComplaintStatusResolved || c.Status == ComplaintStatusClosed) && c.Rating == nil
}

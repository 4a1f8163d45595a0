package events

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated       EventType = "complaint_created"
	EventComplaintAssigned      EventType = "complaint_assigned"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
	EventComplaintEscalated     EventType = "complaint_escalated"
	EventComplaintDeescalated   EventType = "complaint_deescalated"
	EventComplaintRated         EventType = "complaint_rated"
)

// AllEventTypes lists every lifecycle event, for subscribers that mirror
// the full complaint stream.
func AllEventTypes() []EventType {
	return []EventType{
		EventComplaintCreated,
		EventComplaintAssigned,
		EventComplaintStatusChanged,
		EventComplaintEscalated,
		EventComplaintDeescalated,
		EventComplaintRated,
	}
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type         domain.SubjectType `json:"type"`
	StudentEmail *string            `json:"student_email,omitempty"`
	StaffID      *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Category     string                   `json:"category"`
	Priority     domain.ComplaintPriority `json:"priority"`
	Title        string                   `json:"title"`
	StudentName  string                   `json:"student_name"`
	StudentEmail string                   `json:"student_email"`
	DueDate      time.Time                `json:"due_date"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	StaffID      string    `json:"staff_id"`
	StaffName    string    `json:"staff_name"`
	StudentEmail string    `json:"student_email"`
	DueDate      time.Time `json:"due_date"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
	Comment   string                 `json:"comment,omitempty"`
}

// ComplaintEscalatedPayload payload.
type ComplaintEscalatedPayload struct {
	OldLevel     int     `json:"old_level"`
	NewLevel     int     `json:"new_level"`
	DaysOverdue  int     `json:"days_overdue"`
	StaffName    *string `json:"staff_name,omitempty"`
	StudentEmail string  `json:"student_email"`
}

// ComplaintDeescalatedPayload payload.
type ComplaintDeescalatedPayload struct {
	OldLevel     int    `json:"old_level"`
	StudentEmail string `json:"student_email"`
}

// ComplaintRatedPayload payload.
type ComplaintRatedPayload struct {
	Score     int     `json:"score"`
	Comment   string  `json:"comment,omitempty"`
	StaffID   *string `json:"staff_id,omitempty"`
	StaffName *string `json:"staff_name,omitempty"`
}

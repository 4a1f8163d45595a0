package domain

import "time"

// ComplaintChangeType captures what changed in a history entry.
type ComplaintChangeType string

const (
	ChangeTypeStatus     ComplaintChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee   ComplaintChangeType = "ASSIGNEE_CHANGE"
	ChangeTypeEscalation ComplaintChangeType = "ESCALATION_CHANGE"
	ChangeTypeRating     ComplaintChangeType = "RATING_ADDED"
)

// ComplaintHistory is an immutable audit trail entry.
type ComplaintHistory struct {
	ID            string
	ComplaintID   string
	ChangedByType SubjectType
	ChangedByID   *string
	ChangeType    ComplaintChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}

package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CreateComplaintRequest is the student complaint submission payload.
type CreateComplaintRequest struct {
	Title            string                   `json:"title"`
	Description      string                   `json:"description"`
	Category         string                   `json:"category"`
	Priority         domain.ComplaintPriority `json:"priority"`
	StudentName      string                   `json:"student_name"`
	StudentCollegeID string                   `json:"student_college_id"`
	StudentPhone     string                   `json:"student_phone"`
}

// ResolveComplaintRequest carries the resolution text.
type ResolveComplaintRequest struct {
	Resolution string `json:"resolution"`
}

// RejectComplaintRequest carries the rejection reason.
type RejectComplaintRequest struct {
	Reason string `json:"reason"`
}

// SubmitRatingRequest is the post-resolution feedback payload.
type SubmitRatingRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// RatingResponse mirrors the stored rating.
type RatingResponse struct {
	Score   int       `json:"score"`
	Comment string    `json:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}

// ComplaintSummary is the list-view projection.
type ComplaintSummary struct {
	ID                string                   `json:"id"`
	ExternalKey       string                   `json:"external_key"`
	Title             string                   `json:"title"`
	Category          string                   `json:"category"`
	Priority          domain.ComplaintPriority `json:"priority"`
	Status            domain.ComplaintStatus   `json:"status"`
	AssignedStaffName *string                  `json:"assigned_staff_name,omitempty"`
	EscalationLevel   int                      `json:"escalation_level"`
	DueDate           time.Time                `json:"due_date"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// ComplaintDetailResponse is the single-record projection with audit trail.
type ComplaintDetailResponse struct {
	ID                string                     `json:"id"`
	ExternalKey       string                     `json:"external_key"`
	Title             string                     `json:"title"`
	Description       string                     `json:"description"`
	Category          string                     `json:"category"`
	Priority          domain.ComplaintPriority   `json:"priority"`
	Status            domain.ComplaintStatus     `json:"status"`
	StudentName       string                     `json:"student_name"`
	StudentEmail      string                     `json:"student_email"`
	AssignedStaffID   *string                    `json:"assigned_staff_id,omitempty"`
	AssignedStaffName *string                    `json:"assigned_staff_name,omitempty"`
	EscalationLevel   int                        `json:"escalation_level"`
	DueDate           time.Time                  `json:"due_date"`
	Resolution        *string                    `json:"resolution,omitempty"`
	Rating            *RatingResponse            `json:"rating,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
	ResolvedAt        *time.Time                 `json:"resolved_at,omitempty"`
	ClosedAt          *time.Time                 `json:"closed_at,omitempty"`
	History           []ComplaintHistoryResponse `json:"history,omitempty"`
}

// ComplaintHistoryResponse is one audit trail entry.
type ComplaintHistoryResponse struct {
	ID            string                     `json:"id"`
	ChangeType    domain.ComplaintChangeType `json:"change_type"`
	ChangedByType domain.SubjectType         `json:"changed_by_type"`
	ChangedByID   *string                    `json:"changed_by_id,omitempty"`
	OldValue      map[string]any             `json:"old_value,omitempty"`
	NewValue      map[string]any             `json:"new_value,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
}

// SweepStatsResponse reports a manually triggered sweep.
type SweepStatsResponse struct {
	Checked     int `json:"checked"`
	Escalated   int `json:"escalated"`
	Deescalated int `json:"deescalated"`
	Errors      int `json:"errors"`
}

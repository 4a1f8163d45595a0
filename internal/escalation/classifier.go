// Package escalation holds the pure lifecycle rules: due-date windows and
// overdue classification. Every dashboard and the sweep worker derive
// escalation state from here, never on their own.
package escalation

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// MaxLevel is the escalation ceiling.
const MaxLevel = 3

// Classification is the outcome of classifying one complaint against a clock.
type Classification struct {
	Overdue     bool
	DaysOverdue int
	Level       int
}

// Classify derives the escalation state of a complaint from its due date,
// its status, and the current time. Terminal complaints are never overdue.
// Days overdue count whole elapsed 24-hour periods, rounded down.
func Classify(dueDate time.Time, status domain.ComplaintStatus, now time.Time) Classification {
	if !activeStatus(status) {
		return Classification{}
	}
	if !dueDate.Before(now) {
		return Classification{}
	}
	days := int(now.Sub(dueDate).Hours() / 24)
	return Classification{
		Overdue:     true,
		DaysOverdue: days,
		Level:       levelFor(days),
	}
}

func levelFor(daysOverdue int) int {
	switch {
	case daysOverdue >= 7:
		return MaxLevel
	case daysOverdue >= 3:
		return 2
	case daysOverdue >= 1:
		return 1
	default:
		return 0
	}
}

// activeStatus reports whether a complaint still counts against its due date.
// ESCALATED stays active so the level keeps climbing until someone resolves it.
func activeStatus(status domain.ComplaintStatus) bool {
	switch status {
	case domain.ComplaintStatusPending,
		domain.ComplaintStatusAssigned,
		domain.ComplaintStatusInProgress,
		domain.ComplaintStatusEscalated:
		return true
	}
	return false
}

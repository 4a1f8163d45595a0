package escalation

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// Resolution windows per priority. LOW is seven days everywhere; the old
// fourteen-day window some dashboards used was dropped in favor of one rule.
var dueOffsets = map[domain.ComplaintPriority]time.Duration{
	domain.ComplaintPriorityUrgent: 24 * time.Hour,
	domain.ComplaintPriorityHigh:   48 * time.Hour,
	domain.ComplaintPriorityMedium: 72 * time.Hour,
	domain.ComplaintPriorityLow:    7 * 24 * time.Hour,
}

// DueDate returns the resolution deadline for a complaint of the given
// priority filed at now. Unknown priorities fall back to the medium window.
func DueDate(priority domain.ComplaintPriority, now time.Time) time.Time {
	offset, ok := dueOffsets[priority]
	if !ok {
		offset = dueOffsets[domain.ComplaintPriorityMedium]
	}
	return now.Add(offset)
}

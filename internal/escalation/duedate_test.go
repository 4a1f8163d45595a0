package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/complaint-service/internal/domain"
)

func TestDueDateOffsets(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		priority domain.ComplaintPriority
		expected time.Duration
	}{
		{domain.ComplaintPriorityUrgent, 24 * time.Hour},
		{domain.ComplaintPriorityHigh, 48 * time.Hour},
		{domain.ComplaintPriorityMedium, 72 * time.Hour},
		{domain.ComplaintPriorityLow, 7 * 24 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(string(tc.priority), func(t *testing.T) {
			assert.Equal(t, now.Add(tc.expected), DueDate(tc.priority, now))
		})
	}
}

func TestDueDateUnknownPriorityFallsBackToMedium(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(72*time.Hour), DueDate(domain.ComplaintPriority("WHENEVER"), now))
	assert.Equal(t, now.Add(72*time.Hour), DueDate("", now))
}

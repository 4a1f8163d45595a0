package domain

import (
	"strings"
	"time"
)

// StaffRole enumerates portal permissions.
type StaffRole string

const (
	StaffRoleAgent StaffRole = "AGENT"
	StaffRoleAdmin StaffRole = "ADMIN"
)

// StaffLevel is the escalation tier a staff member sits at. Stored as
// structured data rather than inferred from role-name keywords.
type StaffLevel string

const (
	StaffLevelJunior   StaffLevel = "JUNIOR"
	StaffLevelSenior   StaffLevel = "SENIOR"
	StaffLevelManager  StaffLevel = "MANAGER"
	StaffLevelDirector StaffLevel = "DIRECTOR"
)

var levelOrder = []StaffLevel{StaffLevelJunior, StaffLevelSenior, StaffLevelManager, StaffLevelDirector}

// Ordinal returns the tier position, junior first. Unknown levels rank lowest.
func (l StaffLevel) Ordinal() int {
	for i, level := range levelOrder {
		if level == l {
			return i
		}
	}
	return 0
}

// NextLevel returns the tier above l, or false when l is already the top tier.
func NextLevel(l StaffLevel) (StaffLevel, bool) {
	ord := l.Ordinal()
	if ord >= len(levelOrder)-1 {
		return l, false
	}
	return levelOrder[ord+1], true
}

// ParseStaffLevel maps free-form job titles onto a tier. Import shim for
// legacy records that carried the tier only inside the role name.
func ParseStaffLevel(title string) StaffLevel {
	lowered := strings.ToLower(title)
	switch {
	case strings.Contains(lowered, "director"):
		return StaffLevelDirector
	case strings.Contains(lowered, "manager"):
		return StaffLevelManager
	case strings.Contains(lowered, "senior"):
		return StaffLevelSenior
	default:
		return StaffLevelJunior
	}
}

// CategoryAll marks staff who can take complaints from any category.
const CategoryAll = "all"

// StaffMember models a complaint handler or administrator.
type StaffMember struct {
	ID               string
	Name             string
	Email            string
	Role             StaffRole
	Level            StaffLevel
	Category         string
	Active           bool
	CurrentWorkload  int
	PerformanceScore float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Serves reports whether the staff member can own complaints of the category.
func (s *StaffMember) Serves(category string) bool {
	return s.Category == category || s.Category == CategoryAll
}

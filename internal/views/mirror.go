package views

import (
	"sort"
	"sync"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// Mirror is a read-model that tracks a filtered slice of the complaint store.
type Mirror interface {
	Name() string
	Apply(complaint domain.Complaint)
	Drop(complaintID string)
	Snapshot() []domain.Complaint
}

// ProjectionMirror keeps an in-memory projection of complaints matching a
// predicate. A complaint that stops matching is dropped from the projection,
// so dashboards only ever see records in their scope.
type ProjectionMirror struct {
	name   string
	filter func(domain.Complaint) bool

	mu   sync.RWMutex
	byID map[string]domain.Complaint
}

// NewProjectionMirror builds a mirror with the given scope predicate. A nil
// predicate admits everything.
func NewProjectionMirror(name string, filter func(domain.Complaint) bool) *ProjectionMirror {
	if filter == nil {
		filter = func(domain.Complaint) bool { return true }
	}
	return &ProjectionMirror{
		name:   name,
		filter: filter,
		byID:   make(map[string]domain.Complaint),
	}
}

// Name identifies the mirror in logs.
func (m *ProjectionMirror) Name() string {
	return m.name
}

// Apply upserts the complaint when it matches the scope, drops it otherwise.
func (m *ProjectionMirror) Apply(complaint domain.Complaint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.filter(complaint) {
		m.byID[complaint.ID] = complaint
		return
	}
	delete(m.byID, complaint.ID)
}

// Drop removes a complaint from the projection.
func (m *ProjectionMirror) Drop(complaintID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, complaintID)
}

// Snapshot returns the projected complaints, most recently updated first.
func (m *ProjectionMirror) Snapshot() []domain.Complaint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]domain.Complaint, 0, len(m.byID))
	for _, complaint := range m.byID {
		result = append(result, complaint)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

// NewStudentMirror scopes the projection to one student's complaints.
func NewStudentMirror(studentEmail string) *ProjectionMirror {
	return NewProjectionMirror("student:"+studentEmail, func(c domain.Complaint) bool {
		return c.StudentEmail == studentEmail
	})
}

// NewStaffMirror scopes the projection to one staff member's open queue.
func NewStaffMirror(staffID string) *ProjectionMirror {
	return NewProjectionMirror("staff:"+staffID, func(c domain.Complaint) bool {
		return c.AssignedStaffID != nil && *c.AssignedStaffID == staffID && !c.IsTerminal()
	})
}

// NewEscalationMirror scopes the projection to escalated complaints, for the
// admin dashboard.
func NewEscalationMirror() *ProjectionMirror {
	return NewProjectionMirror("admin:escalations", func(c domain.Complaint) bool {
		return c.EscalationLevel > 0 && !c.IsTerminal()
	})
}

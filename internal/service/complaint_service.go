package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/escalation"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// Assigner routes a pending complaint to an owner.
type Assigner interface {
	AssignComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error)
}

// ComplaintService coordinates complaint lifecycle workflows.
type ComplaintService struct {
	complaints  repository.ComplaintRepository
	departments repository.DepartmentRepository
	history     repository.ComplaintHistoryRepository
	assigner    Assigner
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// ComplaintDependencies bundles collaborators for the service.
type ComplaintDependencies struct {
	ComplaintRepo  repository.ComplaintRepository
	DepartmentRepo repository.DepartmentRepository
	HistoryRepo    repository.ComplaintHistoryRepository
	Assigner       Assigner
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// ComplaintCreateInput describes complaint creation payload.
type ComplaintCreateInput struct {
	Title            string
	Description      string
	Category         string
	Priority         domain.ComplaintPriority
	StudentName      string
	StudentEmail     string
	StudentCollegeID string
	StudentPhone     string
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{
		complaints:  deps.ComplaintRepo,
		departments: deps.DepartmentRepo,
		history:     deps.HistoryRepo,
		assigner:    deps.Assigner,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         time.Now,
	}
}

// Legal lifecycle transitions. Escalation in and out of ESCALATED belongs to
// the sweep worker, so it is absent here on purpose.
var allowedTransitions = map[domain.ComplaintStatus][]domain.ComplaintStatus{
	domain.ComplaintStatusPending:    {domain.ComplaintStatusAssigned, domain.ComplaintStatusRejected},
	domain.ComplaintStatusAssigned:   {domain.ComplaintStatusInProgress, domain.ComplaintStatusResolved, domain.ComplaintStatusRejected},
	domain.ComplaintStatusInProgress: {domain.ComplaintStatusResolved},
	domain.ComplaintStatusEscalated:  {domain.ComplaintStatusResolved},
	domain.ComplaintStatusResolved:   {domain.ComplaintStatusClosed},
	domain.ComplaintStatusClosed:     {},
	domain.ComplaintStatusRejected:   {},
}

func isValidTransition(current, next domain.ComplaintStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CreateComplaint files a complaint and routes it through assignment. When no
// staff member serves the category the complaint stays PENDING and the
// NoStaffAvailable error is returned together with the persisted record so the
// caller can surface it.
func (s *ComplaintService) CreateComplaint(ctx context.Context, input ComplaintCreateInput) (*domain.Complaint, error) {
	dept, err := s.departments.GetByCode(ctx, input.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
		}
		return nil, apperrors.MapError(err)
	}
	if !dept.IsActive {
		return nil, apperrors.NewConflict("category inactive", map[string]any{"category": input.Category})
	}

	now := s.now()
	complaint := &domain.Complaint{
		ExternalKey:      generateComplaintKey(),
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		Category:         input.Category,
		Priority:         input.Priority,
		Status:           domain.ComplaintStatusPending,
		StudentName:      strings.TrimSpace(input.StudentName),
		StudentEmail:     strings.ToLower(strings.TrimSpace(input.StudentEmail)),
		StudentCollegeID: input.StudentCollegeID,
		StudentPhone:     input.StudentPhone,
	}
	if complaint.Priority == "" {
		complaint.Priority = domain.ComplaintPriorityMedium
	}
	complaint.DueDate = escalation.DueDate(complaint.Priority, now)

	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintCreated,
		ComplaintID: complaint.ID,
		Actor:       studentActor(complaint.StudentEmail),
		Payload: events.ComplaintCreatedPayload{
			Category:     complaint.Category,
			Priority:     complaint.Priority,
			Title:        complaint.Title,
			StudentName:  complaint.StudentName,
			StudentEmail: complaint.StudentEmail,
			DueDate:      complaint.DueDate,
		},
	})

	if s.assigner == nil {
		return complaint, nil
	}
	assigned, err := s.assigner.AssignComplaint(ctx, complaint.ID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNoStaffAvailable) {
			s.logger.Warn("no staff available, complaint remains pending",
				zap.String("complaint_id", complaint.ID),
				zap.String("category", complaint.Category))
			return complaint, err
		}
		return nil, err
	}
	return assigned, nil
}

// StartProgress moves an assigned complaint into IN_PROGRESS.
func (s *ComplaintService) StartProgress(ctx context.Context, staff *domain.StaffMember, complaintID string) (*domain.Complaint, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	complaint, err := s.getOwned(ctx, staff, complaintID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, complaint, domain.ComplaintStatusInProgress, domain.SubjectTypeStaff, &staff.ID, "started", func(c *domain.Complaint) error {
		return s.complaints.Update(ctx, c)
	})
}

// Resolve settles a complaint, frees the owner's workload slot, and unlocks
// the rating gate.
func (s *ComplaintService) Resolve(ctx context.Context, staff *domain.StaffMember, complaintID, resolution string) (*domain.Complaint, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if strings.TrimSpace(resolution) == "" {
		return nil, apperrors.NewValidationError("resolution required", nil)
	}
	complaint, err := s.getOwned(ctx, staff, complaintID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, complaint, domain.ComplaintStatusResolved, domain.SubjectTypeStaff, &staff.ID, "resolved", func(c *domain.Complaint) error {
		now := s.now()
		trimmed := strings.TrimSpace(resolution)
		c.Resolution = &trimmed
		c.ResolvedAt = &now
		return s.complaints.CompleteAndRelease(ctx, c)
	})
}

// Close finalizes a resolved complaint on behalf of the student.
func (s *ComplaintService) Close(ctx context.Context, studentEmail, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.getForStudent(ctx, studentEmail, complaintID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, complaint, domain.ComplaintStatusClosed, domain.SubjectTypeStudent, nil, "closed by student", func(c *domain.Complaint) error {
		now := s.now()
		c.ClosedAt = &now
		return s.complaints.Update(ctx, c)
	})
}

// Reject discards a complaint that cannot be acted on. Terminal.
func (s *ComplaintService) Reject(ctx context.Context, staff *domain.StaffMember, complaintID, reason string) (*domain.Complaint, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, complaint, domain.ComplaintStatusRejected, domain.SubjectTypeStaff, &staff.ID, reason, func(c *domain.Complaint) error {
		return s.complaints.CompleteAndRelease(ctx, c)
	})
}

// GetForStudent fetches a complaint ensuring ownership.
func (s *ComplaintService) GetForStudent(ctx context.Context, studentEmail, complaintID string) (*domain.Complaint, []domain.ComplaintHistory, error) {
	complaint, err := s.getForStudent(ctx, studentEmail, complaintID)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.listHistory(ctx, complaint.ID)
	if err != nil {
		return nil, nil, err
	}
	return complaint, history, nil
}

// GetForStudentByKey looks a complaint up by the reference key handed to
// the student at filing time, ensuring ownership.
func (s *ComplaintService) GetForStudentByKey(ctx context.Context, studentEmail, externalKey string) (*domain.Complaint, []domain.ComplaintHistory, error) {
	key := strings.ToUpper(strings.TrimSpace(externalKey))
	complaint, err := s.complaints.GetByExternalKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("complaint", map[string]any{"reference": key})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !strings.EqualFold(complaint.StudentEmail, strings.TrimSpace(studentEmail)) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	history, err := s.listHistory(ctx, complaint.ID)
	if err != nil {
		return nil, nil, err
	}
	return complaint, history, nil
}

// ListForStudent returns the student's complaints.
func (s *ComplaintService) ListForStudent(ctx context.Context, studentEmail string, limit, offset int) ([]domain.Complaint, error) {
	email := strings.ToLower(strings.TrimSpace(studentEmail))
	return s.complaints.ListWithFilter(ctx, repository.ComplaintFilter{
		StudentEmail: &email,
		Limit:        limit,
		Offset:       offset,
	})
}

// ListForStaff returns complaints visible to the staff member. Agents see
// their own queue; admins see everything.
func (s *ComplaintService) ListForStaff(ctx context.Context, staff *domain.StaffMember, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if staff.Role != domain.StaffRoleAdmin {
		filter.AssignedStaffID = &staff.ID
	}
	return s.complaints.ListWithFilter(ctx, filter)
}

// GetForStaff fetches a complaint with its audit trail for staff view.
func (s *ComplaintService) GetForStaff(ctx context.Context, staff *domain.StaffMember, complaintID string) (*domain.Complaint, []domain.ComplaintHistory, error) {
	if staff == nil {
		return nil, nil, apperrors.NewUnauthorized("staff required")
	}
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, nil, err
	}
	if !staffCanAccess(staff, complaint) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	history, err := s.listHistory(ctx, complaint.ID)
	if err != nil {
		return nil, nil, err
	}
	return complaint, history, nil
}

func (s *ComplaintService) transition(ctx context.Context, complaint *domain.Complaint, next domain.ComplaintStatus, actorType domain.SubjectType, actorID *string, comment string, commit func(*domain.Complaint) error) (*domain.Complaint, error) {
	if !isValidTransition(complaint.Status, next) {
		return nil, apperrors.NewPreconditionFailed("illegal status transition",
			map[string]any{"complaint_id": complaint.ID, "from": complaint.Status, "to": next})
	}
	oldStatus := complaint.Status
	complaint.Status = next
	if err := commit(complaint); err != nil {
		complaint.Status = oldStatus
		return nil, apperrors.MapError(err)
	}
	if err := s.recordStatusChange(ctx, actorType, actorID, complaint.ID, oldStatus, next, comment); err != nil {
		s.logger.Warn("status history write failed", zap.String("complaint_id", complaint.ID), zap.Error(err))
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintStatusChanged,
		ComplaintID: complaint.ID,
		Actor:       actorFor(actorType, actorID, complaint),
		Payload: events.ComplaintStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: next,
			Comment:   comment,
		},
	})
	return complaint, nil
}

func (s *ComplaintService) getComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return nil, apperrors.MapError(err)
	}
	return complaint, nil
}

func (s *ComplaintService) getForStudent(ctx context.Context, studentEmail, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(complaint.StudentEmail, strings.TrimSpace(studentEmail)) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return complaint, nil
}

func (s *ComplaintService) getOwned(ctx context.Context, staff *domain.StaffMember, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !staffCanAccess(staff, complaint) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return complaint, nil
}

func staffCanAccess(staff *domain.StaffMember, complaint *domain.Complaint) bool {
	if staff == nil {
		return false
	}
	if staff.Role == domain.StaffRoleAdmin {
		return true
	}
	return complaint.AssignedStaffID != nil && *complaint.AssignedStaffID == staff.ID
}

func (s *ComplaintService) listHistory(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	if s.history == nil {
		return []domain.ComplaintHistory{}, nil
	}
	return s.history.ListByComplaint(ctx, complaintID)
}

func (s *ComplaintService) recordStatusChange(ctx context.Context, actorType domain.SubjectType, actorID *string, complaintID string, oldStatus, newStatus domain.ComplaintStatus, comment string) error {
	if s.history == nil {
		return nil
	}
	return s.history.Create(ctx, &domain.ComplaintHistory{
		ComplaintID:   complaintID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    domain.ChangeTypeStatus,
		OldValue: map[string]any{
			"status": oldStatus,
		},
		NewValue: map[string]any{
			"status":  newStatus,
			"comment": comment,
		},
	})
}

func (s *ComplaintService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func studentActor(email string) events.Actor {
	return events.Actor{
		Type:         domain.SubjectTypeStudent,
		StudentEmail: &email,
	}
}

func actorFor(actorType domain.SubjectType, actorID *string, complaint *domain.Complaint) events.Actor {
	switch actorType {
	case domain.SubjectTypeStaff:
		return events.Actor{Type: domain.SubjectTypeStaff, StaffID: actorID}
	case domain.SubjectTypeStudent:
		return studentActor(complaint.StudentEmail)
	default:
		return events.Actor{Type: domain.SubjectTypeSystem}
	}
}

func generateComplaintKey() string {
	return "CMP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

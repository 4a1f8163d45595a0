package service

import (
	"context"
	"errors"
	"sort"
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

// AssignmentService routes complaints to the least-busy eligible staff member.
type AssignmentService struct {
	complaints repository.ComplaintRepository
	staff      repository.StaffRepository
	history    repository.ComplaintHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	StaffRepo     repository.StaffRepository
	HistoryRepo   repository.ComplaintHistoryRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		complaints: deps.ComplaintRepo,
		staff:      deps.StaffRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// SelectStaff picks the least-busy active staff member serving the category.
// Ties keep the repository's stable ordering.
func (s *AssignmentService) SelectStaff(ctx context.Context, category string) (*domain.StaffMember, error) {
	active := true
	candidates, err := s.staff.List(ctx, repository.StaffFilter{
		ServesCategory: &category,
		Active:         &active,
		Limit:          1000,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(candidates) == 0 {
		return nil, apperrors.NewNoStaffAvailable(category)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CurrentWorkload < candidates[j].CurrentWorkload
	})
	chosen := candidates[0]
	return &chosen, nil
}

// AssignComplaint takes a pending complaint through assignment: selects an
// owner, fixes the due date if unset, and commits the complaint update and the
// owner's workload increment in one write.
func (s *AssignmentService) AssignComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return nil, apperrors.MapError(err)
	}
	if complaint.Status != domain.ComplaintStatusPending {
		return nil, apperrors.NewPreconditionFailed("complaint is not pending assignment",
			map[string]any{"complaint_id": complaintID, "status": complaint.Status})
	}

	assignee, err := s.SelectStaff(ctx, complaint.Category)
	if err != nil {
		return nil, err
	}

	if complaint.DueDate.IsZero() {
		complaint.DueDate = escalation.DueDate(complaint.Priority, s.now())
	}
	oldAssignee := complaint.AssignedStaffID
	complaint.Status = domain.ComplaintStatusAssigned
	complaint.AssignedStaffID = &assignee.ID
	complaint.AssignedStaffName = &assignee.Name

	if err := s.complaints.AssignToStaff(ctx, complaint); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.recordAssigneeChange(ctx, domain.SubjectTypeSystem, nil, complaint.ID, oldAssignee, complaint.AssignedStaffID); err != nil {
		s.logger.Warn("assignment history write failed", zap.String("complaint_id", complaint.ID), zap.Error(err))
	}
	s.publishAssigned(ctx, complaint, assignee)
	return complaint, nil
}

// EscalateToNextTier reassigns an escalated complaint to the least-busy active
// staff member one tier above the current owner, within the same category.
func (s *AssignmentService) EscalateToNextTier(ctx context.Context, actor *domain.StaffMember, complaintID string) (*domain.Complaint, error) {
	if actor == nil || actor.Role != domain.StaffRoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return nil, apperrors.MapError(err)
	}
	if complaint.IsTerminal() {
		return nil, apperrors.NewPreconditionFailed("complaint already settled",
			map[string]any{"complaint_id": complaintID, "status": complaint.Status})
	}
	if complaint.AssignedStaffID == nil {
		return nil, apperrors.NewPreconditionFailed("complaint has no owner to escalate from",
			map[string]any{"complaint_id": complaintID})
	}

	owner, err := s.staff.GetByID(ctx, *complaint.AssignedStaffID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	nextLevel, ok := domain.NextLevel(owner.Level)
	if !ok {
		return nil, apperrors.NewNoStaffAvailable(complaint.Category)
	}

	active := true
	candidates, err := s.staff.List(ctx, repository.StaffFilter{
		ServesCategory: &complaint.Category,
		Level:          &nextLevel,
		Active:         &active,
		Limit:          1000,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(candidates) == 0 {
		return nil, apperrors.NewNoStaffAvailable(complaint.Category)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CurrentWorkload < candidates[j].CurrentWorkload
	})
	assignee := candidates[0]

	oldAssignee := complaint.AssignedStaffID
	complaint.AssignedStaffID = &assignee.ID
	complaint.AssignedStaffName = &assignee.Name

	if err := s.complaints.TransferToStaff(ctx, complaint, oldAssignee); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.recordAssigneeChange(ctx, domain.SubjectTypeStaff, &actor.ID, complaint.ID, oldAssignee, complaint.AssignedStaffID); err != nil {
		s.logger.Warn("assignment history write failed", zap.String("complaint_id", complaint.ID), zap.Error(err))
	}
	s.publishAssigned(ctx, complaint, &assignee)
	return complaint, nil
}

func (s *AssignmentService) recordAssigneeChange(ctx context.Context, actorType domain.SubjectType, actorID *string, complaintID string, oldAssignee, newAssignee *string) error {
	if s.history == nil {
		return nil
	}
	return s.history.Create(ctx, &domain.ComplaintHistory{
		ComplaintID:   complaintID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    domain.ChangeTypeAssignee,
		OldValue: map[string]any{
			"assigned_staff_id": oldAssignee,
		},
		NewValue: map[string]any{
			"assigned_staff_id": newAssignee,
		},
	})
}

func (s *AssignmentService) publishAssigned(ctx context.Context, complaint *domain.Complaint, assignee *domain.StaffMember) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventComplaintAssigned,
		ComplaintID: complaint.ID,
		Actor:       events.Actor{Type: domain.SubjectTypeSystem},
		Timestamp:   s.now(),
		Payload: events.ComplaintAssignedPayload{
			StaffID:      assignee.ID,
			StaffName:    assignee.Name,
			StudentEmail: complaint.StudentEmail,
			DueDate:      complaint.DueDate,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}

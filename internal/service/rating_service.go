package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// RatingService guards the post-resolution feedback gate.
type RatingService struct {
	complaints repository.ComplaintRepository
	staff      repository.StaffRepository
	history    repository.ComplaintHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// RatingDependencies bundles collaborators.
type RatingDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	StaffRepo     repository.StaffRepository
	HistoryRepo   repository.ComplaintHistoryRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// RatingInput is the student-submitted feedback.
type RatingInput struct {
	Score   int
	Comment string
}

// NewRatingService constructs the service.
func NewRatingService(deps RatingDependencies) *RatingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{
		complaints: deps.ComplaintRepo,
		staff:      deps.StaffRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// SubmitRating records a one-time rating on a settled complaint. The write is
// a conditional update keyed on "no rating yet", so a concurrent duplicate
// loses the race and surfaces as PreconditionFailed without touching the
// stored rating.
func (s *RatingService) SubmitRating(ctx context.Context, studentEmail, complaintID string, input RatingInput) (*domain.Complaint, error) {
	if input.Score < 1 || input.Score > 5 {
		return nil, apperrors.NewValidationError("score must be between 1 and 5",
			map[string]any{"score": input.Score})
	}

	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !strings.EqualFold(complaint.StudentEmail, strings.TrimSpace(studentEmail)) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if !complaint.Rateable() {
		return nil, apperrors.NewPreconditionFailed("complaint is not rateable",
			map[string]any{"complaint_id": complaintID, "status": complaint.Status})
	}
	if complaint.Rating != nil {
		return nil, apperrors.NewPreconditionFailed("complaint already rated",
			map[string]any{"complaint_id": complaintID})
	}

	rating := domain.Rating{
		Score:   input.Score,
		Comment: strings.TrimSpace(input.Comment),
		RatedAt: s.now(),
	}
	applied, err := s.complaints.SetRating(ctx, complaintID, rating)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !applied {
		return nil, apperrors.NewPreconditionFailed("complaint already rated",
			map[string]any{"complaint_id": complaintID})
	}
	complaint.Rating = &rating

	if err := s.recordRating(ctx, complaint, rating); err != nil {
		s.logger.Warn("rating history write failed", zap.String("complaint_id", complaint.ID), zap.Error(err))
	}
	s.publishRated(ctx, complaint, rating)
	s.refreshPerformance(ctx, complaint)
	return complaint, nil
}

// refreshPerformance recomputes the owner's average rating. Failure here does
// not undo the rating itself.
func (s *RatingService) refreshPerformance(ctx context.Context, complaint *domain.Complaint) {
	if s.staff == nil || complaint.AssignedStaffID == nil {
		return
	}
	staffID := *complaint.AssignedStaffID
	avg, count, err := s.complaints.AverageRatingForStaff(ctx, staffID)
	if err != nil {
		s.logger.Warn("average rating lookup failed", zap.String("staff_id", staffID), zap.Error(err))
		return
	}
	if count == 0 {
		return
	}
	if err := s.staff.UpdatePerformanceScore(ctx, staffID, avg); err != nil {
		s.logger.Warn("performance score update failed", zap.String("staff_id", staffID), zap.Error(err))
	}
}

func (s *RatingService) recordRating(ctx context.Context, complaint *domain.Complaint, rating domain.Rating) error {
	if s.history == nil {
		return nil
	}
	return s.history.Create(ctx, &domain.ComplaintHistory{
		ComplaintID:   complaint.ID,
		ChangedByType: domain.SubjectTypeStudent,
		ChangeType:    domain.ChangeTypeRating,
		OldValue:      map[string]any{},
		NewValue: map[string]any{
			"score":   rating.Score,
			"comment": rating.Comment,
		},
	})
}

func (s *RatingService) publishRated(ctx context.Context, complaint *domain.Complaint, rating domain.Rating) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventComplaintRated,
		ComplaintID: complaint.ID,
		Actor:       studentActor(complaint.StudentEmail),
		Timestamp:   s.now(),
		Payload: events.ComplaintRatedPayload{
			Score:     rating.Score,
			Comment:   rating.Comment,
			StaffID:   complaint.AssignedStaffID,
			StaffName: complaint.AssignedStaffName,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}

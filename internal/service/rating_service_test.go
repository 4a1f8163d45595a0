package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

type ratingFixture struct {
	svc           *RatingService
	complaintRepo *fakeComplaintRepo
	staffRepo     *fakeStaffRepo
	dispatcher    *recordingDispatcher
}

func newRatingFixture() *ratingFixture {
	staffRepo := newFakeStaffRepo()
	complaintRepo := newFakeComplaintRepo(staffRepo)
	dispatcher := &recordingDispatcher{}
	svc := NewRatingService(RatingDependencies{
		ComplaintRepo: complaintRepo,
		StaffRepo:     staffRepo,
		HistoryRepo:   &fakeHistoryRepo{},
		Dispatcher:    dispatcher,
	})
	return &ratingFixture{
		svc:           svc,
		complaintRepo: complaintRepo,
		staffRepo:     staffRepo,
		dispatcher:    dispatcher,
	}
}

func (fx *ratingFixture) seedResolved(t *testing.T, staffID *string) *domain.Complaint {
	t.Helper()
	complaint := &domain.Complaint{
		Category:        "hostel",
		Status:          domain.ComplaintStatusResolved,
		StudentEmail:    "ravi.kumar@college.edu",
		AssignedStaffID: staffID,
	}
	require.NoError(t, fx.complaintRepo.Create(context.Background(), complaint))
	return complaint
}

func TestSubmitRatingHappyPath(t *testing.T) {
	fx := newRatingFixture()
	staff := seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)
	complaint := fx.seedResolved(t, &staff.ID)

	rated, err := fx.svc.SubmitRating(context.Background(), "ravi.kumar@college.edu", complaint.ID,
		RatingInput{Score: 4, Comment: "Quick fix, thanks"})
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 4, rated.Rating.Score)
	assert.Len(t, fx.dispatcher.byType(events.EventComplaintRated), 1)

	owner, err := fx.staffRepo.GetByID(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, owner.PerformanceScore, 0.001)
}

func TestSubmitRatingRejectsOutOfRangeScore(t *testing.T) {
	fx := newRatingFixture()
	complaint := fx.seedResolved(t, nil)

	for _, score := range []int{0, 6, -1} {
		_, err := fx.svc.SubmitRating(context.Background(), "ravi.kumar@college.edu", complaint.ID,
			RatingInput{Score: score})
		require.Error(t, err, "score %d", score)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	}
}

func TestSubmitRatingBeforeResolutionFails(t *testing.T) {
	fx := newRatingFixture()
	complaint := &domain.Complaint{
		Status:       domain.ComplaintStatusInProgress,
		StudentEmail: "ravi.kumar@college.edu",
	}
	require.NoError(t, fx.complaintRepo.Create(context.Background(), complaint))

	_, err := fx.svc.SubmitRating(context.Background(), "ravi.kumar@college.edu", complaint.ID,
		RatingInput{Score: 5})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePreconditionFailed))
}

func TestSubmitRatingTwiceKeepsFirst(t *testing.T) {
	fx := newRatingFixture()
	complaint := fx.seedResolved(t, nil)

	_, err := fx.svc.SubmitRating(context.Background(), "ravi.kumar@college.edu", complaint.ID,
		RatingInput{Score: 5, Comment: "great"})
	require.NoError(t, err)

	_, err = fx.svc.SubmitRating(context.Background(), "ravi.kumar@college.edu", complaint.ID,
		RatingInput{Score: 1, Comment: "changed my mind"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePreconditionFailed))

	stored, err := fx.complaintRepo.GetByID(context.Background(), complaint.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 5, stored.Rating.Score)
	assert.Equal(t, "great", stored.Rating.Comment)
	assert.Len(t, fx.dispatcher.byType(events.EventComplaintRated), 1)
}

func TestSubmitRatingDeniedForOtherStudent(t *testing.T) {
	fx := newRatingFixture()
	complaint := fx.seedResolved(t, nil)

	_, err := fx.svc.SubmitRating(context.Background(), "other@college.edu", complaint.ID,
		RatingInput{Score: 3})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestSubmitRatingAveragesAcrossComplaints(t *testing.T) {
	fx := newRatingFixture()
	staff := seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)
	first := fx.seedResolved(t, &staff.ID)
	second := fx.seedResolved(t, &staff.ID)

	_, err := fx.svc.SubmitRating(context.Background(), "ravi.kumar@college.edu", first.ID, RatingInput{Score: 5})
	require.NoError(t, err)
	_, err = fx.svc.SubmitRating(context.Background(), "ravi.kumar@college.edu", second.ID, RatingInput{Score: 2})
	require.NoError(t, err)

	owner, err := fx.staffRepo.GetByID(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, owner.PerformanceScore, 0.001)
}

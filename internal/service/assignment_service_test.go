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

func seedStaff(t *testing.T, repo *fakeStaffRepo, name, category string, level domain.StaffLevel, workload int, active bool) *domain.StaffMember {
	t.Helper()
	staff := &domain.StaffMember{
		Name:            name,
		Email:           name + "@college.edu",
		Role:            domain.StaffRoleAgent,
		Level:           level,
		Category:        category,
		Active:          active,
		CurrentWorkload: workload,
	}
	require.NoError(t, repo.Create(context.Background(), staff))
	return staff
}

func newAssignmentFixture() (*AssignmentService, *fakeComplaintRepo, *fakeStaffRepo, *recordingDispatcher) {
	staffRepo := newFakeStaffRepo()
	complaintRepo := newFakeComplaintRepo(staffRepo)
	dispatcher := &recordingDispatcher{}
	svc := NewAssignmentService(AssignmentDependencies{
		ComplaintRepo: complaintRepo,
		StaffRepo:     staffRepo,
		HistoryRepo:   &fakeHistoryRepo{},
		Dispatcher:    dispatcher,
	})
	return svc, complaintRepo, staffRepo, dispatcher
}

func TestSelectStaffPicksLeastBusyActive(t *testing.T) {
	svc, _, staffRepo, _ := newAssignmentFixture()
	seedStaff(t, staffRepo, "alice", "hostel", domain.StaffLevelJunior, 5, true)
	expected := seedStaff(t, staffRepo, "bala", "hostel", domain.StaffLevelJunior, 2, true)
	seedStaff(t, staffRepo, "chitra", "hostel", domain.StaffLevelJunior, 1, false)

	chosen, err := svc.SelectStaff(context.Background(), "hostel")
	require.NoError(t, err)
	assert.Equal(t, expected.ID, chosen.ID)
}

func TestSelectStaffIncludesCatchAll(t *testing.T) {
	svc, _, staffRepo, _ := newAssignmentFixture()
	seedStaff(t, staffRepo, "alice", "hostel", domain.StaffLevelJunior, 4, true)
	generalist := seedStaff(t, staffRepo, "gopal", domain.CategoryAll, domain.StaffLevelJunior, 1, true)

	chosen, err := svc.SelectStaff(context.Background(), "hostel")
	require.NoError(t, err)
	assert.Equal(t, generalist.ID, chosen.ID)
}

func TestSelectStaffNoCandidates(t *testing.T) {
	svc, _, staffRepo, _ := newAssignmentFixture()
	seedStaff(t, staffRepo, "alice", "library", domain.StaffLevelJunior, 0, true)
	seedStaff(t, staffRepo, "bala", "hostel", domain.StaffLevelJunior, 0, false)

	_, err := svc.SelectStaff(context.Background(), "hostel")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoStaffAvailable))
}

func TestAssignComplaintSetsOwnerAndWorkload(t *testing.T) {
	svc, complaintRepo, staffRepo, dispatcher := newAssignmentFixture()
	staff := seedStaff(t, staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)
	complaint := &domain.Complaint{
		Title:        "Leaking tap",
		Category:     "hostel",
		Priority:     domain.ComplaintPriorityHigh,
		Status:       domain.ComplaintStatusPending,
		StudentEmail: "student@college.edu",
	}
	require.NoError(t, complaintRepo.Create(context.Background(), complaint))

	assigned, err := svc.AssignComplaint(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedStaffID)
	assert.Equal(t, staff.ID, *assigned.AssignedStaffID)
	assert.False(t, assigned.DueDate.IsZero())

	updated, err := staffRepo.GetByID(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentWorkload)
	assert.Len(t, dispatcher.byType(events.EventComplaintAssigned), 1)
}

func TestAssignComplaintRequiresPending(t *testing.T) {
	svc, complaintRepo, staffRepo, _ := newAssignmentFixture()
	seedStaff(t, staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)
	complaint := &domain.Complaint{
		Category: "hostel",
		Status:   domain.ComplaintStatusResolved,
	}
	require.NoError(t, complaintRepo.Create(context.Background(), complaint))

	_, err := svc.AssignComplaint(context.Background(), complaint.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePreconditionFailed))
}

func TestEscalateToNextTierMovesOwnership(t *testing.T) {
	svc, complaintRepo, staffRepo, _ := newAssignmentFixture()
	junior := seedStaff(t, staffRepo, "alice", "hostel", domain.StaffLevelJunior, 1, true)
	senior := seedStaff(t, staffRepo, "bala", "hostel", domain.StaffLevelSenior, 0, true)
	admin := seedStaff(t, staffRepo, "dana", domain.CategoryAll, domain.StaffLevelManager, 0, true)
	admin.Role = domain.StaffRoleAdmin

	complaint := &domain.Complaint{
		Category:        "hostel",
		Status:          domain.ComplaintStatusEscalated,
		EscalationLevel: 1,
		AssignedStaffID: &junior.ID,
	}
	require.NoError(t, complaintRepo.Create(context.Background(), complaint))

	moved, err := svc.EscalateToNextTier(context.Background(), admin, complaint.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.AssignedStaffID)
	assert.Equal(t, senior.ID, *moved.AssignedStaffID)

	prev, err := staffRepo.GetByID(context.Background(), junior.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, prev.CurrentWorkload)
	next, err := staffRepo.GetByID(context.Background(), senior.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next.CurrentWorkload)
}

func TestEscalateToNextTierAtTopTier(t *testing.T) {
	svc, complaintRepo, staffRepo, _ := newAssignmentFixture()
	director := seedStaff(t, staffRepo, "dinesh", "hostel", domain.StaffLevelDirector, 1, true)
	admin := seedStaff(t, staffRepo, "dana", domain.CategoryAll, domain.StaffLevelManager, 0, true)
	admin.Role = domain.StaffRoleAdmin

	complaint := &domain.Complaint{
		Category:        "hostel",
		Status:          domain.ComplaintStatusEscalated,
		AssignedStaffID: &director.ID,
	}
	require.NoError(t, complaintRepo.Create(context.Background(), complaint))

	_, err := svc.EscalateToNextTier(context.Background(), admin, complaint.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoStaffAvailable))
}

func TestEscalateToNextTierRequiresAdmin(t *testing.T) {
	svc, _, staffRepo, _ := newAssignmentFixture()
	agent := seedStaff(t, staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)

	_, err := svc.EscalateToNextTier(context.Background(), agent, "complaint-1")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

type complaintFixture struct {
	svc           *ComplaintService
	assignment    *AssignmentService
	complaintRepo *fakeComplaintRepo
	staffRepo     *fakeStaffRepo
	historyRepo   *fakeHistoryRepo
	dispatcher    *recordingDispatcher
}

func newComplaintFixture() *complaintFixture {
	staffRepo := newFakeStaffRepo()
	complaintRepo := newFakeComplaintRepo(staffRepo)
	historyRepo := &fakeHistoryRepo{}
	dispatcher := &recordingDispatcher{}
	assignment := NewAssignmentService(AssignmentDependencies{
		ComplaintRepo: complaintRepo,
		StaffRepo:     staffRepo,
		HistoryRepo:   historyRepo,
		Dispatcher:    dispatcher,
	})
	svc := NewComplaintService(ComplaintDependencies{
		ComplaintRepo:  complaintRepo,
		DepartmentRepo: newFakeDeptRepo("hostel", "library"),
		HistoryRepo:    historyRepo,
		Assigner:       assignment,
		Dispatcher:     dispatcher,
	})
	return &complaintFixture{
		svc:           svc,
		assignment:    assignment,
		complaintRepo: complaintRepo,
		staffRepo:     staffRepo,
		historyRepo:   historyRepo,
		dispatcher:    dispatcher,
	}
}

func hostelInput() ComplaintCreateInput {
	return ComplaintCreateInput{
		Title:        "Broken fan in room 12",
		Description:  "The ceiling fan stopped working two days ago.",
		Category:     "hostel",
		Priority:     domain.ComplaintPriorityHigh,
		StudentName:  "Ravi Kumar",
		StudentEmail: "Ravi.Kumar@college.edu",
	}
}

func TestCreateComplaintAssignsImmediately(t *testing.T) {
	fx := newComplaintFixture()
	staff := seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)

	complaint, err := fx.svc.CreateComplaint(context.Background(), hostelInput())
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusAssigned, complaint.Status)
	require.NotNil(t, complaint.AssignedStaffID)
	assert.Equal(t, staff.ID, *complaint.AssignedStaffID)
	assert.Equal(t, "ravi.kumar@college.edu", complaint.StudentEmail)
	assert.NotEmpty(t, complaint.ExternalKey)
	assert.False(t, complaint.DueDate.IsZero())
	assert.Len(t, fx.dispatcher.byType(events.EventComplaintCreated), 1)
	assert.Len(t, fx.dispatcher.byType(events.EventComplaintAssigned), 1)
}

func TestCreateComplaintNoStaffStaysPending(t *testing.T) {
	fx := newComplaintFixture()

	complaint, err := fx.svc.CreateComplaint(context.Background(), hostelInput())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoStaffAvailable))
	// The complaint is persisted and returned alongside the error, never
	// silently dropped.
	require.NotNil(t, complaint)
	stored, getErr := fx.complaintRepo.GetByID(context.Background(), complaint.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.ComplaintStatusPending, stored.Status)
}

func TestCreateComplaintUnknownCategory(t *testing.T) {
	fx := newComplaintFixture()
	input := hostelInput()
	input.Category = "parking"

	_, err := fx.svc.CreateComplaint(context.Background(), input)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestLifecycleHappyPath(t *testing.T) {
	fx := newComplaintFixture()
	staff := seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)

	complaint, err := fx.svc.CreateComplaint(context.Background(), hostelInput())
	require.NoError(t, err)

	complaint, err = fx.svc.StartProgress(context.Background(), staff, complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusInProgress, complaint.Status)

	complaint, err = fx.svc.Resolve(context.Background(), staff, complaint.ID, "Replaced the fan motor.")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusResolved, complaint.Status)
	require.NotNil(t, complaint.Resolution)
	require.NotNil(t, complaint.ResolvedAt)

	owner, err := fx.staffRepo.GetByID(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, owner.CurrentWorkload, "resolution frees the workload slot")

	complaint, err = fx.svc.Close(context.Background(), "ravi.kumar@college.edu", complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusClosed, complaint.Status)
	require.NotNil(t, complaint.ClosedAt)

	history, err := fx.historyRepo.ListByComplaint(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(history), 4)
}

func TestResolveRequiresResolutionText(t *testing.T) {
	fx := newComplaintFixture()
	staff := seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)
	complaint, err := fx.svc.CreateComplaint(context.Background(), hostelInput())
	require.NoError(t, err)

	_, err = fx.svc.Resolve(context.Background(), staff, complaint.ID, "   ")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestIllegalTransitionsFailLoudly(t *testing.T) {
	fx := newComplaintFixture()
	staff := seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)

	complaint, err := fx.svc.CreateComplaint(context.Background(), hostelInput())
	require.NoError(t, err)
	_, err = fx.svc.Close(context.Background(), "ravi.kumar@college.edu", complaint.ID)
	require.Error(t, err, "cannot close an assigned complaint")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePreconditionFailed))

	complaint, err = fx.svc.Resolve(context.Background(), staff, complaint.ID, "done")
	require.NoError(t, err)
	_, err = fx.svc.StartProgress(context.Background(), staff, complaint.ID)
	require.Error(t, err, "resolved complaints cannot move back to in progress")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePreconditionFailed))

	_, err = fx.svc.Reject(context.Background(), staff, complaint.ID, "duplicate")
	require.Error(t, err, "resolved complaints cannot be rejected")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePreconditionFailed))
}

func TestStartProgressDeniedForNonOwner(t *testing.T) {
	fx := newComplaintFixture()
	seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)
	outsider := seedStaff(t, fx.staffRepo, "bala", "library", domain.StaffLevelJunior, 0, true)

	complaint, err := fx.svc.CreateComplaint(context.Background(), hostelInput())
	require.NoError(t, err)

	_, err = fx.svc.StartProgress(context.Background(), outsider, complaint.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestCloseDeniedForOtherStudent(t *testing.T) {
	fx := newComplaintFixture()
	staff := seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)
	complaint, err := fx.svc.CreateComplaint(context.Background(), hostelInput())
	require.NoError(t, err)
	complaint, err = fx.svc.Resolve(context.Background(), staff, complaint.ID, "done")
	require.NoError(t, err)

	_, err = fx.svc.Close(context.Background(), "someone.else@college.edu", complaint.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestRejectReleasesWorkload(t *testing.T) {
	fx := newComplaintFixture()
	staff := seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)
	complaint, err := fx.svc.CreateComplaint(context.Background(), hostelInput())
	require.NoError(t, err)

	complaint, err = fx.svc.Reject(context.Background(), staff, complaint.ID, "duplicate of CMP-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusRejected, complaint.Status)

	owner, err := fx.staffRepo.GetByID(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, owner.CurrentWorkload)
}

func TestListForStaffScopesAgents(t *testing.T) {
	fx := newComplaintFixture()
	agent := seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)
	admin := seedStaff(t, fx.staffRepo, "dana", domain.CategoryAll, domain.StaffLevelManager, 0, true)
	admin.Role = domain.StaffRoleAdmin

	_, err := fx.svc.CreateComplaint(context.Background(), hostelInput())
	require.NoError(t, err)
	other := hostelInput()
	other.StudentEmail = "second@college.edu"
	_, err = fx.svc.CreateComplaint(context.Background(), other)
	require.NoError(t, err)

	agentView, err := fx.svc.ListForStaff(context.Background(), agent, repository.ComplaintFilter{})
	require.NoError(t, err)
	adminView, err := fx.svc.ListForStaff(context.Background(), admin, repository.ComplaintFilter{})
	require.NoError(t, err)
	assert.Len(t, agentView, 2, "both complaints landed on the only hostel agent")
	assert.Len(t, adminView, 2)
}

func TestGetComplaintByReferenceKey(t *testing.T) {
	fx := newComplaintFixture()
	seedStaff(t, fx.staffRepo, "alice", "hostel", domain.StaffLevelJunior, 0, true)

	created, err := fx.svc.CreateComplaint(context.Background(), hostelInput())
	require.NoError(t, err)
	require.NotEmpty(t, created.ExternalKey)

	found, history, err := fx.svc.GetForStudentByKey(context.Background(), "ravi.kumar@college.edu", strings.ToLower(created.ExternalKey))
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.NotEmpty(t, history)

	_, _, err = fx.svc.GetForStudentByKey(context.Background(), "someone.else@college.edu", created.ExternalKey)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, _, err = fx.svc.GetForStudentByKey(context.Background(), "ravi.kumar@college.edu", "CMP-DEADBEEF")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

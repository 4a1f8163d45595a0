package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// In-memory doubles for the repository interfaces. They mimic the Postgres
// implementations closely enough for lifecycle tests, including the
// conditional escalation and rating writes.

type fakeComplaintRepo struct {
	mu         sync.Mutex
	seq        int
	complaints map[string]*domain.Complaint
	staff      *fakeStaffRepo
}

func newFakeComplaintRepo(staff *fakeStaffRepo) *fakeComplaintRepo {
	return &fakeComplaintRepo{
		complaints: map[string]*domain.Complaint{},
		staff:      staff,
	}
}

func (f *fakeComplaintRepo) Create(ctx context.Context, complaint *domain.Complaint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	complaint.ID = fmt.Sprintf("complaint-%d", f.seq)
	complaint.CreatedAt = time.Now()
	complaint.UpdatedAt = complaint.CreatedAt
	clone := *complaint
	f.complaints[complaint.ID] = &clone
	return nil
}

func (f *fakeComplaintRepo) Update(ctx context.Context, complaint *domain.Complaint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.complaints[complaint.ID]; !ok {
		return pgx.ErrNoRows
	}
	complaint.UpdatedAt = time.Now()
	clone := *complaint
	f.complaints[complaint.ID] = &clone
	return nil
}

func (f *fakeComplaintRepo) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *complaint
	return &clone, nil
}

func (f *fakeComplaintRepo) GetByExternalKey(ctx context.Context, key string) (*domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, complaint := range f.complaints {
		if complaint.ExternalKey == key {
			clone := *complaint
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeComplaintRepo) ListWithFilter(ctx context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Complaint
	for _, complaint := range f.complaints {
		if filter.StudentEmail != nil && complaint.StudentEmail != *filter.StudentEmail {
			continue
		}
		if filter.AssignedStaffID != nil {
			if complaint.AssignedStaffID == nil || *complaint.AssignedStaffID != *filter.AssignedStaffID {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, complaint.Status) {
			continue
		}
		result = append(result, *complaint)
	}
	return result, nil
}

func containsStatus(statuses []domain.ComplaintStatus, status domain.ComplaintStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (f *fakeComplaintRepo) ListOpen(ctx context.Context) ([]domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Complaint
	for _, complaint := range f.complaints {
		if !complaint.IsTerminal() {
			result = append(result, *complaint)
		}
	}
	return result, nil
}

func (f *fakeComplaintRepo) AssignToStaff(ctx context.Context, complaint *domain.Complaint) error {
	if err := f.Update(ctx, complaint); err != nil {
		return err
	}
	if complaint.AssignedStaffID != nil && f.staff != nil {
		return f.staff.adjustWorkload(ctx, *complaint.AssignedStaffID, 1)
	}
	return nil
}

func (f *fakeComplaintRepo) TransferToStaff(ctx context.Context, complaint *domain.Complaint, fromStaffID *string) error {
	if err := f.Update(ctx, complaint); err != nil {
		return err
	}
	if f.staff == nil {
		return nil
	}
	if fromStaffID != nil {
		if err := f.staff.adjustWorkload(ctx, *fromStaffID, -1); err != nil {
			return err
		}
	}
	if complaint.AssignedStaffID != nil {
		return f.staff.adjustWorkload(ctx, *complaint.AssignedStaffID, 1)
	}
	return nil
}

func (f *fakeComplaintRepo) CompleteAndRelease(ctx context.Context, complaint *domain.Complaint) error {
	if err := f.Update(ctx, complaint); err != nil {
		return err
	}
	if complaint.AssignedStaffID != nil && f.staff != nil {
		return f.staff.adjustWorkload(ctx, *complaint.AssignedStaffID, -1)
	}
	return nil
}

func (f *fakeComplaintRepo) UpdateEscalation(ctx context.Context, id string, fromLevel int, fromStatus domain.ComplaintStatus, toLevel int, toStatus domain.ComplaintStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok || complaint.EscalationLevel != fromLevel || complaint.Status != fromStatus {
		return false, nil
	}
	complaint.EscalationLevel = toLevel
	complaint.Status = toStatus
	complaint.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeComplaintRepo) SetRating(ctx context.Context, id string, rating domain.Rating) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint, ok := f.complaints[id]
	if !ok {
		return false, nil
	}
	if complaint.Rating != nil {
		return false, nil
	}
	if complaint.Status != domain.ComplaintStatusResolved && complaint.Status != domain.ComplaintStatusClosed {
		return false, nil
	}
	clone := rating
	complaint.Rating = &clone
	complaint.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeComplaintRepo) AverageRatingForStaff(ctx context.Context, staffID string) (float64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum, count int
	for _, complaint := range f.complaints {
		if complaint.AssignedStaffID == nil || *complaint.AssignedStaffID != staffID || complaint.Rating == nil {
			continue
		}
		sum += complaint.Rating.Score
		count++
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

type fakeStaffRepo struct {
	mu    sync.Mutex
	seq   int
	staff map[string]*domain.StaffMember
	order []string
}

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{staff: map[string]*domain.StaffMember{}}
}

func (f *fakeStaffRepo) Create(ctx context.Context, staff *domain.StaffMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	staff.ID = fmt.Sprintf("staff-%d", f.seq)
	staff.CreatedAt = time.Now()
	staff.UpdatedAt = staff.CreatedAt
	clone := *staff
	f.staff[staff.ID] = &clone
	f.order = append(f.order, staff.ID)
	return nil
}

func (f *fakeStaffRepo) Update(ctx context.Context, staff *domain.StaffMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.staff[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *staff
	f.staff[staff.ID] = &clone
	return nil
}

func (f *fakeStaffRepo) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	staff, ok := f.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *staff
	return &clone, nil
}

func (f *fakeStaffRepo) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, staff := range f.staff {
		if strings.EqualFold(staff.Email, email) {
			clone := *staff
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStaffRepo) List(ctx context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.StaffMember
	for _, id := range f.order {
		staff := f.staff[id]
		if filter.Role != nil && staff.Role != *filter.Role {
			continue
		}
		if filter.Level != nil && staff.Level != *filter.Level {
			continue
		}
		if filter.Category != nil && staff.Category != *filter.Category {
			continue
		}
		if filter.ServesCategory != nil && !staff.Serves(*filter.ServesCategory) {
			continue
		}
		if filter.Active != nil && staff.Active != *filter.Active {
			continue
		}
		result = append(result, *staff)
	}
	return result, nil
}

func (f *fakeStaffRepo) adjustWorkload(ctx context.Context, id string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	staff, ok := f.staff[id]
	if !ok {
		return pgx.ErrNoRows
	}
	staff.CurrentWorkload += delta
	if staff.CurrentWorkload < 0 {
		staff.CurrentWorkload = 0
	}
	return nil
}

func (f *fakeStaffRepo) UpdatePerformanceScore(ctx context.Context, id string, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	staff, ok := f.staff[id]
	if !ok {
		return pgx.ErrNoRows
	}
	staff.PerformanceScore = score
	return nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	seq     int
	entries []domain.ComplaintHistory
}

func (f *fakeHistoryRepo) Create(ctx context.Context, history *domain.ComplaintHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	history.ID = fmt.Sprintf("history-%d", f.seq)
	history.CreatedAt = time.Now()
	f.entries = append(f.entries, *history)
	return nil
}

func (f *fakeHistoryRepo) ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.ComplaintHistory
	for _, entry := range f.entries {
		if entry.ComplaintID == complaintID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeDeptRepo struct {
	mu    sync.Mutex
	seq   int
	depts map[string]*domain.Department
}

func newFakeDeptRepo(codes ...string) *fakeDeptRepo {
	repo := &fakeDeptRepo{depts: map[string]*domain.Department{}}
	for _, code := range codes {
		_ = repo.Create(context.Background(), &domain.Department{
			Code:     code,
			Name:     code,
			IsActive: true,
		})
	}
	return repo
}

func (f *fakeDeptRepo) Create(ctx context.Context, dept *domain.Department) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	dept.ID = fmt.Sprintf("dept-%d", f.seq)
	clone := *dept
	f.depts[dept.Code] = &clone
	return nil
}

func (f *fakeDeptRepo) Update(ctx context.Context, dept *domain.Department) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.depts[dept.Code]; !ok {
		return pgx.ErrNoRows
	}
	clone := *dept
	f.depts[dept.Code] = &clone
	return nil
}

func (f *fakeDeptRepo) GetByCode(ctx context.Context, code string) (*domain.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dept, ok := f.depts[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *dept
	return &clone, nil
}

func (f *fakeDeptRepo) ListActive(ctx context.Context) ([]domain.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Department
	for _, dept := range f.depts {
		if dept.IsActive {
			result = append(result, *dept)
		}
	}
	return result, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (r *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []events.Event
	for _, event := range r.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

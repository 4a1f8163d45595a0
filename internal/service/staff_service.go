package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// StaffService manages departments and staff members.
type StaffService struct {
	departments repository.DepartmentRepository
	staff       repository.StaffRepository
}

// OrgDependencies encapsulates repositories required for org management.
type OrgDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	StaffRepo      repository.StaffRepository
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Role     *domain.StaffRole
	Level    *domain.StaffLevel
	Category *string
	Active   *bool
	Limit    int
	Offset   int
}

// StaffInput carries staff create/update fields.
type StaffInput struct {
	Name     string
	Email    string
	Role     domain.StaffRole
	Level    domain.StaffLevel
	Category string
	Active   bool
}

// NewStaffService constructs the service.
func NewStaffService(deps OrgDependencies) *StaffService {
	return &StaffService{
		departments: deps.DepartmentRepo,
		staff:       deps.StaffRepo,
	}
}

func requireAdmin(actor *domain.StaffMember) error {
	if actor == nil || actor.Role != domain.StaffRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateDepartment registers a complaint category.
func (s *StaffService) CreateDepartment(ctx context.Context, actor *domain.StaffMember, code, name, description string) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == domain.CategoryAll {
		return nil, apperrors.NewValidationError("invalid department code", map[string]any{"code": code})
	}
	if existing, err := s.departments.GetByCode(ctx, code); err == nil && existing != nil {
		return nil, apperrors.NewConflict("department code already exists", map[string]any{"code": code})
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}
	dept := &domain.Department{
		Code:        code,
		Name:        name,
		Description: description,
		IsActive:    true,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// ListDepartments returns active categories. Open to any caller so students
// can populate the complaint form.
func (s *StaffService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.departments.ListActive(ctx)
}

// UpdateDepartment modifies department metadata.
func (s *StaffService) UpdateDepartment(ctx context.Context, actor *domain.StaffMember, dept *domain.Department) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// CreateStaffMember adds a staff record.
func (s *StaffService) CreateStaffMember(ctx context.Context, actor *domain.StaffMember, input StaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if existing, err := s.staff.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}
	if err := s.checkCategory(ctx, input.Category); err != nil {
		return nil, err
	}
	staff := &domain.StaffMember{
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Role:     input.Role,
		Level:    input.Level,
		Category: input.Category,
		Active:   true,
	}
	if staff.Role == "" {
		staff.Role = domain.StaffRoleAgent
	}
	if staff.Level == "" {
		staff.Level = domain.StaffLevelJunior
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// ListStaffMembers lists staff with filters.
func (s *StaffService) ListStaffMembers(ctx context.Context, actor *domain.StaffMember, filters StaffListFilters) ([]domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.staff.List(ctx, repository.StaffFilter{
		Role:     filters.Role,
		Level:    filters.Level,
		Category: filters.Category,
		Active:   filters.Active,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	})
}

// GetStaffMemberByID fetches staff.
func (s *StaffService) GetStaffMemberByID(ctx context.Context, actor *domain.StaffMember, id string) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// UpdateStaffMember updates staff details.
func (s *StaffService) UpdateStaffMember(ctx context.Context, actor *domain.StaffMember, staffID string, input StaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email != "" && email != staff.Email {
		if existing, err := s.staff.GetByEmail(ctx, email); err == nil && existing != nil && existing.ID != staff.ID {
			return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
		} else if err != nil && err != pgx.ErrNoRows {
			return nil, apperrors.MapError(err)
		}
		staff.Email = email
	}
	if err := s.checkCategory(ctx, input.Category); err != nil {
		return nil, err
	}

	staff.Name = strings.TrimSpace(input.Name)
	staff.Role = input.Role
	staff.Level = input.Level
	staff.Category = input.Category
	staff.Active = input.Active

	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

func (s *StaffService) checkCategory(ctx context.Context, category string) error {
	if category == "" {
		return apperrors.NewValidationError("category required", nil)
	}
	if category == domain.CategoryAll {
		return nil
	}
	dept, err := s.departments.GetByCode(ctx, category)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewValidationError("unknown category", map[string]any{"category": category})
		}
		return apperrors.MapError(err)
	}
	if !dept.IsActive {
		return apperrors.NewConflict("category inactive", map[string]any{"category": category})
	}
	return nil
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/worker"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// StaffHandler serves admin endpoints: staff and category management,
// manual tier escalation, and on-demand sweeps.
type StaffHandler struct {
	staff      *service.StaffService
	assignment *service.AssignmentService
	sweeper    *worker.Sweeper
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staff *service.StaffService, assignment *service.AssignmentService, sweeper *worker.Sweeper) *StaffHandler {
	return &StaffHandler{staff: staff, assignment: assignment, sweeper: sweeper}
}

// CreateStaff POST /admin/staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("name, email required", nil)
	}
	staff, err := h.staff.CreateStaffMember(c.Context(), principal.Staff, service.StaffInput{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Level:    req.Level,
		Category: req.Category,
		Active:   true,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(staff)})
}

// ListStaff GET /admin/staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	filters := service.StaffListFilters{
		Limit:  parseInt(c.Query("page_size"), 50),
		Offset: (parseInt(c.Query("page"), 1) - 1) * parseInt(c.Query("page_size"), 50),
	}
	if role := c.Query("role"); role != "" {
		staffRole := domain.StaffRole(strings.ToUpper(role))
		filters.Role = &staffRole
	}
	if level := c.Query("level"); level != "" {
		staffLevel := domain.StaffLevel(strings.ToUpper(level))
		filters.Level = &staffLevel
	}
	if category := c.Query("category"); category != "" {
		filters.Category = &category
	}
	staff, err := h.staff.ListStaffMembers(c.Context(), principal.Staff, filters)
	if err != nil {
		return err
	}
	items := make([]dto.StaffResponse, 0, len(staff))
	for i := range staff {
		items = append(items, staffResponse(&staff[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetStaff GET /admin/staff/:id.
func (h *StaffHandler) GetStaff(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	staff, err := h.staff.GetStaffMemberByID(c.Context(), principal.Staff, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// UpdateStaff PUT /admin/staff/:id.
func (h *StaffHandler) UpdateStaff(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	staff, err := h.staff.UpdateStaffMember(c.Context(), principal.Staff, c.Params("id"), service.StaffInput{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Level:    req.Level,
		Category: req.Category,
		Active:   req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// CreateDepartment POST /admin/departments.
func (h *StaffHandler) CreateDepartment(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept, err := h.staff.CreateDepartment(c.Context(), principal.Staff, req.Code, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": departmentResponse(dept)})
}

// UpdateDepartment PUT /admin/departments/:code.
func (h *StaffHandler) UpdateDepartment(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept, err := h.staff.UpdateDepartment(c.Context(), principal.Staff, &domain.Department{
		Code:        c.Params("code"),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departmentResponse(dept)})
}

// EscalateToNextTier POST /admin/complaints/:id/escalate.
func (h *StaffHandler) EscalateToNextTier(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	complaint, err := h.assignment.EscalateToNextTier(c.Context(), principal.Staff, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// TriggerSweep POST /admin/sweeps.
func (h *StaffHandler) TriggerSweep(c *fiber.Ctx) error {
	if _, err := staffPrincipal(c); err != nil {
		return err
	}
	stats, err := h.sweeper.SweepOnce(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SweepStatsResponse{
		Checked:     stats.Checked,
		Escalated:   stats.Escalated,
		Deescalated: stats.Deescalated,
		Errors:      stats.Errors,
	}})
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:               staff.ID,
		Name:             staff.Name,
		Email:            staff.Email,
		Role:             staff.Role,
		Level:            staff.Level,
		Category:         staff.Category,
		Active:           staff.Active,
		CurrentWorkload:  staff.CurrentWorkload,
		PerformanceScore: staff.PerformanceScore,
		CreatedAt:        staff.CreatedAt,
	}
}

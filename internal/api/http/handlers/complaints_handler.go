package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// ComplaintsHandler manages student complaint endpoints.
type ComplaintsHandler struct {
	complaints *service.ComplaintService
	ratings    *service.RatingService
	staff      *service.StaffService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaints *service.ComplaintService, ratings *service.RatingService, staff *service.StaffService) *ComplaintsHandler {
	return &ComplaintsHandler{complaints: complaints, ratings: ratings, staff: staff}
}

// ListCategories GET /categories.
func (h *ComplaintsHandler) ListCategories(c *fiber.Ctx) error {
	departments, err := h.staff.ListDepartments(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(departments))
	for _, dept := range departments {
		items = append(items, departmentResponse(&dept))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateComplaint POST /complaints.
func (h *ComplaintsHandler) CreateComplaint(c *fiber.Ctx) error {
	principal, err := studentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" || req.Category == "" {
		return apperrors.NewValidationError("title, description, category required", nil)
	}

	complaint, err := h.complaints.CreateComplaint(c.Context(), service.ComplaintCreateInput{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Priority:         req.Priority,
		StudentName:      req.StudentName,
		StudentEmail:     principal.StudentEmail,
		StudentCollegeID: req.StudentCollegeID,
		StudentPhone:     req.StudentPhone,
	})
	if err != nil {
		// A complaint that found no owner is still filed; tell the student
		// both things at once.
		if complaint != nil && apperrors.HasCode(err, apperrors.CodeNoStaffAvailable) {
			return c.Status(http.StatusCreated).JSON(fiber.Map{
				"data":    complaintSummary(complaint),
				"warning": "no staff currently available for this category; the complaint stays pending",
			})
		}
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// ListComplaints GET /complaints.
func (h *ComplaintsHandler) ListComplaints(c *fiber.Ctx) error {
	principal, err := studentPrincipal(c)
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	complaints, err := h.complaints.ListForStudent(c.Context(), principal.StudentEmail, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintSummary, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintSummary(&complaints[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetComplaint GET /complaints/:id.
func (h *ComplaintsHandler) GetComplaint(c *fiber.Ctx) error {
	principal, err := studentPrincipal(c)
	if err != nil {
		return err
	}
	complaint, history, err := h.complaints.GetForStudent(c.Context(), principal.StudentEmail, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint, history)})
}

// GetComplaintByKey GET /complaints/key/:key. Lets a student pull up a
// complaint from the CMP- reference on their filing receipt.
func (h *ComplaintsHandler) GetComplaintByKey(c *fiber.Ctx) error {
	principal, err := studentPrincipal(c)
	if err != nil {
		return err
	}
	complaint, history, err := h.complaints.GetForStudentByKey(c.Context(), principal.StudentEmail, c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint, history)})
}

// CloseComplaint POST /complaints/:id/close.
func (h *ComplaintsHandler) CloseComplaint(c *fiber.Ctx) error {
	principal, err := studentPrincipal(c)
	if err != nil {
		return err
	}
	complaint, err := h.complaints.Close(c.Context(), principal.StudentEmail, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// SubmitRating POST /complaints/:id/rating.
func (h *ComplaintsHandler) SubmitRating(c *fiber.Ctx) error {
	principal, err := studentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SubmitRatingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	complaint, err := h.ratings.SubmitRating(c.Context(), principal.StudentEmail, c.Params("id"), service.RatingInput{
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintDetail(complaint, nil)})
}

func studentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.StudentEmail == "" {
		return nil, apperrors.NewUnauthorized("student required")
	}
	return principal, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func complaintSummary(complaint *domain.Complaint) dto.ComplaintSummary {
	return dto.ComplaintSummary{
		ID:                complaint.ID,
		ExternalKey:       complaint.ExternalKey,
		Title:             complaint.Title,
		Category:          complaint.Category,
		Priority:          complaint.Priority,
		Status:            complaint.Status,
		AssignedStaffName: complaint.AssignedStaffName,
		EscalationLevel:   complaint.EscalationLevel,
		DueDate:           complaint.DueDate,
		CreatedAt:         complaint.CreatedAt,
		UpdatedAt:         complaint.UpdatedAt,
	}
}

func complaintDetail(complaint *domain.Complaint, history []domain.ComplaintHistory) dto.ComplaintDetailResponse {
	detail := dto.ComplaintDetailResponse{
		ID:                complaint.ID,
		ExternalKey:       complaint.ExternalKey,
		Title:             complaint.Title,
		Description:       complaint.Description,
		Category:          complaint.Category,
		Priority:          complaint.Priority,
		Status:            complaint.Status,
		StudentName:       complaint.StudentName,
		StudentEmail:      complaint.StudentEmail,
		AssignedStaffID:   complaint.AssignedStaffID,
		AssignedStaffName: complaint.AssignedStaffName,
		EscalationLevel:   complaint.EscalationLevel,
		DueDate:           complaint.DueDate,
		Resolution:        complaint.Resolution,
		CreatedAt:         complaint.CreatedAt,
		UpdatedAt:         complaint.UpdatedAt,
		ResolvedAt:        complaint.ResolvedAt,
		ClosedAt:          complaint.ClosedAt,
	}
	if complaint.Rating != nil {
		detail.Rating = &dto.RatingResponse{
			Score:   complaint.Rating.Score,
			Comment: complaint.Rating.Comment,
			RatedAt: complaint.Rating.RatedAt,
		}
	}
	for _, entry := range history {
		detail.History = append(detail.History, dto.ComplaintHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return detail
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:          dept.ID,
		Code:        dept.Code,
		Name:        dept.Name,
		Description: dept.Description,
		IsActive:    dept.IsActive,
	}
}

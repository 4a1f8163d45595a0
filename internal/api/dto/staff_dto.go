package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CreateStaffRequest is the admin payload for adding a staff member.
type CreateStaffRequest struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Role     domain.StaffRole  `json:"role"`
	Level    domain.StaffLevel `json:"level"`
	Category string            `json:"category"`
}

// UpdateStaffRequest is the admin payload for updating a staff member.
type UpdateStaffRequest struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Role     domain.StaffRole  `json:"role"`
	Level    domain.StaffLevel `json:"level"`
	Category string            `json:"category"`
	Active   bool              `json:"active"`
}

// StaffResponse is the staff projection.
type StaffResponse struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	Role             domain.StaffRole  `json:"role"`
	Level            domain.StaffLevel `json:"level"`
	Category         string            `json:"category"`
	Active           bool              `json:"active"`
	CurrentWorkload  int               `json:"current_workload"`
	PerformanceScore float64           `json:"performance_score"`
	CreatedAt        time.Time         `json:"created_at"`
}

// CreateDepartmentRequest registers a complaint category.
type CreateDepartmentRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateDepartmentRequest updates category metadata.
type UpdateDepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// DepartmentResponse is the category projection.
type DepartmentResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

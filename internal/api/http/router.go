package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Complaints      *handlers.ComplaintsHandler
	StaffComplaints *handlers.StaffComplaintsHandler
	Staff           *handlers.StaffHandler
	AuthMiddleware  *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/categories", cfg.Complaints.ListCategories)

	student := app.Group("/complaints", cfg.AuthMiddleware.Handle, auth.RequireStudent())
	student.Post("", cfg.Complaints.CreateComplaint)
	student.Get("", cfg.Complaints.ListComplaints)
	student.Get("/key/:key", cfg.Complaints.GetComplaintByKey)
	student.Get("/:id", cfg.Complaints.GetComplaint)
	student.Post("/:id/close", cfg.Complaints.CloseComplaint)
	student.Post("/:id/rating", cfg.Complaints.SubmitRating)

	staff := app.Group("/staff/complaints", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staff.Get("", cfg.StaffComplaints.ListComplaints)
	staff.Get("/:id", cfg.StaffComplaints.GetComplaint)
	staff.Post("/:id/start", cfg.StaffComplaints.StartProgress)
	staff.Post("/:id/resolve", cfg.StaffComplaints.ResolveComplaint)
	staff.Post("/:id/reject", cfg.StaffComplaints.RejectComplaint)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaffRole(domain.StaffRoleAdmin))
	admin.Post("/staff", cfg.Staff.CreateStaff)
	admin.Get("/staff", cfg.Staff.ListStaff)
	admin.Get("/staff/:id", cfg.Staff.GetStaff)
	admin.Put("/staff/:id", cfg.Staff.UpdateStaff)
	admin.Post("/departments", cfg.Staff.CreateDepartment)
	admin.Put("/departments/:code", cfg.Staff.UpdateDepartment)
	admin.Post("/complaints/:id/escalate", cfg.Staff.EscalateToNextTier)
	admin.Post("/sweeps", cfg.Staff.TriggerSweep)
}

package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/iiskills-cloud/appaccess/internal/pkg/admin"
)

// AdminController handles admin-related HTTP requests
type AdminController struct {
	admin *admin.Service
}

// NewAdminController creates a new admin controller
func NewAdminController(svc *admin.Service) *AdminController {
	return &AdminController{
		admin: svc,
	}
}

// HandleDashboard returns stats, bundle definitions and per-app counts
func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	snap, err := ac.admin.DashboardSnapshot(c.UserContext())
	if err != nil {
		return handleError(c, "admin dashboard", err)
	}
	return c.JSON(snap)
}

func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	stats, err := ac.admin.Stats(c.UserContext(), c.Query("app_id"))
	if err != nil {
		return handleError(c, "admin stats", err)
	}
	return c.JSON(stats)
}

type adminGrantRequest struct {
	UserID string `json:"user_id" validate:"required,max=191"`
	AppID  string `json:"app_id" validate:"required,max=100"`
}

func (ac *AdminController) HandleGrant(c *fiber.Ctx) error {
	var req adminGrantRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	g, err := ac.admin.AdminGrant(c.UserContext(), req.UserID, req.AppID)
	if err != nil {
		return handleError(c, "admin grant", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":          g.ID,
		"user_id":     g.UserID,
		"app_id":      g.AppID,
		"granted_via": g.GrantedVia,
		"granted_at":  g.GrantedAt,
		"is_active":   g.IsActive,
	})
}

// HandleRevoke is idempotent: revoking a missing grant answers 204 as well.
func (ac *AdminController) HandleRevoke(c *fiber.Ctx) error {
	if err := ac.admin.AdminRevoke(c.UserContext(), c.Params("userID"), c.Params("appID")); err != nil {
		return handleError(c, "admin revoke", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

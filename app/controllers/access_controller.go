package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
	"github.com/iiskills-cloud/appaccess/internal/pkg/catalog"
	"github.com/iiskills-cloud/appaccess/internal/pkg/usercontext"
)

// AccessController serves catalog reads and access checks for page guards.
type AccessController struct {
	store *access.Store
}

func NewAccessController(store *access.Store) *AccessController {
	return &AccessController{store: store}
}

func (ac *AccessController) HandleListApps(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"apps": ac.store.Catalog().Apps()})
}

type bundleResponse struct {
	catalog.Bundle
	OfferActive bool `json:"offer_active"`
}

func (ac *AccessController) HandleListBundles(c *fiber.Ctx) error {
	today := time.Now()
	bundles := ac.store.Catalog().Bundles()
	out := make([]bundleResponse, 0, len(bundles))
	for _, b := range bundles {
		out = append(out, bundleResponse{Bundle: b, OfferActive: b.IsOfferActive(today)})
	}
	return c.JSON(fiber.Map{"bundles": out})
}

// HandleCheckAccess answers the page guard. A storage failure is reported as
// no access, the same gate an unpaid user sees.
func (ac *AccessController) HandleCheckAccess(c *fiber.Ctx) error {
	appID := c.Params("appID")
	userID := usercontext.GetUserID(c)

	ok, err := ac.store.CheckAccess(c.UserContext(), userID, appID)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownApp) {
			return jsonError(c, fiber.StatusNotFound, "not_found", err.Error())
		}
		fiberlog.Warnf("access check degraded to deny user=%s app=%s: %v", userID, appID, err)
	}
	return c.JSON(fiber.Map{"app_id": appID, "has_access": ok})
}

func (ac *AccessController) HandleMyApps(c *fiber.Ctx) error {
	apps, err := ac.store.ListUserApps(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return handleError(c, "list user apps", err)
	}
	return c.JSON(fiber.Map{"apps": apps})
}

func (ac *AccessController) HandleMyAccess(c *fiber.Ctx) error {
	summary, err := ac.store.Summary(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return handleError(c, "access summary", err)
	}
	return c.JSON(fiber.Map{"access": summary})
}

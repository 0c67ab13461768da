package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
	"github.com/iiskills-cloud/appaccess/internal/pkg/payments"
)

const headerPaymentSignature = "X-Payment-Signature"

type PaymentController struct {
	payments      *payments.Service
	webhookSecret string
}

// NewPaymentController creates the confirmation endpoint. An empty secret
// disables signature checks.
func NewPaymentController(svc *payments.Service, webhookSecret string) *PaymentController {
	return &PaymentController{payments: svc, webhookSecret: webhookSecret}
}

// HandleConfirm unlocks the purchased app and its bundle. The response is 200
// whenever the purchased app itself was granted, even if a sibling failed.
func (pc *PaymentController) HandleConfirm(c *fiber.Ctx) error {
	if pc.webhookSecret != "" {
		if !payments.VerifySignature(c.Body(), c.Get(headerPaymentSignature), pc.webhookSecret) {
			return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "Payment signature verification failed")
		}
	}

	var req payments.Confirmation
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	res, err := pc.payments.Confirm(c.UserContext(), req)
	if err != nil && !errors.Is(err, access.ErrPartialBundleGrant) {
		return handleError(c, "confirm payment "+req.PaymentID, err)
	}

	body := fiber.Map{
		"status":       "ok",
		"bundled_apps": res.BundledApps,
		"granted_apps": res.GrantedAppIDs(),
		"failed_apps":  res.FailedAppIDs(),
		"message":      "Access granted",
	}
	if err == nil {
		return c.JSON(body)
	}

	if !res.PurchasedGranted() {
		fiberlog.Errorf("payment %s: purchased app %s not granted: %v", req.PaymentID, req.AppID, err)
		body["status"] = "failed"
		body["message"] = "Access could not be granted yet, please retry"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}

	body["status"] = "partial"
	body["message"] = "Purchased app granted, some bundled apps are pending"
	return c.JSON(body)
}

// Package payments turns a confirmed payment into access grants.
package payments

import (
	"context"
	"errors"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/iiskills-cloud/appaccess/app/repository"
	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
)

// Confirmation is a payment the upstream gateway integration has verified.
type Confirmation struct {
	UserID    string `json:"user_id" validate:"required,max=191"`
	AppID     string `json:"app_id" validate:"required,max=100"`
	PaymentID string `json:"payment_id" validate:"required,max=191"`
}

type invalidator interface {
	Invalidate(ctx context.Context)
}

// Retrier schedules the failed writes of a partial bundle grant.
type Retrier interface {
	RetryFailed(ctx context.Context, res access.BundleResult) error
}

type Service struct {
	store    *access.Store
	payments repository.PaymentRepository
	stats    invalidator
	retrier  Retrier
}

// NewService wires the confirmation flow. payments and stats may be nil.
func NewService(store *access.Store, payments repository.PaymentRepository, stats invalidator) *Service {
	return &Service{store: store, payments: payments, stats: stats}
}

// SetRetrier enables background retries for partially failed bundles.
func (s *Service) SetRetrier(r Retrier) {
	s.retrier = r
}

// Confirm grants the purchased app and its bundle siblings, then annotates
// the payment record. A partial result is returned together with its error so
// the caller can tell the user their purchase went through.
func (s *Service) Confirm(ctx context.Context, in Confirmation) (access.BundleResult, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.AppID = strings.TrimSpace(in.AppID)
	in.PaymentID = strings.TrimSpace(in.PaymentID)

	res, err := s.store.GrantBundle(ctx, in.UserID, in.AppID, in.PaymentID)
	if len(res.Granted) > 0 && s.stats != nil {
		s.stats.Invalidate(ctx)
	}
	if err != nil && !errors.Is(err, access.ErrPartialBundleGrant) {
		return res, err
	}

	if err != nil && s.retrier != nil {
		if rerr := s.retrier.RetryFailed(ctx, res); rerr != nil {
			fiberlog.Errorf("[Payments] could not schedule retry for payment %s: %v", in.PaymentID, rerr)
		}
	}

	if s.payments != nil && len(res.Granted) > 0 {
		if uerr := s.payments.UpdateBundleInfo(ctx, in.PaymentID, res.BundledApps); uerr != nil {
			fiberlog.Warnf("[Payments] could not annotate payment %s with bundle apps: %v", in.PaymentID, uerr)
		}
	}
	return res, err
}

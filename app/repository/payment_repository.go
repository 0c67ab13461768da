package repository

import (
	"context"
	"encoding/json"
	"sync"

	"gorm.io/gorm"

	"github.com/iiskills-cloud/appaccess/app/models"
)

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// UpdateBundleInfo stores the unlocked app ids as a JSON array on the payment
// row. A payment id with no row yields ErrNotFound.
func (r *paymentRepository) UpdateBundleInfo(ctx context.Context, paymentID string, bundledApps []string) error {
	raw, err := json.Marshal(bundledApps)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("payment_id = ?", paymentID).
		Update("bundle_apps", string(raw))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type memoryPaymentRepository struct {
	mu      sync.Mutex
	bundles map[string][]string
}

// NewMemoryPaymentRepository records annotations in memory. Unlike the SQL
// variant it accepts any payment id.
func NewMemoryPaymentRepository() PaymentRepository {
	return &memoryPaymentRepository{bundles: make(map[string][]string)}
}

func (r *memoryPaymentRepository) UpdateBundleInfo(ctx context.Context, paymentID string, bundledApps []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundles[paymentID] = append([]string(nil), bundledApps...)
	return nil
}

// BundleInfo returns the apps last recorded for paymentID.
func (r *memoryPaymentRepository) BundleInfo(paymentID string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apps, ok := r.bundles[paymentID]
	return append([]string(nil), apps...), ok
}

// BundleInfoReader is implemented by the in-memory payment repository.
type BundleInfoReader interface {
	BundleInfo(paymentID string) ([]string, bool)
}

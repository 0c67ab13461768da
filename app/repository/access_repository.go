package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iiskills-cloud/appaccess/app/models"
	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
)

// accessRepository implements AccessRepository with GORM.
type accessRepository struct {
	db *gorm.DB
}

// NewAccessRepository creates a new access repository instance
func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &accessRepository{db: db}
}

func (r *accessRepository) Upsert(ctx context.Context, g entitlements.Grant) (entitlements.Grant, error) {
	row := fromGrant(g)
	row.ID = uuid.NewString()
	row.IsActive = true
	row.RevokedAt = nil
	row.RevokeReason = nil

	// Single INSERT .. ON DUPLICATE KEY UPDATE; the id column is never updated
	// so a reactivated row keeps its identity.
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "app_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"granted_via",
			"payment_id",
			"expires_at",
			"is_active",
			"access_granted_at",
			"revoked_at",
			"revoke_reason",
			"updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return entitlements.Grant{}, translate(err)
	}

	return r.Get(ctx, g.UserID, g.AppID)
}

func (r *accessRepository) Get(ctx context.Context, userID, appID string) (entitlements.Grant, error) {
	var row models.UserAppAccess
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND app_id = ?", userID, appID).
		First(&row).Error
	if err != nil {
		return entitlements.Grant{}, translate(err)
	}
	return toGrant(row), nil
}

func (r *accessRepository) Deactivate(ctx context.Context, userID, appID, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UserAppAccess{}).
		Where("user_id = ? AND app_id = ? AND is_active = ?", userID, appID, true).
		Updates(map[string]interface{}{
			"is_active":     false,
			"revoked_at":    at,
			"revoke_reason": reason,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *accessRepository) ListByUser(ctx context.Context, userID string) ([]entitlements.Grant, error) {
	var rows []models.UserAppAccess
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("access_granted_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	out := make([]entitlements.Grant, 0, len(rows))
	for _, row := range rows {
		out = append(out, toGrant(row))
	}
	return out, nil
}

func (r *accessRepository) CountActive(ctx context.Context, appID string, now time.Time) ([]GrantCount, error) {
	var rows []struct {
		AppID      string
		GrantedVia string
		Count      int64
	}

	q := r.db.WithContext(ctx).
		Model(&models.UserAppAccess{}).
		Select("app_id, granted_via, COUNT(*) AS count").
		Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, now)
	if appID != "" {
		q = q.Where("app_id = ?", appID)
	}
	if err := q.Group("app_id, granted_via").Scan(&rows).Error; err != nil {
		return nil, translate(err)
	}

	out := make([]GrantCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, GrantCount{
			AppID:      row.AppID,
			GrantedVia: entitlements.GrantedVia(row.GrantedVia),
			Count:      row.Count,
		})
	}
	return out, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func toGrant(row models.UserAppAccess) entitlements.Grant {
	g := entitlements.Grant{
		ID:         row.ID,
		UserID:     row.UserID,
		AppID:      row.AppID,
		GrantedVia: entitlements.GrantedVia(row.GrantedVia),
		IsActive:   row.IsActive,
		GrantedAt:  row.AccessGrantedAt,
		ExpiresAt:  row.ExpiresAt,
		RevokedAt:  row.RevokedAt,
	}
	if row.PaymentID != nil {
		g.PaymentID = *row.PaymentID
	}
	if row.RevokeReason != nil {
		g.RevokeReason = *row.RevokeReason
	}
	return g
}

func fromGrant(g entitlements.Grant) models.UserAppAccess {
	row := models.UserAppAccess{
		ID:              g.ID,
		UserID:          g.UserID,
		AppID:           g.AppID,
		GrantedVia:      string(g.GrantedVia),
		ExpiresAt:       g.ExpiresAt,
		IsActive:        g.IsActive,
		AccessGrantedAt: g.GrantedAt,
		RevokedAt:       g.RevokedAt,
	}
	if g.PaymentID != "" {
		p := g.PaymentID
		row.PaymentID = &p
	}
	if g.RevokeReason != "" {
		r := g.RevokeReason
		row.RevokeReason = &r
	}
	return row
}

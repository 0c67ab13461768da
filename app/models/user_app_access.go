package models

import "time"

// UserAppAccess is one row per (user, app). Re-granting updates the row in
// place, so the pair is unique regardless of is_active.
type UserAppAccess struct {
	ID              string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          string     `gorm:"type:varchar(191);not null;index:ux_user_app_access_user_app,unique,priority:1" json:"user_id"`
	AppID           string     `gorm:"type:varchar(100);not null;index:ux_user_app_access_user_app,unique,priority:2;index:idx_user_app_access_app_active,priority:1" json:"app_id"`
	GrantedVia      string     `gorm:"type:varchar(20);not null;index" json:"granted_via"`
	PaymentID       *string    `gorm:"type:varchar(191);index" json:"payment_id,omitempty"`
	ExpiresAt       *time.Time `gorm:"type:datetime NULL" json:"expires_at,omitempty"`
	IsActive        bool       `gorm:"not null;index:idx_user_app_access_app_active,priority:2" json:"is_active"`
	AccessGrantedAt time.Time  `gorm:"column:access_granted_at;not null" json:"access_granted_at"`
	RevokedAt       *time.Time `gorm:"type:datetime NULL" json:"revoked_at,omitempty"`
	RevokeReason    *string    `gorm:"type:varchar(100)" json:"revoke_reason,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserAppAccess) TableName() string {
	return "user_app_access"
}

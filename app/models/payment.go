package models

import "time"

// Payment maps the externally owned payments table. Only BundleApps is ever
// written from this service.
type Payment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PaymentID  string    `gorm:"type:varchar(191);uniqueIndex" json:"payment_id"`
	UserID     string    `gorm:"type:varchar(191);index" json:"user_id"`
	AppID      string    `gorm:"type:varchar(100)" json:"app_id"`
	BundleApps string    `gorm:"type:text" json:"bundle_apps"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

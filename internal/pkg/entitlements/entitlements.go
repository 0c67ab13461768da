package entitlements

import (
	"fmt"
	"strings"
	"time"
)

// GrantedVia is the provenance of an access grant. It is a closed set: stats
// buckets and stored rows only ever carry one of these values.
type GrantedVia string

const (
	ViaPayment     GrantedVia = "payment"
	ViaBundle      GrantedVia = "bundle"
	ViaAdmin       GrantedVia = "admin"
	ViaPromotional GrantedVia = "promotional"
	ViaFree        GrantedVia = "free"
)

// AllGrantedVia lists every provenance in display order.
var AllGrantedVia = []GrantedVia{ViaPayment, ViaBundle, ViaAdmin, ViaPromotional, ViaFree}

func (v GrantedVia) Valid() bool {
	switch v {
	case ViaPayment, ViaBundle, ViaAdmin, ViaPromotional, ViaFree:
		return true
	default:
		return false
	}
}

// Persistable reports whether a grant with this provenance may be stored.
// Free access is derived from the catalog and never written.
func (v GrantedVia) Persistable() bool {
	return v.Valid() && v != ViaFree
}

func ParseGrantedVia(s string) (GrantedVia, error) {
	v := GrantedVia(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown granted_via %q", s)
	}
	return v, nil
}

// Grant is the durable record that a user may use a paid app.
type Grant struct {
	ID           string
	UserID       string
	AppID        string
	GrantedVia   GrantedVia
	PaymentID    string
	IsActive     bool
	GrantedAt    time.Time
	ExpiresAt    *time.Time
	RevokedAt    *time.Time
	RevokeReason string
}

// ExpiredAt reports whether the grant's expiry lies at or before now.
func (g Grant) ExpiredAt(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// Usable reports whether the grant currently confers access.
func (g Grant) Usable(now time.Time) bool {
	return g.IsActive && !g.ExpiredAt(now)
}

type Reason string

const (
	ReasonFree        Reason = "free"
	ReasonPayment     Reason = "payment"
	ReasonBundle      Reason = "bundle"
	ReasonAdmin       Reason = "admin"
	ReasonPromotional Reason = "promotional"
	ReasonExpired     Reason = "expired"
	ReasonNoGrant     Reason = "no_grant"
	ReasonInactive    Reason = "inactive"
)

func reasonFor(v GrantedVia) Reason {
	return Reason(v)
}

// Decision is the outcome of classifying one app for one user.
type Decision struct {
	HasAccess bool   `json:"has_access"`
	Reason    Reason `json:"reason"`
}

// AppAccess is one line of a user's "my apps" view.
type AppAccess struct {
	AppID     string `json:"app_id"`
	HasAccess bool   `json:"has_access"`
	Reason    Reason `json:"reason"`
}

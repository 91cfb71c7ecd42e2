package model

import (
	"time"
)

// SubscriptionStatus is the billing state reported by RevenueCat.
type SubscriptionStatus string

const (
	SubscriptionActive       SubscriptionStatus = "active"
	SubscriptionExpired      SubscriptionStatus = "expired"
	SubscriptionCancelled    SubscriptionStatus = "cancelled"
	SubscriptionBillingIssue SubscriptionStatus = "billing_issue"
)

// Subscription is keyed by the RevenueCat app user id, which is either a user id
// or, for purchases made before sign-in, a device id.
type Subscription struct {
	ID        string             `db:"id" json:"id"`
	UserID    *string            `db:"user_id" json:"userId,omitempty"`
	DeviceID  *string            `db:"device_id" json:"deviceId,omitempty"`
	Status    SubscriptionStatus `db:"status" json:"status"`
	ProductID string             `db:"product_id" json:"productId"`
	ExpiresAt time.Time          `db:"expires_at" json:"expiresAt"`
	WillRenew bool               `db:"will_renew" json:"willRenew"`
	CreatedAt time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `db:"updated_at" json:"updatedAt"`
}

// IsActive reports whether the subscription grants access at now.
// A cancelled subscription keeps access until the paid period ends.
func (s *Subscription) IsActive(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != SubscriptionActive && s.Status != SubscriptionCancelled {
		return false
	}
	return s.ExpiresAt.After(now)
}

// SubscriptionSummary is the subscription block of GET /api/auth/me.
type SubscriptionSummary struct {
	IsActive  bool       `json:"isActive"`
	ProductID string     `json:"productId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	WillRenew bool       `json:"willRenew"`
}

// RevenueCat webhook event types we act on.
const (
	RCEventInitialPurchase = "INITIAL_PURCHASE"
	RCEventRenewal         = "RENEWAL"
	RCEventUncancellation  = "UNCANCELLATION"
	RCEventProductChange   = "PRODUCT_CHANGE"
	RCEventCancellation    = "CANCELLATION"
	RCEventExpiration      = "EXPIRATION"
	RCEventBillingIssue    = "BILLING_ISSUE"
	RCEventTest            = "TEST"
)

// RevenueCatWebhook is the body RevenueCat posts to /api/webhooks/revenuecat.
type RevenueCatWebhook struct {
	Event RevenueCatEvent `json:"event" validate:"required"`
}

// RevenueCatEvent is one webhook event. ExpirationAtMs is 0 (null) for non-renewing purchases.
type RevenueCatEvent struct {
	ID             string `json:"id"`
	Type           string `json:"type" validate:"required"`
	AppUserID      string `json:"app_user_id" validate:"required"`
	ProductID      string `json:"product_id"`
	PurchasedAtMs  int64  `json:"purchased_at_ms" validate:"gte=0"`
	ExpirationAtMs int64  `json:"expiration_at_ms" validate:"gte=0"`
}

// LifetimeExpiry is stored for purchases that never expire.
var LifetimeExpiry = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

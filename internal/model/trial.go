package model

import (
	"errors"
	"math"
	"time"
)

// Trial is the single free trial a user may ever start.
// Used means "ever started", it is set together with the start time.
type Trial struct {
	UserID         string     `db:"user_id" json:"-"`
	TrialStartedAt *time.Time `db:"trial_started_at" json:"startsAt"`
	TrialEndsAt    *time.Time `db:"trial_ends_at" json:"endsAt"`
	TrialUsed      bool       `db:"trial_used" json:"used"`
}

// IsActive is independent of TrialUsed.
func (t *Trial) IsActive(now time.Time) bool {
	if t == nil || t.TrialStartedAt == nil || t.TrialEndsAt == nil {
		return false
	}
	return t.TrialEndsAt.After(now)
}

// DaysRemaining rounds partial days up and never goes negative.
func (t *Trial) DaysRemaining(now time.Time) int {
	if !t.IsActive(now) {
		return 0
	}
	return int(math.Ceil(t.TrialEndsAt.Sub(now).Hours() / 24))
}

// TrialStatus is the trial block returned by /api/auth/me and GET /api/trial.
type TrialStatus struct {
	IsActive      bool       `json:"isActive"`
	DaysRemaining int        `json:"daysRemaining"`
	StartsAt      *time.Time `json:"startsAt"`
	EndsAt        *time.Time `json:"endsAt"`
	Used          bool       `json:"used"`
}

// NewTrialStatus summarizes t at now. A nil trial means the user never started one.
func NewTrialStatus(t *Trial, now time.Time) TrialStatus {
	if t == nil {
		return TrialStatus{}
	}
	return TrialStatus{
		IsActive:      t.IsActive(now),
		DaysRemaining: t.DaysRemaining(now),
		StartsAt:      t.TrialStartedAt,
		EndsAt:        t.TrialEndsAt,
		Used:          t.TrialUsed,
	}
}

// StartTrialResponse is returned by POST /api/trial.
type StartTrialResponse struct {
	Success bool        `json:"success"`
	Trial   TrialStatus `json:"trial"`
}

// MeResponse is returned by GET /api/auth/me.
type MeResponse struct {
	User         *User               `json:"user"`
	Subscription SubscriptionSummary `json:"subscription"`
	Trial        TrialStatus         `json:"trial"`
	HasAccess    bool                `json:"hasAccess"`
}

var (
	// ErrTrialAlreadyUsed is returned when a user asks for a second trial
	ErrTrialAlreadyUsed = errors.New("trial already used")

	// ErrNoEntitlement is returned when neither a subscription nor a trial grants access
	ErrNoEntitlement = errors.New("no active subscription or trial")
)

// Entitlement API error codes
const (
	CodeTrialAlreadyUsed = "TRIAL_ALREADY_USED"
	CodePaymentRequired  = "PAYMENT_REQUIRED"
)

package repository

import (
	"context"
	"time"

	"fastflix/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByProvider(ctx context.Context, provider model.AuthProvider, providerUserID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateProfile fills in profile fields that are still empty; existing values are kept.
	UpdateProfile(ctx context.Context, id string, email, name, avatarURL *string) error
}

type SubscriptionRepository interface {
	// Upsert writes the subscription row keyed by sub.ID.
	Upsert(ctx context.Context, sub *model.Subscription) error
	// GetCurrentForUser returns the user's subscription that grants access at now, falling back
	// to the one with the furthest expiry. nil if the user has none.
	GetCurrentForUser(ctx context.Context, userID string, now time.Time) (*model.Subscription, error)
	// AttachDevice links anonymous subscriptions bought on deviceID to userID.
	AttachDevice(ctx context.Context, deviceID, userID string) (int64, error)
	// ExpireOverdue marks active/cancelled subscriptions past their expiry as expired.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type TrialRepository interface {
	// Get returns the user's trial row, or nil if the user never started one.
	Get(ctx context.Context, userID string) (*model.Trial, error)
	// Start records the trial start. It returns model.ErrTrialAlreadyUsed if the row is already used.
	Start(ctx context.Context, userID string, startedAt, endsAt time.Time) (*model.Trial, error)
}

type WatchlistRepository interface {
	Add(ctx context.Context, item *model.WatchlistItem) error
	Remove(ctx context.Context, userID string, tmdbID int64, mediaType string) error
	List(ctx context.Context, userID string) ([]model.WatchlistItem, error)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"fastflix/internal/model"
)

type subscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert inserts the subscription or overwrites the billing fields of the existing row.
// user_id is never cleared once set.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) error {
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO subscriptions (id, user_id, device_id, status, product_id, expires_at, will_renew, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = COALESCE(excluded.user_id, subscriptions.user_id),
			device_id = COALESCE(excluded.device_id, subscriptions.device_id),
			status = excluded.status,
			product_id = excluded.product_id,
			expires_at = excluded.expires_at,
			will_renew = excluded.will_renew,
			updated_at = excluded.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.DeviceID,
		sub.Status,
		sub.ProductID,
		sub.ExpiresAt.UTC(),
		sub.WillRenew,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// GetCurrentForUser ranks granting rows first so an attached device purchase in a
// non-granting state cannot hide a live subscription.
func (r *subscriptionRepository) GetCurrentForUser(ctx context.Context, userID string, now time.Time) (*model.Subscription, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, device_id, status, product_id, expires_at, will_renew, created_at, updated_at
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY CASE WHEN status IN (?, ?) AND expires_at > ? THEN 0 ELSE 1 END, expires_at DESC
		LIMIT 1
	`)
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, query, userID,
		model.SubscriptionActive, model.SubscriptionCancelled, now.UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) AttachDevice(ctx context.Context, deviceID, userID string) (int64, error) {
	query := r.db.Rebind(`
		UPDATE subscriptions
		SET user_id = ?, updated_at = ?
		WHERE device_id = ? AND user_id IS NULL
	`)
	result, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC(), deviceID)
	if err != nil {
		return 0, fmt.Errorf("attach device subscriptions: %w", err)
	}
	return result.RowsAffected()
}

func (r *subscriptionRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := r.db.Rebind(`
		UPDATE subscriptions
		SET status = ?, updated_at = ?
		WHERE status IN (?, ?) AND expires_at < ?
	`)
	now = now.UTC()
	result, err := r.db.ExecContext(ctx, query,
		model.SubscriptionExpired, now,
		model.SubscriptionActive, model.SubscriptionCancelled, now,
	)
	if err != nil {
		return 0, fmt.Errorf("expire overdue subscriptions: %w", err)
	}
	return result.RowsAffected()
}

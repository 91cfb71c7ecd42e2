package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"fastflix/internal/model"
	"fastflix/internal/repository"
)

// DeviceIDPrefix marks RevenueCat app user ids that are device ids rather than user ids.
const DeviceIDPrefix = "ffx_device_"

// SubscriptionService applies RevenueCat webhook events to the subscriptions table.
type SubscriptionService struct {
	subRepo  repository.SubscriptionRepository
	userRepo repository.UserRepository
	now      func() time.Time
}

func NewSubscriptionService(subRepo repository.SubscriptionRepository, userRepo repository.UserRepository) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo, userRepo: userRepo, now: time.Now}
}

// ApplyEvent returns applied=false for events that carry no billing state change.
func (s *SubscriptionService) ApplyEvent(ctx context.Context, event *model.RevenueCatEvent) (bool, error) {
	status, willRenew, ok := statusForEvent(event.Type)
	if !ok {
		log.Printf("[SubscriptionService] Ignoring event: type=%s id=%s", event.Type, event.ID)
		return false, nil
	}
	if event.AppUserID == "" {
		return false, errors.New("event has no app_user_id")
	}

	sub := &model.Subscription{
		ID:        event.AppUserID,
		Status:    status,
		ProductID: event.ProductID,
		ExpiresAt: s.expiresAt(event, status),
		WillRenew: willRenew,
	}

	if strings.HasPrefix(event.AppUserID, DeviceIDPrefix) {
		sub.DeviceID = &event.AppUserID
	} else {
		user, err := s.userRepo.GetByID(ctx, event.AppUserID)
		switch {
		case err == nil:
			sub.UserID = &user.ID
		case errors.Is(err, model.ErrUserNotFound):
			// Unknown ids are kept so the purchase can be linked later.
			log.Printf("[SubscriptionService] Unknown app_user_id: id=%s", event.AppUserID)
		default:
			return false, fmt.Errorf("look up subscriber: %w", err)
		}
	}

	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return false, err
	}

	log.Printf("[SubscriptionService] ApplyEvent OK: type=%s subscriber=%s status=%s expires=%s",
		event.Type, event.AppUserID, status, sub.ExpiresAt.Format(time.RFC3339))
	return true, nil
}

// ExpireOverdue is run by the expiry sweep job.
func (s *SubscriptionService) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.subRepo.ExpireOverdue(ctx, s.now())
}

// expiresAt handles events without an expiration: a granting event is a non-renewing
// purchase that never lapses, anything else ends access now.
func (s *SubscriptionService) expiresAt(event *model.RevenueCatEvent, status model.SubscriptionStatus) time.Time {
	if event.ExpirationAtMs > 0 {
		return time.UnixMilli(event.ExpirationAtMs).UTC()
	}
	if status == model.SubscriptionActive {
		return model.LifetimeExpiry
	}
	return s.now().UTC()
}

func statusForEvent(eventType string) (model.SubscriptionStatus, bool, bool) {
	switch eventType {
	case model.RCEventInitialPurchase, model.RCEventRenewal, model.RCEventUncancellation, model.RCEventProductChange:
		return model.SubscriptionActive, true, true
	case model.RCEventCancellation:
		return model.SubscriptionCancelled, false, true
	case model.RCEventExpiration:
		return model.SubscriptionExpired, false, true
	case model.RCEventBillingIssue:
		return model.SubscriptionBillingIssue, false, true
	default:
		return "", false, false
	}
}

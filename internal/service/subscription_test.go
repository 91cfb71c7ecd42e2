package service

import (
	"context"
	"testing"
	"time"

	"fastflix/internal/model"
)

func TestSubscriptionService_ApplyEvent(t *testing.T) {
	expires := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		eventType string
		status    model.SubscriptionStatus
		willRenew bool
	}{
		{model.RCEventInitialPurchase, model.SubscriptionActive, true},
		{model.RCEventRenewal, model.SubscriptionActive, true},
		{model.RCEventCancellation, model.SubscriptionCancelled, false},
		{model.RCEventExpiration, model.SubscriptionExpired, false},
		{model.RCEventBillingIssue, model.SubscriptionBillingIssue, false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			subRepo := &mockSubscriptionRepository{}
			userRepo := &mockUserRepository{
				getByIDFn: func(ctx context.Context, id string) (*model.User, error) {
					return &model.User{ID: id}, nil
				},
			}
			svc := NewSubscriptionService(subRepo, userRepo)

			applied, err := svc.ApplyEvent(context.Background(), &model.RevenueCatEvent{
				Type:           tt.eventType,
				AppUserID:      "user-1",
				ProductID:      "ffx_monthly",
				ExpirationAtMs: expires.UnixMilli(),
			})

			if err != nil || !applied {
				t.Fatalf("applied=%t err=%v, want applied", applied, err)
			}
			got := subRepo.upserted[0]
			if got.Status != tt.status || got.WillRenew != tt.willRenew {
				t.Errorf("status=%s willRenew=%t, want %s/%t", got.Status, got.WillRenew, tt.status, tt.willRenew)
			}
			if got.UserID == nil || *got.UserID != "user-1" {
				t.Errorf("user_id = %v, want user-1", got.UserID)
			}
			if !got.ExpiresAt.Equal(expires) {
				t.Errorf("expires = %v, want %v", got.ExpiresAt, expires)
			}
		})
	}
}

func TestSubscriptionService_ApplyEvent_DeviceID(t *testing.T) {
	subRepo := &mockSubscriptionRepository{}
	svc := NewSubscriptionService(subRepo, &mockUserRepository{})

	_, err := svc.ApplyEvent(context.Background(), &model.RevenueCatEvent{
		Type:           model.RCEventInitialPurchase,
		AppUserID:      "ffx_device_lx3k2a_0123456789abcdef",
		ExpirationAtMs: time.Now().Add(time.Hour).UnixMilli(),
	})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	got := subRepo.upserted[0]
	if got.DeviceID == nil || got.UserID != nil {
		t.Errorf("device_id=%v user_id=%v, want device only", got.DeviceID, got.UserID)
	}
}

func TestSubscriptionService_ApplyEvent_Ignored(t *testing.T) {
	subRepo := &mockSubscriptionRepository{}
	svc := NewSubscriptionService(subRepo, &mockUserRepository{})

	applied, err := svc.ApplyEvent(context.Background(), &model.RevenueCatEvent{Type: model.RCEventTest, AppUserID: "x"})

	if err != nil || applied {
		t.Errorf("applied=%t err=%v, want ignored", applied, err)
	}
	if len(subRepo.upserted) != 0 {
		t.Errorf("Upsert called %d times, want 0", len(subRepo.upserted))
	}
}

func TestSubscriptionService_ApplyEvent_NoExpiration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		eventType string
		want      time.Time
	}{
		{"non-renewing purchase never lapses", model.RCEventInitialPurchase, model.LifetimeExpiry},
		{"expiration ends access now", model.RCEventExpiration, now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subRepo := &mockSubscriptionRepository{}
			svc := NewSubscriptionService(subRepo, &mockUserRepository{})
			svc.now = func() time.Time { return now }

			_, err := svc.ApplyEvent(context.Background(), &model.RevenueCatEvent{
				Type:      tt.eventType,
				AppUserID: "ffx_device_lx3k2a_0123456789abcdef",
				ProductID: "ffx_lifetime",
			})

			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			got := subRepo.upserted[0]
			if !got.ExpiresAt.Equal(tt.want) {
				t.Errorf("expires = %v, want %v", got.ExpiresAt, tt.want)
			}
			if got.ExpiresAt.Year() == 1970 {
				t.Error("zero expiration stored as the Unix epoch")
			}
		})
	}
}

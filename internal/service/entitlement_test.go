package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fastflix/internal/model"
)

func newTestEntitlementService(userRepo *mockUserRepository, subRepo *mockSubscriptionRepository, trialRepo *mockTrialRepository) *EntitlementService {
	if userRepo == nil {
		userRepo = &mockUserRepository{}
	}
	if subRepo == nil {
		subRepo = &mockSubscriptionRepository{}
	}
	if trialRepo == nil {
		trialRepo = newMockTrialRepository()
	}
	return NewEntitlementService(userRepo, subRepo, trialRepo, testConfig())
}

// =============================================================================
// ACCESS TESTS
// =============================================================================

func TestEntitlementService_HasAccess_NoEntitlement(t *testing.T) {
	svc := newTestEntitlementService(nil, nil, nil)

	ok, err := svc.HasAccess(context.Background(), "user-1")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ok {
		t.Error("expected no access without subscription or trial")
	}
}

// A started trial is marked used, and it must still grant access until it ends.
func TestEntitlementService_HasAccess_UsedTrialStillActive(t *testing.T) {
	trials := newMockTrialRepository()
	started := time.Now().Add(-24 * time.Hour)
	ends := time.Now().Add(48 * time.Hour)
	trials.trials["user-1"] = &model.Trial{UserID: "user-1", TrialStartedAt: &started, TrialEndsAt: &ends, TrialUsed: true}
	svc := newTestEntitlementService(nil, nil, trials)

	ok, err := svc.HasAccess(context.Background(), "user-1")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !ok {
		t.Error("expected access during an active trial")
	}
}

func TestEntitlementService_HasAccess_Subscription(t *testing.T) {
	tests := []struct {
		name   string
		sub    *model.Subscription
		access bool
	}{
		{"active", &model.Subscription{Status: model.SubscriptionActive, ExpiresAt: time.Now().Add(time.Hour)}, true},
		{"cancelled but paid", &model.Subscription{Status: model.SubscriptionCancelled, ExpiresAt: time.Now().Add(time.Hour)}, true},
		{"active but lapsed", &model.Subscription{Status: model.SubscriptionActive, ExpiresAt: time.Now().Add(-time.Hour)}, false},
		{"expired", &model.Subscription{Status: model.SubscriptionExpired, ExpiresAt: time.Now().Add(time.Hour)}, false},
		{"billing issue", &model.Subscription{Status: model.SubscriptionBillingIssue, ExpiresAt: time.Now().Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestEntitlementService(nil, &mockSubscriptionRepository{latest: tt.sub}, nil)

			ok, err := svc.HasAccess(context.Background(), "user-1")

			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if ok != tt.access {
				t.Errorf("HasAccess = %t, want %t", ok, tt.access)
			}
		})
	}
}

func TestEntitlementService_HasAccess_AdminOverride(t *testing.T) {
	userRepo := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: strPtr("Boss@FastFlix.app")}, nil
		},
	}
	svc := newTestEntitlementService(userRepo, nil, nil)
	svc.config.AdminEmails = []string{"boss@fastflix.app"}

	ok, err := svc.HasAccess(context.Background(), "user-1")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !ok {
		t.Error("expected admin email to bypass entitlement")
	}
}

// =============================================================================
// TRIAL TESTS
// =============================================================================

func TestEntitlementService_StartTrial(t *testing.T) {
	svc := newTestEntitlementService(nil, nil, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	status, err := svc.StartTrial(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !status.IsActive || !status.Used {
		t.Errorf("status = %+v, want active and used", status)
	}
	if status.DaysRemaining != 7 {
		t.Errorf("daysRemaining = %d, want 7", status.DaysRemaining)
	}
	if !status.EndsAt.Equal(now.AddDate(0, 0, 7)) {
		t.Errorf("endsAt = %v, want %v", status.EndsAt, now.AddDate(0, 0, 7))
	}
}

func TestEntitlementService_StartTrial_OnlyOnce(t *testing.T) {
	svc := newTestEntitlementService(nil, nil, nil)

	if _, err := svc.StartTrial(context.Background(), "user-1"); err != nil {
		t.Fatalf("first StartTrial: %v", err)
	}
	_, err := svc.StartTrial(context.Background(), "user-1")

	if !errors.Is(err, model.ErrTrialAlreadyUsed) {
		t.Errorf("error = %v, want %v", err, model.ErrTrialAlreadyUsed)
	}
}

func TestEntitlementService_TrialStatus_Expired(t *testing.T) {
	svc := newTestEntitlementService(nil, nil, nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	if _, err := svc.StartTrial(context.Background(), "user-1"); err != nil {
		t.Fatalf("StartTrial: %v", err)
	}

	svc.now = func() time.Time { return start.AddDate(0, 0, 8) }
	status, err := svc.TrialStatus(context.Background(), "user-1")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if status.IsActive || status.DaysRemaining != 0 || !status.Used {
		t.Errorf("status = %+v, want inactive, used, 0 days", status)
	}
}

func TestEntitlementService_Me(t *testing.T) {
	userRepo := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	subRepo := &mockSubscriptionRepository{latest: &model.Subscription{
		Status:    model.SubscriptionActive,
		ProductID: "ffx_monthly",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		WillRenew: true,
	}}
	svc := newTestEntitlementService(userRepo, subRepo, nil)

	me, err := svc.Me(context.Background(), "user-1")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !me.HasAccess || !me.Subscription.IsActive || me.Subscription.ProductID != "ffx_monthly" {
		t.Errorf("me = %+v", me)
	}
	if me.Trial.Used {
		t.Error("expected unused trial")
	}
}

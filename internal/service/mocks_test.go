package service

import (
	"context"
	"time"

	"fastflix/internal/config"
	"fastflix/internal/model"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================
//
// Each mock implements a repository interface with optional func fields.
// A nil func falls back to the "nothing stored" answer.

type mockUserRepository struct {
	createFn        func(ctx context.Context, user *model.User) error
	getByIDFn       func(ctx context.Context, id string) (*model.User, error)
	getByProviderFn func(ctx context.Context, provider model.AuthProvider, providerUserID string) (*model.User, error)
	getByEmailFn    func(ctx context.Context, email string) (*model.User, error)

	createCalls        []*model.User
	updateProfileCalls []string
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByProvider(ctx context.Context, provider model.AuthProvider, providerUserID string) (*model.User, error) {
	if m.getByProviderFn != nil {
		return m.getByProviderFn(ctx, provider, providerUserID)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id string, email, name, avatarURL *string) error {
	m.updateProfileCalls = append(m.updateProfileCalls, id)
	return nil
}

type mockSubscriptionRepository struct {
	latest *model.Subscription

	upserted      []*model.Subscription
	attachCalls   [][2]string
	expireOverdue int64
}

func (m *mockSubscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) error {
	m.upserted = append(m.upserted, sub)
	return nil
}

func (m *mockSubscriptionRepository) GetCurrentForUser(ctx context.Context, userID string, now time.Time) (*model.Subscription, error) {
	return m.latest, nil
}

func (m *mockSubscriptionRepository) AttachDevice(ctx context.Context, deviceID, userID string) (int64, error) {
	m.attachCalls = append(m.attachCalls, [2]string{deviceID, userID})
	return 1, nil
}

func (m *mockSubscriptionRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return m.expireOverdue, nil
}

// mockTrialRepository keeps trials in memory and enforces the single-use rule like the SQL upsert.
type mockTrialRepository struct {
	trials map[string]*model.Trial
}

func newMockTrialRepository() *mockTrialRepository {
	return &mockTrialRepository{trials: make(map[string]*model.Trial)}
}

func (m *mockTrialRepository) Get(ctx context.Context, userID string) (*model.Trial, error) {
	return m.trials[userID], nil
}

func (m *mockTrialRepository) Start(ctx context.Context, userID string, startedAt, endsAt time.Time) (*model.Trial, error) {
	if t, ok := m.trials[userID]; ok && t.TrialUsed {
		return nil, model.ErrTrialAlreadyUsed
	}
	t := &model.Trial{UserID: userID, TrialStartedAt: &startedAt, TrialEndsAt: &endsAt, TrialUsed: true}
	m.trials[userID] = t
	return t, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:   "test-secret-test-secret-test-secret",
		TokenMaxAge: 3600,
		TrialDays:   7,
	}
}

func strPtr(s string) *string { return &s }

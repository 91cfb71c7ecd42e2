package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fastflix/internal/config"
	"fastflix/internal/model"
	"fastflix/internal/repository"
)

// EntitlementService decides whether a user may use paid features.
// Access = admin override OR active subscription OR active trial.
type EntitlementService struct {
	userRepo  repository.UserRepository
	subRepo   repository.SubscriptionRepository
	trialRepo repository.TrialRepository
	config    *config.Config
	now       func() time.Time
}

func NewEntitlementService(
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	trialRepo repository.TrialRepository,
	cfg *config.Config,
) *EntitlementService {
	return &EntitlementService{
		userRepo:  userRepo,
		subRepo:   subRepo,
		trialRepo: trialRepo,
		config:    cfg,
		now:       time.Now,
	}
}

func (s *EntitlementService) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	now := s.now()
	sub, err := s.subRepo.GetCurrentForUser(ctx, userID, now)
	if err != nil {
		return false, err
	}
	return sub.IsActive(now), nil
}

// IsInActiveTrial ignores trial_used: a started trial is both used and active until it ends.
func (s *EntitlementService) IsInActiveTrial(ctx context.Context, userID string) (bool, error) {
	trial, err := s.trialRepo.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return trial.IsActive(s.now()), nil
}

func (s *EntitlementService) HasAccess(ctx context.Context, userID string) (bool, error) {
	if len(s.config.AdminEmails) > 0 {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil && !errors.Is(err, model.ErrUserNotFound) {
			return false, err
		}
		if user != nil && s.config.IsAdminEmail(user.EmailOrEmpty()) {
			return true, nil
		}
	}

	subscribed, err := s.HasActiveSubscription(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	if subscribed {
		return true, nil
	}

	inTrial, err := s.IsInActiveTrial(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check trial: %w", err)
	}
	return inTrial, nil
}

// StartTrial begins the user's only trial. It fails with model.ErrTrialAlreadyUsed on a second call.
func (s *EntitlementService) StartTrial(ctx context.Context, userID string) (*model.TrialStatus, error) {
	existing, err := s.trialRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.TrialUsed {
		return nil, model.ErrTrialAlreadyUsed
	}

	now := s.now().UTC()
	trial, err := s.trialRepo.Start(ctx, userID, now, now.AddDate(0, 0, s.config.TrialDays))
	if err != nil {
		return nil, err
	}

	log.Printf("[EntitlementService] StartTrial OK: user=%s ends=%s", userID, trial.TrialEndsAt.Format(time.RFC3339))
	status := model.NewTrialStatus(trial, now)
	return &status, nil
}

func (s *EntitlementService) TrialStatus(ctx context.Context, userID string) (model.TrialStatus, error) {
	trial, err := s.trialRepo.Get(ctx, userID)
	if err != nil {
		return model.TrialStatus{}, err
	}
	return model.NewTrialStatus(trial, s.now()), nil
}

// Me assembles the user's profile with subscription and trial state.
func (s *EntitlementService) Me(ctx context.Context, userID string) (*model.MeResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	resp := &model.MeResponse{User: user}

	sub, err := s.subRepo.GetCurrentForUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		expires := sub.ExpiresAt
		resp.Subscription = model.SubscriptionSummary{
			IsActive:  sub.IsActive(now),
			ProductID: sub.ProductID,
			ExpiresAt: &expires,
			WillRenew: sub.WillRenew,
		}
	}

	trial, err := s.trialRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp.Trial = model.NewTrialStatus(trial, now)

	resp.HasAccess = s.config.IsAdminEmail(user.EmailOrEmpty()) || resp.Subscription.IsActive || resp.Trial.IsActive
	return resp, nil
}

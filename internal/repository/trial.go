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

type trialRepository struct {
	db *sqlx.DB
}

func NewTrialRepository(db *sqlx.DB) TrialRepository {
	return &trialRepository{db: db}
}

func (r *trialRepository) Get(ctx context.Context, userID string) (*model.Trial, error) {
	query := r.db.Rebind(`
		SELECT user_id, trial_started_at, trial_ends_at, trial_used
		FROM trials
		WHERE user_id = ?
	`)
	var t model.Trial
	err := r.db.GetContext(ctx, &t, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get trial: %w", err)
	}
	return &t, nil
}

// Start is a single conditional upsert: the update branch only fires while trial_used is false,
// so two concurrent starts cannot both succeed.
func (r *trialRepository) Start(ctx context.Context, userID string, startedAt, endsAt time.Time) (*model.Trial, error) {
	query := r.db.Rebind(`
		INSERT INTO trials (user_id, trial_started_at, trial_ends_at, trial_used)
		VALUES (?, ?, ?, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET
			trial_started_at = excluded.trial_started_at,
			trial_ends_at = excluded.trial_ends_at,
			trial_used = TRUE
		WHERE trials.trial_used = FALSE
	`)
	startedAt, endsAt = startedAt.UTC(), endsAt.UTC()
	result, err := r.db.ExecContext(ctx, query, userID, startedAt, endsAt)
	if err != nil {
		return nil, fmt.Errorf("start trial: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("start trial: %w", err)
	}
	if affected == 0 {
		return nil, model.ErrTrialAlreadyUsed
	}

	return &model.Trial{
		UserID:         userID,
		TrialStartedAt: &startedAt,
		TrialEndsAt:    &endsAt,
		TrialUsed:      true,
	}, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"fastflix/internal/model"
)

const userColumns = `id, email, name, avatar_url, auth_provider, provider_user_id, created_at, updated_at`

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user. ID and timestamps must already be set by the caller.
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := r.db.Rebind(`
		INSERT INTO users (id, email, name, avatar_url, auth_provider, provider_user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		u.ID,
		normalizeEmail(u.Email),
		u.Name,
		u.AvatarURL,
		u.AuthProvider,
		u.ProviderUserID,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	return r.getOne(ctx, query, id)
}

// GetByProvider retrieves a user by identity provider and the provider's subject
func (r *userRepository) GetByProvider(ctx context.Context, provider model.AuthProvider, providerUserID string) (*model.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE auth_provider = ? AND provider_user_id = ?`)
	return r.getOne(ctx, query, provider, providerUserID)
}

// GetByEmail retrieves the oldest user with the given email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, model.ErrUserNotFound
	}
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ? ORDER BY created_at ASC LIMIT 1`)
	return r.getOne(ctx, query, email)
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, email, name, avatarURL *string) error {
	query := r.db.Rebind(`
		UPDATE users
		SET email = COALESCE(email, ?),
		    name = COALESCE(name, ?),
		    avatar_url = COALESCE(avatar_url, ?),
		    updated_at = ?
		WHERE id = ?
	`)
	_, err := r.db.ExecContext(ctx, query, normalizeEmail(email), name, avatarURL, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

func (r *userRepository) getOne(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" {
		return nil
	}
	return &e
}

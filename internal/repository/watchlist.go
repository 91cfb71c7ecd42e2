package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"fastflix/internal/model"
)

type watchlistRepository struct {
	db *sqlx.DB
}

func NewWatchlistRepository(db *sqlx.DB) WatchlistRepository {
	return &watchlistRepository{db: db}
}

// Add saves an item. Adding the same title twice refreshes its title and poster.
func (r *watchlistRepository) Add(ctx context.Context, item *model.WatchlistItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`
		INSERT INTO watchlist (user_id, tmdb_id, media_type, title, poster_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, tmdb_id, media_type) DO UPDATE SET
			title = excluded.title,
			poster_path = excluded.poster_path
	`)
	_, err := r.db.ExecContext(ctx, query,
		item.UserID, item.TMDBID, item.MediaType, item.Title, item.PosterPath, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("add watchlist item: %w", err)
	}
	return nil
}

func (r *watchlistRepository) Remove(ctx context.Context, userID string, tmdbID int64, mediaType string) error {
	query := r.db.Rebind(`DELETE FROM watchlist WHERE user_id = ? AND tmdb_id = ? AND media_type = ?`)
	result, err := r.db.ExecContext(ctx, query, userID, tmdbID, mediaType)
	if err != nil {
		return fmt.Errorf("remove watchlist item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove watchlist item: %w", err)
	}
	if affected == 0 {
		return model.ErrWatchlistItemNotFound
	}
	return nil
}

// List returns the user's watchlist, newest first.
func (r *watchlistRepository) List(ctx context.Context, userID string) ([]model.WatchlistItem, error) {
	query := r.db.Rebind(`
		SELECT user_id, tmdb_id, media_type, title, poster_path, created_at
		FROM watchlist
		WHERE user_id = ?
		ORDER BY created_at DESC
	`)
	items := []model.WatchlistItem{}
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return items, nil
}

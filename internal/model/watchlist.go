package model

import (
	"errors"
	"time"
)

// Media types shared by watchlist entries and recommendations.
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// WatchlistItem is a title a user saved for later.
type WatchlistItem struct {
	UserID     string    `db:"user_id" json:"-"`
	TMDBID     int64     `db:"tmdb_id" json:"tmdbId"`
	MediaType  string    `db:"media_type" json:"mediaType"`
	Title      string    `db:"title" json:"title"`
	PosterPath *string   `db:"poster_path" json:"posterPath"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// AddWatchlistRequest is the request body for POST /api/watchlist.
type AddWatchlistRequest struct {
	TMDBID     int64  `json:"tmdbId" validate:"required,gt=0"`
	MediaType  string `json:"mediaType" validate:"required,oneof=movie tv"`
	Title      string `json:"title" validate:"required,max=500"`
	PosterPath string `json:"posterPath,omitempty" validate:"max=500"`
}

// ErrWatchlistItemNotFound is returned when deleting an entry that does not exist
var ErrWatchlistItemNotFound = errors.New("watchlist item not found")

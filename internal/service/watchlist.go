package service

import (
	"context"
	"strings"

	"fastflix/internal/model"
	"fastflix/internal/repository"
)

type WatchlistService struct {
	repo repository.WatchlistRepository
}

func NewWatchlistService(repo repository.WatchlistRepository) *WatchlistService {
	return &WatchlistService{repo: repo}
}

func (s *WatchlistService) Add(ctx context.Context, userID string, req *model.AddWatchlistRequest) (*model.WatchlistItem, error) {
	item := &model.WatchlistItem{
		UserID:     userID,
		TMDBID:     req.TMDBID,
		MediaType:  req.MediaType,
		Title:      strings.TrimSpace(req.Title),
		PosterPath: optional(req.PosterPath),
	}
	if err := s.repo.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *WatchlistService) Remove(ctx context.Context, userID string, tmdbID int64, mediaType string) error {
	return s.repo.Remove(ctx, userID, tmdbID, mediaType)
}

func (s *WatchlistService) List(ctx context.Context, userID string) ([]model.WatchlistItem, error) {
	return s.repo.List(ctx, userID)
}

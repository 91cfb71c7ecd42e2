package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fastflix/internal/model"
)

const (
	// MaxRecommendations caps how many suggestions are enriched per search.
	MaxRecommendations = 10

	// lookupConcurrency bounds parallel TMDB lookups per search.
	lookupConcurrency = 5
)

// Suggester proposes titles for a free-text query.
type Suggester interface {
	Suggest(ctx context.Context, req *model.SearchRequest) ([]model.Suggestion, error)
}

// TitleLookup resolves a suggestion to TMDB metadata and streaming providers.
type TitleLookup interface {
	Lookup(ctx context.Context, s model.Suggestion, language, country string) (*model.Title, error)
}

// RecommendationService turns a search query into enriched recommendations.
type RecommendationService struct {
	suggester Suggester
	lookup    TitleLookup
}

func NewRecommendationService(suggester Suggester, lookup TitleLookup) *RecommendationService {
	return &RecommendationService{suggester: suggester, lookup: lookup}
}

// Recommend asks the model for suggestions and enriches them concurrently.
// A failed lookup drops that suggestion. If every lookup timed out the search fails with
// model.ErrUpstreamTimeout.
func (s *RecommendationService) Recommend(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	if !req.IncludeMovies && !req.IncludeTVShows {
		return nil, model.ErrNothingToSearch
	}
	startTime := time.Now()

	suggestions, err := s.suggester.Suggest(ctx, req)
	if err != nil {
		log.Printf("[RecommendationService] Suggest FAILED: err=%v", err)
		return nil, err
	}
	suggestions = filterSuggestions(suggestions, req)

	results := make([]*model.Recommendation, len(suggestions))
	var (
		mu       sync.Mutex
		timeouts int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, suggestion := range suggestions {
		g.Go(func() error {
			title, err := s.lookup.Lookup(gctx, suggestion, req.Language, req.Country)
			if err != nil {
				if errors.Is(err, model.ErrUpstreamTimeout) {
					mu.Lock()
					timeouts++
					mu.Unlock()
				}
				if !errors.Is(err, model.ErrTitleNotFound) {
					log.Printf("[RecommendationService] Lookup FAILED: title=%q err=%v", suggestion.Title, err)
				}
				return nil
			}
			results[i] = &model.Recommendation{Title: *title, Reason: suggestion.Reason}
			return nil
		})
	}
	_ = g.Wait()

	resp := &model.SearchResponse{Query: req.Query, Recommendations: []model.Recommendation{}}
	seen := make(map[int64]bool)
	for _, r := range results {
		if r == nil || seen[r.TMDBID] {
			continue
		}
		seen[r.TMDBID] = true
		resp.Recommendations = append(resp.Recommendations, *r)
	}

	if len(resp.Recommendations) == 0 && len(suggestions) > 0 && timeouts == len(suggestions) {
		return nil, model.ErrUpstreamTimeout
	}

	log.Printf("[RecommendationService] Recommend OK: suggestions=%d returned=%d duration=%v",
		len(suggestions), len(resp.Recommendations), time.Since(startTime))
	return resp, nil
}

// filterSuggestions drops media types the caller did not ask for and caps the list.
func filterSuggestions(in []model.Suggestion, req *model.SearchRequest) []model.Suggestion {
	out := make([]model.Suggestion, 0, len(in))
	for _, s := range in {
		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		switch s.Type {
		case model.MediaTypeMovie:
			if !req.IncludeMovies {
				continue
			}
		case model.MediaTypeTV:
			if !req.IncludeTVShows {
				continue
			}
		default:
			continue
		}
		if strings.TrimSpace(s.Title) == "" {
			continue
		}
		out = append(out, s)
		if len(out) == MaxRecommendations {
			break
		}
	}
	return out
}

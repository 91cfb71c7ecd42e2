package handler

import (
	"errors"
	"net/http"

	"fastflix/internal/httputil"
	"fastflix/internal/model"
	"fastflix/internal/service"
)

type SearchHandler struct {
	recommendationService *service.RecommendationService
}

func NewSearchHandler(recommendationService *service.RecommendationService) *SearchHandler {
	return &SearchHandler{recommendationService: recommendationService}
}

// Search returns recommendations for a free-text query. Entitlement is enforced by middleware.
// POST /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	req := model.SearchRequest{IncludeMovies: true, IncludeTVShows: true}
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.recommendationService.Recommend(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNothingToSearch):
			httputil.WriteBadRequest(w, "Include movies, TV shows, or both")
		case errors.Is(err, model.ErrUpstreamTimeout):
			httputil.WriteGatewayTimeout(w, "Recommendation service timed out")
		default:
			httputil.WriteInternalError(w, "Failed to get recommendations")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

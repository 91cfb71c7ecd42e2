package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fastflix/internal/httputil"
	"fastflix/internal/model"
	"fastflix/internal/service"
	"fastflix/internal/transport/http/middleware"
)

type WatchlistHandler struct {
	watchlistService *service.WatchlistService
}

func NewWatchlistHandler(watchlistService *service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlistService: watchlistService}
}

// List returns the user's watchlist, newest first
// GET /api/watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	items, err := h.watchlistService.List(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to get watchlist")
		return
	}
	if items == nil {
		items = []model.WatchlistItem{}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Add saves a title. Adding the same title twice refreshes it.
// POST /api/watchlist
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.AddWatchlistRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.watchlistService.Add(r.Context(), userID, &req)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to add to watchlist")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, item)
}

// Remove deletes a title
// DELETE /api/watchlist/{mediaType}/{tmdbId}
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	mediaType := chi.URLParam(r, "mediaType")
	if mediaType != model.MediaTypeMovie && mediaType != model.MediaTypeTV {
		httputil.WriteBadRequest(w, "mediaType must be movie or tv")
		return
	}
	tmdbID, err := strconv.ParseInt(chi.URLParam(r, "tmdbId"), 10, 64)
	if err != nil || tmdbID <= 0 {
		httputil.WriteBadRequest(w, "Invalid tmdbId")
		return
	}

	if err := h.watchlistService.Remove(r.Context(), userID, tmdbID, mediaType); err != nil {
		if errors.Is(err, model.ErrWatchlistItemNotFound) {
			httputil.WriteNotFound(w, "Watchlist item not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to remove from watchlist")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

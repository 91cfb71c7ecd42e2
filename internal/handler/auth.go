package handler

import (
	"errors"
	"net/http"

	"fastflix/internal/httputil"
	"fastflix/internal/model"
	"fastflix/internal/service"
	"fastflix/internal/transport/http/middleware"
)

// AuthHandler groups sign-in endpoints and the profile endpoint.
type AuthHandler struct {
	authService        *service.AuthService
	entitlementService *service.EntitlementService
}

func NewAuthHandler(authService *service.AuthService, entitlementService *service.EntitlementService) *AuthHandler {
	return &AuthHandler{
		authService:        authService,
		entitlementService: entitlementService,
	}
}

// Apple handles Sign in with Apple
// POST /api/auth/apple
func (h *AuthHandler) Apple(w http.ResponseWriter, r *http.Request) {
	var req model.AppleSignInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.authService.SignInWithApple(r.Context(), &req, middleware.GetDeviceIDFromContext(r.Context()))
	if err != nil {
		writeSignInError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Google handles Google Sign-In
// POST /api/auth/google
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req model.GoogleSignInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.authService.SignInWithGoogle(r.Context(), &req, middleware.GetDeviceIDFromContext(r.Context()))
	if err != nil {
		writeSignInError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Me returns the user with subscription and trial state
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	me, err := h.entitlementService.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to get user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, me)
}

func writeSignInError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrInvalidProviderToken) {
		httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid identity token")
		return
	}
	httputil.WriteInternalError(w, "Failed to sign in")
}

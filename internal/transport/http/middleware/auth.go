package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"fastflix/internal/httputil"
	"fastflix/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"

	// DeviceIDKey is the context key for the X-Device-ID header value
	DeviceIDKey contextKey = "device_id"

	// DeviceIDHeader carries the device identity so purchases made before sign-in can be linked
	DeviceIDHeader = "X-Device-ID"
)

// TokenParser validates session tokens. *service.AuthService implements it.
type TokenParser interface {
	ParseJWT(token string) (*model.TokenClaims, error)
}

// AccessChecker decides whether a user is entitled to paid features.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID string) (bool, error)
}

// DeviceID stores the X-Device-ID header in the request context when present.
func DeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(DeviceIDHeader)); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), DeviceIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware requires a valid "Authorization: Bearer <jwt>" header.
func AuthMiddleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			}

			claims, err := tokens.ParseJWT(tokenString)
			if err != nil {
				if errors.Is(err, model.ErrTokenExpired) {
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
					return
				}
				httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireEntitlement must run after AuthMiddleware. It answers 402 when the user has no access.
func RequireEntitlement(checker AccessChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Not authenticated")
				return
			}

			allowed, err := checker.HasAccess(r.Context(), userID)
			if err != nil {
				log.Printf("[Entitlement] HasAccess FAILED: user=%s err=%v", userID, err)
				httputil.WriteInternalError(w, "Failed to check entitlement")
				return
			}
			if !allowed {
				httputil.WritePaymentRequired(w, "An active subscription or trial is required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetDeviceIDFromContext returns the X-Device-ID value, or "" when the header was absent.
func GetDeviceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(DeviceIDKey).(string)
	return id
}

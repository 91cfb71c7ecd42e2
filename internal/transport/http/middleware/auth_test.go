package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fastflix/internal/httputil"
	"fastflix/internal/model"
)

type fakeTokens struct {
	claims *model.TokenClaims
	err    error
}

func (f *fakeTokens) ParseJWT(token string) (*model.TokenClaims, error) {
	return f.claims, f.err
}

type fakeChecker struct {
	allowed bool
	err     error
}

func (f *fakeChecker) HasAccess(ctx context.Context, userID string) (bool, error) {
	return f.allowed, f.err
}

func okHandler(seen *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		tokens     *fakeTokens
		wantStatus int
		wantCode   string
		wantUser   string
	}{
		{
			name:       "valid token",
			header:     "Bearer good",
			tokens:     &fakeTokens{claims: &model.TokenClaims{UserID: "user-1"}},
			wantStatus: http.StatusNoContent,
			wantUser:   "user-1",
		},
		{
			name:       "missing header",
			tokens:     &fakeTokens{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   httputil.ErrCodeUnauthorized,
		},
		{
			name:       "expired",
			header:     "Bearer old",
			tokens:     &fakeTokens{err: model.ErrTokenExpired},
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.CodeTokenExpired,
		},
		{
			name:       "invalid",
			header:     "bearer junk",
			tokens:     &fakeTokens{err: model.ErrTokenInvalid},
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.CodeTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := AuthMiddleware(tt.tokens)(okHandler(&seen))
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if code := errorCode(t, rec); code != tt.wantCode {
					t.Errorf("code = %q, want %q", code, tt.wantCode)
				}
			}
			if seen != tt.wantUser {
				t.Errorf("user in context = %q, want %q", seen, tt.wantUser)
			}
		})
	}
}

func TestRequireEntitlement(t *testing.T) {
	tests := []struct {
		name       string
		checker    *fakeChecker
		wantStatus int
	}{
		{"allowed", &fakeChecker{allowed: true}, http.StatusNoContent},
		{"no entitlement", &fakeChecker{}, http.StatusPaymentRequired},
		{"check failed", &fakeChecker{err: errors.New("db down")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			tokens := &fakeTokens{claims: &model.TokenClaims{UserID: "user-1"}}
			h := AuthMiddleware(tokens)(RequireEntitlement(tt.checker)(okHandler(&seen)))
			req := httptest.NewRequest(http.MethodPost, "/api/search", nil)
			req.Header.Set("Authorization", "Bearer good")
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestDeviceID(t *testing.T) {
	var got string
	h := DeviceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetDeviceIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/auth/google", nil)
	req.Header.Set(DeviceIDHeader, " ffx_device_abc_0123456789abcdef ")

	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "ffx_device_abc_0123456789abcdef" {
		t.Errorf("device id = %q", got)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fastflix/internal/config"
	"fastflix/internal/model"
	"fastflix/internal/repository"
)

// IdentityVerifier checks an identity token issued by Apple or Google.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*model.ProviderIdentity, error)
}

// AuthService issues and verifies session JWTs and runs provider sign-in.
type AuthService struct {
	userRepo  repository.UserRepository
	subRepo   repository.SubscriptionRepository
	verifiers map[model.AuthProvider]IdentityVerifier
	config    *config.Config
	now       func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	verifiers map[model.AuthProvider]IdentityVerifier,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		subRepo:   subRepo,
		verifiers: verifiers,
		config:    cfg,
		now:       time.Now,
	}
}

// GenerateJWT signs a session token carrying only the user id and email.
func (s *AuthService) GenerateJWT(userID, email string) (string, error) {
	now := s.now()
	claims := model.TokenClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.TokenMaxAge) * time.Second)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseJWT validates a session token. The error is model.ErrTokenExpired or model.ErrTokenInvalid.
func (s *AuthService) ParseJWT(tokenString string) (*model.TokenClaims, error) {
	claims := &model.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", model.ErrTokenInvalid, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, model.ErrTokenInvalid
	}
	return claims, nil
}

// VerifyJWT returns nil for any token that is malformed, tampered with or expired.
func (s *AuthService) VerifyJWT(tokenString string) *model.TokenClaims {
	claims, err := s.ParseJWT(tokenString)
	if err != nil {
		return nil
	}
	return claims
}

// SignInWithApple verifies the Apple identity token and finds or creates the user.
// Apple only includes the name on the first authorization, so it comes from the request body.
// The body's email is ignored: only the signed token can vouch for an address.
func (s *AuthService) SignInWithApple(ctx context.Context, req *model.AppleSignInRequest, deviceID string) (*model.AuthResponse, error) {
	identity, err := s.verify(ctx, model.AuthProviderApple, req.IdentityToken)
	if err != nil {
		return nil, err
	}

	if req.User != nil {
		if req.User.Name != nil {
			identity.Name = strings.TrimSpace(req.User.Name.FirstName + " " + req.User.Name.LastName)
		}
	}

	return s.SignIn(ctx, identity, deviceID)
}

// SignInWithGoogle verifies the Google ID token and finds or creates the user.
func (s *AuthService) SignInWithGoogle(ctx context.Context, req *model.GoogleSignInRequest, deviceID string) (*model.AuthResponse, error) {
	identity, err := s.verify(ctx, model.AuthProviderGoogle, req.IDToken)
	if err != nil {
		return nil, err
	}
	return s.SignIn(ctx, identity, deviceID)
}

// SignIn is a find-or-create: provider identity first, then verified email, then a new row.
// Sign-ins from different providers sharing a verified email land on the same user.
func (s *AuthService) SignIn(ctx context.Context, identity *model.ProviderIdentity, deviceID string) (*model.AuthResponse, error) {
	email := identity.TrustedEmail()
	user, err := s.userRepo.GetByProvider(ctx, identity.Provider, identity.Subject)
	if errors.Is(err, model.ErrUserNotFound) && email != "" {
		user, err = s.userRepo.GetByEmail(ctx, email)
	}

	switch {
	case err == nil:
		if err := s.userRepo.UpdateProfile(ctx, user.ID,
			optional(email), optional(identity.Name), optional(identity.AvatarURL)); err != nil {
			log.Printf("[AuthService] UpdateProfile FAILED: user=%s err=%v", user.ID, err)
		}
		log.Printf("[AuthService] SignIn existing user: user=%s provider=%s", user.ID, identity.Provider)
	case errors.Is(err, model.ErrUserNotFound):
		user, err = s.createUser(ctx, identity)
		if err != nil {
			return nil, err
		}
		log.Printf("[AuthService] SignIn created user: user=%s provider=%s", user.ID, identity.Provider)
	default:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if deviceID != "" {
		attached, err := s.subRepo.AttachDevice(ctx, deviceID, user.ID)
		if err != nil {
			log.Printf("[AuthService] AttachDevice FAILED: user=%s device=%s err=%v", user.ID, deviceID, err)
		} else if attached > 0 {
			log.Printf("[AuthService] AttachDevice OK: user=%s device=%s subscriptions=%d", user.ID, deviceID, attached)
		}
	}

	token, err := s.GenerateJWT(user.ID, user.EmailOrEmpty())
	if err != nil {
		return nil, err
	}

	return &model.AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) verify(ctx context.Context, provider model.AuthProvider, token string) (*model.ProviderIdentity, error) {
	verifier, ok := s.verifiers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s sign-in is not configured", model.ErrInvalidProviderToken, provider)
	}
	identity, err := verifier.Verify(ctx, token)
	if err != nil {
		log.Printf("[AuthService] Verify FAILED: provider=%s err=%v", provider, err)
		return nil, err
	}
	return identity, nil
}

func (s *AuthService) createUser(ctx context.Context, identity *model.ProviderIdentity) (*model.User, error) {
	now := s.now().UTC()
	user := &model.User{
		ID:             uuid.New().String(),
		Email:          optional(identity.TrustedEmail()),
		Name:           optional(identity.Name),
		AvatarURL:      optional(identity.AvatarURL),
		AuthProvider:   identity.Provider,
		ProviderUserID: identity.Subject,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

package model

import (
	"errors"
	"strings"
	"time"
)

// AuthProvider identifies the identity provider a user signed in with.
type AuthProvider string

const (
	AuthProviderApple  AuthProvider = "apple"
	AuthProviderGoogle AuthProvider = "google"
)

// User represents an authenticated account.
type User struct {
	ID             string       `db:"id" json:"id"`
	Email          *string      `db:"email" json:"email"`
	Name           *string      `db:"name" json:"name"`
	AvatarURL      *string      `db:"avatar_url" json:"avatarUrl"`
	AuthProvider   AuthProvider `db:"auth_provider" json:"authProvider"`
	ProviderUserID string       `db:"provider_user_id" json:"-"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updatedAt"`
}

// EmailOrEmpty dereferences Email.
func (u *User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// ProviderIdentity is what a verified Apple or Google identity token tells us about the caller.
type ProviderIdentity struct {
	Provider AuthProvider
	Subject  string
	Email    string
	// EmailVerified is the token's email_verified claim. Only a verified email is used to link
	// or store accounts.
	EmailVerified bool
	Name          string
	AvatarURL     string
}

// TrustedEmail returns the lowercased email when the provider vouched for it, else "".
func (p *ProviderIdentity) TrustedEmail() string {
	if !p.EmailVerified {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(p.Email))
}

// AppleSignInRequest is the request body for POST /api/auth/apple.
// User is only sent by Apple on the very first authorization.
type AppleSignInRequest struct {
	IdentityToken string         `json:"identityToken" validate:"required"`
	User          *AppleUserInfo `json:"user,omitempty"`
}

// AppleUserInfo is the optional profile Apple hands to the app on first sign-in.
// Email is client-supplied and never trusted; the identity token's email is used instead.
type AppleUserInfo struct {
	Email string     `json:"email,omitempty" validate:"omitempty,email"`
	Name  *AppleName `json:"name,omitempty"`
}

type AppleName struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// GoogleSignInRequest is the request body for POST /api/auth/google.
type GoogleSignInRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// AuthResponse is returned after a successful sign-in.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidProviderToken is returned when an Apple/Google identity token fails verification
	ErrInvalidProviderToken = errors.New("invalid identity provider token")
)

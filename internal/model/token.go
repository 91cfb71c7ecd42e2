package model

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of the session JWT issued by the backend.
// Only identifiers live here; never provider tokens or anything secret.
type TokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Token errors
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Token API error codes (used in HTTP responses)
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)

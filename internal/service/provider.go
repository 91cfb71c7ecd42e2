package service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fastflix/internal/model"
)

// Identity provider endpoints.
const (
	AppleKeysURL  = "https://appleid.apple.com/auth/keys"
	GoogleKeysURL = "https://www.googleapis.com/oauth2/v3/certs"

	// JWKSCacheTTL is how long fetched signing keys are trusted before a refetch.
	JWKSCacheTTL = 30 * time.Minute
)

var (
	appleIssuers  = []string{"https://appleid.apple.com"}
	googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}
)

// JWKSCache fetches and caches the RSA signing keys published at a JWKS URL.
// An unknown kid forces a refetch, so provider key rotation is picked up immediately.
type JWKSCache struct {
	url    string
	client *http.Client
	ttl    time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWKSCache(url string, client *http.Client) *JWKSCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSCache{
		url:    url,
		client: client,
		ttl:    JWKSCacheTTL,
		keys:   make(map[string]*rsa.PublicKey),
	}
}

// Key returns the public key for kid.
func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := time.Since(c.fetchedAt) <= c.ttl
	c.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if key, ok := c.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("no signing key with kid %q", kid)
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	log.Printf("[JWKS] Refreshing keys: url=%s", c.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build jwks request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: HTTP %d", resp.StatusCode)
	}

	var keySet struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&keySet); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(keySet.Keys))
	for _, k := range keySet.Keys {
		if k.Kty != "" && k.Kty != "RSA" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return fmt.Errorf("decode modulus for kid %q: %w", k.Kid, err)
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return fmt.Errorf("decode exponent for kid %q: %w", k.Kid, err)
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// JWKSVerifier validates RS256 identity tokens from one provider.
type JWKSVerifier struct {
	provider  model.AuthProvider
	keys      *JWKSCache
	issuers   []string
	audiences []string
}

// NewAppleVerifier accepts tokens minted for any of the given bundle ids.
func NewAppleVerifier(keys *JWKSCache, bundleIDs []string) *JWKSVerifier {
	return &JWKSVerifier{provider: model.AuthProviderApple, keys: keys, issuers: appleIssuers, audiences: bundleIDs}
}

// NewGoogleVerifier accepts tokens minted for any of the given OAuth client ids.
func NewGoogleVerifier(keys *JWKSCache, clientIDs []string) *JWKSVerifier {
	return &JWKSVerifier{provider: model.AuthProviderGoogle, keys: keys, issuers: googleIssuers, audiences: clientIDs}
}

func (v *JWKSVerifier) Verify(ctx context.Context, tokenString string) (*model.ProviderIdentity, error) {
	if len(v.audiences) == 0 {
		return nil, fmt.Errorf("%w: no %s audiences configured", model.ErrInvalidProviderToken, v.provider)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("missing kid in token header")
		}
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidProviderToken, err)
	}

	issuer, _ := claims.GetIssuer()
	if !contains(v.issuers, issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", model.ErrInvalidProviderToken, issuer)
	}

	audiences, _ := claims.GetAudience()
	if !intersects(v.audiences, audiences) {
		return nil, fmt.Errorf("%w: unexpected audience %v", model.ErrInvalidProviderToken, audiences)
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", model.ErrInvalidProviderToken)
	}

	identity := &model.ProviderIdentity{Provider: v.provider, Subject: subject}
	identity.Email, _ = claims["email"].(string)
	identity.EmailVerified = claimTrue(claims["email_verified"])
	identity.Name, _ = claims["name"].(string)
	identity.AvatarURL, _ = claims["picture"].(string)
	return identity, nil
}

// claimTrue accepts both forms of a boolean claim; Apple sends "true" as a string.
func claimTrue(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, item := range b {
		if contains(a, item) {
			return true
		}
	}
	return false
}

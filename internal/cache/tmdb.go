package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"fastflix/internal/model"
)

const (
	// TitleCachePrefix is the key prefix for resolved TMDB titles
	TitleCachePrefix = "tmdb:"

	// TitleCacheTTL keeps provider availability reasonably fresh
	TitleCacheTTL = 24 * time.Hour
)

// TitleLookup is satisfied by the TMDB client and by CachedLookup itself.
type TitleLookup interface {
	Lookup(ctx context.Context, s model.Suggestion, language, country string) (*model.Title, error)
}

// CachedLookup memoizes TMDB lookups in Redis. Cache failures never fail a lookup.
type CachedLookup struct {
	client *redis.Client
	next   TitleLookup
	ttl    time.Duration
}

// NewCachedLookup wraps next with a Redis cache. A nil client disables caching.
func NewCachedLookup(client *redis.Client, next TitleLookup) *CachedLookup {
	return &CachedLookup{client: client, next: next, ttl: TitleCacheTTL}
}

// titleKey returns the Redis key for a suggestion in a given locale.
func titleKey(s model.Suggestion, language, country string) string {
	return fmt.Sprintf("%s%s:%s:%s:%s:%d", TitleCachePrefix,
		strings.ToLower(s.Type),
		strings.ToLower(language),
		strings.ToUpper(country),
		strings.ToLower(strings.TrimSpace(s.Title)),
		s.Year)
}

func (c *CachedLookup) Lookup(ctx context.Context, s model.Suggestion, language, country string) (*model.Title, error) {
	if c.client == nil {
		return c.next.Lookup(ctx, s, language, country)
	}
	key := titleKey(s, language, country)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var title model.Title
		if jsonErr := json.Unmarshal(raw, &title); jsonErr == nil {
			return &title, nil
		}
		log.Printf("[TitleCache] Get: key=%s CORRUPT, refetching", key)
	case err != redis.Nil:
		log.Printf("[TitleCache] Get FAILED: key=%s err=%v", key, err)
	}

	title, err := c.next.Lookup(ctx, s, language, country)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(title); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			log.Printf("[TitleCache] Set FAILED: key=%s err=%v", key, err)
		}
	}
	return title, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/pkg/hash"
)

// Redis key TTLs.
const (
	SubmissionCacheTTL = 5 * time.Minute
	BoardCacheTTL      = 30 * time.Second
	URLCacheTTL        = time.Hour
)

// CacheService provides a Redis cache-aside layer for submission and board
// lookups. A nil *CacheService and one without a client are both no-ops.
type CacheService struct {
	rdb *redis.Client
}

// NewCacheService creates a new CacheService. If redisURL is empty or connection
// fails, it returns a CacheService with a nil client (cache operations become no-ops).
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

func (c *CacheService) enabled() bool {
	return c != nil && c.rdb != nil
}

// GetSubmission retrieves a cached submission response. Returns nil if not
// cached or cache is disabled.
func (c *CacheService) GetSubmission(ctx context.Context, id string) ([]byte, error) {
	return c.get(ctx, submissionKey(id))
}

// SetSubmission stores a submission response in cache.
func (c *CacheService) SetSubmission(ctx context.Context, id string, data any) error {
	return c.set(ctx, submissionKey(id), data, SubmissionCacheTTL)
}

// InvalidateSubmission removes a submission from cache (called after vote
// and category changes).
func (c *CacheService) InvalidateSubmission(ctx context.Context, id string) error {
	return c.del(ctx, submissionKey(id))
}

// GetSubmissionID returns the cached submission id for a normalized URL, or
// "" when unknown. The mapping never changes once created.
func (c *CacheService) GetSubmissionID(ctx context.Context, url string) (string, error) {
	data, err := c.get(ctx, urlKey(url))
	if err != nil || data == nil {
		return "", err
	}
	return string(data), nil
}

// SetSubmissionID caches the URL to submission id mapping.
func (c *CacheService) SetSubmissionID(ctx context.Context, url, id string) error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Set(ctx, urlKey(url), id, URLCacheTTL).Err()
}

// GetBoard retrieves a cached shared board response.
func (c *CacheService) GetBoard(ctx context.Context, token string) ([]byte, error) {
	return c.get(ctx, boardKey(token))
}

// SetBoard stores a shared board response in cache.
func (c *CacheService) SetBoard(ctx context.Context, token string, data any) error {
	return c.set(ctx, boardKey(token), data, BoardCacheTTL)
}

// InvalidateBoard removes a shared board from cache.
func (c *CacheService) InvalidateBoard(ctx context.Context, token string) error {
	return c.del(ctx, boardKey(token))
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Close()
}

func (c *CacheService) get(ctx context.Context, key string) ([]byte, error) {
	if !c.enabled() {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (c *CacheService) set(ctx context.Context, key string, data any, ttl time.Duration) error {
	if !c.enabled() {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

func (c *CacheService) del(ctx context.Context, key string) error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Del(ctx, key).Err()
}

func submissionKey(id string) string {
	return fmt.Sprintf("submission:%s", id)
}

func urlKey(url string) string {
	return fmt.Sprintf("submission_url:%s", hash.SHA256Hex(url))
}

func boardKey(token string) string {
	return fmt.Sprintf("board:%s", hash.SHA256Hex(token))
}

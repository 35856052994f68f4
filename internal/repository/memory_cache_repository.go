package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

// MemoryCacheRepository is an in-process cache used when Redis is disabled.
// Values are stored as JSON so readers get the same copy semantics as Redis.
type MemoryCacheRepository struct {
	store *gocache.Cache
}

// NewMemoryCacheRepository constructs an in-memory cache with the given default TTL.
func NewMemoryCacheRepository(defaultTTL time.Duration) *MemoryCacheRepository {
	return &MemoryCacheRepository{store: gocache.New(defaultTTL, 2*defaultTTL)}
}

// Get loads key into dest or returns ErrCacheMiss.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.store.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	payload, ok := raw.([]byte)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value under key for ttl.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.store.Set(key, payload, ttl)
	return nil
}

// DeleteByPattern removes keys matching a glob pattern such as "timetable:*".
// A trailing "*" matches any suffix, slashes included, as Redis SCAN MATCH does.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range r.store.Items() {
		matched, err := matchKey(pattern, key)
		if err != nil {
			return fmt.Errorf("match cache pattern %s: %w", pattern, err)
		}
		if matched {
			r.store.Delete(key)
		}
	}
	return nil
}

func matchKey(pattern, key string) (bool, error) {
	if prefix := strings.TrimSuffix(pattern, "*"); prefix != pattern && !strings.ContainsAny(prefix, `*?[\`) {
		return strings.HasPrefix(key, prefix), nil
	}
	return path.Match(pattern, key)
}

// Ping always succeeds.
func (r *MemoryCacheRepository) Ping(context.Context) error {
	return nil
}

// Close drops every entry.
func (r *MemoryCacheRepository) Close() error {
	r.store.Flush()
	return nil
}

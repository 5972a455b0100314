package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/santiagomed/chef/llm"
)

// ImageCache remembers generated step images. Provider URLs expire, so
// entries must not outlive them.
type ImageCache interface {
	Get(ctx context.Context, key string) (*llm.GeneratedImage, bool, error)
	Set(ctx context.Context, key string, img *llm.GeneratedImage) error
}

// cacheKey normalizes a step title so trivially different spellings share
// an entry.
func cacheKey(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

type memoryEntry struct {
	img     *llm.GeneratedImage
	expires time.Time
}

type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*llm.GeneratedImage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.img, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, img *llm.GeneratedImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = memoryEntry{img: img, expires: now.Add(m.ttl)}
	return nil
}

const redisKeyPrefix = "chef:image:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr and checks the connection before returning.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (*llm.GeneratedImage, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var img llm.GeneratedImage
	if err := json.Unmarshal(data, &img); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %q: %w", key, err)
	}
	return &img, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, img *llm.GeneratedImage) error {
	data, err := json.Marshal(img)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

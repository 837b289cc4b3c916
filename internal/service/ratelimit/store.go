package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store 固定窗口计数存储
type Store interface {
	// Incr 递增计数器并返回当前值与窗口剩余时长
	// 窗口首次命中时设置过期时间
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// incrScript 原子递增并在首次命中时设置过期
// 返回 [count, pttl]
var incrScript = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
if c == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {c, ttl}
`)

// RedisStore 基于 Redis 的计数存储，多实例部署时共享窗口
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 计数存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr 实现 Store
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	result, err := incrScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, err
	}

	count, _ := result[0].(int64)
	ttlMs, _ := result[1].(int64)
	return count, time.Duration(ttlMs) * time.Millisecond, nil
}

// MemoryStore 进程内计数存储，用于单实例部署和测试
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count    int64
	resetsAt time.Time
}

// NewMemoryStore 创建内存计数存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Incr 实现 Store
func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok || now.After(b.resetsAt) {
		b = &bucket{resetsAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++
	return b.count, b.resetsAt.Sub(now), nil
}

// Cleanup 清理已过期的计数器
func (s *MemoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, b := range s.buckets {
		if now.After(b.resetsAt) {
			delete(s.buckets, key)
		}
	}
}

// StartCleanup 启动周期清理协程，返回停止函数
func (s *MemoryStore) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

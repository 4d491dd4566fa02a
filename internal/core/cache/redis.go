package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache miss")

// DefaultLoadTimeout 合并回源的上限；回源不跟随任一调用方的 ctx 取消
const DefaultLoadTimeout = 30 * time.Second

type Cache struct {
	RDB         *redis.Client
	LoadTimeout time.Duration
	prefix      string
	sf          singleflight.Group
}

func New(addr, pass string, db int, prefix string) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), prefix)
}

func NewWithClient(rdb *redis.Client, prefix string) *Cache {
	return &Cache{RDB: rdb, LoadTimeout: DefaultLoadTimeout, prefix: prefix}
}

// Key 统一加前缀
func (c *Cache) Key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		if k != "" {
			k += ":"
		}
		k += p
	}
	return k
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.RDB.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.RDB.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return b, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.RDB.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// GetOrLoad 先读缓存；未命中（或 redis 不可用）时 singleflight 合并回源并回写
// 回源的 ctx 与调用方解耦，某个调用方取消不会连累同一批等待者
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := c.Get(ctx, key); err == nil {
		return b, nil
	}
	ch := c.sf.DoChan(key, func() (any, error) {
		timeout := c.LoadTimeout
		if timeout <= 0 {
			timeout = DefaultLoadTimeout
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		b, e := load(lctx)
		if e != nil {
			return nil, e
		}
		// 回写失败不影响本次结果
		_ = c.RDB.Set(lctx, key, b, ttl).Err()
		return b, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) Close() error { return c.RDB.Close() }
